// Package report writes the external file formats listed in: the NPV
// cube's binary serialization, the exposure.csv and xva.csv reports, and a
// msgpack snapshot codec for internal scenario-data/paylog checkpoints.
package report

import (
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/oreerr"
)

// cubeMagic tags the file so a stray file doesn't get silently misread.
const cubeMagic uint32 = 0x4f524543 // "OREC"

// SaveCube writes c to path using the wire layout mandated by: a fixed
// header, the trade-id list, the date list, the C-order data array, then
// the T0 row.
func SaveCube(path string, c *cube.Cube) error {
	f, err := os.Create(path)
	if err != nil {
		return oreerr.NewIO(err, "report: creating cube file %q", path)
	}
	defer f.Close()
	if err := WriteCube(f, c); err != nil {
		return oreerr.NewIO(err, "report: writing cube file %q", path)
	}
	return nil
}

// WriteCube encodes c onto w.
func WriteCube(w io.Writer, c *cube.Cube) error {
	if err := binary.Write(w, binary.LittleEndian, cubeMagic); err != nil {
		return err
	}
	header := [4]uint32{
		uint32(c.NumIds()),
		uint32(c.NumDates()),
		uint32(c.Samples()),
		uint32(c.Depth()),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	if err := writeTime(w, c.AsOf()); err != nil {
		return err
	}
	for _, id := range c.TradeIDs() {
		if err := writeString(w, id); err != nil {
			return err
		}
	}
	for _, d := range c.Dates() {
		if err := writeTime(w, d); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, c.RawData()); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, c.RawT0())
}

// LoadCube reads a cube file previously written by SaveCube/WriteCube.
func LoadCube(path string) (*cube.Cube, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oreerr.NewIO(err, "report: opening cube file %q", path)
	}
	defer f.Close()
	c, err := ReadCube(f)
	if err != nil {
		return nil, oreerr.NewIO(err, "report: reading cube file %q", path)
	}
	return c, nil
}

// ReadCube decodes a cube from r.
func ReadCube(r io.Reader) (*cube.Cube, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != cubeMagic {
		return nil, oreerr.NewIO(nil, "report: not a cube file (bad magic %x)", magic)
	}
	var header [4]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	numIds, numDates, samples, depth := int(header[0]), int(header[1]), int(header[2]), int(header[3])

	asOf, err := readTime(r)
	if err != nil {
		return nil, err
	}
	tradeIDs := make([]string, numIds)
	for i := range tradeIDs {
		tradeIDs[i], err = readString(r)
		if err != nil {
			return nil, err
		}
	}
	dates := make([]time.Time, numDates)
	for i := range dates {
		dates[i], err = readTime(r)
		if err != nil {
			return nil, err
		}
	}
	data := make([]float32, numIds*numDates*samples*depth)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, err
	}
	t0 := make([]float32, numIds*depth)
	if err := binary.Read(r, binary.LittleEndian, t0); err != nil {
		return nil, err
	}
	return cube.FromRaw(tradeIDs, dates, samples, depth, asOf, data, t0)
}

func writeTime(w io.Writer, t time.Time) error {
	return binary.Write(w, binary.LittleEndian, t.UTC().UnixNano())
}

func readTime(r io.Reader) (time.Time, error) {
	var nanos int64
	if err := binary.Read(r, binary.LittleEndian, &nanos); err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, nanos).UTC(), nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
