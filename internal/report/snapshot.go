package report

import (
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/oreerr"
	"github.com/wyfcoding/ore/internal/scriptengine"
)

// PayLogEntrySnapshot is the flattened, msgpack-friendly form of one
// scriptengine.PayLogEntry: the random-variable lanes are expanded to a
// plain slice so the snapshot carries no engine-internal types.
type PayLogEntrySnapshot struct {
	Amount       []float64 `msgpack:"amount"`
	Mask         []bool    `msgpack:"mask"`
	Obs          time.Time `msgpack:"obs"`
	Pay          time.Time `msgpack:"pay"`
	Currency     string    `msgpack:"currency"`
	LegNo        int       `msgpack:"legNo"`
	CashflowType string    `msgpack:"cashflowType"`
	Slot         int       `msgpack:"slot"`
}

// PayLogSnapshot is a checkpointable copy of a PayLog.
type PayLogSnapshot struct {
	Entries []PayLogEntrySnapshot `msgpack:"entries"`
}

// SnapshotPayLog flattens log into its msgpack-friendly form.
func SnapshotPayLog(log *scriptengine.PayLog) PayLogSnapshot {
	entries := log.Entries()
	snap := PayLogSnapshot{Entries: make([]PayLogEntrySnapshot, len(entries))}
	for i, e := range entries {
		size := e.Amount.Size()
		amount := make([]float64, size)
		mask := make([]bool, size)
		for k := 0; k < size; k++ {
			amount[k] = e.Amount.At(k)
			mask[k] = e.Mask.At(k)
		}
		snap.Entries[i] = PayLogEntrySnapshot{
			Amount:       amount,
			Mask:         mask,
			Obs:          e.Obs,
			Pay:          e.Pay,
			Currency:     e.Currency,
			LegNo:        e.LegNo,
			CashflowType: e.CashflowType,
			Slot:         e.Slot,
		}
	}
	return snap
}

// ScenarioDataSnapshot is a checkpointable copy of a cube.ScenarioData.
type ScenarioDataSnapshot struct {
	DimDates   int       `msgpack:"dimDates"`
	DimSamples int       `msgpack:"dimSamples"`
	Keys       []string  `msgpack:"keys"`
	Data       []float64 `msgpack:"data"`
}

// SnapshotScenarioData copies sd's full dense array into a snapshot.
func SnapshotScenarioData(sd *cube.ScenarioData) ScenarioDataSnapshot {
	keys := sd.Keys()
	data := make([]float64, 0, sd.DimDates()*sd.DimSamples()*len(keys))
	for d := 0; d < sd.DimDates(); d++ {
		for s := 0; s < sd.DimSamples(); s++ {
			for _, k := range keys {
				v, _ := sd.Get(d, s, k)
				data = append(data, v)
			}
		}
	}
	return ScenarioDataSnapshot{
		DimDates:   sd.DimDates(),
		DimSamples: sd.DimSamples(),
		Keys:       keys,
		Data:       data,
	}
}

// Restore rebuilds a cube.ScenarioData from the snapshot.
func (s ScenarioDataSnapshot) Restore() (*cube.ScenarioData, error) {
	sd, err := cube.NewScenarioData(s.DimDates, s.DimSamples, s.Keys)
	if err != nil {
		return nil, err
	}
	i := 0
	for d := 0; d < s.DimDates; d++ {
		for sample := 0; sample < s.DimSamples; sample++ {
			for _, k := range s.Keys {
				if err := sd.Set(d, sample, k, s.Data[i]); err != nil {
					return nil, err
				}
				i++
			}
		}
	}
	return sd, nil
}

// SaveSnapshot msgpack-encodes v (a PayLogSnapshot or ScenarioDataSnapshot,
// or any combination wrapped in a struct) to path.
func SaveSnapshot(path string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return oreerr.NewIO(err, "report: encoding snapshot for %q", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return oreerr.NewIO(err, "report: writing snapshot %q", path)
	}
	return nil
}

// LoadSnapshot msgpack-decodes path into v (a pointer).
func LoadSnapshot(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return oreerr.NewIO(err, "report: reading snapshot %q", path)
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return oreerr.NewIO(err, "report: decoding snapshot %q", path)
	}
	return nil
}
