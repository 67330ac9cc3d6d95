// Package marketdata loads the CSV quote and fixing files described in
// and exposes them as a model.FixingStore plus a flat quote lookup usable
// by curve/surface construction outside this module's scope.
package marketdata

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wyfcoding/ore/internal/oreerr"
)

// Quote is one parsed CSV row: a date, the full slash-delimited key, and
// the value observed on that date.
type Quote struct {
	Date  time.Time
	Key   string
	Value float64
}

// QuoteKey is a quote key split on "/" into its CATEGORY/SUBCATEGORY/
// CURVE/CCY/... components, e.g. EQUITY_OPTION/RATE_LNVOL/SP5/USD/1Y/ATMF.
type QuoteKey struct {
	Category    string
	Subcategory string
	Curve       string
	Ccy         string
	Tenor       []string
}

// ParseKey splits a raw quote key on "/".
func ParseKey(raw string) QuoteKey {
	parts := strings.Split(raw, "/")
	k := QuoteKey{}
	if len(parts) > 0 {
		k.Category = parts[0]
	}
	if len(parts) > 1 {
		k.Subcategory = parts[1]
	}
	if len(parts) > 2 {
		k.Curve = parts[2]
	}
	if len(parts) > 3 {
		k.Ccy = parts[3]
	}
	if len(parts) > 4 {
		k.Tenor = parts[4:]
	}
	return k
}

const dateLayout = "2006-01-02"

// Load parses a date,key,value CSV file (no header) into Quotes.
func Load(path string) ([]Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oreerr.NewIO(err, "marketdata: opening %q", path)
	}
	defer f.Close()
	return parse(f, path)
}

func parse(r io.Reader, source string) ([]Quote, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var quotes []Quote
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, oreerr.NewIO(err, "marketdata: reading %q", source)
		}
		date, err := time.Parse(dateLayout, rec[0])
		if err != nil {
			return nil, oreerr.NewIO(err, "marketdata: %q: invalid date %q", source, rec[0])
		}
		value, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, oreerr.NewIO(err, "marketdata: %q: invalid value %q for key %q", source, rec[2], rec[1])
		}
		quotes = append(quotes, Quote{Date: date, Key: rec[1], Value: value})
	}
	return quotes, nil
}

// Store indexes quotes by key then date, usable both as a generic curve
// input and, directly, as a model.FixingStore (the fixing file shares the
// same date,key,value shape, interpreted as historical index levels keyed
// by index name rather than curve path).
type Store struct {
	byKey map[string]map[time.Time]float64
	keys  []string
}

// NewStore indexes quotes for lookup.
func NewStore(quotes []Quote) *Store {
	s := &Store{byKey: make(map[string]map[time.Time]float64)}
	for _, q := range quotes {
		byDate, ok := s.byKey[q.Key]
		if !ok {
			byDate = make(map[time.Time]float64)
			s.byKey[q.Key] = byDate
			s.keys = append(s.keys, q.Key)
		}
		byDate[q.Date] = q.Value
	}
	return s
}

// Value returns the quote observed for key on date.
func (s *Store) Value(key string, date time.Time) (float64, bool) {
	byDate, ok := s.byKey[key]
	if !ok {
		return 0, false
	}
	v, ok := byDate[date]
	return v, ok
}

// Latest returns the most recent quote on or before date, or the overall
// most recent quote if date is zero.
func (s *Store) Latest(key string, date time.Time) (float64, bool) {
	byDate, ok := s.byKey[key]
	if !ok {
		return 0, false
	}
	var best time.Time
	var bestV float64
	found := false
	for d, v := range byDate {
		if !date.IsZero() && d.After(date) {
			continue
		}
		if !found || d.After(best) {
			best, bestV, found = d, v, true
		}
	}
	return bestV, found
}

// Keys returns every distinct quote key seen, in load order.
func (s *Store) Keys() []string { return append([]string{}, s.keys...) }

// Fixing implements model.FixingStore, treating the quote key directly as
// the index name (the fixing CSV's "key" column is an index identifier,
// not a curve path).
func (s *Store) Fixing(index string, date time.Time) (float64, bool) {
	return s.Value(index, date)
}
