// Package cube implements the NPV Cube: a dense (trade × date × sample ×
// depth) store filled by the valuation driver and consumed by the
// post-processor. Dimensions are fixed at construction; concurrent
// writes to distinct (trade, date, sample, depth) tuples are safe because
// each write touches a disjoint float32 slot.
package cube

import (
	"time"

	"github.com/wyfcoding/ore/internal/oreerr"
)

// Slot indices within the depth dimension.
const (
	SlotNPV      = 0
	SlotCashflow = 1
)

// Cube is the logical dense array indexed by (trade-id, date-index,
// sample, depth), plus a t0 row of trade-count*depth floats.
type Cube struct {
	tradeIDs []string
	dates    []time.Time
	samples  int
	depth    int
	asOf     time.Time

	data []float32 // len == len(tradeIDs)*len(dates)*samples*depth, C-order (trade,date,sample,depth)
	t0   []float32 // len == len(tradeIDs)*depth
}

// New builds an empty cube with the given fixed dimensions.
func New(tradeIDs []string, dates []time.Time, samples, depth int, asOf time.Time) (*Cube, error) {
	if samples <= 0 {
		return nil, oreerr.NewAggregation("cube: sample count must be positive, got %d", samples)
	}
	if depth <= 0 {
		return nil, oreerr.NewAggregation("cube: depth must be positive, got %d", depth)
	}
	c := &Cube{
		tradeIDs: append([]string{}, tradeIDs...),
		dates:    append([]time.Time{}, dates...),
		samples:  samples,
		depth:    depth,
		asOf:     asOf,
		data:     make([]float32, len(tradeIDs)*len(dates)*samples*depth),
		t0:       make([]float32, len(tradeIDs)*depth),
	}
	return c, nil
}

func (c *Cube) NumIds() int        { return len(c.tradeIDs) }
func (c *Cube) NumDates() int      { return len(c.dates) }
func (c *Cube) Samples() int       { return c.samples }
func (c *Cube) Depth() int         { return c.depth }
func (c *Cube) AsOf() time.Time    { return c.asOf }
func (c *Cube) TradeIDs() []string { return c.tradeIDs }
func (c *Cube) Dates() []time.Time { return c.dates }

// TradeIndex returns the position of tradeID in the cube's trade list, or
// -1 if it is not one of the cube's trades.
func (c *Cube) TradeIndex(tradeID string) int {
	for i, id := range c.tradeIDs {
		if id == tradeID {
			return i
		}
	}
	return -1
}

func (c *Cube) index(trade, date, sample, depth int) (int, error) {
	if trade < 0 || trade >= len(c.tradeIDs) {
		return 0, oreerr.NewBounds(oreerr.Location{}, "cube: trade index %d out of range [0,%d)", trade, len(c.tradeIDs))
	}
	if date < 0 || date >= len(c.dates) {
		return 0, oreerr.NewBounds(oreerr.Location{}, "cube: date index %d out of range [0,%d)", date, len(c.dates))
	}
	if sample < 0 || sample >= c.samples {
		return 0, oreerr.NewBounds(oreerr.Location{}, "cube: sample index %d out of range [0,%d)", sample, c.samples)
	}
	if depth < 0 || depth >= c.depth {
		return 0, oreerr.NewBounds(oreerr.Location{}, "cube: depth index %d out of range [0,%d)", depth, c.depth)
	}
	// C-order (trade, date, sample, depth).
	idx := ((trade*len(c.dates)+date)*c.samples+sample)*c.depth + depth
	return idx, nil
}

// Set writes one (trade,date,sample,depth) slot.
func (c *Cube) Set(trade, date, sample, depth int, v float32) error {
	idx, err := c.index(trade, date, sample, depth)
	if err != nil {
		return err
	}
	c.data[idx] = v
	return nil
}

// Get reads one (trade,date,sample,depth) slot.
func (c *Cube) Get(trade, date, sample, depth int) (float32, error) {
	idx, err := c.index(trade, date, sample, depth)
	if err != nil {
		return 0, err
	}
	return c.data[idx], nil
}

func (c *Cube) t0Index(trade, depth int) (int, error) {
	if trade < 0 || trade >= len(c.tradeIDs) {
		return 0, oreerr.NewBounds(oreerr.Location{}, "cube: t0 trade index %d out of range", trade)
	}
	if depth < 0 || depth >= c.depth {
		return 0, oreerr.NewBounds(oreerr.Location{}, "cube: t0 depth index %d out of range", depth)
	}
	return trade*c.depth + depth, nil
}

// SetT0 writes the t=0 row for a given trade/depth.
func (c *Cube) SetT0(trade, depth int, v float32) error {
	idx, err := c.t0Index(trade, depth)
	if err != nil {
		return err
	}
	c.t0[idx] = v
	return nil
}

// GetT0 reads the t=0 row for a given trade/depth.
func (c *Cube) GetT0(trade, depth int) (float32, error) {
	idx, err := c.t0Index(trade, depth)
	if err != nil {
		return 0, err
	}
	return c.t0[idx], nil
}

// RawData exposes the flat C-order data slice for codec use (report
// package). Callers must not retain a mutable alias past the cube's
// lifetime.
func (c *Cube) RawData() []float32 { return c.data }

// RawT0 exposes the flat t0 slice for codec use.
func (c *Cube) RawT0() []float32 { return c.t0 }

// FromRaw reconstructs a cube's payload from a codec-supplied flat buffer,
// used only by report.LoadCube after the header/trade/date lists have been
// parsed and dimensions validated.
func FromRaw(tradeIDs []string, dates []time.Time, samples, depth int, asOf time.Time, data, t0 []float32) (*Cube, error) {
	c, err := New(tradeIDs, dates, samples, depth, asOf)
	if err != nil {
		return nil, err
	}
	if len(data) != len(c.data) {
		return nil, oreerr.NewIO(nil, "cube: data length %d does not match expected %d", len(data), len(c.data))
	}
	if len(t0) != len(c.t0) {
		return nil, oreerr.NewIO(nil, "cube: t0 length %d does not match expected %d", len(t0), len(c.t0))
	}
	copy(c.data, data)
	copy(c.t0, t0)
	return c, nil
}

// Equal reports whether c and other hold identical dimensions and cell
// values (the cube round-trip testable property).
func (c *Cube) Equal(other *Cube) bool {
	if other == nil {
		return false
	}
	if len(c.tradeIDs) != len(other.tradeIDs) || len(c.dates) != len(other.dates) ||
		c.samples != other.samples || c.depth != other.depth || !c.asOf.Equal(other.asOf) {
		return false
	}
	for i := range c.tradeIDs {
		if c.tradeIDs[i] != other.tradeIDs[i] {
			return false
		}
	}
	for i := range c.dates {
		if !c.dates[i].Equal(other.dates[i]) {
			return false
		}
	}
	for i := range c.data {
		if c.data[i] != other.data[i] {
			return false
		}
	}
	for i := range c.t0 {
		if c.t0[i] != other.t0[i] {
			return false
		}
	}
	return true
}

// CheckDimensions validates the testable property "cube dimensional
// consistency" against a portfolio size and an AggregationScenarioData's
// declared date/sample counts.
func (c *Cube) CheckDimensions(portfolioSize, scenarioDates, scenarioSamples int) error {
	if c.NumIds() != portfolioSize {
		return oreerr.NewAggregation("cube.numIds (%d) != portfolio.size (%d)", c.NumIds(), portfolioSize)
	}
	if scenarioDates != c.NumDates() {
		return oreerr.NewAggregation("scenarioData.dimDates (%d) != cube.dates.size (%d)", scenarioDates, c.NumDates())
	}
	if scenarioSamples != c.Samples() {
		return oreerr.NewAggregation("scenarioData.dimSamples (%d) != cube.samples (%d)", scenarioSamples, c.Samples())
	}
	return nil
}
