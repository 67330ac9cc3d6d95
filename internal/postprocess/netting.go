// Package postprocess aggregates a filled NPV cube into netted exposures,
// expected-exposure profiles, and valuation adjustments (CVA, DVA, FVA,
// MVA, COLVA), with optional allocation of netting-set figures back to
// individual trades. It never mutates the cube; every computation reads
// cube.SlotNPV only.
package postprocess

import (
	"time"

	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/valuation"
)

// NetExposure is the netted (summed across trades sharing a netting set)
// NPV path, one value per (date, sample), in the run's base currency.
type NetExposure struct {
	NettingSetID string
	Dates        []time.Time
	Samples      int
	Values       [][]float64 // [dateIdx][sample]
	T0           float64     // netted NPV at the cube's asOf date
}

// At returns the netted NPV for dateIdx, sample.
func (n *NetExposure) At(dateIdx, sample int) float64 { return n.Values[dateIdx][sample] }

// BuildNetExposures sums trade.SlotNPV into one NetExposure per distinct
// NettingSetID found in portfolio. A trade with an empty NettingSetID is
// its own, single-trade netting set keyed by its trade ID. portfolio must
// be in the same order used to build c (the driver indexes the cube by
// portfolio position), since trade index i here is read against cube
// trade index i directly rather than via TradeIndex lookup.
func BuildNetExposures(c *cube.Cube, portfolio []*valuation.Trade) (map[string]*NetExposure, error) {
	if err := c.CheckDimensions(len(portfolio), len(c.Dates()), c.Samples()); err != nil {
		return nil, err
	}

	result := make(map[string]*NetExposure)
	get := func(id string) *NetExposure {
		ne, ok := result[id]
		if !ok {
			ne = &NetExposure{
				NettingSetID: id,
				Dates:        c.Dates(),
				Samples:      c.Samples(),
				Values:       make([][]float64, c.NumDates()),
			}
			for d := range ne.Values {
				ne.Values[d] = make([]float64, c.Samples())
			}
			result[id] = ne
		}
		return ne
	}

	for ti, trade := range portfolio {
		id := trade.NettingSetID
		if id == "" {
			id = trade.ID
		}
		ne := get(id)

		t0, err := c.GetT0(ti, cube.SlotNPV)
		if err != nil {
			return nil, err
		}
		ne.T0 += float64(t0)

		for d := 0; d < c.NumDates(); d++ {
			for s := 0; s < c.Samples(); s++ {
				v, err := c.Get(ti, d, s, cube.SlotNPV)
				if err != nil {
					return nil, err
				}
				ne.Values[d][s] += float64(v)
			}
		}
	}
	return result, nil
}
