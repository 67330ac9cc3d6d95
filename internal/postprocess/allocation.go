package postprocess

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/oreerr"
	"github.com/wyfcoding/ore/internal/valuation"
)

// AllocationMode selects how netting-set CVA/DVA is split back to trades.
type AllocationMode int

const (
	AllocationNone AllocationMode = iota
	AllocationMarginal
	AllocationRelativeFairValueGross
	AllocationRelativeFairValueNet
	AllocationRelativeXVA
)

// Allocation is one trade's share of its netting set's XVA.
type Allocation struct {
	TradeID      string
	AllocatedCVA decimal.Decimal
	AllocatedDVA decimal.Decimal
}

// tradeNetExposure builds a single-trade NetExposure, used both by
// RelativeXVA's stand-alone CVA/DVA and by report-level trade detail.
func tradeNetExposure(c *cube.Cube, tradeIndex int, tradeID string) (*NetExposure, error) {
	ne := &NetExposure{
		NettingSetID: tradeID,
		Dates:        c.Dates(),
		Samples:      c.Samples(),
		Values:       make([][]float64, c.NumDates()),
	}
	t0, err := c.GetT0(tradeIndex, cube.SlotNPV)
	if err != nil {
		return nil, err
	}
	ne.T0 = float64(t0)
	for d := 0; d < c.NumDates(); d++ {
		ne.Values[d] = make([]float64, c.Samples())
		for s := 0; s < c.Samples(); s++ {
			v, err := c.Get(tradeIndex, d, s, cube.SlotNPV)
			if err != nil {
				return nil, err
			}
			ne.Values[d][s] = float64(v)
		}
	}
	return ne, nil
}

// StandAloneXVA treats one trade as its own netting set, collateralised
// under the CSA given, and computes its CVA/DVA in isolation, the basis for
// RelativeXVA allocation and for the xva.csv per-trade rows.
func StandAloneXVA(c *cube.Cube, trade *valuation.Trade, tradeIndex int, csa CSA, df DiscountFunc, pfeAlpha float64, closeOut []bool, p XVAParams) (*XVAResult, error) {
	ne, err := tradeNetExposure(c, tradeIndex, trade.ID)
	if err != nil {
		return nil, err
	}
	h := NewCollateralExposureHelper(ne, csa)
	exp, err := ComputeNettingSetExposure(ne, h, df, pfeAlpha, closeOut)
	if err != nil {
		return nil, err
	}
	return ComputeXVA(trade.ID, exp, df, p), nil
}

// AllocateMarginal implements Pykhtin-Rosen marginal allocation: each
// trade's share of a sample's exposure is its NPV over the netting set's
// NPV at that sample, falling back to an equal split whenever the netting
// set NPV's magnitude is below marginalAllocationLimit.
func AllocateMarginal(c *cube.Cube, portfolio []*valuation.Trade, ne *NetExposure, h *CollateralExposureHelper, df DiscountFunc, p XVAParams, marginalAllocationLimit float64) ([]Allocation, error) {
	n := len(ne.Dates)
	weightedEPE := make([][]float64, len(portfolio))
	weightedENE := make([][]float64, len(portfolio))
	for i := range portfolio {
		weightedEPE[i] = make([]float64, n)
		weightedENE[i] = make([]float64, n)
	}

	for d := 0; d < n; d++ {
		cEPE := h.balanceAt(d, true)
		cENE := h.balanceAt(d, false)
		for s := 0; s < ne.Samples; s++ {
			netV := ne.Values[d][s]
			epePart := posPart(netV - cEPE[s])
			enePart := posPart(cENE[s] - netV)

			for i, trade := range portfolio {
				ti := c.TradeIndex(trade.ID)
				tv, err := c.Get(ti, d, s, cube.SlotNPV)
				if err != nil {
					return nil, err
				}
				w := marginalWeight(float64(tv), netV, len(portfolio), marginalAllocationLimit)
				weightedEPE[i][d] += w * epePart / float64(ne.Samples)
				weightedENE[i][d] += w * enePart / float64(ne.Samples)
			}
		}
	}

	out := make([]Allocation, len(portfolio))
	for i, trade := range portfolio {
		synthetic := &NettingSetExposure{Dates: ne.Dates, EPE: weightedEPE[i], ENE: weightedENE[i], EEEB: make([]float64, n), ExpColl: make([]float64, n)}
		res := ComputeXVA(trade.ID, synthetic, df, p)
		out[i] = Allocation{TradeID: trade.ID, AllocatedCVA: res.CVA, AllocatedDVA: res.DVA}
	}
	return out, nil
}

func marginalWeight(tradeNPV, netNPV float64, numTrades int, limit float64) float64 {
	if math.Abs(netNPV) < limit {
		return 1 / float64(numTrades)
	}
	return tradeNPV / netNPV
}

// AllocateRelativeFairValueGross implements netEPE*tradeNPV/ΣtradeNPV with
// signs preserved, applied identically to CVA and DVA.
func AllocateRelativeFairValueGross(portfolio []*valuation.Trade, t0NPV map[string]float64, netCVA, netDVA decimal.Decimal) ([]Allocation, error) {
	var total float64
	for _, trade := range portfolio {
		total += t0NPV[trade.ID]
	}
	if total == 0 {
		return nil, oreerr.NewAggregation("postprocess: RelativeFairValueGross denominator (sum of trade NPVs) is zero")
	}
	out := make([]Allocation, len(portfolio))
	for i, trade := range portfolio {
		ratio := decimal.NewFromFloat(t0NPV[trade.ID] / total)
		out[i] = Allocation{TradeID: trade.ID, AllocatedCVA: netCVA.Mul(ratio), AllocatedDVA: netDVA.Mul(ratio)}
	}
	return out, nil
}

// AllocateRelativeFairValueNet allocates CVA only to trades with positive
// t0 NPV (proportional among themselves) and DVA only to trades with
// negative t0 NPV (proportional among themselves by magnitude). It
// returns an AggregationError when either of those two sums is zero.
func AllocateRelativeFairValueNet(portfolio []*valuation.Trade, t0NPV map[string]float64, netCVA, netDVA decimal.Decimal) ([]Allocation, error) {
	var posTotal, negTotal float64
	for _, trade := range portfolio {
		v := t0NPV[trade.ID]
		if v > 0 {
			posTotal += v
		} else if v < 0 {
			negTotal += -v
		}
	}
	if posTotal == 0 || negTotal == 0 {
		return nil, oreerr.NewAggregation("postprocess: RelativeFairValueNet denominator (sum of positive or of negative trade NPVs) is zero")
	}
	out := make([]Allocation, len(portfolio))
	for i, trade := range portfolio {
		v := t0NPV[trade.ID]
		a := Allocation{TradeID: trade.ID}
		if v > 0 && posTotal > 0 {
			a.AllocatedCVA = netCVA.Mul(decimal.NewFromFloat(v / posTotal))
		}
		if v < 0 && negTotal > 0 {
			a.AllocatedDVA = netDVA.Mul(decimal.NewFromFloat(-v / negTotal))
		}
		out[i] = a
	}
	return out, nil
}

// AllocateRelativeXVA allocates netting-set CVA/DVA proportionally to each
// trade's stand-alone CVA/DVA. This is the mode tested by the allocation
// closure property: Σ allocated == net, by construction.
func AllocateRelativeXVA(portfolio []*valuation.Trade, standAlone map[string]*XVAResult, netCVA, netDVA decimal.Decimal) ([]Allocation, error) {
	cvaTotal, dvaTotal := decimal.Zero, decimal.Zero
	for _, trade := range portfolio {
		cvaTotal = cvaTotal.Add(standAlone[trade.ID].CVA)
		dvaTotal = dvaTotal.Add(standAlone[trade.ID].DVA)
	}
	if cvaTotal.IsZero() && dvaTotal.IsZero() {
		return nil, oreerr.NewAggregation("postprocess: RelativeXVA denominator (stand-alone CVA and DVA) is zero")
	}
	out := make([]Allocation, len(portfolio))
	for i, trade := range portfolio {
		a := Allocation{TradeID: trade.ID}
		if !cvaTotal.IsZero() {
			a.AllocatedCVA = netCVA.Mul(standAlone[trade.ID].CVA).Div(cvaTotal)
		}
		if !dvaTotal.IsZero() {
			a.AllocatedDVA = netDVA.Mul(standAlone[trade.ID].DVA).Div(dvaTotal)
		}
		out[i] = a
	}
	return out, nil
}

// AllocateNone zeroes every allocation None mode.
func AllocateNone(portfolio []*valuation.Trade) []Allocation {
	out := make([]Allocation, len(portfolio))
	for i, trade := range portfolio {
		out[i] = Allocation{TradeID: trade.ID}
	}
	return out
}
