package postprocess

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CalculationType selects how margin period of risk lag is applied to the
// two sides of the exposure (EPE uses the counterparty-default scenario,
// ENE the own-default scenario).
type CalculationType int

const (
	// Symmetric lags both EPE and ENE by the margin period of risk.
	Symmetric CalculationType = iota
	// AsymmetricCVA lags only the EPE side (counterparty may have stopped
	// posting collateral before its default is recognised); ENE uses the
	// unlagged balance.
	AsymmetricCVA
	// AsymmetricDVA is the mirror of AsymmetricCVA: ENE is lagged, EPE is
	// unlagged.
	AsymmetricDVA
	// NoLag applies no margin period of risk to either side.
	NoLag
)

// CSA describes one netting set's collateral support annex terms.
type CSA struct {
	NettingSetID string

	// Threshold is the uncollateralised exposure the counterparty may
	// carry before a margin call is triggered; MTA is the minimum
	// transfer amount below which a call is not made.
	Threshold decimal.Decimal
	MTA       decimal.Decimal

	// IndependentAmount is posted regardless of mark-to-market and adds
	// directly to the collateral balance.
	IndependentAmount decimal.Decimal

	// MarginPeriodOfRisk is the close-out lag applied per CalculationType.
	MarginPeriodOfRisk time.Duration

	CalculationType CalculationType

	// FullInitialCollateralisation pins t=0 collateral to the netting
	// set's t=0 NPV instead of 0.
	FullInitialCollateralisation bool
}

// CollateralExposureHelper derives a collateral balance path from a
// NetExposure and a CSA margining rule: the balance tracks the
// netted NPV once it crosses Threshold, in steps no smaller than MTA, with
// IndependentAmount always posted.
type CollateralExposureHelper struct {
	NetExposure *NetExposure
	CSA         CSA

	// lagIndex[d] is the largest date index i such that
	// Dates[i] <= Dates[d] - MarginPeriodOfRisk. -1 if no such date
	// exists (before the first margin call could have settled).
	lagIndex []int
	balance  [][]float64 // [dateIdx][sample], unlagged collateral balance

	// threshold/mta/independentAmount are CSA.Threshold/MTA/IndependentAmount
	// converted once to float64, since marginCall runs once per (date,
	// sample) over the full Monte Carlo grid.
	threshold         float64
	mta               float64
	independentAmount float64
}

// NewCollateralExposureHelper precomputes the unlagged balance path and the
// margin-period-of-risk lag index table.
func NewCollateralExposureHelper(ne *NetExposure, csa CSA) *CollateralExposureHelper {
	h := &CollateralExposureHelper{
		NetExposure:       ne,
		CSA:               csa,
		threshold:         csa.Threshold.InexactFloat64(),
		mta:               csa.MTA.InexactFloat64(),
		independentAmount: csa.IndependentAmount.InexactFloat64(),
	}
	h.lagIndex = make([]int, len(ne.Dates))
	for d, date := range ne.Dates {
		target := date.Add(-csa.MarginPeriodOfRisk)
		idx := sort.Search(len(ne.Dates), func(i int) bool { return ne.Dates[i].After(target) }) - 1
		h.lagIndex[d] = idx
	}

	h.balance = make([][]float64, len(ne.Dates))
	for d := range ne.Dates {
		h.balance[d] = make([]float64, ne.Samples)
		for s := 0; s < ne.Samples; s++ {
			h.balance[d][s] = h.marginCall(ne.Values[d][s])
		}
	}
	return h
}

// marginCall applies the threshold/MTA rule to one (date, sample) netted
// NPV, returning the collateral balance that would result: the exposure
// beyond Threshold, suppressed entirely if it falls short of MTA (no
// partial call is ever posted below the minimum transfer amount).
func (h *CollateralExposureHelper) marginCall(npv float64) float64 {
	var call float64
	switch {
	case npv > h.threshold:
		call = npv - h.threshold
	case npv < -h.threshold:
		call = npv + h.threshold
	}
	if call != 0 && h.mta > 0 && -h.mta < call && call < h.mta {
		call = 0
	}
	return call + h.independentAmount
}

// t0Balance returns the collateral balance to use at the cube's asOf date.
func (h *CollateralExposureHelper) t0Balance() float64 {
	if h.CSA.FullInitialCollateralisation {
		return h.NetExposure.T0
	}
	return 0
}

// balanceAt returns the (possibly lagged) collateral balance vector for
// dateIdx, applying CalculationType's lag rule to the requested side.
func (h *CollateralExposureHelper) balanceAt(dateIdx int, forEPE bool) []float64 {
	lag := false
	switch h.CSA.CalculationType {
	case Symmetric:
		lag = true
	case AsymmetricCVA:
		lag = forEPE
	case AsymmetricDVA:
		lag = !forEPE
	case NoLag:
		lag = false
	}
	if !lag {
		return h.balance[dateIdx]
	}
	li := h.lagIndex[dateIdx]
	if li < 0 {
		zero := make([]float64, h.NetExposure.Samples)
		for s := range zero {
			zero[s] = h.t0Balance()
		}
		return zero
	}
	return h.balance[li]
}
