package postprocess

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wyfcoding/ore/internal/oreerr"
)

// DiscountFunc returns the base-currency discount factor P(t) used to turn
// EPE into the Basel-style EE_B(t) = EPE(t)/P(t).
type DiscountFunc func(t time.Time) float64

// NettingSetExposure holds one netting set's full exposure profile.
type NettingSetExposure struct {
	NettingSetID string
	Dates        []time.Time

	EPE []float64
	ENE []float64
	EEB []float64 // EE_B(t) = EPE(t)/P(t)

	EEEB    []float64 // running max of EE_B
	EEPEB   float64   // time-weighted mean of EEE_B over the first year
	PFE     []float64 // alpha-quantile of (V(t)-C(t))+
	ExpColl []float64 // E[collateral balance(t)], for reports
}

// ComputeNettingSetExposure builds the full profile for one netting set.
// closeOut, if non-nil, must be parallel to ne.Dates; dates flagged true
// are close-out artifacts and are excluded from the EEE_B running max and
// the EEPE_B average for AsymmetricCVA/AsymmetricDVA (the lag date carries
// no independent economic meaning there), but included for
// Symmetric/NoLag where no separate lag date exists.
func ComputeNettingSetExposure(ne *NetExposure, h *CollateralExposureHelper, df DiscountFunc, pfeAlpha float64, closeOut []bool) (*NettingSetExposure, error) {
	if closeOut != nil && len(closeOut) != len(ne.Dates) {
		return nil, oreerr.NewAggregation("postprocess: closeOut length %d does not match date grid %d", len(closeOut), len(ne.Dates))
	}

	n := len(ne.Dates)
	out := &NettingSetExposure{
		NettingSetID: ne.NettingSetID,
		Dates:        ne.Dates,
		EPE:          make([]float64, n),
		ENE:          make([]float64, n),
		EEB:          make([]float64, n),
		EEEB:         make([]float64, n),
		PFE:          make([]float64, n),
		ExpColl:      make([]float64, n),
	}

	excludeCloseOut := h.CSA.CalculationType == AsymmetricCVA || h.CSA.CalculationType == AsymmetricDVA

	samples := ne.Samples
	diffs := make([]float64, samples)
	runningMax := 0.0
	for d := 0; d < n; d++ {
		cEPE := h.balanceAt(d, true)
		cENE := h.balanceAt(d, false)

		var epeSum, eneSum, collSum float64
		for s := 0; s < samples; s++ {
			v := ne.Values[d][s]
			epeSum += posPart(v - cEPE[s])
			eneSum += posPart(cENE[s] - v)
			collSum += h.balance[d][s]
			diffs[s] = v - h.balance[d][s]
		}
		out.EPE[d] = epeSum / float64(samples)
		out.ENE[d] = eneSum / float64(samples)
		out.ExpColl[d] = collSum / float64(samples)

		p := df(ne.Dates[d])
		if p == 0 {
			return nil, oreerr.NewAggregation("postprocess: discount factor is zero at %s", ne.Dates[d])
		}
		out.EEB[d] = out.EPE[d] / p

		isCloseOut := closeOut != nil && closeOut[d]
		if !excludeCloseOut || !isCloseOut {
			if out.EEB[d] > runningMax {
				runningMax = out.EEB[d]
			}
		}
		out.EEEB[d] = runningMax

		sorted := append([]float64{}, diffs...)
		for i := range sorted {
			sorted[i] = posPart(sorted[i])
		}
		sort.Float64s(sorted)
		out.PFE[d] = stat.Quantile(pfeAlpha, stat.Empirical, sorted, nil)
	}

	out.EEPEB = timeWeightedFirstYear(ne.Dates, out.EEEB, closeOut, excludeCloseOut)
	return out, nil
}

func posPart(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// timeWeightedFirstYear trapezoid-averages series over the first year from
// dates[0], stopping at (or interpolating to) the one-year point.
func timeWeightedFirstYear(dates []time.Time, series []float64, closeOut []bool, excludeCloseOut bool) float64 {
	if len(dates) == 0 {
		return 0
	}
	horizon := dates[0].AddDate(1, 0, 0)

	var weightedSum, totalWeight float64
	prevDate := dates[0]
	prevVal := series[0]
	for i := 1; i < len(dates); i++ {
		if excludeCloseOut && closeOut != nil && closeOut[i] {
			continue
		}
		date := dates[i]
		val := series[i]
		if date.After(horizon) {
			frac := horizon.Sub(prevDate).Hours() / date.Sub(prevDate).Hours()
			val = prevVal + frac*(val-prevVal)
			date = horizon
		}
		dt := date.Sub(prevDate).Hours() / 24 / 365.0
		weightedSum += dt * (val + prevVal) / 2
		totalWeight += dt
		prevDate, prevVal = date, val
		if !date.Before(horizon) {
			break
		}
	}
	if totalWeight == 0 {
		return series[0]
	}
	return weightedSum / totalWeight
}
