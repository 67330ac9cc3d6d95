package postprocess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeXVACVADVAFormula(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := ref.AddDate(0, 6, 0)
	end := ref.AddDate(1, 0, 0)

	exp := &NettingSetExposure{
		Dates:   []time.Time{ref, mid, end},
		EPE:     []float64{10, 20, 15},
		ENE:     []float64{5, 8, 6},
		EEEB:    []float64{0, 0, 0},
		ExpColl: []float64{0, 0, 0},
	}

	// Flat 2% counterparty and 1% own hazard, flat 0% recovery, no discounting.
	cptyCurve := NewCreditCurve(ref, []time.Time{mid, end}, []float64{0.02, 0.02}, 0)
	ownCurve := NewCreditCurve(ref, []time.Time{mid, end}, []float64{0.01, 0.01}, 0)

	params := XVAParams{CounterpartyCurve: cptyCurve, OwnCurve: ownCurve}
	res := ComputeXVA("NS1", exp, flatDiscount(0, ref), params)

	pdCpty1 := cptyCurve.SurvivalProbability(ref) - cptyCurve.SurvivalProbability(mid)
	pdCpty2 := cptyCurve.SurvivalProbability(mid) - cptyCurve.SurvivalProbability(end)
	wantCVA := 1*pdCpty1*0.5*(exp.EPE[0]+exp.EPE[1]) + 1*pdCpty2*0.5*(exp.EPE[1]+exp.EPE[2])
	assert.InDelta(t, wantCVA, res.CVA.InexactFloat64(), 1e-9)

	pdOwn1 := ownCurve.SurvivalProbability(ref) - ownCurve.SurvivalProbability(mid)
	pdOwn2 := ownCurve.SurvivalProbability(mid) - ownCurve.SurvivalProbability(end)
	wantDVA := 1*pdOwn1*0.5*(exp.ENE[0]+exp.ENE[1]) + 1*pdOwn2*0.5*(exp.ENE[1]+exp.ENE[2])
	assert.InDelta(t, wantDVA, res.DVA.InexactFloat64(), 1e-9)
}

func TestComputeXVAKVAOnlyWhenEnabled(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := ref.AddDate(1, 0, 0)
	exp := &NettingSetExposure{
		Dates:   []time.Time{ref, end},
		EPE:     []float64{10, 10},
		ENE:     []float64{0, 0},
		EEEB:    []float64{10, 10},
		ExpColl: []float64{0, 0},
	}
	curve := NewCreditCurve(ref, []time.Time{end}, []float64{0.01}, 0.4)

	disabled := ComputeXVA("NS1", exp, flatDiscount(0, ref), XVAParams{CounterpartyCurve: curve, OwnCurve: curve})
	assert.True(t, disabled.KVACCR.IsZero())
	assert.True(t, disabled.KVACVA.IsZero())

	enabled := ComputeXVA("NS1", exp, flatDiscount(0, ref), XVAParams{
		CounterpartyCurve: curve, OwnCurve: curve,
		KVA: KVAParams{Enabled: true, Alpha: 0.1, CapitalCoefficient: 0.08, CVARiskWeight: 1.5},
	})
	assert.True(t, enabled.KVACCR.IsPositive())
	assert.InDelta(t, 0.1*1.5*enabled.CVA.InexactFloat64(), enabled.KVACVA.InexactFloat64(), 1e-9)
}
