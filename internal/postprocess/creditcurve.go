package postprocess

import (
	"math"
	"time"

	"github.com/wyfcoding/ore/internal/model"
)

// CreditCurve is a piecewise-constant forward hazard-rate curve used for
// CVA/DVA survival probabilities and for the CVA spread sensitivity
// bump-and-reprice.
type CreditCurve struct {
	RefDate  time.Time
	Pillars  []time.Time // ascending, first pillar > RefDate
	Hazards  []float64   // forward hazard rate applying on (pillar[i-1], pillar[i]]
	Recovery float64
}

// NewCreditCurve builds a curve from parallel pillar/hazard slices.
func NewCreditCurve(refDate time.Time, pillars []time.Time, hazards []float64, recovery float64) *CreditCurve {
	return &CreditCurve{RefDate: refDate, Pillars: append([]time.Time{}, pillars...), Hazards: append([]float64{}, hazards...), Recovery: recovery}
}

// SurvivalProbability returns S(t) = exp(-integral of hazard from RefDate to t).
func (c *CreditCurve) SurvivalProbability(t time.Time) float64 {
	if !t.After(c.RefDate) {
		return 1
	}
	var cumulative float64
	prev := c.RefDate
	for i, pillar := range c.Pillars {
		segEnd := pillar
		reached := t.Before(pillar)
		if reached {
			segEnd = t
		}
		cumulative += c.Hazards[i] * model.YearFrac(prev, segEnd)
		prev = segEnd
		if reached {
			break
		}
	}
	if t.After(prev) {
		// Beyond the last pillar: flat-extrapolate the final hazard rate.
		last := 0.0
		if len(c.Hazards) > 0 {
			last = c.Hazards[len(c.Hazards)-1]
		}
		cumulative += last * model.YearFrac(prev, t)
	}
	return math.Exp(-cumulative)
}

// Bumped returns a copy of the curve with pillarIdx's hazard rate shifted by
// shift, used by the CVA spread sensitivity pass.
func (c *CreditCurve) Bumped(pillarIdx int, shift float64) *CreditCurve {
	hazards := append([]float64{}, c.Hazards...)
	hazards[pillarIdx] += shift
	return NewCreditCurve(c.RefDate, c.Pillars, hazards, c.Recovery)
}
