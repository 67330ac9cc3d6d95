package model

import "math"

// CallPut distinguishes a call (+1) from a put (-1) in the Black-76
// primitive, matching the script DSL's `cp` argument convention.
type CallPut int

const (
	Call CallPut = 1
	Put  CallPut = -1
)

// Black76 prices a European option on a forward under Black-76, following
// the same d1/d2/normCdf shape as a standard Black-Scholes pricer,
// generalized from spot-based BS to the forward-based form the payoff
// DSL's `black` builtin requires.
func Black76(cp CallPut, dt, strike, forward, vol float64) float64 {
	if dt <= 0 || vol <= 0 {
		if cp == Call {
			return math.Max(forward-strike, 0)
		}
		return math.Max(strike-forward, 0)
	}
	sqrtT := math.Sqrt(dt)
	d1 := (math.Log(forward/strike) + 0.5*vol*vol*dt) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT
	if cp == Call {
		return forward*normCdf(d1) - strike*normCdf(d2)
	}
	return strike*normCdf(-d2) - forward*normCdf(-d1)
}

func normCdf(x float64) float64 { return 0.5 * (1 + math.Erf(x/math.Sqrt2)) }
func normPdf(x float64) float64 { return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi) }
