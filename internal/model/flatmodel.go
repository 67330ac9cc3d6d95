package model

import (
	"fmt"
	"math"
	"time"

	"github.com/wyfcoding/ore/internal/randomvar"
)

// FixingStore is the explicit handle for historical fixings threaded
// through Model rather than held as process-wide singleton state.
type FixingStore interface {
	Fixing(index string, date time.Time) (value float64, found bool)
}

// FlatModel is a deterministic, single/multi-path flat-curve reference
// Model used by script-engine tests and by the end-to-end deterministic
// discount-bond / European-call scenarios. It is not a production
// cross-asset model (that calibration is out of scope); it exists to
// exercise the Model interface boundary.
type FlatModel struct {
	size       int
	refDate    time.Time
	baseCcy    string
	zeroRates  map[string]float64 // continuously compounded, flat per ccy
	fxSpots    map[string]float64 // units of baseCcy per 1 unit of ccy
	indexLevel map[string]float64 // flat index level (rate or price)
	fixings    FixingStore
}

// NewFlatModel constructs a FlatModel for the given sample count and
// reference date. zeroRates/fxSpots/indexLevel may be nil; a missing
// zero rate or index level defaults to 0, a missing FX spot to 1.
func NewFlatModel(size int, refDate time.Time, baseCcy string, zeroRates, fxSpots, indexLevel map[string]float64, fixings FixingStore) *FlatModel {
	if zeroRates == nil {
		zeroRates = map[string]float64{}
	}
	if fxSpots == nil {
		fxSpots = map[string]float64{}
	}
	if indexLevel == nil {
		indexLevel = map[string]float64{}
	}
	return &FlatModel{size: size, refDate: refDate, baseCcy: baseCcy, zeroRates: zeroRates, fxSpots: fxSpots, indexLevel: indexLevel, fixings: fixings}
}

func (m *FlatModel) Size() int                     { return m.size }
func (m *FlatModel) ReferenceDate() time.Time      { return m.refDate }
func (m *FlatModel) Type() Type                    { return TypeMonteCarlo }
func (m *FlatModel) Dt(from, to time.Time) float64 { return YearFrac(from, to) }

func (m *FlatModel) rate(ccy string) float64 { return m.zeroRates[ccy] }

func (m *FlatModel) df(from, to time.Time, ccy string) float64 {
	return math.Exp(-m.rate(ccy) * YearFrac(from, to))
}

func (m *FlatModel) fxSpot(ccy string) float64 {
	if ccy == m.baseCcy || ccy == "" {
		return 1.0
	}
	if v, ok := m.fxSpots[ccy]; ok {
		return v
	}
	return 1.0
}

// Pay returns the time-0, numeraire-normalized value of amount (already
// known/observed at obs) paid at pay. FlatModel's numeraire is the
// deterministic money-market account, so the obs date only needs to
// precede pay; it does not otherwise enter the discounting formula.
func (m *FlatModel) Pay(amount randomvar.RandomVariable, obs, pay time.Time, ccy string) (randomvar.RandomVariable, error) {
	if pay.Before(obs) {
		return randomvar.RandomVariable{}, fmt.Errorf("model: pay date %s before obs date %s", pay, obs)
	}
	scale := m.df(m.refDate, pay, ccy) * m.fxSpot(ccy)
	return scaleRV(amount, scale), nil
}

// Discount returns the pathwise discount factor from obs to pay.
func (m *FlatModel) Discount(obs, pay time.Time, ccy string) (randomvar.RandomVariable, error) {
	if obs.Before(m.refDate) || pay.Before(obs) {
		return randomvar.RandomVariable{}, fmt.Errorf("model: discount requires referenceDate <= obs <= pay")
	}
	return randomvar.NewDeterministic(m.size, m.df(obs, pay, ccy)), nil
}

// Npv computes the conditional expectation of amount at obs. FlatModel
// carries no path-dependent state to regress against, so it returns the
// unconditional cross-sample mean broadcast to every lane — a reference
// simplification; RegressionModel (regression.go)
// supplies an actual least-squares basis for richer tests.
func (m *FlatModel) Npv(amount randomvar.RandomVariable, obs time.Time, opts NpvOptions) (randomvar.RandomVariable, error) {
	if amount.Deterministic() {
		return amount, nil
	}
	sum := 0.0
	for i := 0; i < amount.Size(); i++ {
		sum += amount.At(i)
	}
	return randomvar.NewDeterministic(amount.Size(), sum/float64(amount.Size())), nil
}

func (m *FlatModel) Eval(index string, obs time.Time, fwd *time.Time) (randomvar.RandomVariable, error) {
	if hist, ok := m.lookupFixing(index, obs); ok {
		return randomvar.NewDeterministic(m.size, hist), nil
	}
	level := m.indexLevel[index]
	return randomvar.NewDeterministic(m.size, level), nil
}

// lookupFixing consults the historical fixing store for obs dates on or
// before the reference date; it is a no-op for a nil store.
func (m *FlatModel) lookupFixing(index string, obs time.Time) (float64, bool) {
	if m.fixings == nil || obs.After(m.refDate) {
		return 0, false
	}
	return m.fixings.Fixing(index, obs)
}

func (m *FlatModel) FwdCompAvg(p FwdCompParams) (randomvar.RandomVariable, error) {
	rate := m.indexLevel[p.Index]
	if p.HasSpreadGearing {
		rate = rate*p.Gearing + p.Spread
	}
	yf := YearFrac(p.Start, p.End)
	coupon := rate * yf
	if !p.IsAverage {
		coupon = math.Exp(rate*yf) - 1
	}
	if p.HasCapFloorBlock {
		if p.Cap != 0 || p.NakedOption {
			coupon = math.Min(coupon, p.Cap)
		}
		if p.Floor != 0 || p.NakedOption {
			coupon = math.Max(coupon, p.Floor)
		}
	}
	return randomvar.NewDeterministic(m.size, coupon), nil
}

// BarrierProbability returns the closed-form probability that a
// driftless lognormal path with flat volatility crosses barrier between
// obs1 and obs2, via the reflection principle.
func (m *FlatModel) BarrierProbability(index string, obs1, obs2 time.Time, barrier float64, above bool) (randomvar.RandomVariable, error) {
	if obs1.After(obs2) {
		return randomvar.NewDeterministic(m.size, 0), nil
	}
	spot := m.indexLevel[index]
	vol := 0.2
	t := YearFrac(obs1, obs2)
	if t <= 0 || spot <= 0 || barrier <= 0 {
		return randomvar.NewDeterministic(m.size, 0), nil
	}
	d := math.Log(barrier/spot) / (vol * math.Sqrt(t))
	prob := 2 * (1 - normCdf(math.Abs(d)))
	if (above && spot >= barrier) || (!above && spot <= barrier) {
		prob = 1
	}
	return randomvar.NewDeterministic(m.size, prob), nil
}

func (m *FlatModel) HistoricalFixing(index string, obs time.Time) (bool, error) {
	_, ok := m.lookupFixing(index, obs)
	return ok, nil
}

func scaleRV(rv randomvar.RandomVariable, scale float64) randomvar.RandomVariable {
	if rv.Deterministic() {
		return randomvar.NewDeterministic(rv.Size(), rv.At(0)*scale)
	}
	out := make([]float64, rv.Size())
	for i := 0; i < rv.Size(); i++ {
		out[i] = rv.At(i) * scale
	}
	return randomvar.NewFromSlice(out)
}
