// Package model defines the abstract pricing-model interface the script
// engine drives, and supplies reference implementations used by tests and
// by the valuation driver when no richer cross-asset model is wired in.
// Calibration of a production-grade cross-asset short-rate model and its
// linear algebra are explicitly out of scope; this package only
// specifies and exercises the interface boundary.
package model

import (
	"time"

	"github.com/wyfcoding/ore/internal/randomvar"
)

// Type distinguishes the simulation engine behind a Model.
type Type int

const (
	TypeMonteCarlo Type = iota
	TypeFiniteDifference
)

// NpvOptions carries the optional regression controls for Model.Npv.
type NpvOptions struct {
	RegressionFilter *randomvar.Filter
	MemorySlot       *int
	AddRegressor1    *randomvar.RandomVariable
	AddRegressor2    *randomvar.RandomVariable
}

// FwdCompParams carries the full optional-block parameter set for
// fwdComp/fwdAvg. HasSpreadGearing/HasLookbackBlock/HasCapFloorBlock
// gate whether their respective optional blocks were supplied; each block
// must be supplied in full or not at all, enforced by the script engine
// before calling the model.
type FwdCompParams struct {
	IsAverage bool
	Index     string
	Obs       time.Time
	Start     time.Time
	End       time.Time

	HasSpreadGearing bool
	Spread           float64
	Gearing          float64

	HasLookbackBlock bool
	Lookback         int
	RateCutoff       int
	FixingDays       int
	IncludeSpread    bool

	HasCapFloorBlock bool
	Cap              float64
	Floor            float64
	NakedOption      bool
	LocalCapFloor    bool
}

// Model is the capability set the script engine calls through. All
// returned RandomVariables must have length Size().
type Model interface {
	Size() int
	ReferenceDate() time.Time
	Dt(from, to time.Time) float64

	Pay(amount randomvar.RandomVariable, obs, pay time.Time, ccy string) (randomvar.RandomVariable, error)
	Discount(obs, pay time.Time, ccy string) (randomvar.RandomVariable, error)
	Npv(amount randomvar.RandomVariable, obs time.Time, opts NpvOptions) (randomvar.RandomVariable, error)
	Eval(index string, obs time.Time, fwd *time.Time) (randomvar.RandomVariable, error)
	FwdCompAvg(p FwdCompParams) (randomvar.RandomVariable, error)
	BarrierProbability(index string, obs1, obs2 time.Time, barrier float64, above bool) (randomvar.RandomVariable, error)
	HistoricalFixing(index string, obs time.Time) (bool, error)

	Type() Type
}

// YearFrac is the stdlib Act/365F day-count the reference models use for
// Dt; production curve bootstrapping (and its day-count conventions) is
// out of scope and supplied externally in a full deployment.
func YearFrac(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / 365.0
}
