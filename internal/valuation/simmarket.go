// Package valuation implements the NPV Cube valuation driver: it iterates
// a trade portfolio across a simulation date grid, invokes calculators per
// trade, and writes each trade's disjoint slice of the cube.
package valuation

import (
	"time"

	"github.com/wyfcoding/ore/internal/oreerr"
	"github.com/wyfcoding/ore/internal/randomvar"
)

// SimMarket supplies the FX and numeraire conversions the calculators need
// to express a trade's own-currency NPV in the run's base currency, with
// the stochastic discount factor already applied. Building a full
// cross-asset SimMarket simulation is out of scope (spec's calibration
// Non-goal); this interface only specifies the conversions the driver
// consumes, with FlatSimMarket below as the reference implementation.
type SimMarket interface {
	BaseCurrency() string
	FxSpot(date time.Time, ccy string) (randomvar.RandomVariable, error)
	Numeraire(date time.Time) (randomvar.RandomVariable, error)
}

// FlatSimMarket is a deterministic reference SimMarket: constant FX rates
// quoted as base-currency units per unit of ccy, and a cash numeraire pinned at 1
// (i.e. no rebasing). It plays the same reference role for valuation that
// model.FlatModel plays for pricing.
type FlatSimMarket struct {
	baseCcy string
	fx      map[string]float64
	size    int
}

// NewFlatSimMarket builds a FlatSimMarket. fx maps a currency code to its
// spot rate versus baseCcy (baseCcy itself implicitly maps to 1).
func NewFlatSimMarket(baseCcy string, fx map[string]float64, size int) *FlatSimMarket {
	cp := make(map[string]float64, len(fx))
	for k, v := range fx {
		cp[k] = v
	}
	return &FlatSimMarket{baseCcy: baseCcy, fx: cp, size: size}
}

func (m *FlatSimMarket) BaseCurrency() string { return m.baseCcy }

func (m *FlatSimMarket) FxSpot(date time.Time, ccy string) (randomvar.RandomVariable, error) {
	if ccy == m.baseCcy {
		return randomvar.NewDeterministic(m.size, 1), nil
	}
	rate, ok := m.fx[ccy]
	if !ok {
		return randomvar.RandomVariable{}, oreerr.NewModel(oreerr.Location{}, nil, "FlatSimMarket: no FX quote for %q", ccy)
	}
	return randomvar.NewDeterministic(m.size, rate), nil
}

func (m *FlatSimMarket) Numeraire(date time.Time) (randomvar.RandomVariable, error) {
	return randomvar.NewDeterministic(m.size, 1), nil
}
