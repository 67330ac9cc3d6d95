package valuation

import (
	"context"
	"time"

	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/model"
	"github.com/wyfcoding/ore/internal/oreerr"
	"github.com/wyfcoding/ore/internal/randomvar"
	"github.com/wyfcoding/ore/internal/scriptengine"
)

// TradeContext carries one trade's already-evaluated state into its
// registered Calculators: the full-horizon NPV RandomVariable the script
// engine produced and the PayLog it recorded along the way.
type TradeContext struct {
	Trade      *Trade
	TradeIndex int
	Model      model.Model
	Market     SimMarket
	NPV        randomvar.RandomVariable
	Log        *scriptengine.PayLog
}

// Calculator writes one depth slot of the cube
type Calculator interface {
	Slot() int
	Calculate(ctx context.Context, tc *TradeContext, dateIdx int, date time.Time, nextDate *time.Time, out *cube.Cube) error
	CalculateT0(ctx context.Context, tc *TradeContext, out *cube.Cube) error
}

// NPVCalculator projects the trade's full-horizon NPV onto each simulation
// date via regression (model.Npv), converts to the run's base currency,
// and writes slot 0. Per: "writes trade.instrument.NPV *
// fxSpot(tradeCcy->baseCcy) / numeraire into slot index_" — here
// trade.instrument.NPV is realized as tc.NPV, the RandomVariable the
// scripted payoff engine already produced (already numeraire-normalized
// per model.Pay's contract), so only the FX leg and exposure-date
// regression remain for this calculator to apply.
type NPVCalculator struct{}

func (NPVCalculator) Slot() int { return cube.SlotNPV }

func (NPVCalculator) Calculate(ctx context.Context, tc *TradeContext, dateIdx int, date time.Time, nextDate *time.Time, out *cube.Cube) error {
	atDate, err := tc.Model.Npv(tc.NPV, date, model.NpvOptions{})
	if err != nil {
		return oreerr.NewModel(oreerr.Location{}, err, "npv calculator: trade %q at date %s", tc.Trade.ID, date)
	}
	fx, err := tc.Market.FxSpot(date, tc.Trade.Currency)
	if err != nil {
		return err
	}
	num, err := tc.Market.Numeraire(date)
	if err != nil {
		return err
	}
	for s := 0; s < tc.Model.Size(); s++ {
		v := atDate.At(s) * fx.At(s) / num.At(s)
		if err := out.Set(tc.TradeIndex, dateIdx, s, cube.SlotNPV, float32(v)); err != nil {
			return err
		}
	}
	return nil
}

func (NPVCalculator) CalculateT0(ctx context.Context, tc *TradeContext, out *cube.Cube) error {
	ref := tc.Model.ReferenceDate()
	t0, err := tc.Model.Npv(tc.NPV, ref, model.NpvOptions{})
	if err != nil {
		return oreerr.NewModel(oreerr.Location{}, err, "npv calculator t0: trade %q", tc.Trade.ID)
	}
	fx, err := tc.Market.FxSpot(ref, tc.Trade.Currency)
	if err != nil {
		return err
	}
	num, err := tc.Market.Numeraire(ref)
	if err != nil {
		return err
	}
	v := t0.At(0) * fx.At(0) / num.At(0)
	return out.SetT0(tc.TradeIndex, cube.SlotNPV, float32(v))
}

// CashflowCalculator sums PayLog entries whose payment date falls in
// (date, nextDate], converts each to base currency, and writes slot 1.
// Exercise-conditioned zeroing of option underlying legs is out of scope
// here (instrument construction and exercise tracking are spec Non-goals)
// — every logged cashflow is included unconditionally.
type CashflowCalculator struct{}

func (CashflowCalculator) Slot() int { return cube.SlotCashflow }

func (CashflowCalculator) Calculate(ctx context.Context, tc *TradeContext, dateIdx int, date time.Time, nextDate *time.Time, out *cube.Cube) error {
	size := tc.Model.Size()
	sums := make([]float64, size)
	if nextDate != nil {
		for _, entry := range tc.Log.Entries() {
			if !entry.Pay.After(date) || entry.Pay.After(*nextDate) {
				continue
			}
			fx, err := tc.Market.FxSpot(entry.Pay, entry.Currency)
			if err != nil {
				return err
			}
			num, err := tc.Market.Numeraire(entry.Pay)
			if err != nil {
				return err
			}
			for s := 0; s < size; s++ {
				if !entry.Mask.At(s) {
					continue
				}
				sums[s] += entry.Amount.At(s) * fx.At(s) / num.At(s)
			}
		}
	}
	for s, v := range sums {
		if err := out.Set(tc.TradeIndex, dateIdx, s, cube.SlotCashflow, float32(v)); err != nil {
			return err
		}
	}
	return nil
}

func (CashflowCalculator) CalculateT0(ctx context.Context, tc *TradeContext, out *cube.Cube) error {
	return out.SetT0(tc.TradeIndex, cube.SlotCashflow, 0)
}
