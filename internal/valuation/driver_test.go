package valuation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/model"
	"github.com/wyfcoding/ore/internal/randomvar"
	"github.com/wyfcoding/ore/internal/scriptast"
	"github.com/wyfcoding/ore/internal/valuetype"
)

func mustParseScript(t *testing.T, src string) *scriptast.Node {
	t.Helper()
	n, err := scriptast.Parse(src)
	require.NoError(t, err)
	return n
}

func TestDriverWritesNPVCalculatorSlotForDeterministicBond(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	maturity := ref.AddDate(1, 0, 0)
	m := model.NewFlatModel(1, ref, "USD", map[string]float64{"USD": 0.05}, nil, nil, nil)

	ctx := valuetype.New()
	ctx.BindExternal("today", valuetype.FromEvent(ref))
	ctx.BindExternal("maturity", valuetype.FromEvent(maturity))
	ctx.BindExternal("ccy", valuetype.FromCurrency("USD"))

	trade := &Trade{
		ID:       "BOND1",
		Currency: "USD",
		Script:   mustParseScript(t, `NUMBER NPV; NPV = pay(1.0, today, maturity, ccy)`),
		Ctx:      ctx,
	}

	market := NewFlatSimMarket("USD", nil, 1)
	d := &Driver{Market: market, DateGrid: []time.Time{ref, maturity}}

	c, err := d.Run(context.Background(), m, []*Trade{trade})
	require.NoError(t, err)

	v, err := c.Get(0, 0, 0, cube.SlotNPV)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.05), float64(v), 1e-6)

	t0, err := c.GetT0(0, cube.SlotNPV)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.05), float64(t0), 1e-6)
}

func TestDriverLeavesSlotZeroAndDoesNotAbortOnScriptFailure(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := model.NewFlatModel(1, ref, "USD", map[string]float64{"USD": 0.05}, nil, nil, nil)

	badCtx := valuetype.New()
	badTrade := &Trade{
		ID:       "BAD",
		Currency: "USD",
		Script:   mustParseScript(t, `REQUIRE(1 == 2)`),
		Ctx:      badCtx,
	}

	goodCtx := valuetype.New()
	goodCtx.BindExternal("today", valuetype.FromEvent(ref))
	goodCtx.BindExternal("maturity", valuetype.FromEvent(ref.AddDate(1, 0, 0)))
	goodCtx.BindExternal("ccy", valuetype.FromCurrency("USD"))
	goodTrade := &Trade{
		ID:       "GOOD",
		Currency: "USD",
		Script:   mustParseScript(t, `NUMBER NPV; NPV = pay(1.0, today, maturity, ccy)`),
		Ctx:      goodCtx,
	}

	market := NewFlatSimMarket("USD", nil, 1)
	d := &Driver{Market: market, DateGrid: []time.Time{ref}}

	c, err := d.Run(context.Background(), m, []*Trade{badTrade, goodTrade})
	require.NoError(t, err)

	badV, err := c.GetT0(0, cube.SlotNPV)
	require.NoError(t, err)
	assert.Equal(t, float32(0), badV)

	goodV, err := c.GetT0(1, cube.SlotNPV)
	require.NoError(t, err)
	assert.Greater(t, float64(goodV), 0.0)
}

func TestDriverCashflowCalculatorBucketsPaymentsIntoGridIntervals(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := ref.AddDate(0, 6, 0)
	end := ref.AddDate(1, 0, 0)
	m := model.NewFlatModel(1, ref, "USD", map[string]float64{"USD": 0.0}, nil, nil, nil)

	ctx := valuetype.New()
	ctx.BindExternal("t0", valuetype.FromEvent(ref))
	ctx.BindExternal("tmid", valuetype.FromEvent(mid))
	ctx.BindExternal("tend", valuetype.FromEvent(end))
	ctx.BindExternal("ccy", valuetype.FromCurrency("USD"))

	trade := &Trade{
		ID:         "FLOWS",
		Currency:   "USD",
		StoreFlows: true,
		Script: mustParseScript(t, `
NUMBER a; NUMBER b; NUMBER NPV;
a = logpay(1.0, t0, tmid, ccy);
b = logpay(1.0, t0, tend, ccy);
NPV = a + b`),
		Ctx: ctx,
	}

	market := NewFlatSimMarket("USD", nil, 1)
	d := &Driver{Market: market, DateGrid: []time.Time{ref, mid, end}}

	c, err := d.Run(context.Background(), m, []*Trade{trade})
	require.NoError(t, err)

	flowAtMid, err := c.Get(0, 0, 0, cube.SlotCashflow)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), flowAtMid)

	flowAtEnd, err := c.Get(0, 1, 0, cube.SlotCashflow)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), flowAtEnd)
}

func TestFlatSimMarketRejectsUnknownCurrency(t *testing.T) {
	market := NewFlatSimMarket("USD", map[string]float64{"EUR": 1.1}, 2)
	_, err := market.FxSpot(time.Now(), "GBP")
	assert.Error(t, err)

	v, err := market.FxSpot(time.Now(), "EUR")
	require.NoError(t, err)
	assert.Equal(t, 1.1, v.At(0))

	num, err := market.Numeraire(time.Now())
	require.NoError(t, err)
	assert.True(t, randomvar.NewDeterministic(2, 1).Deterministic())
	assert.Equal(t, 1.0, num.At(0))
}
