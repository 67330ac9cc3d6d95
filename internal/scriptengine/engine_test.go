package scriptengine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ore/internal/model"
	"github.com/wyfcoding/ore/internal/randomvar"
	"github.com/wyfcoding/ore/internal/scriptast"
	"github.com/wyfcoding/ore/internal/valuetype"
)

func mustParse(t *testing.T, src string) *scriptast.Node {
	t.Helper()
	n, err := scriptast.Parse(src)
	require.NoError(t, err)
	return n
}

func TestEngineDeterministicDiscountBond(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	maturity := ref.AddDate(1, 0, 0)
	m := model.NewFlatModel(1, ref, "USD", map[string]float64{"USD": 0.05}, nil, nil, nil)

	ctx := valuetype.New()
	ctx.BindExternal("notional", valuetype.FromNumber(randomvar.NewDeterministic(1, 1.0)))
	ctx.BindExternal("today", valuetype.FromEvent(ref))
	ctx.BindExternal("maturity", valuetype.FromEvent(maturity))
	ctx.BindExternal("ccy", valuetype.FromCurrency("USD"))

	root := mustParse(t, `NUMBER result; result = logpay(notional, today, maturity, ccy)`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))

	result, declared, err := ctx.Scalar("result")
	require.NoError(t, err)
	require.True(t, declared)
	rv, err := result.CheckNumeric()
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.05), rv.At(0), 1e-9)
	require.Len(t, eng.Log.Entries(), 1)
	assert.Equal(t, "USD", eng.Log.Entries()[0].Currency)
}

func TestEnginePlainPayDoesNotAppendAuditLog(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	maturity := ref.AddDate(1, 0, 0)
	m := model.NewFlatModel(1, ref, "USD", map[string]float64{"USD": 0.05}, nil, nil, nil)

	ctx := valuetype.New()
	ctx.BindExternal("notional", valuetype.FromNumber(randomvar.NewDeterministic(1, 1.0)))
	ctx.BindExternal("today", valuetype.FromEvent(ref))
	ctx.BindExternal("maturity", valuetype.FromEvent(maturity))
	ctx.BindExternal("ccy", valuetype.FromCurrency("USD"))

	root := mustParse(t, `NUMBER result; result = pay(notional, today, maturity, ccy)`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))
	assert.Len(t, eng.Log.Entries(), 0)
}

func TestEngineEuropeanCallViaBlack(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := ref.AddDate(0, 3, 0)
	m := model.NewFlatModel(1, ref, "USD", nil, nil, nil, nil)

	ctx := valuetype.New()
	ctx.BindExternal("cp", valuetype.FromNumber(randomvar.NewDeterministic(1, 1)))
	ctx.BindExternal("today", valuetype.FromEvent(ref))
	ctx.BindExternal("expiry", valuetype.FromEvent(expiry))
	ctx.BindExternal("strike", valuetype.FromNumber(randomvar.NewDeterministic(1, 100)))
	ctx.BindExternal("forward", valuetype.FromNumber(randomvar.NewDeterministic(1, 100)))
	ctx.BindExternal("vol", valuetype.FromNumber(randomvar.NewDeterministic(1, 0.2)))

	root := mustParse(t, `NUMBER price; price = black(cp, today, expiry, strike, forward, vol) * 0.95`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))

	price, _, err := ctx.Scalar("price")
	require.NoError(t, err)
	rv, _ := price.CheckNumeric()
	expected := model.Black76(model.Call, m.Dt(ref, expiry), 100, 100, 0.2) * 0.95
	assert.InDelta(t, expected, rv.At(0), 1e-9)
}

func newSingleSampleModel() *model.FlatModel {
	return model.NewFlatModel(1, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "USD", nil, nil, nil, nil)
}

func TestEnginePayOnOrBeforeReferenceDateIsDeterministicZero(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := ref.AddDate(0, -1, 0)
	m := model.NewFlatModel(1, ref, "USD", map[string]float64{"USD": 0.05}, nil, nil, nil)

	ctx := valuetype.New()
	ctx.BindExternal("notional", valuetype.FromNumber(randomvar.NewDeterministic(1, 1.0)))
	ctx.BindExternal("obs", valuetype.FromEvent(past))
	ctx.BindExternal("pastPay", valuetype.FromEvent(past))
	ctx.BindExternal("ccy", valuetype.FromCurrency("USD"))

	root := mustParse(t, `NUMBER result; result = pay(notional, obs, pastPay, ccy)`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))

	result, _, err := ctx.Scalar("result")
	require.NoError(t, err)
	rv, _ := result.CheckNumeric()
	assert.True(t, rv.Deterministic())
	assert.Equal(t, 0.0, rv.At(0))
}

func TestEngineShortCircuitIfSkipsUntakenBranch(t *testing.T) {
	m := newSingleSampleModel()

	// cond true: THEN runs (assignment only), ELSE (a failing REQUIRE) must
	// never be evaluated, or Run would fail.
	ctxTrue := valuetype.New()
	ctxTrue.BindExternal("cond", valuetype.FromFilter(randomvar.NewFilterDeterministic(1, true)))
	require.NoError(t, ctxTrue.Declare("x", valuetype.FromNumber(randomvar.NewDeterministic(1, 0))))
	root := mustParse(t, `IF cond THEN x = 1 ELSE REQUIRE(1 == 2)`)
	eng := New(m, ctxTrue, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))
	x, _, _ := ctxTrue.Scalar("x")
	rv, _ := x.CheckNumeric()
	assert.Equal(t, 1.0, rv.At(0))

	// cond false: THEN (a failing REQUIRE) must never be evaluated.
	ctxFalse := valuetype.New()
	ctxFalse.BindExternal("cond", valuetype.FromFilter(randomvar.NewFilterDeterministic(1, false)))
	require.NoError(t, ctxFalse.Declare("x", valuetype.FromNumber(randomvar.NewDeterministic(1, 0))))
	root2 := mustParse(t, `IF cond THEN REQUIRE(1 == 2) ELSE x = 2`)
	eng2 := New(m, ctxFalse, NewPayLog())
	require.NoError(t, eng2.Run(context.Background(), root2))
	x2, _, _ := ctxFalse.Scalar("x")
	rv2, _ := x2.CheckNumeric()
	assert.Equal(t, 2.0, rv2.At(0))
}

func TestEngineRequireVacuousTruthUnderPartialMask(t *testing.T) {
	m := model.NewFlatModel(2, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "USD", nil, nil, nil, nil)

	// lane 0: mask true, cond true -> satisfied
	// lane 1: mask false, cond false -> vacuously satisfied regardless of cond
	ctx := valuetype.New()
	ctx.BindExternal("mask", valuetype.FromFilter(randomvar.NewFilterFromSlice([]bool{true, false})))
	ctx.BindExternal("cond", valuetype.FromFilter(randomvar.NewFilterFromSlice([]bool{true, false})))
	root := mustParse(t, `IF mask THEN REQUIRE(cond)`)
	eng := New(m, ctx, NewPayLog())
	assert.NoError(t, eng.Run(context.Background(), root))

	// lane 0: mask true, cond false -> violated, must fail.
	ctx2 := valuetype.New()
	ctx2.BindExternal("mask", valuetype.FromFilter(randomvar.NewFilterFromSlice([]bool{true, false})))
	ctx2.BindExternal("cond", valuetype.FromFilter(randomvar.NewFilterFromSlice([]bool{false, false})))
	root2 := mustParse(t, `IF mask THEN REQUIRE(cond)`)
	eng2 := New(m, ctx2, NewPayLog())
	assert.Error(t, eng2.Run(context.Background(), root2))
}

func TestEngineForLoopStepZeroRejected(t *testing.T) {
	m := newSingleSampleModel()
	ctx := valuetype.New()
	require.NoError(t, ctx.Declare("i", valuetype.FromNumber(randomvar.NewDeterministic(1, 0))))
	require.NoError(t, ctx.Declare("acc", valuetype.FromNumber(randomvar.NewDeterministic(1, 0))))
	root := mustParse(t, `FOR i = 1 TO 3 STEP 0 DO acc = acc + 1`)
	eng := New(m, ctx, NewPayLog())
	assert.Error(t, eng.Run(context.Background(), root))
}

func TestEngineForLoopZeroIterationsWhenBoundsEmpty(t *testing.T) {
	m := newSingleSampleModel()
	ctx := valuetype.New()
	require.NoError(t, ctx.Declare("i", valuetype.FromNumber(randomvar.NewDeterministic(1, 0))))
	require.NoError(t, ctx.Declare("acc", valuetype.FromNumber(randomvar.NewDeterministic(1, 0))))
	root := mustParse(t, `FOR i = 5 TO 1 STEP 1 DO acc = acc + 1`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))
	acc, _, _ := ctx.Scalar("acc")
	rv, _ := acc.CheckNumeric()
	assert.Equal(t, 0.0, rv.At(0))
}

func TestEngineForLoopAccumulatesAcrossIterations(t *testing.T) {
	m := newSingleSampleModel()
	ctx := valuetype.New()
	require.NoError(t, ctx.Declare("i", valuetype.FromNumber(randomvar.NewDeterministic(1, 0))))
	require.NoError(t, ctx.Declare("acc", valuetype.FromNumber(randomvar.NewDeterministic(1, 0))))
	root := mustParse(t, `FOR i = 1 TO 5 STEP 1 DO acc = acc + i`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))
	acc, _, _ := ctx.Scalar("acc")
	rv, _ := acc.CheckNumeric()
	assert.Equal(t, 15.0, rv.At(0))
}

func TestEngineArraySubscriptBoundsRejected(t *testing.T) {
	m := newSingleSampleModel()

	ctxLow := valuetype.New()
	rootLow := mustParse(t, `NUMBER arr[3]; NUMBER x; x = arr[0]`)
	engLow := New(m, ctxLow, NewPayLog())
	assert.Error(t, engLow.Run(context.Background(), rootLow))

	ctxHigh := valuetype.New()
	rootHigh := mustParse(t, `NUMBER arr[3]; NUMBER x; x = arr[4]`)
	engHigh := New(m, ctxHigh, NewPayLog())
	assert.Error(t, engHigh.Run(context.Background(), rootHigh))
}

func TestEngineSortAscending(t *testing.T) {
	m := newSingleSampleModel()
	ctx := valuetype.New()
	root := mustParse(t, `NUMBER arr[4]; arr[1] = 4; arr[2] = 2; arr[3] = 3; arr[4] = 1; SORT(arr)`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))

	arr, declared, err := ctx.Array("arr")
	require.NoError(t, err)
	require.True(t, declared)
	want := []float64{1, 2, 3, 4}
	for i, v := range arr {
		rv, err := v.CheckNumeric()
		require.NoError(t, err)
		assert.Equal(t, want[i], rv.At(0))
	}
}

func TestEnginePermuteRoundTrip(t *testing.T) {
	m := newSingleSampleModel()
	ctx := valuetype.New()
	root := mustParse(t, `
NUMBER arr[4];
NUMBER perm[4];
NUMBER inv[4];
arr[1] = 10; arr[2] = 20; arr[3] = 30; arr[4] = 40;
perm[1] = 3; perm[2] = 1; perm[3] = 4; perm[4] = 2;
inv[1] = 2; inv[2] = 4; inv[3] = 1; inv[4] = 3;
PERMUTE(arr, perm);
PERMUTE(arr, inv)
`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))

	arr, _, err := ctx.Array("arr")
	require.NoError(t, err)
	want := []float64{10, 20, 30, 40}
	for i, v := range arr {
		rv, err := v.CheckNumeric()
		require.NoError(t, err)
		assert.Equal(t, want[i], rv.At(0))
	}
}

func TestEngineSortSeparateOutputAndPermutation(t *testing.T) {
	m := newSingleSampleModel()
	ctx := valuetype.New()
	root := mustParse(t, `
NUMBER x[4];
NUMBER y[4];
NUMBER p[4];
x[1] = 4; x[2] = 2; x[3] = 3; x[4] = 1;
SORT(x, y, p)
`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))

	x, _, err := ctx.Array("x")
	require.NoError(t, err)
	y, _, err := ctx.Array("y")
	require.NoError(t, err)
	p, _, err := ctx.Array("p")
	require.NoError(t, err)

	xVals := make([]float64, len(x))
	for i, v := range x {
		rv, err := v.CheckNumeric()
		require.NoError(t, err)
		xVals[i] = rv.At(0)
	}
	assert.Equal(t, []float64{4, 2, 3, 1}, xVals, "SORT must leave x untouched when y is given")

	for i, v := range y {
		yrv, err := v.CheckNumeric()
		require.NoError(t, err)
		prv, err := p[i].CheckNumeric()
		require.NoError(t, err)
		pIdx := int(prv.At(0))
		assert.Equal(t, xVals[pIdx-1], yrv.At(0), "y[i] must equal x[p[i]-1]")
		assert.Equal(t, float64(i+1), yrv.At(0), "y must be x sorted ascending")
	}
}

func TestEnginePermuteThreeArgLeavesSourceUnchanged(t *testing.T) {
	m := newSingleSampleModel()
	ctx := valuetype.New()
	root := mustParse(t, `
NUMBER x[4];
NUMBER y[4];
NUMBER p[4];
x[1] = 10; x[2] = 20; x[3] = 30; x[4] = 40;
p[1] = 3; p[2] = 1; p[3] = 4; p[4] = 2;
PERMUTE(x, y, p)
`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))

	x, _, err := ctx.Array("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 40}, []float64{
		mustAt(t, x[0]), mustAt(t, x[1]), mustAt(t, x[2]), mustAt(t, x[3]),
	}, "PERMUTE with a separate output array must leave x untouched")

	y, _, err := ctx.Array("y")
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 10, 40, 20}, []float64{
		mustAt(t, y[0]), mustAt(t, y[1]), mustAt(t, y[2]), mustAt(t, y[3]),
	})
}

func TestEnginePermuteThreeArgRoundTripViaInverse(t *testing.T) {
	m := newSingleSampleModel()
	ctx := valuetype.New()
	root := mustParse(t, `
NUMBER x[4];
NUMBER y[4];
NUMBER p[4];
NUMBER inv[4];
NUMBER back[4];
x[1] = 10; x[2] = 20; x[3] = 30; x[4] = 40;
p[1] = 3; p[2] = 1; p[3] = 4; p[4] = 2;
inv[1] = 2; inv[2] = 4; inv[3] = 1; inv[4] = 3;
PERMUTE(x, y, p);
PERMUTE(y, back, inv)
`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))

	back, _, err := ctx.Array("back")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 40}, []float64{
		mustAt(t, back[0]), mustAt(t, back[1]), mustAt(t, back[2]), mustAt(t, back[3]),
	}, "PERMUTE(x, y, p) then PERMUTE(y, back, inv(p)) must recover x")
}

func mustAt(t *testing.T, v valuetype.ValueType) float64 {
	t.Helper()
	rv, err := v.CheckNumeric()
	require.NoError(t, err)
	return rv.At(0)
}

func TestEngineStackInvariantHoldsAfterRun(t *testing.T) {
	m := newSingleSampleModel()
	ctx := valuetype.New()
	root := mustParse(t, `NUMBER x; x = 1 + 2 * 3`)
	eng := New(m, ctx, NewPayLog())
	require.NoError(t, eng.Run(context.Background(), root))
	assert.Len(t, eng.valueStack, 1)
	assert.Len(t, eng.filterStack, 1)
}
