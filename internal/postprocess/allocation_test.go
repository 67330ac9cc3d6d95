package postprocess

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ore/internal/valuation"
)

func TestAllocateRelativeXVAClosure(t *testing.T) {
	portfolio := []*valuation.Trade{{ID: "T1"}, {ID: "T2"}}
	standAlone := map[string]*XVAResult{
		"T1": {ID: "T1", CVA: decimal.NewFromFloat(3.0)},
		"T2": {ID: "T2", CVA: decimal.NewFromFloat(1.0)},
	}
	netCVA := decimal.NewFromFloat(3.2)

	allocs, err := AllocateRelativeXVA(portfolio, standAlone, netCVA, decimal.Zero)
	require.NoError(t, err)
	require.Len(t, allocs, 2)

	sum := decimal.Zero
	byID := map[string]Allocation{}
	for _, a := range allocs {
		sum = sum.Add(a.AllocatedCVA)
		byID[a.TradeID] = a
	}
	assert.InDelta(t, 2.4, byID["T1"].AllocatedCVA.InexactFloat64(), 1e-8)
	assert.InDelta(t, 0.8, byID["T2"].AllocatedCVA.InexactFloat64(), 1e-8)
	assert.InDelta(t, netCVA.InexactFloat64(), sum.InexactFloat64(), 1e-8)
}

func TestAllocateRelativeFairValueGrossPreservesSign(t *testing.T) {
	portfolio := []*valuation.Trade{{ID: "T1"}, {ID: "T2"}}
	t0 := map[string]float64{"T1": 100, "T2": -50}

	allocs, err := AllocateRelativeFairValueGross(portfolio, t0, decimal.NewFromFloat(10), decimal.NewFromFloat(5))
	require.NoError(t, err)

	byID := map[string]Allocation{}
	for _, a := range allocs {
		byID[a.TradeID] = a
	}
	assert.InDelta(t, 10*100.0/50.0, byID["T1"].AllocatedCVA.InexactFloat64(), 1e-9)
	assert.InDelta(t, 10*-50.0/50.0, byID["T2"].AllocatedCVA.InexactFloat64(), 1e-9)
}

func TestAllocateRelativeFairValueNetSplitsByNPVSign(t *testing.T) {
	portfolio := []*valuation.Trade{{ID: "POS"}, {ID: "NEG"}}
	t0 := map[string]float64{"POS": 40, "NEG": -10}

	allocs, err := AllocateRelativeFairValueNet(portfolio, t0, decimal.NewFromFloat(8), decimal.NewFromFloat(2))
	require.NoError(t, err)

	byID := map[string]Allocation{}
	for _, a := range allocs {
		byID[a.TradeID] = a
	}
	assert.InDelta(t, 8, byID["POS"].AllocatedCVA.InexactFloat64(), 1e-9) // sole positive-NPV trade gets all net CVA
	assert.True(t, byID["POS"].AllocatedDVA.IsZero())
	assert.InDelta(t, 2, byID["NEG"].AllocatedDVA.InexactFloat64(), 1e-9) // sole negative-NPV trade gets all net DVA
	assert.True(t, byID["NEG"].AllocatedCVA.IsZero())
}

func TestAllocateNoneZeroesAllAllocations(t *testing.T) {
	portfolio := []*valuation.Trade{{ID: "T1"}, {ID: "T2"}}
	allocs := AllocateNone(portfolio)
	for _, a := range allocs {
		assert.True(t, a.AllocatedCVA.IsZero())
		assert.True(t, a.AllocatedDVA.IsZero())
	}
}

func TestAllocateRelativeXVARejectsZeroDenominator(t *testing.T) {
	portfolio := []*valuation.Trade{{ID: "T1"}}
	standAlone := map[string]*XVAResult{"T1": {ID: "T1"}}
	_, err := AllocateRelativeXVA(portfolio, standAlone, decimal.Zero, decimal.Zero)
	assert.Error(t, err)
}
