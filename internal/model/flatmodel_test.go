package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ore/internal/randomvar"
)

func TestFlatModelDeterministicDiscountBond(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	maturity := ref.AddDate(1, 0, 0)
	m := NewFlatModel(1, ref, "USD", map[string]float64{"USD": 0.05}, nil, nil, nil)

	amount := randomvar.NewDeterministic(1, 1.0)
	pv, err := m.Pay(amount, ref, maturity, "USD")
	require.NoError(t, err)
	assert.True(t, pv.Deterministic())
	assert.InDelta(t, math.Exp(-0.05), pv.At(0), 1e-9)
}

func TestFlatModelPayRejectsPayBeforeObs(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewFlatModel(1, ref, "USD", nil, nil, nil, nil)
	_, err := m.Pay(randomvar.NewDeterministic(1, 1), ref.AddDate(0, 1, 0), ref, "USD")
	assert.Error(t, err)
}

func TestBlack76MatchesClosedForm(t *testing.T) {
	price := Black76(Call, 0.25, 100, 100, 0.2)
	// At-the-money forward call: F=K so price = F*(2N(d1)-1), d1=0.5*vol*sqrt(T)
	d1 := 0.5 * 0.2 * math.Sqrt(0.25)
	expected := 100 * (2*normCdf(d1) - 1)
	assert.InDelta(t, expected, price, 1e-9)
}

func TestFlatModelNpvOfDeterministicIsIdentity(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewFlatModel(4, ref, "USD", nil, nil, nil, nil)
	amount := randomvar.NewDeterministic(4, 42.0)
	out, err := m.Npv(amount, ref, NpvOptions{})
	require.NoError(t, err)
	assert.Equal(t, 42.0, out.At(0))
}
