package valuetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareRejectsDuplicate(t *testing.T) {
	c := New()
	require.NoError(t, c.Declare("x", FromCurrency("USD")))
	assert.Error(t, c.Declare("x", FromCurrency("EUR")))
}

func TestDeclareSilentlyDroppedWhenIgnored(t *testing.T) {
	c := New()
	c.MarkIgnored("x")
	require.NoError(t, c.Declare("x", FromCurrency("USD")))
	_, declared, err := c.Scalar("x")
	require.NoError(t, err)
	assert.False(t, declared)
}

func TestSetScalarRejectsConstant(t *testing.T) {
	c := New()
	require.NoError(t, c.Declare("x", FromCurrency("USD")))
	c.MarkConstant("x")
	applied, err := c.SetScalar("x", FromCurrency("EUR"))
	assert.False(t, applied)
	assert.Error(t, err)
}

func TestBindExternalIsReadableAndConstant(t *testing.T) {
	c := New()
	c.BindExternal("notional", FromCurrency("USD"))
	v, declared, err := c.Scalar("notional")
	require.NoError(t, err)
	require.True(t, declared)
	assert.Equal(t, KindCurrency, v.Kind)
	assert.True(t, c.IsConstant("notional"))
}

func TestArrayElementBoundsChecked(t *testing.T) {
	c := New()
	require.NoError(t, c.DeclareArray("xs", 3, FromCurrency("")))
	_, err := c.SetArrayElement("xs", 3, FromCurrency("USD"))
	assert.Error(t, err)
	applied, err := c.SetArrayElement("xs", 1, FromCurrency("USD"))
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestScalarVsArrayMismatchIsAnError(t *testing.T) {
	c := New()
	require.NoError(t, c.DeclareArray("xs", 2, FromCurrency("")))
	_, _, err := c.Scalar("xs")
	assert.Error(t, err)
}
