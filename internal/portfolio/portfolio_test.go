package portfolio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<Portfolio>
  <Trade id="BOND1" nettingSetId="NS1" currency="USD" resultVar="NPV" storeFlows="true">
    <Script><![CDATA[NUMBER NPV; NPV = pay(notional, today, maturity, ccy)]]></Script>
    <Bindings>
      <Event name="today">2026-01-01</Event>
      <Event name="maturity">2027-01-01</Event>
      <Currency name="ccy">USD</Currency>
      <Number name="notional">1000000</Number>
    </Bindings>
  </Trade>
  <Trade id="SWAP1" currency="EUR">
    <Script><![CDATA[NUMBER NPV; NPV = fixed]]></Script>
    <Bindings>
      <Number name="fixed">1.0</Number>
      <Index name="idx">EUR-EURIBOR-6M</Index>
      <DayCounter name="dc">ACT/360</DayCounter>
    </Bindings>
  </Trade>
</Portfolio>`

func writePortfolio(t *testing.T, xml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.xml")
	require.NoError(t, os.WriteFile(path, []byte(xml), 0o644))
	return path
}

func TestLoadParsesTradesInFileOrder(t *testing.T) {
	path := writePortfolio(t, sampleXML)
	trades, err := Load(path)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "BOND1", trades[0].ID)
	assert.Equal(t, "NS1", trades[0].NettingSetID)
	assert.True(t, trades[0].StoreFlows)

	assert.Equal(t, "SWAP1", trades[1].ID)
	assert.Equal(t, "", trades[1].NettingSetID)
	assert.Equal(t, "NPV", trades[1].ResultVar())
}

func TestLoadBindsExternalTermsIntoContext(t *testing.T) {
	path := writePortfolio(t, sampleXML)
	trades, err := Load(path)
	require.NoError(t, err)

	v, declared, err := trades[0].Ctx.Scalar("notional")
	require.NoError(t, err)
	require.True(t, declared)
	n, err := v.CheckNumeric()
	require.NoError(t, err)
	assert.Equal(t, 1000000.0, n.At(0))
}

func TestLoadRejectsMalformedScript(t *testing.T) {
	const bad = `<Portfolio><Trade id="X"><Script>NUMBER NPV NPV = 1</Script></Trade></Portfolio>`
	path := writePortfolio(t, bad)
	_, err := Load(path)
	assert.Error(t, err)
}
