package cube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDates(n int, start time.Time) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i*30)
	}
	return out
}

func TestCubeSetGetRoundTrip(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := New([]string{"T1", "T2"}, sampleDates(3, asOf), 5, 2, asOf)
	require.NoError(t, err)

	require.NoError(t, c.Set(1, 2, 3, 1, 42.5))
	v, err := c.Get(1, 2, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(42.5), v)

	require.NoError(t, c.SetT0(0, 0, 7.25))
	v0, err := c.GetT0(0, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(7.25), v0)
}

func TestCubeIndexOutOfRangeRejected(t *testing.T) {
	asOf := time.Now()
	c, err := New([]string{"T1"}, sampleDates(2, asOf), 2, 1, asOf)
	require.NoError(t, err)

	assert.Error(t, c.Set(5, 0, 0, 0, 1))
	assert.Error(t, c.Set(0, 5, 0, 0, 1))
	assert.Error(t, c.Set(0, 0, 5, 0, 1))
	assert.Error(t, c.Set(0, 0, 0, 5, 1))
}

// TestCubeRoundTrip10x5x100x2 builds the end-to-end cube-round-trip
// scenario's sentinel pattern directly against Equal (the binary
// save/load round trip itself is exercised in the report package, which
// owns the on-disk codec).
func TestCubeRoundTrip10x5x100x2(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = "TRADE" + string(rune('A'+i))
	}
	dates := sampleDates(5, asOf)

	c, err := New(ids, dates, 100, 2, asOf)
	require.NoError(t, err)
	for tr := 0; tr < 10; tr++ {
		for d := 0; d < 5; d++ {
			for s := 0; s < 100; s++ {
				for dep := 0; dep < 2; dep++ {
					v := float32(tr*1000 + d*100 + s + dep)
					require.NoError(t, c.Set(tr, d, s, dep, v))
				}
			}
		}
	}

	clone, err := FromRaw(c.TradeIDs(), c.Dates(), c.Samples(), c.Depth(), c.AsOf(), c.RawData(), c.RawT0())
	require.NoError(t, err)
	assert.True(t, c.Equal(clone))

	mutated, err := New(ids, dates, 100, 2, asOf)
	require.NoError(t, err)
	require.NoError(t, mutated.Set(0, 0, 0, 0, 999))
	assert.False(t, c.Equal(mutated))
}

func TestCubeCheckDimensions(t *testing.T) {
	asOf := time.Now()
	c, err := New([]string{"T1", "T2"}, sampleDates(3, asOf), 10, 1, asOf)
	require.NoError(t, err)

	assert.NoError(t, c.CheckDimensions(2, 3, 10))
	assert.Error(t, c.CheckDimensions(3, 3, 10))
	assert.Error(t, c.CheckDimensions(2, 4, 10))
	assert.Error(t, c.CheckDimensions(2, 3, 11))
}

func TestScenarioDataSetGetAndUnknownKey(t *testing.T) {
	sd, err := NewScenarioData(3, 10, []string{"FX/EURUSD", "NUMERAIRE/USD"})
	require.NoError(t, err)

	require.NoError(t, sd.Set(1, 4, "FX/EURUSD", 1.08))
	v, err := sd.Get(1, 4, "FX/EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.08, v)

	_, err = sd.Get(1, 4, "FX/GBPUSD")
	assert.Error(t, err)
}
