package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordersUpdateUnderlyingCollectors(t *testing.T) {
	m := New("test_run")

	m.RecordSample()
	m.RecordSample()
	m.SetProgress(0.5)
	m.RecordTradeFailure()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SamplesProcessed))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.SampleProgress))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TradesFailed))
}

func TestNewNamesCollectorsBySubsystem(t *testing.T) {
	m := New("run42")
	assert.Contains(t, m.RunsTotal.Desc().String(), "ore_run42_runs_total")
}
