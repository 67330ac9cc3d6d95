package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/randomvar"
	"github.com/wyfcoding/ore/internal/scriptengine"
)

func TestSnapshotPayLogRoundTrips(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	log := scriptengine.NewPayLog()
	log.Append(scriptengine.PayLogEntry{
		Amount:       randomvar.NewFromSlice([]float64{1, 2, 3}),
		Mask:         randomvar.NewFilterFromSlice([]bool{true, false, true}),
		Obs:          ref,
		Pay:          ref.AddDate(0, 3, 0),
		Currency:     "USD",
		LegNo:        1,
		CashflowType: "Fixed",
		Slot:         0,
	})

	snap := SnapshotPayLog(log)
	path := filepath.Join(t.TempDir(), "paylog.msgpack")
	require.NoError(t, SaveSnapshot(path, snap))

	var loaded PayLogSnapshot
	require.NoError(t, LoadSnapshot(path, &loaded))
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, []float64{1, 2, 3}, loaded.Entries[0].Amount)
	assert.Equal(t, []bool{true, false, true}, loaded.Entries[0].Mask)
	assert.Equal(t, "USD", loaded.Entries[0].Currency)
}

func TestSnapshotScenarioDataRestoreRoundTrips(t *testing.T) {
	sd, err := cube.NewScenarioData(2, 3, []string{"FX/EURUSD", "NUMERAIRE/USD"})
	require.NoError(t, err)
	var v float64 = 1
	for d := 0; d < 2; d++ {
		for s := 0; s < 3; s++ {
			for _, k := range sd.Keys() {
				require.NoError(t, sd.Set(d, s, k, v))
				v++
			}
		}
	}

	snap := SnapshotScenarioData(sd)
	path := filepath.Join(t.TempDir(), "scenario.msgpack")
	require.NoError(t, SaveSnapshot(path, snap))

	var loaded ScenarioDataSnapshot
	require.NoError(t, LoadSnapshot(path, &loaded))

	restored, err := loaded.Restore()
	require.NoError(t, err)

	got, err := restored.Get(1, 2, "NUMERAIRE/USD")
	require.NoError(t, err)
	want, err := sd.Get(1, 2, "NUMERAIRE/USD")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
