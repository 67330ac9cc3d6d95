package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ore/internal/cube"
)

func TestSaveLoadCubeRoundTrips(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tradeIDs := []string{"T1", "T2"}
	dates := []time.Time{ref, ref.AddDate(0, 6, 0)}

	c, err := cube.New(tradeIDs, dates, 4, 2, ref)
	require.NoError(t, err)
	var sentinel float32 = 1.0
	for trade := 0; trade < 2; trade++ {
		for date := 0; date < 2; date++ {
			for sample := 0; sample < 4; sample++ {
				for depth := 0; depth < 2; depth++ {
					require.NoError(t, c.Set(trade, date, sample, depth, sentinel))
					sentinel++
				}
			}
		}
		for depth := 0; depth < 2; depth++ {
			require.NoError(t, c.SetT0(trade, depth, sentinel))
			sentinel++
		}
	}

	path := filepath.Join(t.TempDir(), "cube.bin")
	require.NoError(t, SaveCube(path, c))

	loaded, err := LoadCube(path)
	require.NoError(t, err)

	assert.True(t, c.Equal(loaded))
}

func TestLoadCubeRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte{0, 0, 0, 0}, 0o644))
	_, err := LoadCube(path)
	assert.Error(t, err)
}
