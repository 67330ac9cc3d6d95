package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ore/internal/cube"
)

func TestWriteCashflowCSVAveragesAcrossSamples(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{ref, ref.AddDate(0, 6, 0)}
	c, err := cube.New([]string{"T1"}, dates, 2, 2, ref)
	require.NoError(t, err)
	require.NoError(t, c.Set(0, 1, 0, cube.SlotCashflow, 10))
	require.NoError(t, c.Set(0, 1, 1, cube.SlotCashflow, 20))

	var buf bytes.Buffer
	require.NoError(t, WriteCashflowCSV(&buf, c))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "tradeId,date,expectedCashflow", lines[0])
	assert.Equal(t, "T1,2026-01-01,0", lines[1])
	assert.Equal(t, "T1,2026-07-01,15", lines[2])
}
