package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ore/internal/postprocess"
)

func TestWriteSensitivityCSVColumns(t *testing.T) {
	rows := []SensitivityRow{
		{NettingSetID: "NS1", Sensitivity: postprocess.CVASensitivity{PillarIndex: 0, BumpedCVA: 1.1, Delta: 0.05}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSensitivityCSV(&buf, rows))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "nettingSetId,pillarIndex,bumpedCVA,delta", lines[0])
	assert.Equal(t, "NS1,0,1.1,0.05", lines[1])
}
