package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisherConfiguresWriter(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"})
	require.NotNil(t, p.writer)
	assert.True(t, p.writer.AllowAutoTopicCreation)
}

func TestRunEventsMarshalToJSON(t *testing.T) {
	started := RunStarted{RunID: "r1", AsOfDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), WorkerCount: 4}
	data, err := json.Marshal(started)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"runId":"r1"`)

	stage := StageCompleted{RunID: "r1", Stage: "XVA", Duration: 2 * time.Second}
	data, err = json.Marshal(stage)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stage":"XVA"`)

	completed := RunCompleted{RunID: "r1", ExitCode: 0}
	data, err = json.Marshal(completed)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"exitCode":0`)
}
