package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewCodesPruneTask(t *testing.T) {
	task, err := NewCodesPruneTask(6 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, TaskCodesPrune, task.Type())

	var payload CodesPrunePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, 6*time.Hour, payload.Grace)

	_, err = NewCodesPruneTask(-time.Hour)
	require.Error(t, err)
}

func TestNewCheckInsRetentionTask(t *testing.T) {
	task, err := NewCheckInsRetentionTask(30 * 24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, TaskCheckInsRetention, task.Type())

	for _, bad := range []time.Duration{0, -time.Minute} {
		_, err := NewCheckInsRetentionTask(bad)
		require.Error(t, err, bad)
	}
}

func TestNewWorkerRejectsBadCronSpec(t *testing.T) {
	task, err := NewCodesPruneTask(DefaultPruneGrace)
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		Cron: []CronRegistration{{Spec: "not a cron spec", Task: task}},
	})
	require.Error(t, err)
}
