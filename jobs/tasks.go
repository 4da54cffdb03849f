package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCodesPrune removes rotating codes that expired long enough ago.
	TaskCodesPrune = "codes:prune"
	// TaskCheckInsRetention trims check-in audit rows past the retention window.
	TaskCheckInsRetention = "checkins:retention"
)

// CodesPrunePayload configures a codes:prune run.
type CodesPrunePayload struct {
	// Grace keeps recently expired codes around for debugging before the
	// sweep removes them.
	Grace time.Duration `json:"grace"`
}

// CheckInsRetentionPayload configures a checkins:retention run.
type CheckInsRetentionPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewCodesPruneTask constructs a codes:prune task.
func NewCodesPruneTask(grace time.Duration) (*asynq.Task, error) {
	if grace < 0 {
		return nil, errors.New("jobs: prune grace must not be negative")
	}
	data, err := json.Marshal(CodesPrunePayload{Grace: grace})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCodesPrune, data), nil
}

// NewCheckInsRetentionTask constructs a checkins:retention task.
func NewCheckInsRetentionTask(retention time.Duration) (*asynq.Task, error) {
	if retention <= 0 {
		return nil, errors.New("jobs: retention must be positive")
	}
	data, err := json.Marshal(CheckInsRetentionPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCheckInsRetention, data), nil
}
