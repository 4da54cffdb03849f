package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/gatepass/gatepass/internal/jobs"
)

// DefaultCheckInRetention keeps check-in audit rows for a year.
const DefaultCheckInRetention = 365 * 24 * time.Hour

// CheckInRetentionJob trims check-in rows older than the retention window.
type CheckInRetentionJob struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewCheckInRetentionJob constructs the retention job.
func NewCheckInRetentionJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *CheckInRetentionJob {
	return &CheckInRetentionJob{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes a checkins:retention task.
func (j *CheckInRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("checkins_retention")

	var payload CheckInsRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = DefaultCheckInRetention
	}

	cutoff := time.Now().UTC().Add(-retention)
	tag, err := j.pool.Exec(ctx,
		`DELETE FROM checkins WHERE created_at < $1`, cutoff)
	if err != nil {
		j.logger.Error("trim check-ins", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("trimmed check-ins",
		slog.String("job", "checkins_retention"),
		slog.Int64("deleted", tag.RowsAffected()))
	return tracker.End(nil)
}
