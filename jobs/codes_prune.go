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

// DefaultPruneGrace keeps expired codes queryable for a day before removal.
const DefaultPruneGrace = 24 * time.Hour

// CodesPruneJob sweeps rotating codes whose expiry plus grace has passed.
// Live lookups already ignore expired rows; the sweep only reclaims space.
type CodesPruneJob struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewCodesPruneJob constructs the prune job.
func NewCodesPruneJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *CodesPruneJob {
	return &CodesPruneJob{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes a codes:prune task.
func (j *CodesPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("codes_prune")

	var payload CodesPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	grace := payload.Grace
	if grace <= 0 {
		grace = DefaultPruneGrace
	}

	cutoff := time.Now().UTC().Add(-grace)
	tag, err := j.pool.Exec(ctx,
		`DELETE FROM rotating_codes WHERE expires_at < $1`, cutoff)
	if err != nil {
		j.logger.Error("prune rotating codes", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("pruned rotating codes",
		slog.String("job", "codes_prune"),
		slog.Int64("deleted", tag.RowsAffected()))
	return tracker.End(nil)
}
