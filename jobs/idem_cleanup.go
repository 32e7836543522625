package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/replenish-erp/replenish-erp/internal/jobs"
)

// IdempotencyCleaner prunes processed idempotency keys past retention.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdemCleanupJob keeps the idempotency key table from growing unbounded.
type IdemCleanupJob struct {
	Store   IdempotencyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdemCleanupJob initialises the cleanup handler.
func NewIdemCleanupJob(store IdempotencyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdemCleanupJob {
	return &IdemCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle deletes keys older than the payload retention. Non-positive
// retention falls back to one week.
func (j *IdemCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idem cleanup: handler not configured")
	}
	tracker := j.Metrics.Track("idem_cleanup")
	var payload IdemCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if err := j.Store.Cleanup(ctx, retention); err != nil {
		j.Logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("idempotency keys pruned", slog.Duration("retention", retention))
	return tracker.End(nil)
}
