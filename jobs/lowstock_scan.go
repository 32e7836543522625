package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/replenish-erp/replenish-erp/internal/jobs"
	"github.com/replenish-erp/replenish-erp/internal/reorder"
)

// LowStockScanJob recomputes reorder suggestions and reports shortages.
type LowStockScanJob struct {
	Service *reorder.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob initialises the low stock scan handler.
func NewLowStockScanJob(service *reorder.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle invalidates the suggestion cache and recomputes, logging the
// products that sit at or below their low stock threshold.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("low stock scan: handler not configured")
	}
	tracker := j.Metrics.Track("lowstock_scan")
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	if err := j.Service.Invalidate(ctx); err != nil {
		return tracker.End(err)
	}
	suggestions, err := j.Service.Suggestions(ctx, "")
	if err != nil {
		return tracker.End(err)
	}
	byLevel := make(map[reorder.StockLevel]int)
	var shortIDs []int64
	for _, s := range suggestions {
		if s.Level == reorder.LevelInStock {
			continue
		}
		byLevel[s.Level]++
		shortIDs = append(shortIDs, s.ProductID)
	}
	for level, count := range byLevel {
		j.Metrics.AddShortages(string(level), count)
	}
	j.Logger.Info("low stock scan complete",
		slog.Int("products", len(suggestions)), slog.Int("shortages", len(shortIDs)))
	if payload.Notify && len(shortIDs) > 0 {
		j.Logger.Warn("products need replenishment", slog.Any("product_ids", shortIDs))
	}
	return tracker.End(nil)
}
