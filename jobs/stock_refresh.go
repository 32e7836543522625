package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/replenish-erp/replenish-erp/internal/jobs"
	"github.com/replenish-erp/replenish-erp/internal/stock"
)

// FeedProvider pulls one source's current snapshot from the external system.
type FeedProvider interface {
	Source() string
	Fetch(ctx context.Context) ([]stock.FeedItem, error)
}

// StockRefreshJob re-ingests every configured ledger feed.
type StockRefreshJob struct {
	Service   *stock.Service
	Providers []FeedProvider
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	// StaleAfter flags products whose newest ledger row predates the
	// refresh by more than this window. Non-positive falls back to 24h.
	StaleAfter time.Duration
	clock      func() time.Time
}

// NewStockRefreshJob initialises the stock refresh handler.
func NewStockRefreshJob(service *stock.Service, providers []FeedProvider, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockRefreshJob {
	return &StockRefreshJob{
		Service:   service,
		Providers: providers,
		Logger:    logger,
		Metrics:   metrics,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the refresh across all requested sources. Failures on
// one source do not stop the others.
func (j *StockRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("stock refresh: handler not configured")
	}
	tracker := j.Metrics.Track("stock_refresh")
	var payload StockRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	wanted := make(map[string]bool, len(payload.Sources))
	for _, s := range payload.Sources {
		wanted[s] = true
	}
	syncedAt := j.clock()
	var firstErr error
	for _, provider := range j.Providers {
		if len(wanted) > 0 && !wanted[provider.Source()] {
			continue
		}
		items, err := provider.Fetch(ctx)
		if err != nil {
			j.Logger.Error("stock feed fetch failed",
				slog.String("source", provider.Source()), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, err := j.Service.Ingest(ctx, provider.Source(), items, syncedAt); err != nil {
			j.Logger.Error("stock feed ingest failed",
				slog.String("source", provider.Source()), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	j.reportStale(ctx, syncedAt)
	return tracker.End(firstErr)
}

// reportStale logs products no feed has mentioned recently, typically
// delisted SKUs or a source silently dropping rows.
func (j *StockRefreshJob) reportStale(ctx context.Context, syncedAt time.Time) {
	staleAfter := j.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	stale, err := j.Service.StaleProducts(ctx, syncedAt.Add(-staleAfter))
	if err != nil {
		j.Logger.Error("stale product check failed", slog.Any("error", err))
		return
	}
	if len(stale) > 0 {
		j.Logger.Warn("stock ledger entries gone stale",
			slog.Int("count", len(stale)),
			slog.Any("product_ids", stale),
			slog.Duration("older_than", staleAfter))
	}
}
