package stock

import (
	"context"
	"log/slog"
	"time"
)

// CachePort invalidates derived caches after a ledger change.
type CachePort interface {
	Bump(ctx context.Context) error
}

// FeedItem is one row of an external source feed.
type FeedItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
	Reserved  int64 `json:"reserved"`
}

// Service exposes the merged stock ledger. When allowNegative is false,
// reservation overshoot from out-of-sync feeds is clamped so Available
// never goes below zero.
type Service struct {
	repo          RepositoryPort
	cache         CachePort
	logger        *slog.Logger
	allowNegative bool
}

func NewService(repo RepositoryPort, cache CachePort, logger *slog.Logger, allowNegative bool) *Service {
	return &Service{repo: repo, cache: cache, logger: logger, allowNegative: allowNegative}
}

func (s *Service) clampAvailability(merged []Aggregated) []Aggregated {
	if s.allowNegative {
		return merged
	}
	for i := range merged {
		if merged[i].Available < 0 {
			merged[i].Available = 0
		}
	}
	return merged
}

// Aggregate merges the ledgers for the requested products.
func (s *Service) Aggregate(ctx context.Context, productIDs []int64) ([]Aggregated, error) {
	records, err := s.repo.ListRecords(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	merged := Merge(records)
	// Products with no ledger rows at all still get an all-zero entry.
	seen := make(map[int64]bool, len(merged))
	for _, agg := range merged {
		seen[agg.ProductID] = true
	}
	for _, id := range productIDs {
		if !seen[id] {
			merged = append(merged, MergeOne(id, nil))
			seen[id] = true
		}
	}
	return s.clampAvailability(merged), nil
}

// AggregateAll merges every product present in any ledger.
func (s *Service) AggregateAll(ctx context.Context) ([]Aggregated, error) {
	records, err := s.repo.ListAllRecords(ctx)
	if err != nil {
		return nil, err
	}
	return s.clampAvailability(Merge(records)), nil
}

// AggregateOne returns the merged view for a single product.
func (s *Service) AggregateOne(ctx context.Context, productID int64) (Aggregated, error) {
	records, err := s.repo.ListRecords(ctx, []int64{productID})
	if err != nil {
		return Aggregated{}, err
	}
	merged := s.clampAvailability([]Aggregated{MergeOne(productID, records)})
	return merged[0], nil
}

// Ingest persists one source's feed snapshot and bumps derived caches.
func (s *Service) Ingest(ctx context.Context, source string, items []FeedItem, syncedAt time.Time) (int, error) {
	src, err := ParseSource(source)
	if err != nil {
		return 0, err
	}
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, Record{
			ProductID: item.ProductID,
			Source:    src,
			Quantity:  item.Quantity,
			Reserved:  item.Reserved,
			SyncedAt:  syncedAt,
		})
	}
	if err := s.repo.UpsertRecords(ctx, records); err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("stock cache bump failed", slog.Any("error", err))
		}
	}
	s.logger.Info("stock feed ingested", slog.String("source", string(src)), slog.Int("records", len(records)))
	return len(records), nil
}

// StaleProducts lists products whose ledgers have not synced since the cutoff.
func (s *Service) StaleProducts(ctx context.Context, olderThan time.Time) ([]int64, error) {
	return s.repo.StaleProducts(ctx, olderThan)
}
