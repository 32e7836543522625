package stock

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordKey struct {
	productID int64
	source    Source
}

type memoryStockRepo struct {
	mu      sync.Mutex
	records map[recordKey]Record
}

func newMemoryStockRepo() *memoryStockRepo {
	return &memoryStockRepo{records: make(map[recordKey]Record)}
}

func (r *memoryStockRepo) ListRecords(ctx context.Context, productIDs []int64) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	var out []Record
	for _, rec := range r.records {
		if wanted[rec.ProductID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryStockRepo) ListAllRecords(ctx context.Context) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *memoryStockRepo) UpsertRecords(ctx context.Context, records []Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.records[recordKey{rec.ProductID, rec.Source}] = rec
	}
	return nil
}

func (r *memoryStockRepo) StaleProducts(ctx context.Context, olderThan time.Time) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	newest := make(map[int64]time.Time)
	for _, rec := range r.records {
		if rec.SyncedAt.After(newest[rec.ProductID]) {
			newest[rec.ProductID] = rec.SyncedAt
		}
	}
	var out []int64
	for id, at := range newest {
		if at.Before(olderThan) {
			out = append(out, id)
		}
	}
	return out, nil
}

type countingBump struct {
	bumps int
}

func (c *countingBump) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func TestIngest(t *testing.T) {
	repo := newMemoryStockRepo()
	bump := &countingBump{}
	svc := NewService(repo, bump, slog.Default(), false)

	count, err := svc.Ingest(context.Background(), "MAIN", []FeedItem{
		{ProductID: 1, Quantity: 10, Reserved: 2},
		{ProductID: 2, Quantity: 5},
	}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, 1, bump.bumps)

	agg, err := svc.AggregateOne(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 10, agg.Total)
	require.EqualValues(t, 8, agg.Available)
}

func TestIngestReplacesSnapshot(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := NewService(repo, nil, slog.Default(), false)

	_, err := svc.Ingest(context.Background(), "FBE", []FeedItem{{ProductID: 1, Quantity: 10}}, time.Time{})
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), "FBE", []FeedItem{{ProductID: 1, Quantity: 4}}, time.Time{})
	require.NoError(t, err)

	agg, err := svc.AggregateOne(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 4, agg.BySource[SourceFBE])
}

func TestIngestRejectsUnknownSource(t *testing.T) {
	svc := NewService(newMemoryStockRepo(), nil, slog.Default(), false)
	_, err := svc.Ingest(context.Background(), "EBAY", nil, time.Time{})
	require.Error(t, err)
}

func TestAggregateIncludesProductsWithoutLedger(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := NewService(repo, nil, slog.Default(), false)

	_, err := svc.Ingest(context.Background(), "MAIN", []FeedItem{{ProductID: 1, Quantity: 10}}, time.Time{})
	require.NoError(t, err)

	merged, err := svc.Aggregate(context.Background(), []int64{1, 99})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	byProduct := make(map[int64]Aggregated)
	for _, agg := range merged {
		byProduct[agg.ProductID] = agg
	}
	require.EqualValues(t, 10, byProduct[1].Total)
	require.EqualValues(t, 0, byProduct[99].Total)
	require.Len(t, byProduct[99].BySource, len(Sources))
}

func TestAggregateClampsNegativeAvailable(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := NewService(repo, nil, slog.Default(), false)

	// Oversold: reservations exceed the on-hand quantity.
	_, err := svc.Ingest(context.Background(), "MAIN", []FeedItem{{ProductID: 1, Quantity: 3, Reserved: 8}}, time.Time{})
	require.NoError(t, err)

	agg, err := svc.AggregateOne(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 0, agg.Available)

	merged, err := svc.Aggregate(context.Background(), []int64{1})
	require.NoError(t, err)
	require.EqualValues(t, 0, merged[0].Available)

	all, err := svc.AggregateAll(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 0, all[0].Available)

	permissive := NewService(repo, nil, slog.Default(), true)
	agg, err = permissive.AggregateOne(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, -5, agg.Available)
}
