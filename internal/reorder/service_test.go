package reorder

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products []ProductInfo
	calls    int
}

func (f *fakeCatalog) ListReplenishable(ctx context.Context) ([]ProductInfo, error) {
	f.calls++
	return f.products, nil
}

type fakeStock struct {
	available map[int64]int64
}

func (f *fakeStock) AvailableByProduct(ctx context.Context, ids []int64) (map[int64]int64, error) {
	return f.available, nil
}

type fakePending struct {
	pending map[int64]int64
}

func (f *fakePending) PendingQuantityByProduct(ctx context.Context) (map[int64]int64, error) {
	return f.pending, nil
}

type fakeSuppliers struct {
	options map[int64][]SupplierOption
}

func (f *fakeSuppliers) OptionsByProduct(ctx context.Context, ids []int64) (map[int64][]SupplierOption, error) {
	return f.options, nil
}

func newTestService(t *testing.T) (*Service, *fakeCatalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	catalog := &fakeCatalog{products: []ProductInfo{
		{ID: 1, SKU: "SKU-1", Name: "Widget", Thresholds: Thresholds{Critical: 5, LowStock: 20, Target: 50}},
		{ID: 2, SKU: "SKU-2", Name: "Gadget", Thresholds: Thresholds{Critical: 2, LowStock: 10, Target: 30}},
	}}
	stock := &fakeStock{available: map[int64]int64{1: 3, 2: 25}}
	pending := &fakePending{pending: map[int64]int64{1: 20}}
	suppliers := &fakeSuppliers{options: map[int64][]SupplierOption{
		1: {{SupplierID: 2, SupplierName: "Globex", UnitCost: 1.5}, {SupplierID: 1, SupplierName: "Acme", UnitCost: 2.0}},
	}}

	svc := NewService(catalog, stock, pending, suppliers, NewCache(client, time.Minute), slog.Default())
	return svc, catalog, mr
}

func TestSuggestions(t *testing.T) {
	svc, _, _ := newTestService(t)

	suggestions, err := svc.Suggestions(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	require.EqualValues(t, 1, suggestions[0].ProductID)
	require.Equal(t, LevelCritical, suggestions[0].Level)
	require.EqualValues(t, 27, suggestions[0].SuggestedQty)
	require.EqualValues(t, 2, suggestions[0].PreferredSupplier.SupplierID)

	require.EqualValues(t, 2, suggestions[1].ProductID)
	require.Equal(t, LevelInStock, suggestions[1].Level)
	require.EqualValues(t, 5, suggestions[1].SuggestedQty)
}

func TestSuggestionsLevelFilter(t *testing.T) {
	svc, _, _ := newTestService(t)

	critical, err := svc.Suggestions(context.Background(), LevelCritical)
	require.NoError(t, err)
	require.Len(t, critical, 1)
	require.EqualValues(t, 1, critical[0].ProductID)

	_, err = svc.Suggestions(context.Background(), StockLevel("weird"))
	require.Error(t, err)
}

func TestSuggestionsCached(t *testing.T) {
	svc, catalog, _ := newTestService(t)

	_, err := svc.Suggestions(context.Background(), "")
	require.NoError(t, err)
	_, err = svc.Suggestions(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 1, catalog.calls)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	svc, catalog, _ := newTestService(t)

	_, err := svc.Suggestions(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background()))
	_, err = svc.Suggestions(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 2, catalog.calls)
}

func TestLowStockProductIDs(t *testing.T) {
	svc, _, _ := newTestService(t)

	ids, err := svc.LowStockProductIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids)
}
