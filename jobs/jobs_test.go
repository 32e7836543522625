package jobs

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/replenish-erp/replenish-erp/internal/stock"
)

type fakeStockRepo struct {
	upserted  []stock.Record
	stale     []int64
	staleArg  time.Time
	staleSeen bool
}

func (r *fakeStockRepo) ListRecords(ctx context.Context, productIDs []int64) ([]stock.Record, error) {
	return nil, nil
}

func (r *fakeStockRepo) ListAllRecords(ctx context.Context) ([]stock.Record, error) {
	return nil, nil
}

func (r *fakeStockRepo) UpsertRecords(ctx context.Context, records []stock.Record) error {
	r.upserted = append(r.upserted, records...)
	return nil
}

func (r *fakeStockRepo) StaleProducts(ctx context.Context, olderThan time.Time) ([]int64, error) {
	r.staleSeen = true
	r.staleArg = olderThan
	return r.stale, nil
}

type fakeProvider struct {
	source string
	items  []stock.FeedItem
	err    error
	calls  int
}

func (p *fakeProvider) Source() string { return p.source }

func (p *fakeProvider) Fetch(ctx context.Context) ([]stock.FeedItem, error) {
	p.calls++
	return p.items, p.err
}

func TestStockRefreshIngestsAllProviders(t *testing.T) {
	repo := &fakeStockRepo{}
	svc := stock.NewService(repo, nil, slog.Default(), false)
	main := &fakeProvider{source: "MAIN", items: []stock.FeedItem{{ProductID: 1, Quantity: 10}}}
	fbe := &fakeProvider{source: "FBE", items: []stock.FeedItem{{ProductID: 1, Quantity: 4}, {ProductID: 2, Quantity: 7}}}

	job := NewStockRefreshJob(svc, []FeedProvider{main, fbe}, slog.Default(), nil)
	task, err := NewStockRefreshTask()
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, main.calls)
	require.Equal(t, 1, fbe.calls)
	require.Len(t, repo.upserted, 3)
}

func TestStockRefreshFiltersSources(t *testing.T) {
	repo := &fakeStockRepo{}
	svc := stock.NewService(repo, nil, slog.Default(), false)
	main := &fakeProvider{source: "MAIN", items: []stock.FeedItem{{ProductID: 1, Quantity: 10}}}
	fbe := &fakeProvider{source: "FBE", items: []stock.FeedItem{{ProductID: 2, Quantity: 7}}}

	job := NewStockRefreshJob(svc, []FeedProvider{main, fbe}, slog.Default(), nil)
	task, err := NewStockRefreshTask("FBE")
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 0, main.calls)
	require.Equal(t, 1, fbe.calls)
	require.Len(t, repo.upserted, 1)
}

func TestStockRefreshChecksStaleLedgers(t *testing.T) {
	repo := &fakeStockRepo{stale: []int64{42}}
	svc := stock.NewService(repo, nil, slog.Default(), false)
	job := NewStockRefreshJob(svc, nil, slog.Default(), nil)
	job.StaleAfter = 2 * time.Hour
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return now }

	task, err := NewStockRefreshTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.True(t, repo.staleSeen)
	require.Equal(t, now.Add(-2*time.Hour), repo.staleArg)
}

type fakeCleaner struct {
	olderThan time.Duration
	calls     int
	err       error
}

func (c *fakeCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	c.calls++
	c.olderThan = olderThan
	return c.err
}

func TestIdemCleanupUsesPayloadRetention(t *testing.T) {
	cleaner := &fakeCleaner{}
	job := NewIdemCleanupJob(cleaner, slog.Default(), nil)

	task, err := NewIdemCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, cleaner.calls)
	require.Equal(t, 48*time.Hour, cleaner.olderThan)
}

func TestIdemCleanupDefaultsRetention(t *testing.T) {
	cleaner := &fakeCleaner{}
	job := NewIdemCleanupJob(cleaner, slog.Default(), nil)

	task, err := NewIdemCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 7*24*time.Hour, cleaner.olderThan)
}

type fakeEnqueuer struct {
	sources []string
	err     error
}

func (e *fakeEnqueuer) EnqueueStockRefresh(ctx context.Context, sources ...string) (*asynq.TaskInfo, error) {
	e.sources = sources
	if e.err != nil {
		return nil, e.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func TestHandlerStockRefreshEnqueues(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	h := NewHandler(nil, enqueuer, slog.Default())
	r := chi.NewRouter()
	h.MountRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/stock-refresh", strings.NewReader(`{"sources":["MAIN"]}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []string{"MAIN"}, enqueuer.sources)
	require.Contains(t, rec.Body.String(), `"task_id":"task-1"`)
}

func TestHandlerStockRefreshEmptyBodyMeansAllSources(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	h := NewHandler(nil, enqueuer, slog.Default())
	r := chi.NewRouter()
	h.MountRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/stock-refresh", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Empty(t, enqueuer.sources)
}

func TestHandlerStockRefreshBadBody(t *testing.T) {
	h := NewHandler(nil, &fakeEnqueuer{}, slog.Default())
	r := chi.NewRouter()
	h.MountRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/stock-refresh", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
