package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	entries   []Entry
	lastLimit int
}

func (f *fakeRepo) Timeline(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	f.lastLimit = limit
	if offset >= len(f.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.entries) {
		end = len(f.entries)
	}
	return f.entries[offset:end], nil
}

func entries(n int) []Entry {
	out := make([]Entry, 0, n)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out = append(out, Entry{
			ID:       int64(i + 1),
			ActorID:  7,
			Action:   "PO_CREATE",
			Entity:   "purchase_order",
			EntityID: "42",
			At:       base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestTimelinePaging(t *testing.T) {
	repo := &fakeRepo{entries: entries(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Equal(t, 0, result.Paging.PrevPage)
	require.Equal(t, 21, repo.lastLimit)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
}

func TestTimelineCapsPageSize(t *testing.T) {
	repo := &fakeRepo{entries: entries(5)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 50, result.Paging.PageSize)
	require.Equal(t, 1, result.Paging.Page)
}

func TestExportCSV(t *testing.T) {
	repo := &fakeRepo{entries: []Entry{{
		ID:       1,
		ActorID:  9,
		Action:   "PO_CANCEL",
		Entity:   "purchase_order",
		EntityID: "11",
		Meta:     map[string]any{"reason": "supplier closed"},
		At:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}}
	svc := NewService(repo)

	data, err := svc.ExportCSV(context.Background(), TimelineFilters{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "occurred_at,actor_id,action,entity,entity_id,meta", lines[0])
	require.Contains(t, lines[1], "PO_CANCEL")
	require.Contains(t, lines[1], "supplier closed")
	require.Contains(t, lines[1], "2026-03-01T12:00:00Z")
}
