package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	exportLimit     = 10000
)

// Service coordinates audit timeline reads.
type Service struct {
	repo RepositoryPort
}

// NewService builds the audit query service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of the audit trail. It fetches one row
// beyond the page size to learn whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.Timeline(ctx, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// ExportCSV renders the filtered timeline as CSV.
func (s *Service) ExportCSV(ctx context.Context, filters TimelineFilters) ([]byte, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	rows, err := s.repo.Timeline(ctx, filters, exportLimit, 0)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"occurred_at", "actor_id", "action", "entity", "entity_id", "meta"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		var meta string
		if len(row.Meta) > 0 {
			raw, err := json.Marshal(row.Meta)
			if err != nil {
				return nil, err
			}
			meta = string(raw)
		}
		record := []string{
			row.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Action,
			row.Entity,
			row.EntityID,
			meta,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
