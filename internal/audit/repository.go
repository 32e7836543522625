package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort reads the audit trail.
type RepositoryPort interface {
	Timeline(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error)
}

type repo struct {
	pool *pgxpool.Pool
}

// NewRepository returns the Postgres-backed audit reader.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repo{pool: pool}
}

func (r *repo) Timeline(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, actor_id, action, entity, entity_id, meta, occurred_at
		FROM audit_logs WHERE 1=1`)
	var args []any
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		sb.WriteString(" AND occurred_at >= $" + strconv.Itoa(len(args)))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		sb.WriteString(" AND occurred_at <= $" + strconv.Itoa(len(args)))
	}
	if filters.ActorID > 0 {
		args = append(args, filters.ActorID)
		sb.WriteString(" AND actor_id = $" + strconv.Itoa(len(args)))
	}
	if filters.Entity != "" {
		args = append(args, filters.Entity)
		sb.WriteString(" AND entity = $" + strconv.Itoa(len(args)))
	}
	if filters.EntityID != "" {
		args = append(args, filters.EntityID)
		sb.WriteString(" AND entity_id = $" + strconv.Itoa(len(args)))
	}
	if filters.Action != "" {
		args = append(args, filters.Action)
		sb.WriteString(" AND action = $" + strconv.Itoa(len(args)))
	}
	args = append(args, limit)
	sb.WriteString(" ORDER BY occurred_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args)))
	args = append(args, offset)
	sb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &meta, &e.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
