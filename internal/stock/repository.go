package stock

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts stock ledger persistence.
type RepositoryPort interface {
	ListRecords(ctx context.Context, productIDs []int64) ([]Record, error)
	ListAllRecords(ctx context.Context) ([]Record, error)
	UpsertRecords(ctx context.Context, records []Record) error
	StaleProducts(ctx context.Context, olderThan time.Time) ([]int64, error)
}

// Repository is the pgx implementation of RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `product_id, source, quantity, reserved, synced_at`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var source string
	if err := row.Scan(&rec.ProductID, &source, &rec.Quantity, &rec.Reserved, &rec.SyncedAt); err != nil {
		return Record{}, err
	}
	rec.Source = Source(source)
	return rec, nil
}

func (r *Repository) ListRecords(ctx context.Context, productIDs []int64) ([]Record, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM stock_records WHERE product_id = ANY($1) ORDER BY product_id, source`,
		productIDs)
	if err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *Repository) ListAllRecords(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM stock_records ORDER BY product_id, source`)
	if err != nil {
		return nil, fmt.Errorf("list all stock records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpsertRecords replaces each (product, source) row with the fresh feed value.
func (r *Repository) UpsertRecords(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO stock_records (product_id, source, quantity, reserved, synced_at) VALUES `)
	args := make([]any, 0, len(records)*5)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		sb.WriteString("($" + strconv.Itoa(base+1) + ", $" + strconv.Itoa(base+2) + ", $" + strconv.Itoa(base+3) +
			", $" + strconv.Itoa(base+4) + ", $" + strconv.Itoa(base+5) + ")")
		syncedAt := rec.SyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now()
		}
		args = append(args, rec.ProductID, string(rec.Source), rec.Quantity, rec.Reserved, syncedAt)
	}
	sb.WriteString(` ON CONFLICT (product_id, source) DO UPDATE SET
		quantity = EXCLUDED.quantity,
		reserved = EXCLUDED.reserved,
		synced_at = EXCLUDED.synced_at`)
	if _, err := r.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("upsert stock records: %w", err)
	}
	return nil
}

// StaleProducts returns products whose newest sync is older than the cutoff.
func (r *Repository) StaleProducts(ctx context.Context, olderThan time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id FROM stock_records GROUP BY product_id HAVING MAX(synced_at) < $1 ORDER BY product_id`,
		olderThan)
	if err != nil {
		return nil, fmt.Errorf("stale stock products: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
