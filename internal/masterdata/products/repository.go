package products

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replenish-erp/replenish-erp/internal/masterdata/shared"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	ListActive(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, sku, name, description, unit, critical_threshold, low_stock_threshold, target_stock_level, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Unit,
		&p.CriticalThreshold, &p.LowStockThreshold, &p.TargetStockLevel,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR sku ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		clause := ` AND active = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO products (sku, name, description, unit, critical_threshold, low_stock_threshold, target_stock_level, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
		product.SKU, product.Name, product.Description, product.Unit,
		product.CriticalThreshold, product.LowStockThreshold, product.TargetStockLevel,
		product.Active, now).
		Scan(&product.ID)
	if isUniqueViolation(err) {
		return Product{}, shared.ErrDuplicate
	}
	if err != nil {
		return Product{}, err
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	_, err := r.db.Exec(ctx,
		`UPDATE products SET sku = $1, name = $2, description = $3, unit = $4,
			critical_threshold = $5, low_stock_threshold = $6, target_stock_level = $7,
			active = $8, updated_at = $9
		 WHERE id = $10`,
		product.SKU, product.Name, product.Description, product.Unit,
		product.CriticalThreshold, product.LowStockThreshold, product.TargetStockLevel,
		product.Active, time.Now(), id)
	if isUniqueViolation(err) {
		return shared.ErrDuplicate
	}
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "sku":
		return "sku " + dir
	case "name":
		return "name " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
