package suppliers

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

// isUniqueViolation reports whether err is a Postgres unique key violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) error
	Delete(ctx context.Context, id int64) error

	ListMappings(ctx context.Context, supplierID int64) ([]ProductMapping, error)
	MappingsByProducts(ctx context.Context, productIDs []int64) ([]ProductMapping, error)
	GetMapping(ctx context.Context, supplierID, productID int64) (ProductMapping, error)
	UpsertMapping(ctx context.Context, mapping ProductMapping) (ProductMapping, error)
	DeleteMapping(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const supplierColumns = `id, code, name, address, email, phone, active, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.Email, &s.Phone, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM suppliers WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
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

	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.db.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.ErrNotFound
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO suppliers (code, name, address, email, phone, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		supplier.Code, supplier.Name, supplier.Address, supplier.Email, supplier.Phone, supplier.Active, now, now).
		Scan(&supplier.ID)
	if isUniqueViolation(err) {
		return Supplier{}, shared.ErrDuplicate
	}
	if err != nil {
		return Supplier{}, err
	}
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	return supplier, nil
}

func (r *repository) Update(ctx context.Context, id int64, supplier Supplier) error {
	_, err := r.db.Exec(ctx,
		`UPDATE suppliers SET code = $1, name = $2, address = $3, email = $4, phone = $5, active = $6, updated_at = $7 WHERE id = $8`,
		supplier.Code, supplier.Name, supplier.Address, supplier.Email, supplier.Phone, supplier.Active, time.Now(), id)
	if isUniqueViolation(err) {
		return shared.ErrDuplicate
	}
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	return err
}

const mappingColumns = `id, supplier_id, product_id, unit_cost, lead_time_days, preferred, active, created_at, updated_at`

func scanMapping(row pgx.Row) (ProductMapping, error) {
	var m ProductMapping
	err := row.Scan(&m.ID, &m.SupplierID, &m.ProductID, &m.UnitCost, &m.LeadTimeDays, &m.Preferred, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *repository) ListMappings(ctx context.Context, supplierID int64) ([]ProductMapping, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+mappingColumns+` FROM supplier_products WHERE supplier_id = $1 ORDER BY product_id`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMappings(rows)
}

func (r *repository) MappingsByProducts(ctx context.Context, productIDs []int64) ([]ProductMapping, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+mappingColumns+` FROM supplier_products WHERE product_id = ANY($1) AND active ORDER BY product_id, supplier_id`,
		productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMappings(rows)
}

func collectMappings(rows pgx.Rows) ([]ProductMapping, error) {
	var out []ProductMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) GetMapping(ctx context.Context, supplierID, productID int64) (ProductMapping, error) {
	m, err := scanMapping(r.db.QueryRow(ctx,
		`SELECT `+mappingColumns+` FROM supplier_products WHERE supplier_id = $1 AND product_id = $2`,
		supplierID, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductMapping{}, shared.ErrNotFound
	}
	return m, err
}

func (r *repository) UpsertMapping(ctx context.Context, mapping ProductMapping) (ProductMapping, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO supplier_products (supplier_id, product_id, unit_cost, lead_time_days, preferred, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (supplier_id, product_id) DO UPDATE SET
			unit_cost = EXCLUDED.unit_cost,
			lead_time_days = EXCLUDED.lead_time_days,
			preferred = EXCLUDED.preferred,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at`,
		mapping.SupplierID, mapping.ProductID, mapping.UnitCost, mapping.LeadTimeDays, mapping.Preferred, mapping.Active, now).
		Scan(&mapping.ID, &mapping.CreatedAt)
	if err != nil {
		return ProductMapping{}, err
	}
	mapping.UpdatedAt = now
	return mapping, nil
}

func (r *repository) DeleteMapping(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM supplier_products WHERE id = $1`, id)
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "name":
		return "name " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
