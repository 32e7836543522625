package purchasing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replenish-erp/replenish-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction. Serialization
// failures surface as a retryable ConflictError.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return mapConflict(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapConflict(err)
	}
	return nil
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure / deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return &shared.ConflictError{Entity: "purchase order"}
		}
	}
	return err
}

const orderColumns = `id, number, supplier_id, status, currency, order_date,
	expected_date, delivered_at, subtotal, tax, discount, shipping, grand_total,
	notes, payment_terms, delivery_address, tracking_number, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (PurchaseOrder, error) {
	var (
		po        PurchaseOrder
		expected  pgtype.Date
		delivered pgtype.Timestamptz
	)
	err := row.Scan(&po.ID, &po.Number, &po.SupplierID, &po.Status, &po.Currency, &po.OrderDate,
		&expected, &delivered, &po.Subtotal, &po.Tax, &po.Discount, &po.Shipping, &po.GrandTotal,
		&po.Notes, &po.PaymentTerms, &po.DeliveryAddress, &po.TrackingNumber, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if expected.Valid {
		po.ExpectedDate = expected.Time
	}
	if delivered.Valid {
		po.DeliveredAt = delivered.Time
	}
	return po, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func fetchOrder(ctx context.Context, q querier, id int64, forUpdate bool) (PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	po, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, &shared.NotFoundError{Entity: "purchase order", ID: id}
		}
		return PurchaseOrder{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, ordered_qty, received_qty, unit_cost, discount_pct, tax_pct
		FROM purchase_order_lines WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.OrderedQty, &line.ReceivedQty,
			&line.UnitCost, &line.DiscountPct, &line.TaxPct); err != nil {
			return PurchaseOrder{}, err
		}
		po.Lines = append(po.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// GetOrder returns an order with its lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return fetchOrder(ctx, r.pool, id, false)
}

// ListOrders returns order summaries with supplier name, filterable by
// status, supplier, date range and number search.
func (r *Repository) ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]OrderSummary, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argNum := 1
	if filters.Status != "" {
		where += ` AND p.status = $` + itoa(argNum)
		args = append(args, string(filters.Status))
		argNum++
	}
	if filters.SupplierID > 0 {
		where += ` AND p.supplier_id = $` + itoa(argNum)
		args = append(args, filters.SupplierID)
		argNum++
	}
	if !filters.From.IsZero() {
		where += ` AND p.order_date >= $` + itoa(argNum)
		args = append(args, filters.From)
		argNum++
	}
	if !filters.To.IsZero() {
		where += ` AND p.order_date <= $` + itoa(argNum)
		args = append(args, filters.To)
		argNum++
	}
	if filters.Search != "" {
		where += ` AND p.number ILIKE $` + itoa(argNum)
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT p.id, p.number, p.supplier_id, COALESCE(s.name, '') AS supplier_name,
		p.status, p.currency, p.order_date, COALESCE(p.expected_date, CURRENT_DATE),
		p.grand_total,
		COALESCE((SELECT COUNT(*) FROM purchase_order_lines WHERE order_id = p.id), 0) AS line_count,
		p.created_at
	FROM purchase_orders p
	LEFT JOIN suppliers s ON s.id = p.supplier_id` + where +
		` ORDER BY ` + sortOrderPO(filters.SortBy, filters.SortDir) +
		` LIMIT $` + itoa(argNum) + ` OFFSET $` + itoa(argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []OrderSummary
	for rows.Next() {
		var item OrderSummary
		if err := rows.Scan(&item.ID, &item.Number, &item.SupplierID, &item.SupplierName,
			&item.Status, &item.Currency, &item.OrderDate, &item.ExpectedDate,
			&item.GrandTotal, &item.LineCount, &item.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListHistory returns the order's audit trail, oldest first.
func (r *Repository) ListHistory(ctx context.Context, orderID int64) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, action, from_status, to_status, actor_id, notes, meta, occurred_at
		FROM purchase_order_history WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry HistoryEntry
			meta  []byte
		)
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.Action, &entry.FromStatus, &entry.ToStatus,
			&entry.ActorID, &entry.Notes, &meta, &entry.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &entry.Meta)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListReceipts returns every receipt of an order with its lines.
func (r *Repository) ListReceipts(ctx context.Context, orderID int64) ([]Receipt, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, number, received_at, notes, created_by, created_at
		FROM receipts WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []Receipt
	for rows.Next() {
		var rec Receipt
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.Number, &rec.ReceivedAt, &rec.Notes, &rec.CreatedBy, &rec.CreatedAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range receipts {
		lineRows, err := r.pool.Query(ctx, `SELECT id, receipt_id, line_id, qty FROM receipt_lines WHERE receipt_id = $1 ORDER BY id`, receipts[i].ID)
		if err != nil {
			return nil, err
		}
		for lineRows.Next() {
			var line ReceiptLine
			if err := lineRows.Scan(&line.ID, &line.ReceiptID, &line.LineID, &line.Quantity); err != nil {
				lineRows.Close()
				return nil, err
			}
			receipts[i].Lines = append(receipts[i].Lines, line)
		}
		err = lineRows.Err()
		lineRows.Close()
		if err != nil {
			return nil, err
		}
	}
	return receipts, nil
}

// PendingQuantityByProduct sums ordered minus received across lines of all
// orders that are neither fully received nor cancelled. A single snapshot
// query, so two orders' states can never mix across points in time.
func (r *Repository) PendingQuantityByProduct(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.product_id, SUM(l.ordered_qty - l.received_qty)
		FROM purchase_order_lines l
		JOIN purchase_orders p ON p.id = l.order_id
		WHERE p.status NOT IN ('received', 'cancelled')
		GROUP BY l.product_id
		HAVING SUM(l.ordered_qty - l.received_qty) > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := make(map[int64]int64)
	for rows.Next() {
		var productID, qty int64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		pending[productID] = qty
	}
	return pending, rows.Err()
}

const unreceivedColumns = `id, order_id, line_id, product_id, supplier_id,
	ordered_qty, received_qty, unreceived_qty, expected_date, follow_up_date,
	status, resolution_notes, resolved_by, resolved_at, created_at, updated_at`

func scanUnreceived(row rowScanner) (UnreceivedItem, error) {
	var (
		item       UnreceivedItem
		expected   pgtype.Date
		followUp   pgtype.Date
		resolvedBy pgtype.Int8
		resolvedAt pgtype.Timestamptz
	)
	err := row.Scan(&item.ID, &item.OrderID, &item.LineID, &item.ProductID, &item.SupplierID,
		&item.OrderedQty, &item.ReceivedQty, &item.UnreceivedQty, &expected, &followUp,
		&item.Status, &item.ResolutionNotes, &resolvedBy, &resolvedAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return UnreceivedItem{}, err
	}
	if expected.Valid {
		item.ExpectedDate = expected.Time
	}
	if followUp.Valid {
		item.FollowUpDate = followUp.Time
	}
	if resolvedBy.Valid {
		item.ResolvedBy = resolvedBy.Int64
	}
	if resolvedAt.Valid {
		item.ResolvedAt = resolvedAt.Time
	}
	return item, nil
}

// GetUnreceivedItem fetches an unreceived item by id.
func (r *Repository) GetUnreceivedItem(ctx context.Context, id int64) (UnreceivedItem, error) {
	item, err := scanUnreceived(r.pool.QueryRow(ctx, `SELECT `+unreceivedColumns+` FROM unreceived_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UnreceivedItem{}, &shared.NotFoundError{Entity: "unreceived item", ID: id}
		}
		return UnreceivedItem{}, err
	}
	return item, nil
}

// ListUnreceivedItems filters by status and supplier; most overdue first
// (expected date ascending, nulls last).
func (r *Repository) ListUnreceivedItems(ctx context.Context, limit, offset int, filters UnreceivedFilters) ([]UnreceivedItem, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argNum := 1
	if filters.Status != "" {
		where += ` AND status = $` + itoa(argNum)
		args = append(args, string(filters.Status))
		argNum++
	}
	if filters.SupplierID > 0 {
		where += ` AND supplier_id = $` + itoa(argNum)
		args = append(args, filters.SupplierID)
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM unreceived_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT ` + unreceivedColumns + ` FROM unreceived_items` + where +
		` ORDER BY expected_date ASC NULLS LAST, id ASC LIMIT $` + itoa(argNum) + ` OFFSET $` + itoa(argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []UnreceivedItem
	for rows.Next() {
		item, err := scanUnreceived(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// itoa converts int to string for dynamic query building.
func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}

// sortOrderPO returns a safe ORDER BY clause for order listings.
func sortOrderPO(sortBy, sortDir string) string {
	dir := "DESC"
	if sortDir == "asc" {
		dir = "ASC"
	}
	switch sortBy {
	case "number":
		return "p.number " + dir
	case "supplier":
		return "supplier_name " + dir
	case "order_date":
		return "p.order_date " + dir
	case "expected_date":
		return "p.expected_date " + dir
	case "total":
		return "p.grand_total " + dir
	case "status":
		return "p.status " + dir
	default:
		return "p.created_at DESC"
	}
}

// LockOrder takes the per-order advisory lock, then loads the order and
// its lines. Concurrent receipts, edits and transitions serialize here.
func (tx *txRepo) LockOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	if _, err := tx.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, shared.PurchaseOrderLockID(id)); err != nil {
		return PurchaseOrder{}, err
	}
	return fetchOrder(ctx, tx.tx, id, true)
}

func (tx *txRepo) CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	var expected pgtype.Date
	if !po.ExpectedDate.IsZero() {
		expected = pgtype.Date{Time: po.ExpectedDate, Valid: true}
	}
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders
		(number, supplier_id, status, currency, order_date, expected_date,
		 subtotal, tax, discount, shipping, grand_total,
		 notes, payment_terms, delivery_address, tracking_number, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW(),NOW())
		RETURNING id`,
		po.Number, po.SupplierID, string(po.Status), po.Currency, po.OrderDate, expected,
		po.Subtotal, po.Tax, po.Discount, po.Shipping, po.GrandTotal,
		po.Notes, po.PaymentTerms, po.DeliveryAddress, po.TrackingNumber).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_order_lines
		(order_id, product_id, ordered_qty, received_qty, unit_cost, discount_pct, tax_pct)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		line.OrderID, line.ProductID, line.OrderedQty, line.ReceivedQty, line.UnitCost, line.DiscountPct, line.TaxPct).Scan(&id)
	return id, err
}

// ReplaceLines swaps the full line set of a draft order.
func (tx *txRepo) ReplaceLines(ctx context.Context, orderID int64, lines []Line) ([]Line, error) {
	if _, err := tx.tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE order_id = $1`, orderID); err != nil {
		return nil, err
	}
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		line.OrderID = orderID
		id, err := tx.InsertLine(ctx, line)
		if err != nil {
			return nil, err
		}
		line.ID = id
		out = append(out, line)
	}
	return out, nil
}

func (tx *txRepo) UpdateHeader(ctx context.Context, po PurchaseOrder) error {
	var expected pgtype.Date
	if !po.ExpectedDate.IsZero() {
		expected = pgtype.Date{Time: po.ExpectedDate, Valid: true}
	}
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET
		expected_date=$2, subtotal=$3, tax=$4, discount=$5, shipping=$6, grand_total=$7,
		notes=$8, payment_terms=$9, delivery_address=$10, tracking_number=$11, updated_at=NOW()
		WHERE id=$1`,
		po.ID, expected, po.Subtotal, po.Tax, po.Discount, po.Shipping, po.GrandTotal,
		po.Notes, po.PaymentTerms, po.DeliveryAddress, po.TrackingNumber)
	return err
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	delivered := "delivered_at"
	if status == StatusReceived {
		delivered = "NOW()"
	}
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, delivered_at=`+delivered+`, updated_at=NOW() WHERE id=$1`, id, string(status))
	return err
}

func (tx *txRepo) UpdateLineReceived(ctx context.Context, lineID int64, receivedQty int64) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_order_lines SET received_qty=$2 WHERE id=$1`, lineID, receivedQty)
	return err
}

func (tx *txRepo) InsertReceipt(ctx context.Context, receipt Receipt) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO receipts (order_id, number, received_at, notes, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		receipt.OrderID, receipt.Number, receipt.ReceivedAt, receipt.Notes, receipt.CreatedBy, receipt.CreatedAt).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertReceiptLine(ctx context.Context, line ReceiptLine) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO receipt_lines (receipt_id, line_id, qty) VALUES ($1,$2,$3)`,
		line.ReceiptID, line.LineID, line.Quantity)
	return err
}

func (tx *txRepo) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = tx.tx.Exec(ctx, `INSERT INTO purchase_order_history
		(order_id, action, from_status, to_status, actor_id, notes, meta, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,COALESCE($8, NOW()))`,
		entry.OrderID, entry.Action, string(entry.FromStatus), string(entry.ToStatus),
		entry.ActorID, entry.Notes, meta, entry.At)
	return err
}

func (tx *txRepo) GetUnreceivedByLine(ctx context.Context, lineID int64) (UnreceivedItem, error) {
	item, err := scanUnreceived(tx.tx.QueryRow(ctx, `SELECT `+unreceivedColumns+` FROM unreceived_items WHERE line_id = $1`, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UnreceivedItem{}, &shared.NotFoundError{Entity: "unreceived item", ID: lineID}
		}
		return UnreceivedItem{}, err
	}
	return item, nil
}

func (tx *txRepo) InsertUnreceivedItem(ctx context.Context, item UnreceivedItem) (int64, error) {
	var expected pgtype.Date
	if !item.ExpectedDate.IsZero() {
		expected = pgtype.Date{Time: item.ExpectedDate, Valid: true}
	}
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO unreceived_items
		(order_id, line_id, product_id, supplier_id, ordered_qty, received_qty, unreceived_qty,
		 expected_date, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW()) RETURNING id`,
		item.OrderID, item.LineID, item.ProductID, item.SupplierID,
		item.OrderedQty, item.ReceivedQty, item.UnreceivedQty, expected, string(item.Status)).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateUnreceivedItem(ctx context.Context, item UnreceivedItem) error {
	var expected, followUp pgtype.Date
	if !item.ExpectedDate.IsZero() {
		expected = pgtype.Date{Time: item.ExpectedDate, Valid: true}
	}
	if !item.FollowUpDate.IsZero() {
		followUp = pgtype.Date{Time: item.FollowUpDate, Valid: true}
	}
	var resolvedBy pgtype.Int8
	if item.ResolvedBy != 0 {
		resolvedBy = pgtype.Int8{Int64: item.ResolvedBy, Valid: true}
	}
	var resolvedAt pgtype.Timestamptz
	if !item.ResolvedAt.IsZero() {
		resolvedAt = pgtype.Timestamptz{Time: item.ResolvedAt, Valid: true}
	}
	_, err := tx.tx.Exec(ctx, `UPDATE unreceived_items SET
		received_qty=$2, unreceived_qty=$3, expected_date=$4, follow_up_date=$5,
		status=$6, resolution_notes=$7, resolved_by=$8, resolved_at=$9, updated_at=NOW()
		WHERE id=$1`,
		item.ID, item.ReceivedQty, item.UnreceivedQty, expected, followUp,
		string(item.Status), item.ResolutionNotes, resolvedBy, resolvedAt)
	return err
}

func (tx *txRepo) LockUnreceivedItem(ctx context.Context, id int64) (UnreceivedItem, error) {
	item, err := scanUnreceived(tx.tx.QueryRow(ctx, `SELECT `+unreceivedColumns+` FROM unreceived_items WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UnreceivedItem{}, &shared.NotFoundError{Entity: "unreceived item", ID: id}
		}
		return UnreceivedItem{}, err
	}
	return item, nil
}
