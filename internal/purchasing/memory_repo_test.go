package purchasing

import (
	"context"
	"sort"
	"sync"

	"github.com/replenish-erp/replenish-erp/internal/shared"
)

type memoryRepo struct {
	mu         sync.Mutex
	orders     map[int64]PurchaseOrder
	lines      map[int64][]Line
	receipts   map[int64]Receipt
	history    map[int64][]HistoryEntry
	unreceived map[int64]UnreceivedItem
	nextID     int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:     make(map[int64]PurchaseOrder),
		lines:      make(map[int64][]Line),
		receipts:   make(map[int64]Receipt),
		history:    make(map[int64][]HistoryEntry),
		unreceived: make(map[int64]UnreceivedItem),
	}
}

// WithTx serializes transactions the way the advisory lock does in the
// real repository.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) getOrder(id int64) (PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, &shared.NotFoundError{Entity: "purchase order", ID: id}
	}
	po.Lines = append([]Line(nil), r.lines[id]...)
	return po, nil
}

func (r *memoryRepo) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return r.getOrder(id)
}

func (r *memoryRepo) ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]OrderSummary, int, error) {
	var out []OrderSummary
	for _, po := range r.orders {
		if filters.Status != "" && po.Status != filters.Status {
			continue
		}
		if filters.SupplierID > 0 && po.SupplierID != filters.SupplierID {
			continue
		}
		out = append(out, OrderSummary{
			ID:           po.ID,
			Number:       po.Number,
			SupplierID:   po.SupplierID,
			Status:       po.Status,
			Currency:     po.Currency,
			OrderDate:    po.OrderDate,
			ExpectedDate: po.ExpectedDate,
			GrandTotal:   po.GrandTotal,
			LineCount:    len(r.lines[po.ID]),
			CreatedAt:    po.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *memoryRepo) ListHistory(ctx context.Context, orderID int64) ([]HistoryEntry, error) {
	return append([]HistoryEntry(nil), r.history[orderID]...), nil
}

func (r *memoryRepo) ListReceipts(ctx context.Context, orderID int64) ([]Receipt, error) {
	var out []Receipt
	for _, rc := range r.receipts {
		if rc.OrderID == orderID {
			out = append(out, rc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) PendingQuantityByProduct(ctx context.Context) (map[int64]int64, error) {
	pending := make(map[int64]int64)
	for id, po := range r.orders {
		if po.Status == StatusReceived || po.Status == StatusCancelled {
			continue
		}
		for _, line := range r.lines[id] {
			if qty := line.PendingQty(); qty > 0 {
				pending[line.ProductID] += qty
			}
		}
	}
	return pending, nil
}

func (r *memoryRepo) GetUnreceivedItem(ctx context.Context, id int64) (UnreceivedItem, error) {
	item, ok := r.unreceived[id]
	if !ok {
		return UnreceivedItem{}, &shared.NotFoundError{Entity: "unreceived item", ID: id}
	}
	return item, nil
}

func (r *memoryRepo) ListUnreceivedItems(ctx context.Context, limit, offset int, filters UnreceivedFilters) ([]UnreceivedItem, int, error) {
	var out []UnreceivedItem
	for _, item := range r.unreceived {
		if filters.Status != "" && item.Status != filters.Status {
			continue
		}
		if filters.SupplierID > 0 && item.SupplierID != filters.SupplierID {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (tx *memoryTx) nextID() int64 {
	tx.repo.nextID++
	return tx.repo.nextID
}

func (tx *memoryTx) LockOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return tx.repo.getOrder(id)
}

func (tx *memoryTx) CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	id := tx.nextID()
	po.ID = id
	tx.repo.orders[id] = po
	return id, nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, line Line) (int64, error) {
	line.ID = tx.nextID()
	tx.repo.lines[line.OrderID] = append(tx.repo.lines[line.OrderID], line)
	return line.ID, nil
}

func (tx *memoryTx) ReplaceLines(ctx context.Context, orderID int64, lines []Line) ([]Line, error) {
	tx.repo.lines[orderID] = nil
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		line.OrderID = orderID
		line.ID = tx.nextID()
		tx.repo.lines[orderID] = append(tx.repo.lines[orderID], line)
		out = append(out, line)
	}
	return out, nil
}

func (tx *memoryTx) UpdateHeader(ctx context.Context, po PurchaseOrder) error {
	stored := tx.repo.orders[po.ID]
	po.Lines = nil
	po.Status = stored.Status
	tx.repo.orders[po.ID] = po
	return nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	po := tx.repo.orders[id]
	po.Status = status
	tx.repo.orders[id] = po
	return nil
}

func (tx *memoryTx) UpdateLineReceived(ctx context.Context, lineID int64, receivedQty int64) error {
	for orderID, lines := range tx.repo.lines {
		for i := range lines {
			if lines[i].ID == lineID {
				lines[i].ReceivedQty = receivedQty
				tx.repo.lines[orderID] = lines
				return nil
			}
		}
	}
	return &shared.NotFoundError{Entity: "purchase order line", ID: lineID}
}

func (tx *memoryTx) InsertReceipt(ctx context.Context, receipt Receipt) (int64, error) {
	id := tx.nextID()
	receipt.ID = id
	tx.repo.receipts[id] = receipt
	return id, nil
}

func (tx *memoryTx) InsertReceiptLine(ctx context.Context, line ReceiptLine) error {
	rc := tx.repo.receipts[line.ReceiptID]
	line.ID = tx.nextID()
	rc.Lines = append(rc.Lines, line)
	tx.repo.receipts[line.ReceiptID] = rc
	return nil
}

func (tx *memoryTx) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	entry.ID = tx.nextID()
	tx.repo.history[entry.OrderID] = append(tx.repo.history[entry.OrderID], entry)
	return nil
}

func (tx *memoryTx) GetUnreceivedByLine(ctx context.Context, lineID int64) (UnreceivedItem, error) {
	for _, item := range tx.repo.unreceived {
		if item.LineID == lineID {
			return item, nil
		}
	}
	return UnreceivedItem{}, &shared.NotFoundError{Entity: "unreceived item", ID: lineID}
}

func (tx *memoryTx) InsertUnreceivedItem(ctx context.Context, item UnreceivedItem) (int64, error) {
	id := tx.nextID()
	item.ID = id
	tx.repo.unreceived[id] = item
	return id, nil
}

func (tx *memoryTx) UpdateUnreceivedItem(ctx context.Context, item UnreceivedItem) error {
	if _, ok := tx.repo.unreceived[item.ID]; !ok {
		return &shared.NotFoundError{Entity: "unreceived item", ID: item.ID}
	}
	tx.repo.unreceived[item.ID] = item
	return nil
}

func (tx *memoryTx) LockUnreceivedItem(ctx context.Context, id int64) (UnreceivedItem, error) {
	item, ok := tx.repo.unreceived[id]
	if !ok {
		return UnreceivedItem{}, &shared.NotFoundError{Entity: "unreceived item", ID: id}
	}
	return item, nil
}
