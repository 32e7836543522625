package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/replenish-erp/replenish-erp/internal/shared"
)

// ListFilters narrows order listings.
type ListFilters struct {
	Status     Status
	SupplierID int64
	From       time.Time
	To         time.Time
	Search     string
	SortBy     string
	SortDir    string
}

// UnreceivedFilters narrows unreceived item listings.
type UnreceivedFilters struct {
	Status     UnreceivedStatus
	SupplierID int64
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]OrderSummary, int, error)
	ListHistory(ctx context.Context, orderID int64) ([]HistoryEntry, error)
	ListReceipts(ctx context.Context, orderID int64) ([]Receipt, error)
	PendingQuantityByProduct(ctx context.Context) (map[int64]int64, error)
	GetUnreceivedItem(ctx context.Context, id int64) (UnreceivedItem, error)
	ListUnreceivedItems(ctx context.Context, limit, offset int, filters UnreceivedFilters) ([]UnreceivedItem, int, error)
}

// TxRepository exposes transactional operations. LockOrder must serialize
// concurrent writers against the same order.
type TxRepository interface {
	LockOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	ReplaceLines(ctx context.Context, orderID int64, lines []Line) ([]Line, error)
	UpdateHeader(ctx context.Context, po PurchaseOrder) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	UpdateLineReceived(ctx context.Context, lineID int64, receivedQty int64) error
	InsertReceipt(ctx context.Context, receipt Receipt) (int64, error)
	InsertReceiptLine(ctx context.Context, line ReceiptLine) error
	AppendHistory(ctx context.Context, entry HistoryEntry) error
	GetUnreceivedByLine(ctx context.Context, lineID int64) (UnreceivedItem, error)
	InsertUnreceivedItem(ctx context.Context, item UnreceivedItem) (int64, error)
	UpdateUnreceivedItem(ctx context.Context, item UnreceivedItem) error
	LockUnreceivedItem(ctx context.Context, id int64) (UnreceivedItem, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates derived read-side caches after mutations that
// change pending quantities.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service orchestrates the purchase order lifecycle.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	notifier    NotifierPort
	idempotency *shared.IdempotencyStore
	cache       CachePort
}

// NewService constructs the purchasing service.
func NewService(repo RepositoryPort, audit AuditPort, notifier NotifierPort, idem *shared.IdempotencyStore, cache CachePort) *Service {
	return &Service{repo: repo, audit: audit, notifier: notifier, idempotency: idem, cache: cache}
}

// LineInput describes one requested order line.
type LineInput struct {
	ProductID   int64
	Quantity    int64
	UnitCost    float64
	DiscountPct float64
	TaxPct      float64
}

// CreateOrderInput describes the creation payload.
type CreateOrderInput struct {
	Number          string
	SupplierID      int64
	Currency        string
	OrderDate       time.Time
	ExpectedDate    time.Time
	Shipping        float64
	Discount        float64
	Notes           string
	PaymentTerms    string
	DeliveryAddress string
	ActorID         int64
	Lines           []LineInput
}

// UpdateDraftInput describes an edit of a draft order.
type UpdateDraftInput struct {
	ExpectedDate    time.Time
	Shipping        float64
	Discount        float64
	Notes           string
	PaymentTerms    string
	DeliveryAddress string
	TrackingNumber  string
	ActorID         int64
	Lines           []LineInput
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return shared.NewValidationError("lines", "at least one line is required")
	}
	for i, line := range lines {
		if line.ProductID <= 0 {
			return shared.NewValidationError(fmt.Sprintf("lines[%d].product_id", i), "product is required")
		}
		if line.Quantity <= 0 {
			return shared.NewValidationError(fmt.Sprintf("lines[%d].quantity", i), "ordered quantity must be positive")
		}
		if line.UnitCost < 0 {
			return shared.NewValidationError(fmt.Sprintf("lines[%d].unit_cost", i), "unit cost must not be negative")
		}
		if line.DiscountPct < 0 || line.DiscountPct > 100 {
			return shared.NewValidationError(fmt.Sprintf("lines[%d].discount_pct", i), "discount must be between 0 and 100")
		}
		if line.TaxPct < 0 {
			return shared.NewValidationError(fmt.Sprintf("lines[%d].tax_pct", i), "tax must not be negative")
		}
	}
	return nil
}

func buildLines(orderID int64, inputs []LineInput) []Line {
	lines := make([]Line, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, Line{
			OrderID:     orderID,
			ProductID:   in.ProductID,
			OrderedQty:  in.Quantity,
			UnitCost:    in.UnitCost,
			DiscountPct: in.DiscountPct,
			TaxPct:      in.TaxPct,
		})
	}
	return lines
}

// Create persists a new order in draft with its lines and derived totals.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if input.SupplierID <= 0 {
		return PurchaseOrder{}, shared.NewValidationError("supplier_id", "supplier is required")
	}
	if err := validateLines(input.Lines); err != nil {
		return PurchaseOrder{}, err
	}
	if input.Number == "" {
		input.Number = generateNumber("PO")
	}
	po := PurchaseOrder{
		Number:          input.Number,
		SupplierID:      input.SupplierID,
		Status:          StatusDraft,
		Currency:        defaultString(input.Currency, "EUR"),
		OrderDate:       defaultTime(input.OrderDate),
		ExpectedDate:    input.ExpectedDate,
		Shipping:        input.Shipping,
		Discount:        input.Discount,
		Notes:           input.Notes,
		PaymentTerms:    input.PaymentTerms,
		DeliveryAddress: input.DeliveryAddress,
	}
	lines := buildLines(0, input.Lines)
	totals := ComputeTotals(lines, po.Shipping, po.Discount)
	po.Subtotal, po.Tax, po.GrandTotal = totals.Subtotal, totals.Tax, totals.GrandTotal

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		orderID, err := tx.CreateOrder(ctx, po)
		if err != nil {
			return err
		}
		po.ID = orderID
		po.Lines = po.Lines[:0]
		for _, line := range lines {
			line.OrderID = orderID
			lineID, err := tx.InsertLine(ctx, line)
			if err != nil {
				return err
			}
			line.ID = lineID
			po.Lines = append(po.Lines, line)
		}
		return tx.AppendHistory(ctx, HistoryEntry{
			OrderID:  orderID,
			Action:   "created",
			ToStatus: StatusDraft,
			ActorID:  input.ActorID,
			At:       time.Now().UTC(),
		})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.ActorID, "PO_CREATE", po.ID, map[string]any{"number": po.Number})
	return po, nil
}

// UpdateDraft replaces the lines and header fields of a draft order. Any
// edit attempt on a non-draft order fails and leaves the order untouched.
func (s *Service) UpdateDraft(ctx context.Context, orderID int64, input UpdateDraftInput) (PurchaseOrder, error) {
	if err := validateLines(input.Lines); err != nil {
		return PurchaseOrder{}, err
	}
	var updated PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if po.Status != StatusDraft {
			return &shared.InvalidStateError{Entity: "purchase order", ID: orderID, Status: string(po.Status), Op: "edit"}
		}
		lines, err := tx.ReplaceLines(ctx, orderID, buildLines(orderID, input.Lines))
		if err != nil {
			return err
		}
		po.ExpectedDate = input.ExpectedDate
		po.Shipping = input.Shipping
		po.Discount = input.Discount
		po.Notes = input.Notes
		po.PaymentTerms = input.PaymentTerms
		po.DeliveryAddress = input.DeliveryAddress
		po.TrackingNumber = input.TrackingNumber
		totals := ComputeTotals(lines, po.Shipping, po.Discount)
		po.Subtotal, po.Tax, po.GrandTotal = totals.Subtotal, totals.Tax, totals.GrandTotal
		po.Lines = lines
		if err := tx.UpdateHeader(ctx, po); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, HistoryEntry{
			OrderID:    orderID,
			Action:     "edited",
			FromStatus: po.Status,
			ToStatus:   po.Status,
			ActorID:    input.ActorID,
			At:         time.Now().UTC(),
			Meta:       map[string]any{"line_count": len(lines)},
		}); err != nil {
			return err
		}
		updated = po
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.ActorID, "PO_EDIT", orderID, map[string]any{"lines": len(updated.Lines)})
	return updated, nil
}

// Transition applies an operator-requested status change. Receipt-driven
// statuses are rejected here; they belong to the receiving engine.
func (s *Service) Transition(ctx context.Context, orderID int64, target Status, actorID int64, notes string) (PurchaseOrder, error) {
	if !ValidStatus(target) {
		return PurchaseOrder{}, shared.NewValidationError("status", fmt.Sprintf("unknown status %q", target))
	}
	var (
		updated PurchaseOrder
		from    Status
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		from = po.Status
		if !CanTransition(po.Status, target) {
			return &shared.InvalidTransitionError{OrderID: orderID, From: string(po.Status), To: string(target)}
		}
		if err := tx.UpdateStatus(ctx, orderID, target); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, HistoryEntry{
			OrderID:    orderID,
			Action:     "status_change",
			FromStatus: po.Status,
			ToStatus:   target,
			ActorID:    actorID,
			Notes:      notes,
			At:         time.Now().UTC(),
		}); err != nil {
			return err
		}
		po.Status = target
		updated = po
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	if target == StatusCancelled && s.cache != nil {
		// Cancelled lines stop counting as pending.
		_ = s.cache.Bump(ctx)
	}
	s.recordAudit(ctx, actorID, "PO_TRANSITION", orderID, map[string]any{"from": from, "to": target})
	s.notify(ctx, func(evt *Event) {
		evt.Type = EventOrderStatusChanged
		evt.OrderID = orderID
		evt.SupplierID = updated.SupplierID
		evt.Meta = map[string]any{"from": string(from), "to": string(target)}
	})
	return updated, nil
}

// Get loads an order with its lines.
func (s *Service) Get(ctx context.Context, orderID int64) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// List returns order summaries plus the total match count.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]OrderSummary, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListOrders(ctx, limit, offset, filters)
}

// History returns the append-only audit trail of an order.
func (s *Service) History(ctx context.Context, orderID int64) ([]HistoryEntry, error) {
	return s.repo.ListHistory(ctx, orderID)
}

// Receipts returns every delivery event recorded against an order.
func (s *Service) Receipts(ctx context.Context, orderID int64) ([]Receipt, error) {
	return s.repo.ListReceipts(ctx, orderID)
}

// PendingQuantityByProduct sums outstanding quantities across all open
// orders, keyed by product.
func (s *Service) PendingQuantityByProduct(ctx context.Context) (map[int64]int64, error) {
	return s.repo.PendingQuantityByProduct(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "purchasing", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func (s *Service) notify(ctx context.Context, build func(*Event)) {
	if s.notifier == nil {
		return
	}
	evt := NewEvent("")
	build(&evt)
	s.notifier.Notify(ctx, evt)
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now()
	}
	return value
}
