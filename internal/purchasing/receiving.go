package purchasing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/replenish-erp/replenish-erp/internal/shared"
)

// ReceiptLineInput is one (line, quantity) pair of a delivery event.
type ReceiptLineInput struct {
	LineID   int64
	Quantity int64
}

// ReceiveInput describes a delivery event against an order.
type ReceiveInput struct {
	OrderID        int64
	ReceivedAt     time.Time
	Notes          string
	ActorID        int64
	IdempotencyKey string
	Lines          []ReceiptLineInput
}

// Receive applies one delivery event: increments received quantities,
// records the immutable receipt, upserts unreceived items for short lines
// and recomputes the order status — all as one atomic unit. A receipt that
// would over-receive any line is rejected whole.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (Receipt, error) {
	if len(input.Lines) == 0 {
		return Receipt{}, shared.NewValidationError("lines", "at least one line receipt is required")
	}
	seen := make(map[int64]bool, len(input.Lines))
	for i, lr := range input.Lines {
		if lr.LineID <= 0 {
			return Receipt{}, shared.NewValidationError(fmt.Sprintf("lines[%d].line_id", i), "line is required")
		}
		if lr.Quantity <= 0 {
			return Receipt{}, shared.NewValidationError(fmt.Sprintf("lines[%d].quantity", i), "received quantity must be positive")
		}
		if seen[lr.LineID] {
			return Receipt{}, shared.NewValidationError(fmt.Sprintf("lines[%d].line_id", i), "duplicate line in receipt")
		}
		seen[lr.LineID] = true
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "purchasing.receipt"); err != nil {
			return Receipt{}, err
		}
		insertedKey = true
	}

	var (
		receipt    Receipt
		fromStatus Status
		toStatus   Status
		supplierID int64
		created    []UnreceivedItem
		totalQty   int64
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.LockOrder(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !po.Status.Receivable() {
			return &shared.InvalidStateError{Entity: "purchase order", ID: po.ID, Status: string(po.Status), Op: "receive"}
		}
		fromStatus = po.Status
		supplierID = po.SupplierID

		byID := make(map[int64]*Line, len(po.Lines))
		for i := range po.Lines {
			byID[po.Lines[i].ID] = &po.Lines[i]
		}
		// Validate the whole receipt before touching anything.
		for _, lr := range input.Lines {
			line, ok := byID[lr.LineID]
			if !ok {
				return &shared.NotFoundError{Entity: "purchase order line", ID: lr.LineID}
			}
			if line.ReceivedQty+lr.Quantity > line.OrderedQty {
				return &shared.OverReceiptError{
					OrderID:   po.ID,
					LineID:    line.ID,
					Ordered:   line.OrderedQty,
					Received:  line.ReceivedQty,
					Requested: lr.Quantity,
				}
			}
		}

		receipt = Receipt{
			OrderID:    po.ID,
			Number:     generateNumber("RCT"),
			ReceivedAt: defaultTime(input.ReceivedAt),
			Notes:      input.Notes,
			CreatedBy:  input.ActorID,
			CreatedAt:  time.Now().UTC(),
		}
		receiptID, err := tx.InsertReceipt(ctx, receipt)
		if err != nil {
			return err
		}
		receipt.ID = receiptID

		for _, lr := range input.Lines {
			line := byID[lr.LineID]
			line.ReceivedQty += lr.Quantity
			totalQty += lr.Quantity
			if err := tx.UpdateLineReceived(ctx, line.ID, line.ReceivedQty); err != nil {
				return err
			}
			rl := ReceiptLine{ReceiptID: receiptID, LineID: line.ID, Quantity: lr.Quantity}
			if err := tx.InsertReceiptLine(ctx, rl); err != nil {
				return err
			}
			receipt.Lines = append(receipt.Lines, rl)
		}

		// Reconcile shortfall tracking across every line of the order.
		for i := range po.Lines {
			item, err := s.reconcileUnreceived(ctx, tx, po, &po.Lines[i])
			if err != nil {
				return err
			}
			if item != nil {
				created = append(created, *item)
			}
		}

		toStatus = DeriveStatus(po.Status, po.Lines)
		if toStatus != po.Status {
			if err := tx.UpdateStatus(ctx, po.ID, toStatus); err != nil {
				return err
			}
		}
		return tx.AppendHistory(ctx, HistoryEntry{
			OrderID:    po.ID,
			Action:     "receipt",
			FromStatus: fromStatus,
			ToStatus:   toStatus,
			ActorID:    input.ActorID,
			Notes:      input.Notes,
			At:         time.Now().UTC(),
			Meta:       map[string]any{"receipt_id": receiptID, "quantity": totalQty},
		})
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Receipt{}, err
	}

	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	s.recordAudit(ctx, input.ActorID, "PO_RECEIVE", input.OrderID, map[string]any{
		"receipt_id": receipt.ID,
		"quantity":   totalQty,
		"status":     toStatus,
	})
	s.notify(ctx, func(evt *Event) {
		evt.Type = EventReceiptPosted
		evt.OrderID = input.OrderID
		evt.SupplierID = supplierID
		evt.Meta = map[string]any{"receipt_id": receipt.ID, "quantity": totalQty}
	})
	if toStatus != fromStatus {
		s.notify(ctx, func(evt *Event) {
			evt.Type = EventOrderStatusChanged
			evt.OrderID = input.OrderID
			evt.SupplierID = supplierID
			evt.Meta = map[string]any{"from": string(fromStatus), "to": string(toStatus)}
		})
	}
	for _, item := range created {
		item := item
		s.notify(ctx, func(evt *Event) {
			evt.Type = EventUnreceivedCreated
			evt.OrderID = item.OrderID
			evt.LineID = item.LineID
			evt.SupplierID = item.SupplierID
			evt.Meta = map[string]any{"unreceived_qty": item.UnreceivedQty}
		})
	}
	return receipt, nil
}

// reconcileUnreceived keeps the shortfall record of a line in sync with its
// quantities. Returns the item when one was newly created. Existing items
// keep their status once the line is fully received; resolution stays an
// operator action.
func (s *Service) reconcileUnreceived(ctx context.Context, tx TxRepository, po PurchaseOrder, line *Line) (*UnreceivedItem, error) {
	item, err := tx.GetUnreceivedByLine(ctx, line.ID)
	switch {
	case err == nil:
		item.ReceivedQty = line.ReceivedQty
		item.UnreceivedQty = line.PendingQty()
		if item.Status == UnreceivedPending && item.ReceivedQty > 0 && item.UnreceivedQty > 0 {
			item.Status = UnreceivedPartial
		}
		item.UpdatedAt = time.Now().UTC()
		return nil, tx.UpdateUnreceivedItem(ctx, item)
	case errors.Is(err, shared.ErrNotFound):
		if line.PendingQty() <= 0 {
			return nil, nil
		}
		item = UnreceivedItem{
			OrderID:       po.ID,
			LineID:        line.ID,
			ProductID:     line.ProductID,
			SupplierID:    po.SupplierID,
			OrderedQty:    line.OrderedQty,
			ReceivedQty:   line.ReceivedQty,
			UnreceivedQty: line.PendingQty(),
			ExpectedDate:  po.ExpectedDate,
			Status:        UnreceivedPending,
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		}
		id, err := tx.InsertUnreceivedItem(ctx, item)
		if err != nil {
			return nil, err
		}
		item.ID = id
		return &item, nil
	default:
		return nil, err
	}
}
