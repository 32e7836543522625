package purchasing

import (
	"context"
	"strings"
	"time"

	"github.com/replenish-erp/replenish-erp/internal/shared"
)

// ResolveInput closes an unreceived item by operator decision.
type ResolveInput struct {
	ItemID          int64
	ResolutionNotes string
	ResolvedBy      int64
}

// Resolve marks an unreceived item resolved. Resolution is independent of
// the parent order: a fully received or cancelled order does not resolve
// its items by itself.
func (s *Service) Resolve(ctx context.Context, input ResolveInput) (UnreceivedItem, error) {
	return s.closeItem(ctx, input.ItemID, UnreceivedResolved, input.ResolutionNotes, input.ResolvedBy)
}

// CancelUnreceived marks an unreceived item cancelled.
func (s *Service) CancelUnreceived(ctx context.Context, input ResolveInput) (UnreceivedItem, error) {
	return s.closeItem(ctx, input.ItemID, UnreceivedCancelled, input.ResolutionNotes, input.ResolvedBy)
}

func (s *Service) closeItem(ctx context.Context, itemID int64, target UnreceivedStatus, notes string, actorID int64) (UnreceivedItem, error) {
	if strings.TrimSpace(notes) == "" {
		return UnreceivedItem{}, shared.NewValidationError("resolution_notes", "resolution notes are required")
	}
	var updated UnreceivedItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.LockUnreceivedItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Status.Closed() {
			return &shared.InvalidStateError{Entity: "unreceived item", ID: itemID, Status: string(item.Status), Op: "resolve"}
		}
		item.Status = target
		item.ResolutionNotes = notes
		item.ResolvedBy = actorID
		item.ResolvedAt = time.Now().UTC()
		item.UpdatedAt = item.ResolvedAt
		if err := tx.UpdateUnreceivedItem(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return UnreceivedItem{}, err
	}
	s.recordAudit(ctx, actorID, "UNRECEIVED_"+strings.ToUpper(string(target)), itemID, map[string]any{
		"order_id": updated.OrderID,
		"line_id":  updated.LineID,
	})
	eventType := EventUnreceivedResolved
	if target == UnreceivedCancelled {
		eventType = EventUnreceivedCancelled
	}
	s.notify(ctx, func(evt *Event) {
		evt.Type = eventType
		evt.OrderID = updated.OrderID
		evt.LineID = updated.LineID
		evt.SupplierID = updated.SupplierID
		evt.Meta = map[string]any{"item_id": updated.ID, "notes": notes}
	})
	return updated, nil
}

// SetFollowUp records an expected or follow-up date on an open item.
func (s *Service) SetFollowUp(ctx context.Context, itemID int64, expected, followUp time.Time, actorID int64) (UnreceivedItem, error) {
	var updated UnreceivedItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.LockUnreceivedItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Status.Closed() {
			return &shared.InvalidStateError{Entity: "unreceived item", ID: itemID, Status: string(item.Status), Op: "update follow-up"}
		}
		if !expected.IsZero() {
			item.ExpectedDate = expected
		}
		if !followUp.IsZero() {
			item.FollowUpDate = followUp
		}
		item.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateUnreceivedItem(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return UnreceivedItem{}, err
	}
	s.recordAudit(ctx, actorID, "UNRECEIVED_FOLLOWUP", itemID, nil)
	return updated, nil
}

// GetUnreceived loads a single unreceived item.
func (s *Service) GetUnreceived(ctx context.Context, itemID int64) (UnreceivedItem, error) {
	return s.repo.GetUnreceivedItem(ctx, itemID)
}

// ListUnreceived returns unreceived items filtered by status and supplier,
// most overdue first (expected date ascending, missing dates last).
func (s *Service) ListUnreceived(ctx context.Context, limit, offset int, filters UnreceivedFilters) ([]UnreceivedItem, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListUnreceivedItems(ctx, limit, offset, filters)
}
