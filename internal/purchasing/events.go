package purchasing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the notifications emitted by this module.
type EventType string

const (
	EventOrderStatusChanged  EventType = "order.status_changed"
	EventReceiptPosted       EventType = "receipt.posted"
	EventUnreceivedCreated   EventType = "unreceived.created"
	EventUnreceivedResolved  EventType = "unreceived.resolved"
	EventUnreceivedCancelled EventType = "unreceived.cancelled"
)

// Event carries the details of a domain occurrence to the notification
// collaborator. Delivery is fire-and-forget.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       EventType      `json:"type"`
	OrderID    int64          `json:"order_id,omitempty"`
	LineID     int64          `json:"line_id,omitempty"`
	SupplierID int64          `json:"supplier_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(t EventType) Event {
	return Event{ID: uuid.New(), Type: t, OccurredAt: time.Now().UTC()}
}

// NotifierPort dispatches events to the notification collaborator. The
// domain never depends on delivery success.
type NotifierPort interface {
	Notify(ctx context.Context, evt Event)
}
