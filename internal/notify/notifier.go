package notify

import (
	"context"
	"log/slog"

	"github.com/replenish-erp/replenish-erp/internal/purchasing"
	"github.com/replenish-erp/replenish-erp/jobs"
)

// Notifier relays purchasing events onto the background queue. Delivery
// failures are logged, never surfaced to the caller.
type Notifier struct {
	client *jobs.Client
	logger *slog.Logger
}

var _ purchasing.NotifierPort = (*Notifier)(nil)

// NewNotifier builds the queue-backed notifier. client may be nil, in
// which case events are only logged.
func NewNotifier(client *jobs.Client, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, evt purchasing.Event) {
	if n.client == nil {
		n.logger.Debug("event dropped, no queue configured", slog.String("type", string(evt.Type)))
		return
	}
	payload := jobs.NotifyEventPayload{
		EventID:    evt.ID.String(),
		Type:       string(evt.Type),
		OrderID:    evt.OrderID,
		SupplierID: evt.SupplierID,
		OccurredAt: evt.OccurredAt,
		Meta:       evt.Meta,
	}
	if _, err := n.client.EnqueueNotifyEvent(ctx, payload); err != nil {
		n.logger.Warn("event enqueue failed",
			slog.String("type", string(evt.Type)),
			slog.Int64("order_id", evt.OrderID),
			slog.Any("error", err))
	}
}
