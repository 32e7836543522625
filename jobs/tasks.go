package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifyEvent fans a domain event out to notification channels.
	TaskTypeNotifyEvent = "notify:event"
	// TaskStockRefresh re-pulls every external stock ledger feed.
	TaskStockRefresh = "stock:refresh"
	// TaskLowStockScan recomputes reorder suggestions and flags shortages.
	TaskLowStockScan = "reorder:lowstock_scan"
	// TaskIdemCleanup prunes expired idempotency keys.
	TaskIdemCleanup = "maintenance:idem_cleanup"
)

// NotifyEventPayload wraps a serialized purchasing event.
type NotifyEventPayload struct {
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	OrderID    int64          `json:"order_id,omitempty"`
	SupplierID int64          `json:"supplier_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// NewNotifyEventTask constructs an Asynq task for one event.
func NewNotifyEventTask(payload NotifyEventPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyEvent, data, asynq.Queue(QueueDefault)), nil
}

// HandleNotifyEventTask processes TaskTypeNotifyEvent tasks.
func HandleNotifyEventTask(ctx context.Context, t *asynq.Task) error {
	var payload NotifyEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: fan out to email/webhook channels when they land.
	fmt.Printf("[jobs] notify event type=%s order=%d\n", payload.Type, payload.OrderID)
	return nil
}

// StockRefreshPayload selects which sources to refresh; empty means all.
type StockRefreshPayload struct {
	Sources []string `json:"sources,omitempty"`
}

// NewStockRefreshTask builds a stock refresh task.
func NewStockRefreshTask(sources ...string) (*asynq.Task, error) {
	body, err := json.Marshal(StockRefreshPayload{Sources: sources})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockRefresh, body, asynq.Queue(QueueDefault)), nil
}

// IdemCleanupPayload bounds how far back processed keys are kept.
type IdemCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdemCleanupTask builds an idempotency key cleanup task.
func NewIdemCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdemCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdemCleanup, body, asynq.Queue(QueueDefault)), nil
}

// LowStockScanPayload contains options for the periodic shortage scan.
type LowStockScanPayload struct {
	Notify bool `json:"notify"`
}

// NewLowStockScanTask builds a low stock scan task.
func NewLowStockScanTask(notify bool) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{Notify: notify})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}
