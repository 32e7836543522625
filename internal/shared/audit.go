package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog is one append-only row describing an operator action against an
// entity. It is distinct from the domain-owned purchase order history.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends rows to audit_logs. Writes are best-effort from the
// caller's point of view; services log and swallow a failed Record.
type AuditLogger struct {
	pool *pgxpool.Pool
}

func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record appends one audit row. Action, entity and entity id are mandatory;
// a zero timestamp defaults to now.
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("shared: audit logger not configured")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("shared: audit entry needs action, entity and entity id")
	}
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	meta := []byte("{}")
	if len(entry.Meta) > 0 {
		raw, err := json.Marshal(entry.Meta)
		if err != nil {
			return err
		}
		meta = raw
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, meta, entry.At)
	return err
}
