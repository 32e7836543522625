package shared

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed input. It is always raised before any
// mutation takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidStateError reports an operation not permitted in the entity's
// current status. The entity is left untouched.
type InvalidStateError struct {
	Entity string
	ID     int64
	Status string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d: cannot %s while %s", e.Entity, e.ID, e.Op, e.Status)
}

// InvalidTransitionError reports a disallowed status edge.
type InvalidTransitionError struct {
	OrderID int64
	From    string
	To      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("purchase order %d: transition %s -> %s not allowed", e.OrderID, e.From, e.To)
}

// OverReceiptError reports a receipt that would push a line's received
// quantity above its ordered quantity. The whole receipt is rejected.
type OverReceiptError struct {
	OrderID   int64
	LineID    int64
	Ordered   int64
	Received  int64
	Requested int64
}

func (e *OverReceiptError) Error() string {
	return fmt.Sprintf("purchase order %d line %d: receipt of %d exceeds remaining quantity (%d of %d received)",
		e.OrderID, e.LineID, e.Requested, e.Received, e.Ordered)
}

// NotFoundError identifies the missing entity. It wraps ErrNotFound so
// callers can keep using errors.Is.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d: not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a lock or version conflict on an entity. It is the
// only error kind callers may retry automatically.
type ConflictError struct {
	Entity string
	ID     int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d: concurrent modification, retry", e.Entity, e.ID)
}

// IsRetryable reports whether the caller may retry the operation.
func IsRetryable(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
