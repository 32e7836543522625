// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/replenish-erp/replenish-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validation  *shared.ValidationError
		state       *shared.InvalidStateError
		transition  *shared.InvalidTransitionError
		overReceipt *shared.OverReceiptError
		notFound    *shared.NotFoundError
		conflict    *shared.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		ProblemWithFields(w, http.StatusBadRequest, "Validation Failed", err.Error(), map[string]any{
			"field": validation.Field,
		})
	case errors.As(err, &state):
		ProblemWithFields(w, http.StatusConflict, "Invalid State", err.Error(), map[string]any{
			"entity": state.Entity,
			"id":     state.ID,
			"status": state.Status,
		})
	case errors.As(err, &transition):
		ProblemWithFields(w, http.StatusConflict, "Invalid Transition", err.Error(), map[string]any{
			"order_id": transition.OrderID,
			"from":     transition.From,
			"to":       transition.To,
		})
	case errors.As(err, &overReceipt):
		ProblemWithFields(w, http.StatusUnprocessableEntity, "Over Receipt", err.Error(), map[string]any{
			"order_id":  overReceipt.OrderID,
			"line_id":   overReceipt.LineID,
			"ordered":   overReceipt.Ordered,
			"received":  overReceipt.Received,
			"requested": overReceipt.Requested,
		})
	case errors.As(err, &notFound):
		ProblemWithFields(w, http.StatusNotFound, "Not Found", err.Error(), map[string]any{
			"entity": notFound.Entity,
			"id":     notFound.ID,
		})
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &conflict):
		ProblemWithFields(w, http.StatusConflict, "Concurrency Conflict", err.Error(), map[string]any{
			"entity":    conflict.Entity,
			"id":        conflict.ID,
			"retryable": true,
		})
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
