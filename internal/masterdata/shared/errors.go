package shared

import "errors"

// Sentinels shared by the masterdata repositories.
var (
	// ErrNotFound signals that a supplier or product does not exist.
	ErrNotFound = errors.New("masterdata: not found")
	// ErrDuplicate signals a unique key collision (supplier code, product SKU).
	ErrDuplicate = errors.New("masterdata: duplicate key")
)
