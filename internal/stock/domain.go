package stock

import (
	"time"

	"github.com/replenish-erp/replenish-erp/internal/shared"
)

// Source identifies one stock ledger feed.
type Source string

const (
	SourceMain  Source = "MAIN"
	SourceFBE   Source = "FBE"
	SourceLocal Source = "LOCAL"
)

// Sources lists every known ledger source in merge order.
var Sources = []Source{SourceMain, SourceFBE, SourceLocal}

// ParseSource validates an incoming source label.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	for _, known := range Sources {
		if s == known {
			return s, nil
		}
	}
	return "", shared.NewValidationError("source", "unknown stock source: "+raw)
}

// Record is one product's quantity in one source ledger.
type Record struct {
	ProductID int64     `json:"product_id"`
	Source    Source    `json:"source"`
	Quantity  int64     `json:"quantity"`
	Reserved  int64     `json:"reserved"`
	SyncedAt  time.Time `json:"synced_at"`
}

// Aggregated is the merged view of one product across all sources.
// A source that reported nothing contributes zero.
type Aggregated struct {
	ProductID int64            `json:"product_id"`
	BySource  map[Source]int64 `json:"by_source"`
	Total     int64            `json:"total"`
	Reserved  int64            `json:"reserved"`
	Available int64            `json:"available"`
}
