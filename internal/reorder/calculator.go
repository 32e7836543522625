package reorder

import "sort"

// StockLevel buckets a product by how far below its thresholds it sits.
type StockLevel string

const (
	LevelOutOfStock StockLevel = "out_of_stock"
	LevelCritical   StockLevel = "critical"
	LevelLowStock   StockLevel = "low_stock"
	LevelInStock    StockLevel = "in_stock"
)

// Thresholds carries a product's replenishment configuration.
type Thresholds struct {
	Critical int64 `json:"critical"`
	LowStock int64 `json:"low_stock"`
	Target   int64 `json:"target"`
}

// Classify buckets available quantity against thresholds. The buckets are
// checked from most to least severe so overlapping thresholds resolve to
// the severest level.
func Classify(available int64, th Thresholds) StockLevel {
	switch {
	case available <= 0:
		return LevelOutOfStock
	case available <= th.Critical:
		return LevelCritical
	case available <= th.LowStock:
		return LevelLowStock
	default:
		return LevelInStock
	}
}

// SuggestQuantity computes how much to order to reach the target level,
// counting stock already on open purchase orders. Negative on-hand stock
// counts as zero rather than inflating the order. Never negative.
func SuggestQuantity(target, available, pending int64) int64 {
	if available < 0 {
		available = 0
	}
	qty := target - available - pending
	if qty < 0 {
		return 0
	}
	return qty
}

// SupplierOption is one supplier able to deliver a product.
type SupplierOption struct {
	SupplierID   int64   `json:"supplier_id"`
	SupplierName string  `json:"supplier_name"`
	UnitCost     float64 `json:"unit_cost"`
	LeadTimeDays int     `json:"lead_time_days"`
}

// RankSuppliers orders options cheapest first, breaking ties by shorter
// lead time and then by supplier id so the result is deterministic.
func RankSuppliers(options []SupplierOption) []SupplierOption {
	ranked := make([]SupplierOption, len(options))
	copy(ranked, options)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.UnitCost != b.UnitCost {
			return a.UnitCost < b.UnitCost
		}
		if a.LeadTimeDays != b.LeadTimeDays {
			return a.LeadTimeDays < b.LeadTimeDays
		}
		return a.SupplierID < b.SupplierID
	})
	return ranked
}

// Suggestion is one product's replenishment advice.
type Suggestion struct {
	ProductID         int64            `json:"product_id"`
	SKU               string           `json:"sku"`
	Name              string           `json:"name"`
	Level             StockLevel       `json:"level"`
	Available         int64            `json:"available"`
	Pending           int64            `json:"pending"`
	Target            int64            `json:"target"`
	SuggestedQty      int64            `json:"suggested_qty"`
	Suppliers         []SupplierOption `json:"suppliers,omitempty"`
	PreferredSupplier *SupplierOption  `json:"preferred_supplier,omitempty"`
}

// BuildSuggestion assembles the full advice row for one product.
func BuildSuggestion(productID int64, sku, name string, available, pending int64, th Thresholds, options []SupplierOption) Suggestion {
	s := Suggestion{
		ProductID:    productID,
		SKU:          sku,
		Name:         name,
		Level:        Classify(available, th),
		Available:    available,
		Pending:      pending,
		Target:       th.Target,
		SuggestedQty: SuggestQuantity(th.Target, available, pending),
	}
	if len(options) > 0 {
		s.Suppliers = RankSuppliers(options)
		s.PreferredSupplier = &s.Suppliers[0]
	}
	return s
}
