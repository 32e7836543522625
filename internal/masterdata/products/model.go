package products

import (
	"time"
)

// Product represents a sellable product with its replenishment thresholds.
type Product struct {
	ID                int64     `json:"id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Unit              string    `json:"unit"`
	CriticalThreshold int64     `json:"critical_threshold"`
	LowStockThreshold int64     `json:"low_stock_threshold"`
	TargetStockLevel  int64     `json:"target_stock_level"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
