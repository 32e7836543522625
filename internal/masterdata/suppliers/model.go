package suppliers

import (
	"time"
)

// Supplier represents a supplier entity
type Supplier struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductMapping links a supplier to a product it can deliver with the
// agreed commercial terms.
type ProductMapping struct {
	ID           int64     `json:"id"`
	SupplierID   int64     `json:"supplier_id"`
	ProductID    int64     `json:"product_id"`
	UnitCost     float64   `json:"unit_cost"`
	LeadTimeDays int       `json:"lead_time_days"`
	Preferred    bool      `json:"preferred"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
