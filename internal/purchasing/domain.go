package purchasing

import (
	"math"
	"time"
)

// Purchase order lifecycle statuses.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusSent              Status = "sent"
	StatusConfirmed         Status = "confirmed"
	StatusPartiallyReceived Status = "partially_received"
	StatusReceived          Status = "received"
	StatusCancelled         Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// Receivable reports whether goods may be received against an order in
// this status.
func (s Status) Receivable() bool {
	switch s {
	case StatusSent, StatusConfirmed, StatusPartiallyReceived:
		return true
	}
	return false
}

// PurchaseOrder is a commitment to buy specific quantities from one supplier.
type PurchaseOrder struct {
	ID              int64
	Number          string
	SupplierID      int64
	Status          Status
	Currency        string
	OrderDate       time.Time
	ExpectedDate    time.Time
	DeliveredAt     time.Time
	Subtotal        float64
	Tax             float64
	Discount        float64
	Shipping        float64
	GrandTotal      float64
	Notes           string
	PaymentTerms    string
	DeliveryAddress string
	TrackingNumber  string
	Lines           []Line
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Line is one product/quantity/cost entry within a purchase order.
type Line struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	OrderedQty  int64
	ReceivedQty int64
	UnitCost    float64
	DiscountPct float64
	TaxPct      float64
}

// PendingQty returns how much of the line is still outstanding.
func (l Line) PendingQty() int64 {
	return l.OrderedQty - l.ReceivedQty
}

// Total returns the line total after discount and tax, rounded to 2dp.
func (l Line) Total() float64 {
	total := float64(l.OrderedQty) * l.UnitCost * (1 - l.DiscountPct/100) * (1 + l.TaxPct/100)
	return round2(total)
}

// Totals holds the derived monetary totals of an order.
type Totals struct {
	Subtotal   float64
	Tax        float64
	GrandTotal float64
}

// ComputeTotals derives order totals from its lines. Grand total is the sum
// of line totals plus shipping minus the order-level discount, never below
// hand-edited values because there are none.
func ComputeTotals(lines []Line, shipping, discount float64) Totals {
	var subtotal, tax float64
	for _, l := range lines {
		base := float64(l.OrderedQty) * l.UnitCost * (1 - l.DiscountPct/100)
		subtotal += base
		tax += base * l.TaxPct / 100
	}
	subtotal = round2(subtotal)
	tax = round2(tax)
	grand := round2(subtotal + tax + shipping - discount)
	return Totals{Subtotal: subtotal, Tax: tax, GrandTotal: grand}
}

// DeriveStatus recomputes the receipt-driven status from the lines. It is a
// pure function: fully received lines yield received, any received quantity
// yields partially_received, otherwise the current status stands.
func DeriveStatus(current Status, lines []Line) Status {
	if len(lines) == 0 {
		return current
	}
	allReceived := true
	anyReceived := false
	for _, l := range lines {
		if l.PendingQty() > 0 {
			allReceived = false
		}
		if l.ReceivedQty > 0 {
			anyReceived = true
		}
	}
	switch {
	case allReceived:
		return StatusReceived
	case anyReceived:
		return StatusPartiallyReceived
	default:
		return current
	}
}

// Receipt is an immutable record of one delivery event.
type Receipt struct {
	ID         int64
	OrderID    int64
	Number     string
	ReceivedAt time.Time
	Notes      string
	CreatedBy  int64
	CreatedAt  time.Time
	Lines      []ReceiptLine
}

// ReceiptLine records the quantity received against one order line in a
// single delivery event.
type ReceiptLine struct {
	ID        int64
	ReceiptID int64
	LineID    int64
	Quantity  int64
}

// HistoryEntry is one row of the append-only order audit trail.
type HistoryEntry struct {
	ID         int64
	OrderID    int64
	Action     string
	FromStatus Status
	ToStatus   Status
	ActorID    int64
	Notes      string
	Meta       map[string]any
	At         time.Time
}

// Unreceived item lifecycle statuses.
type UnreceivedStatus string

const (
	UnreceivedPending   UnreceivedStatus = "pending"
	UnreceivedPartial   UnreceivedStatus = "partial"
	UnreceivedResolved  UnreceivedStatus = "resolved"
	UnreceivedCancelled UnreceivedStatus = "cancelled"
)

// Closed reports whether the item has reached a terminal status.
func (s UnreceivedStatus) Closed() bool {
	return s == UnreceivedResolved || s == UnreceivedCancelled
}

// UnreceivedItem tracks the shortfall on one purchase order line. Its
// lifecycle is operator-owned: full receipt of the line zeroes the
// unreceived quantity but never auto-resolves the item.
type UnreceivedItem struct {
	ID              int64
	OrderID         int64
	LineID          int64
	ProductID       int64
	SupplierID      int64
	OrderedQty      int64
	ReceivedQty     int64
	UnreceivedQty   int64
	ExpectedDate    time.Time
	FollowUpDate    time.Time
	Status          UnreceivedStatus
	ResolutionNotes string
	ResolvedBy      int64
	ResolvedAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderSummary is the list-view projection of a purchase order.
type OrderSummary struct {
	ID           int64
	Number       string
	SupplierID   int64
	SupplierName string
	Status       Status
	Currency     string
	OrderDate    time.Time
	ExpectedDate time.Time
	GrandTotal   float64
	LineCount    int
	CreatedAt    time.Time
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
