package purchasing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/replenish-erp/replenish-erp/internal/shared"
)

// SupplierInfo is the slice of the supplier directory this module needs.
type SupplierInfo struct {
	ID     int64
	Name   string
	Active bool
}

// ProductSupplierInfo carries the per-product terms of a supplier.
type ProductSupplierInfo struct {
	SupplierID   int64
	ProductID    int64
	UnitCost     float64
	LeadTimeDays int
	Active       bool
}

// SupplierDirectoryPort exposes the supplier directory collaborator.
type SupplierDirectoryPort interface {
	Supplier(ctx context.Context, id int64) (SupplierInfo, error)
	ProductSupplier(ctx context.Context, supplierID, productID int64) (ProductSupplierInfo, error)
}

// Selection is one (product, supplier, quantity) pick, typically sourced
// from reorder suggestions.
type Selection struct {
	ProductID  int64
	SupplierID int64
	Quantity   int64
}

// SupplierError records why draft creation failed for one supplier.
type SupplierError struct {
	SupplierID int64
	Message    string
}

// BulkResult reports partial success explicitly: orders that were created
// and suppliers that failed.
type BulkResult struct {
	Created []OrderSummary
	Errors  []SupplierError
}

// BulkCreator turns batches of selections into one draft order per
// supplier. Suppliers are processed independently; one failure never rolls
// back another supplier's draft.
type BulkCreator struct {
	service   *Service
	suppliers SupplierDirectoryPort
}

// NewBulkCreator constructs the bulk draft creator.
func NewBulkCreator(service *Service, suppliers SupplierDirectoryPort) *BulkCreator {
	return &BulkCreator{service: service, suppliers: suppliers}
}

const bulkConcurrency = 4

// CreateDrafts groups selections by supplier and creates a draft order per
// supplier. Per-supplier failures land in the result, not in the returned
// error; the returned error is reserved for context cancellation.
func (b *BulkCreator) CreateDrafts(ctx context.Context, selections []Selection, actorID int64) (BulkResult, error) {
	if len(selections) == 0 {
		return BulkResult{}, shared.NewValidationError("selections", "at least one selection is required")
	}
	for i, sel := range selections {
		if sel.ProductID <= 0 || sel.SupplierID <= 0 {
			return BulkResult{}, shared.NewValidationError(fmt.Sprintf("selections[%d]", i), "product and supplier are required")
		}
		if sel.Quantity <= 0 {
			return BulkResult{}, shared.NewValidationError(fmt.Sprintf("selections[%d].quantity", i), "quantity must be positive")
		}
	}

	bySupplier := make(map[int64][]Selection)
	for _, sel := range selections {
		bySupplier[sel.SupplierID] = append(bySupplier[sel.SupplierID], sel)
	}
	supplierIDs := make([]int64, 0, len(bySupplier))
	for id := range bySupplier {
		supplierIDs = append(supplierIDs, id)
	}
	sort.Slice(supplierIDs, func(i, j int) bool { return supplierIDs[i] < supplierIDs[j] })

	var (
		mu     sync.Mutex
		result BulkResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for _, supplierID := range supplierIDs {
		supplierID := supplierID
		picks := bySupplier[supplierID]
		g.Go(func() error {
			summary, err := b.createSupplierDraft(gctx, supplierID, picks, actorID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, SupplierError{SupplierID: supplierID, Message: err.Error()})
				return nil
			}
			result.Created = append(result.Created, summary)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BulkResult{}, err
	}
	sort.Slice(result.Created, func(i, j int) bool { return result.Created[i].SupplierID < result.Created[j].SupplierID })
	sort.Slice(result.Errors, func(i, j int) bool { return result.Errors[i].SupplierID < result.Errors[j].SupplierID })
	return result, nil
}

func (b *BulkCreator) createSupplierDraft(ctx context.Context, supplierID int64, picks []Selection, actorID int64) (OrderSummary, error) {
	supplier, err := b.suppliers.Supplier(ctx, supplierID)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("supplier lookup failed: %w", err)
	}
	if !supplier.Active {
		return OrderSummary{}, fmt.Errorf("supplier %s is inactive", supplier.Name)
	}
	lines := make([]LineInput, 0, len(picks))
	for _, pick := range picks {
		mapping, err := b.suppliers.ProductSupplier(ctx, supplierID, pick.ProductID)
		if err != nil {
			return OrderSummary{}, fmt.Errorf("product %d has no active mapping for supplier %s: %w", pick.ProductID, supplier.Name, err)
		}
		if !mapping.Active {
			return OrderSummary{}, fmt.Errorf("product %d mapping for supplier %s is inactive", pick.ProductID, supplier.Name)
		}
		lines = append(lines, LineInput{
			ProductID: pick.ProductID,
			Quantity:  pick.Quantity,
			UnitCost:  mapping.UnitCost,
		})
	}
	po, err := b.service.Create(ctx, CreateOrderInput{
		SupplierID: supplierID,
		ActorID:    actorID,
		Notes:      "bulk reorder draft",
		Lines:      lines,
	})
	if err != nil {
		return OrderSummary{}, err
	}
	return OrderSummary{
		ID:         po.ID,
		Number:     po.Number,
		SupplierID: po.SupplierID,
		Status:     po.Status,
		Currency:   po.Currency,
		OrderDate:  po.OrderDate,
		GrandTotal: po.GrandTotal,
		LineCount:  len(po.Lines),
		CreatedAt:  po.CreatedAt,
	}, nil
}
