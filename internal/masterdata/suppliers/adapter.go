package suppliers

import (
	"context"

	"github.com/replenish-erp/replenish-erp/internal/purchasing"
	"github.com/replenish-erp/replenish-erp/internal/reorder"
)

// DirectoryAdapter exposes the supplier directory to the purchasing and
// reorder modules without leaking masterdata types into them.
type DirectoryAdapter struct {
	service *Service
}

func NewDirectoryAdapter(service *Service) *DirectoryAdapter {
	return &DirectoryAdapter{service: service}
}

var _ purchasing.SupplierDirectoryPort = (*DirectoryAdapter)(nil)
var _ reorder.SupplierPort = (*DirectoryAdapter)(nil)

func (a *DirectoryAdapter) Supplier(ctx context.Context, id int64) (purchasing.SupplierInfo, error) {
	sup, err := a.service.Get(ctx, id)
	if err != nil {
		return purchasing.SupplierInfo{}, err
	}
	return purchasing.SupplierInfo{ID: sup.ID, Name: sup.Name, Active: sup.Active}, nil
}

func (a *DirectoryAdapter) ProductSupplier(ctx context.Context, supplierID, productID int64) (purchasing.ProductSupplierInfo, error) {
	m, err := a.service.GetMapping(ctx, supplierID, productID)
	if err != nil {
		return purchasing.ProductSupplierInfo{}, err
	}
	return purchasing.ProductSupplierInfo{
		SupplierID:   m.SupplierID,
		ProductID:    m.ProductID,
		UnitCost:     m.UnitCost,
		LeadTimeDays: m.LeadTimeDays,
		Active:       m.Active,
	}, nil
}

func (a *DirectoryAdapter) OptionsByProduct(ctx context.Context, productIDs []int64) (map[int64][]reorder.SupplierOption, error) {
	mappings, err := a.service.MappingsByProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string)
	out := make(map[int64][]reorder.SupplierOption, len(productIDs))
	for _, m := range mappings {
		name, ok := names[m.SupplierID]
		if !ok {
			sup, err := a.service.Get(ctx, m.SupplierID)
			if err != nil {
				return nil, err
			}
			if !sup.Active {
				names[m.SupplierID] = ""
				continue
			}
			name = sup.Name
			names[m.SupplierID] = name
		}
		if name == "" {
			continue
		}
		out[m.ProductID] = append(out[m.ProductID], reorder.SupplierOption{
			SupplierID:   m.SupplierID,
			SupplierName: name,
			UnitCost:     m.UnitCost,
			LeadTimeDays: m.LeadTimeDays,
		})
	}
	return out, nil
}
