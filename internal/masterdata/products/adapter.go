package products

import (
	"context"

	"github.com/replenish-erp/replenish-erp/internal/reorder"
)

// CatalogAdapter feeds the reorder calculator from the product catalog.
type CatalogAdapter struct {
	service *Service
}

func NewCatalogAdapter(service *Service) *CatalogAdapter {
	return &CatalogAdapter{service: service}
}

var _ reorder.CatalogPort = (*CatalogAdapter)(nil)

func (a *CatalogAdapter) ListReplenishable(ctx context.Context) ([]reorder.ProductInfo, error) {
	active, err := a.service.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]reorder.ProductInfo, 0, len(active))
	for _, p := range active {
		if p.TargetStockLevel <= 0 {
			continue
		}
		out = append(out, reorder.ProductInfo{
			ID:   p.ID,
			SKU:  p.SKU,
			Name: p.Name,
			Thresholds: reorder.Thresholds{
				Critical: p.CriticalThreshold,
				LowStock: p.LowStockThreshold,
				Target:   p.TargetStockLevel,
			},
		})
	}
	return out, nil
}
