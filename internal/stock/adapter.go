package stock

import (
	"context"

	"github.com/replenish-erp/replenish-erp/internal/reorder"
)

// LevelsAdapter feeds merged availability into the reorder calculator.
type LevelsAdapter struct {
	service *Service
}

func NewLevelsAdapter(service *Service) *LevelsAdapter {
	return &LevelsAdapter{service: service}
}

var _ reorder.StockPort = (*LevelsAdapter)(nil)

func (a *LevelsAdapter) AvailableByProduct(ctx context.Context, productIDs []int64) (map[int64]int64, error) {
	merged, err := a.service.Aggregate(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(merged))
	for _, agg := range merged {
		out[agg.ProductID] = agg.Available
	}
	return out, nil
}
