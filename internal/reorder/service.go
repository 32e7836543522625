package reorder

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/singleflight"

	"github.com/replenish-erp/replenish-erp/internal/shared"
)

// ProductInfo is the catalog data the calculator needs per product.
type ProductInfo struct {
	ID         int64
	SKU        string
	Name       string
	Thresholds Thresholds
}

// CatalogPort lists products eligible for replenishment advice.
type CatalogPort interface {
	ListReplenishable(ctx context.Context) ([]ProductInfo, error)
}

// StockPort reports merged available stock per product.
type StockPort interface {
	AvailableByProduct(ctx context.Context, productIDs []int64) (map[int64]int64, error)
}

// PendingPort reports quantities already on open purchase orders.
type PendingPort interface {
	PendingQuantityByProduct(ctx context.Context) (map[int64]int64, error)
}

// SupplierPort lists purchasable supplier options per product.
type SupplierPort interface {
	OptionsByProduct(ctx context.Context, productIDs []int64) (map[int64][]SupplierOption, error)
}

// Service computes and caches reorder suggestions.
type Service struct {
	catalog   CatalogPort
	stock     StockPort
	pending   PendingPort
	suppliers SupplierPort
	cache     *Cache
	group     singleflight.Group
	logger    *slog.Logger
}

func NewService(catalog CatalogPort, stock StockPort, pending PendingPort, suppliers SupplierPort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{catalog: catalog, stock: stock, pending: pending, suppliers: suppliers, cache: cache, logger: logger}
}

// Suggestions returns replenishment advice, optionally filtered to one
// stock level. Results are cached; concurrent misses for the same level
// collapse into a single computation.
func (s *Service) Suggestions(ctx context.Context, level StockLevel) ([]Suggestion, error) {
	if level != "" {
		switch level {
		case LevelOutOfStock, LevelCritical, LevelLowStock, LevelInStock:
		default:
			return nil, shared.NewValidationError("level", "unknown stock level: "+string(level))
		}
	}
	key, err := s.cache.BuildKey(ctx, keySuggestions(string(level)))
	if err != nil {
		return nil, err
	}
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		var out []Suggestion
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
			return s.compute(ctx, level)
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	return result.([]Suggestion), nil
}

// Invalidate bumps the cache version after stock or order changes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) compute(ctx context.Context, level StockLevel) ([]Suggestion, error) {
	products, err := s.catalog.ListReplenishable(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []Suggestion{}, nil
	}
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	available, err := s.stock.AvailableByProduct(ctx, ids)
	if err != nil {
		return nil, err
	}
	pending, err := s.pending.PendingQuantityByProduct(ctx)
	if err != nil {
		return nil, err
	}
	options, err := s.suppliers.OptionsByProduct(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, 0, len(products))
	for _, p := range products {
		sug := BuildSuggestion(p.ID, p.SKU, p.Name, available[p.ID], pending[p.ID], p.Thresholds, options[p.ID])
		if level != "" && sug.Level != level {
			continue
		}
		out = append(out, sug)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	s.logger.Debug("reorder suggestions computed",
		slog.Int("products", len(products)),
		slog.Int("suggestions", len(out)),
		slog.String("level", string(level)))
	return out, nil
}

// LowStockProductIDs returns ids of products at or below low stock, for
// the periodic scan job.
func (s *Service) LowStockProductIDs(ctx context.Context) ([]int64, error) {
	suggestions, err := s.Suggestions(ctx, "")
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, sug := range suggestions {
		if sug.Level == LevelOutOfStock || sug.Level == LevelCritical || sug.Level == LevelLowStock {
			ids = append(ids, sug.ProductID)
		}
	}
	return ids, nil
}
