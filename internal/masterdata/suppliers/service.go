package suppliers

import (
	"context"
	"errors"

	"github.com/replenish-erp/replenish-erp/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, errors.New("invalid supplier ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, supplier)
}

func (s *Service) Update(ctx context.Context, id int64, supplier Supplier) error {
	if id <= 0 {
		return errors.New("invalid supplier ID")
	}
	if err := s.validate(supplier); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, supplier)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid supplier ID")
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListMappings(ctx context.Context, supplierID int64) ([]ProductMapping, error) {
	if supplierID <= 0 {
		return nil, errors.New("invalid supplier ID")
	}
	return s.repo.ListMappings(ctx, supplierID)
}

func (s *Service) MappingsByProducts(ctx context.Context, productIDs []int64) ([]ProductMapping, error) {
	return s.repo.MappingsByProducts(ctx, productIDs)
}

func (s *Service) GetMapping(ctx context.Context, supplierID, productID int64) (ProductMapping, error) {
	if supplierID <= 0 || productID <= 0 {
		return ProductMapping{}, errors.New("invalid mapping identifiers")
	}
	return s.repo.GetMapping(ctx, supplierID, productID)
}

func (s *Service) SaveMapping(ctx context.Context, mapping ProductMapping) (ProductMapping, error) {
	if err := s.validateMapping(mapping); err != nil {
		return ProductMapping{}, err
	}
	return s.repo.UpsertMapping(ctx, mapping)
}

func (s *Service) DeleteMapping(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid mapping ID")
	}
	return s.repo.DeleteMapping(ctx, id)
}
