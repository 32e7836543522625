package suppliers

import (
	"errors"
	"strings"
)

func (s *Service) validate(sup Supplier) error {
	if strings.TrimSpace(sup.Code) == "" {
		return errors.New("supplier code is required")
	}
	if strings.TrimSpace(sup.Name) == "" {
		return errors.New("supplier name is required")
	}
	return nil
}

func (s *Service) validateMapping(m ProductMapping) error {
	if m.SupplierID <= 0 {
		return errors.New("supplier is required")
	}
	if m.ProductID <= 0 {
		return errors.New("product is required")
	}
	if m.UnitCost < 0 {
		return errors.New("unit cost must not be negative")
	}
	if m.LeadTimeDays < 0 {
		return errors.New("lead time must not be negative")
	}
	return nil
}
