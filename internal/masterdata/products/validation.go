package products

import (
	"errors"
	"strings"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return errors.New("product SKU is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("product name is required")
	}
	if p.CriticalThreshold < 0 || p.LowStockThreshold < 0 || p.TargetStockLevel < 0 {
		return errors.New("thresholds must not be negative")
	}
	if p.LowStockThreshold < p.CriticalThreshold {
		return errors.New("low stock threshold must be at or above the critical threshold")
	}
	if p.TargetStockLevel > 0 && p.TargetStockLevel < p.LowStockThreshold {
		return errors.New("target stock level must be at or above the low stock threshold")
	}
	return nil
}
