// internal/adapters/memory/reports.go
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// CountItems returns the number of items
func (s *Store) CountItems(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.StorageUnavailable("count items", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.items)), nil
}

// CountCustomers returns the number of customers
func (s *Store) CountCustomers(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.StorageUnavailable("count customers", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.customers)), nil
}

// RecentSales returns the most recent sales
func (s *Store) RecentSales(ctx context.Context, limit int) ([]domain.SaleSummary, error) {
	return s.ListSales(ctx, ports.SaleFilter{Limit: limit})
}

// LowStockItems returns items below threshold, lowest stock first
func (s *Store) LowStockItems(ctx context.Context, threshold, limit int) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StorageUnavailable("low stock items", err)
	}

	s.mu.RLock()
	low := make([]domain.Item, 0)
	for _, item := range s.items {
		if item.IsLowStock(threshold) {
			low = append(low, *item)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(low, func(a, b domain.Item) int {
		return cmp.Or(
			cmp.Compare(a.QuantityOnHand, b.QuantityOnHand),
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.ID, b.ID),
		)
	})
	if limit > 0 && len(low) > limit {
		low = low[:limit]
	}
	return low, nil
}

// PurchaseHistory returns every sale of the customer, most recent first
func (s *Store) PurchaseHistory(ctx context.Context, customerID int64) (*domain.PurchaseHistory, error) {
	customer, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	sales := s.summaries(func(sale *domain.Sale) bool {
		return sale.CustomerPhone == customer.Phone
	})
	return &domain.PurchaseHistory{
		Customer:  customer,
		SaleCount: len(sales),
		Sales:     sales,
	}, nil
}
