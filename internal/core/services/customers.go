// internal/core/services/customers.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// CustomerService handles customer records and the deletion guard
type CustomerService struct {
	repo   ports.CustomerRepository
	cache  ports.CacheRepository
	logger *slog.Logger
}

var _ ports.CustomerService = (*CustomerService)(nil)

// NewCustomerService creates a new customer service. cache may be nil.
func NewCustomerService(repo ports.CustomerRepository, cache ports.CacheRepository, logger *slog.Logger) *CustomerService {
	return &CustomerService{
		repo:   repo,
		cache:  cache,
		logger: logger.With(slog.String("service", "customers")),
	}
}

func (s *CustomerService) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	if err := customer.Validate(); err != nil {
		return err
	}
	customer.PrepareForStorage()

	if err := s.repo.Create(ctx, customer); err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.InfoContext(ctx, "created customer", slog.Int64("customer_id", customer.ID))
	invalidateAggregates(ctx, s.cache, s.logger)
	return nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, customerID int64) (*domain.Customer, error) {
	customer, err := s.repo.Get(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

// UpdateCustomer edits contact fields. Changing the phone of a customer with
// sales fails with domain.ErrReferentialConflict.
func (s *CustomerService) UpdateCustomer(ctx context.Context, customerID int64, customer *domain.Customer) error {
	customer.ID = customerID
	if err := customer.Validate(); err != nil {
		return err
	}
	customer.PrepareForStorage()

	if err := s.repo.Update(ctx, customer); err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	s.logger.InfoContext(ctx, "updated customer", slog.Int64("customer_id", customerID))
	invalidateAggregates(ctx, s.cache, s.logger)
	return nil
}

// DeleteCustomer removes a customer with no recorded sales
func (s *CustomerService) DeleteCustomer(ctx context.Context, customerID int64) error {
	if err := s.repo.Delete(ctx, customerID); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	s.logger.InfoContext(ctx, "deleted customer", slog.Int64("customer_id", customerID))
	invalidateAggregates(ctx, s.cache, s.logger)
	return nil
}

func (s *CustomerService) ListCustomers(ctx context.Context, filter ports.CustomerFilter) (*ports.CustomerPage, error) {
	filter.Normalize()
	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return page, nil
}
