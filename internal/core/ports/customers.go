// internal/core/ports/customers.go
package ports

import (
	"context"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
)

// CustomerRepository is the persistence port for customers.
// Delete fails with domain.ErrReferentialConflict while any sale references
// the customer.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	Get(ctx context.Context, customerID int64) (*domain.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, customerID int64) error
	List(ctx context.Context, filter CustomerFilter) (*CustomerPage, error)
}

// CustomerFilter holds parameters for listing customers
type CustomerFilter struct {
	Search   string
	Page     int
	PageSize int
}

// Normalize fills defaults and clamps paging values
func (f *CustomerFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 50
	}
	if f.PageSize > 500 {
		f.PageSize = 500
	}
}

// CustomerPage holds one page of customers
type CustomerPage struct {
	Customers  []domain.Customer `json:"customers"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}
