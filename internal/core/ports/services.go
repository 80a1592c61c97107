// internal/core/ports/services.go
package ports

import (
	"context"
	"iter"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
)

// SaleService is the application port for sale submission and sale reads
type SaleService interface {
	SubmitSale(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error)
	GetSale(ctx context.Context, saleID int64) (*domain.Sale, error)
	GetInvoice(ctx context.Context, saleID int64) (*domain.Invoice, error)
	ListSalesByCustomer(ctx context.Context, phone string) iter.Seq2[domain.SaleSummary, error]
	ListSales(ctx context.Context, filter SaleFilter) ([]domain.SaleSummary, error)
}

// InventoryService is the application port for item records and stock
type InventoryService interface {
	CreateItem(ctx context.Context, item *domain.Item) error
	GetItem(ctx context.Context, itemID int64) (*domain.Item, error)
	UpdateItem(ctx context.Context, itemID int64, item *domain.Item) error
	DeleteItem(ctx context.Context, itemID int64) error
	ListItems(ctx context.Context, filter ItemFilter) (*ItemPage, error)
	SaleableItems(ctx context.Context) ([]domain.Item, error)
	GetStock(ctx context.Context, itemID int64) (domain.StockLevel, error)
	Restock(ctx context.Context, itemID int64, delta int) (int, error)
}

// CustomerService is the application port for customer records
type CustomerService interface {
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	GetCustomer(ctx context.Context, customerID int64) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customerID int64, customer *domain.Customer) error
	DeleteCustomer(ctx context.Context, customerID int64) error
	ListCustomers(ctx context.Context, filter CustomerFilter) (*CustomerPage, error)
}

// ReportService is the application port for the aggregation queries
type ReportService interface {
	Dashboard(ctx context.Context) (*domain.Dashboard, error)
	LowStockItems(ctx context.Context, threshold, limit int) ([]domain.Item, error)
	PurchaseHistory(ctx context.Context, customerID int64) (*domain.PurchaseHistory, error)
}
