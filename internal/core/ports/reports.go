// internal/core/ports/reports.go
package ports

import (
	"context"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
)

// ReportStore serves the read-only aggregation queries
type ReportStore interface {
	CountItems(ctx context.Context) (int64, error)
	CountCustomers(ctx context.Context) (int64, error)
	RecentSales(ctx context.Context, limit int) ([]domain.SaleSummary, error)
	LowStockItems(ctx context.Context, threshold, limit int) ([]domain.Item, error)
	PurchaseHistory(ctx context.Context, customerID int64) (*domain.PurchaseHistory, error)
}
