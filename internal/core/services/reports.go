// internal/core/services/reports.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

const (
	// DashboardCacheKey holds the cached dashboard
	DashboardCacheKey = "report:dashboard"
	// ReportCachePattern matches every cached aggregation
	ReportCachePattern = "report:*"

	recentSalesLimit = 5
	lowStockLimit    = 5
)

// ReportOptions tunes the aggregation queries
type ReportOptions struct {
	LowStockThreshold int
	DashboardTTL      time.Duration
}

// ReportService serves the read-only aggregations
type ReportService struct {
	store  ports.ReportStore
	cache  ports.CacheRepository
	opts   ReportOptions
	logger *slog.Logger
}

var _ ports.ReportService = (*ReportService)(nil)

// NewReportService creates a new report service. cache may be nil.
func NewReportService(store ports.ReportStore, cache ports.CacheRepository, opts ReportOptions, logger *slog.Logger) *ReportService {
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = domain.DefaultLowStockThreshold
	}
	if opts.DashboardTTL <= 0 {
		opts.DashboardTTL = 30 * time.Second
	}
	return &ReportService{
		store:  store,
		cache:  cache,
		opts:   opts,
		logger: logger.With(slog.String("service", "reports")),
	}
}

// Dashboard returns counts, the latest sales and the lowest stock items. The
// result may be served from cache for up to the dashboard TTL.
func (s *ReportService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	if s.cache == nil {
		return s.buildDashboard(ctx)
	}

	var dashboard domain.Dashboard
	err := s.cache.GetOrSet(ctx, DashboardCacheKey, &dashboard, func() (interface{}, error) {
		return s.buildDashboard(ctx)
	}, s.opts.DashboardTTL)
	if err != nil {
		return nil, err
	}
	return &dashboard, nil
}

func (s *ReportService) buildDashboard(ctx context.Context) (*domain.Dashboard, error) {
	items, err := s.store.CountItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	customers, err := s.store.CountCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	recent, err := s.store.RecentSales(ctx, recentSalesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent sales: %w", err)
	}
	low, err := s.store.LowStockItems(ctx, s.opts.LowStockThreshold, lowStockLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load low stock items: %w", err)
	}

	return &domain.Dashboard{
		ItemCount:         items,
		CustomerCount:     customers,
		RecentSales:       recent,
		LowStock:          low,
		LowStockThreshold: s.opts.LowStockThreshold,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

// LowStockItems returns items below threshold, lowest first. A non-positive
// threshold uses the configured default.
func (s *ReportService) LowStockItems(ctx context.Context, threshold, limit int) ([]domain.Item, error) {
	if threshold <= 0 {
		threshold = s.opts.LowStockThreshold
	}
	items, err := s.store.LowStockItems(ctx, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load low stock items: %w", err)
	}
	return items, nil
}

// PurchaseHistory returns every sale of a customer
func (s *ReportService) PurchaseHistory(ctx context.Context, customerID int64) (*domain.PurchaseHistory, error) {
	history, err := s.store.PurchaseHistory(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase history: %w", err)
	}
	return history, nil
}

// invalidateAggregates drops cached aggregations after a write. The cache is
// allowed to lag, so failures are only logged.
func invalidateAggregates(ctx context.Context, cache ports.CacheRepository, logger *slog.Logger) {
	if cache == nil {
		return
	}
	if err := cache.DeletePattern(ctx, ReportCachePattern); err != nil {
		logger.WarnContext(ctx, "failed to invalidate cached reports",
			slog.String("error", err.Error()))
	}
}
