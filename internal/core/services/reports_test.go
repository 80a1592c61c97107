// internal/core/services/reports_test.go
package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	redis_a "github.com/ammerola/pharmacy-pos/internal/adapters/redis_adapter"
	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/services"
	"github.com/ammerola/pharmacy-pos/test/helpers"
	"github.com/ammerola/pharmacy-pos/test/mocks"
)

func expectDashboardQueries(store *mocks.MockReportStore, threshold int) {
	store.EXPECT().CountItems(gomock.Any()).Return(int64(12), nil)
	store.EXPECT().CountCustomers(gomock.Any()).Return(int64(4), nil)
	store.EXPECT().RecentSales(gomock.Any(), 5).Return([]domain.SaleSummary{{ID: 3}}, nil)
	store.EXPECT().LowStockItems(gomock.Any(), threshold, 5).Return([]domain.Item{{ID: 9, QuantityOnHand: 1}}, nil)
}

func TestReportService_DashboardWithoutCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockReportStore(ctrl)
	service := services.NewReportService(store, nil, services.ReportOptions{}, helpers.TestLogger())

	expectDashboardQueries(store, domain.DefaultLowStockThreshold)

	dashboard, err := service.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), dashboard.ItemCount)
	assert.Equal(t, int64(4), dashboard.CustomerCount)
	assert.Len(t, dashboard.RecentSales, 1)
	assert.Len(t, dashboard.LowStock, 1)
	assert.Equal(t, domain.DefaultLowStockThreshold, dashboard.LowStockThreshold)
}

func TestReportService_DashboardIsCachedUntilInvalidated(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockReportStore(ctrl)
	testRedis := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(testRedis.Client, time.Minute, helpers.TestLogger())
	service := services.NewReportService(store, cache, services.ReportOptions{LowStockThreshold: 3}, helpers.TestLogger())
	ctx := context.Background()

	expectDashboardQueries(store, 3)
	first, err := service.Dashboard(ctx)
	require.NoError(t, err)

	second, err := service.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ItemCount, second.ItemCount)
	assert.True(t, testRedis.Server.Exists(services.DashboardCacheKey))

	// a committed change drops the cached aggregate
	inventory := mocks.NewMockInventoryStore(ctrl)
	inventory.EXPECT().Restock(gomock.Any(), int64(9), 10).Return(11, nil)
	_, err = services.NewInventoryService(inventory, cache, helpers.TestLogger()).Restock(ctx, 9, 10)
	require.NoError(t, err)
	assert.False(t, testRedis.Server.Exists(services.DashboardCacheKey))

	expectDashboardQueries(store, 3)
	_, err = service.Dashboard(ctx)
	require.NoError(t, err)
}

func TestReportService_DashboardError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockReportStore(ctrl)
	service := services.NewReportService(store, nil, services.ReportOptions{}, helpers.TestLogger())

	store.EXPECT().CountItems(gomock.Any()).Return(int64(0), domain.StorageUnavailable("count items", errors.New("down")))

	_, err := service.Dashboard(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestReportService_LowStockItems(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockReportStore(ctrl)
	service := services.NewReportService(store, nil, services.ReportOptions{LowStockThreshold: 7}, helpers.TestLogger())

	store.EXPECT().LowStockItems(gomock.Any(), 7, 0).Return(nil, nil)
	_, err := service.LowStockItems(context.Background(), 0, 0)
	require.NoError(t, err)

	store.EXPECT().LowStockItems(gomock.Any(), 20, 3).Return([]domain.Item{{ID: 1}}, nil)
	items, err := service.LowStockItems(context.Background(), 20, 3)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestReportService_PurchaseHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockReportStore(ctrl)
	service := services.NewReportService(store, nil, services.ReportOptions{}, helpers.TestLogger())

	store.EXPECT().PurchaseHistory(gomock.Any(), int64(5)).Return(nil, domain.NewNotFound("customer", 5))
	_, err := service.PurchaseHistory(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
