// internal/core/services/inventory_test.go
package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/internal/core/services"
	"github.com/ammerola/pharmacy-pos/test/helpers"
	"github.com/ammerola/pharmacy-pos/test/mocks"
)

func TestInventoryService_CreateItem(t *testing.T) {
	tests := []struct {
		name          string
		item          *domain.Item
		setupMocks    func(*mocks.MockInventoryStore, *mocks.MockCacheRepository)
		expectedError error
		errorContains string
	}{
		{
			name: "successful_create_with_valid_item",
			item: helpers.CreateTestItem(),
			setupMocks: func(store *mocks.MockInventoryStore, cache *mocks.MockCacheRepository) {
				store.EXPECT().CreateItem(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, item *domain.Item) error {
						item.ID = 17
						return nil
					})
				cache.EXPECT().DeletePattern(gomock.Any(), services.ReportCachePattern).Return(nil)
			},
		},
		{
			name:          "validation_fails_for_blank_name",
			item:          helpers.CreateTestItem(func(i *domain.Item) { i.Name = "  " }),
			setupMocks:    func(*mocks.MockInventoryStore, *mocks.MockCacheRepository) {},
			expectedError: domain.ErrValidation,
			errorContains: "name is required",
		},
		{
			name: "validation_fails_for_negative_price",
			item: helpers.CreateTestItem(func(i *domain.Item) {
				i.UnitPrice = decimal.NewFromInt(-1)
			}),
			setupMocks:    func(*mocks.MockInventoryStore, *mocks.MockCacheRepository) {},
			expectedError: domain.ErrValidation,
			errorContains: "unit_price cannot be negative",
		},
		{
			name: "validation_fails_for_sub_cent_price",
			item: helpers.CreateTestItem(func(i *domain.Item) {
				i.UnitPrice = decimal.RequireFromString("1.005")
			}),
			setupMocks:    func(*mocks.MockInventoryStore, *mocks.MockCacheRepository) {},
			expectedError: domain.ErrValidation,
		},
		{
			name: "store_error_is_wrapped",
			item: helpers.CreateTestItem(),
			setupMocks: func(store *mocks.MockInventoryStore, _ *mocks.MockCacheRepository) {
				store.EXPECT().CreateItem(gomock.Any(), gomock.Any()).
					Return(domain.StorageUnavailable("create item", errors.New("timeout")))
			},
			expectedError: domain.ErrStorageUnavailable,
			errorContains: "failed to create item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockInventoryStore(ctrl)
			cache := mocks.NewMockCacheRepository(ctrl)
			tt.setupMocks(store, cache)

			service := services.NewInventoryService(store, cache, helpers.TestLogger())
			err := service.CreateItem(context.Background(), tt.item)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				if tt.errorContains != "" {
					assert.ErrorContains(t, err, tt.errorContains)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(17), tt.item.ID)
			assert.False(t, tt.item.CreatedAt.IsZero())
		})
	}
}

func TestInventoryService_UpdateItem(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockInventoryStore(ctrl)
	service := services.NewInventoryService(store, nil, helpers.TestLogger())

	item := helpers.CreateTestItem(func(i *domain.Item) { i.UnitPrice = decimal.RequireFromString("3.5") })
	store.EXPECT().UpdateItem(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, got *domain.Item) error {
			assert.Equal(t, int64(21), got.ID)
			assert.Equal(t, "3.50", got.UnitPrice.StringFixed(2))
			return nil
		})
	require.NoError(t, service.UpdateItem(context.Background(), 21, item))

	store.EXPECT().UpdateItem(gomock.Any(), gomock.Any()).Return(domain.NewNotFound("item", 22))
	err := service.UpdateItem(context.Background(), 22, helpers.CreateTestItem())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventoryService_Restock(t *testing.T) {
	tests := []struct {
		name          string
		delta         int
		setupMocks    func(*mocks.MockInventoryStore)
		expected      int
		expectedError error
	}{
		{
			name:  "adds_positive_delta",
			delta: 5,
			setupMocks: func(m *mocks.MockInventoryStore) {
				m.EXPECT().Restock(gomock.Any(), int64(1), 5).Return(12, nil)
			},
			expected: 12,
		},
		{
			name:          "rejects_zero_delta",
			delta:         0,
			setupMocks:    func(*mocks.MockInventoryStore) {},
			expectedError: domain.ErrInvalidQuantity,
		},
		{
			name:          "rejects_negative_delta",
			delta:         -3,
			setupMocks:    func(*mocks.MockInventoryStore) {},
			expectedError: domain.ErrInvalidQuantity,
		},
		{
			name:  "missing_item",
			delta: 1,
			setupMocks: func(m *mocks.MockInventoryStore) {
				m.EXPECT().Restock(gomock.Any(), int64(1), 1).Return(0, domain.NewNotFound("item", 1))
			},
			expectedError: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockInventoryStore(ctrl)
			tt.setupMocks(store)

			service := services.NewInventoryService(store, nil, helpers.TestLogger())
			got, err := service.Restock(context.Background(), 1, tt.delta)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestInventoryService_ListItemsNormalizesFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockInventoryStore(ctrl)
	service := services.NewInventoryService(store, nil, helpers.TestLogger())

	store.EXPECT().ListItems(gomock.Any(), ports.ItemFilter{
		Search:    "para",
		SortBy:    "name",
		SortOrder: "asc",
		Page:      1,
		PageSize:  500,
	}).Return(&ports.ItemPage{}, nil)

	_, err := service.ListItems(context.Background(), ports.ItemFilter{
		Search:    "para",
		SortBy:    "price; DROP TABLE items",
		SortOrder: "sideways",
		PageSize:  10000,
	})
	require.NoError(t, err)
}

func TestInventoryService_SaleableItemsWalksAllPages(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockInventoryStore(ctrl)
	service := services.NewInventoryService(store, nil, helpers.TestLogger())

	first := make([]domain.Item, 500)
	gomock.InOrder(
		store.EXPECT().ListItems(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, f ports.ItemFilter) (*ports.ItemPage, error) {
				assert.True(t, f.InStockOnly)
				assert.Equal(t, 1, f.Page)
				return &ports.ItemPage{Items: first, TotalPages: 2}, nil
			}),
		store.EXPECT().ListItems(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, f ports.ItemFilter) (*ports.ItemPage, error) {
				assert.Equal(t, 2, f.Page)
				return &ports.ItemPage{Items: []domain.Item{{ID: 501}}, TotalPages: 2}, nil
			}),
	)

	items, err := service.SaleableItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 501)
}

func TestInventoryService_DeleteItem(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockInventoryStore(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	service := services.NewInventoryService(store, cache, helpers.TestLogger())

	store.EXPECT().DeleteItem(gomock.Any(), int64(3)).Return(nil)
	cache.EXPECT().DeletePattern(gomock.Any(), services.ReportCachePattern).Return(errors.New("redis down"))
	assert.NoError(t, service.DeleteItem(context.Background(), 3))

	store.EXPECT().DeleteItem(gomock.Any(), int64(4)).
		Return(errors.Join(domain.ErrReferentialConflict, errors.New("sold before")))
	assert.ErrorIs(t, service.DeleteItem(context.Background(), 4), domain.ErrReferentialConflict)
}
