// internal/core/services/customers_test.go
package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/internal/core/services"
	"github.com/ammerola/pharmacy-pos/test/helpers"
	"github.com/ammerola/pharmacy-pos/test/mocks"
)

func TestCustomerService_CreateCustomer(t *testing.T) {
	tests := []struct {
		name          string
		customer      *domain.Customer
		setupMocks    func(*mocks.MockCustomerRepository)
		expectedError error
		expectedPhone string
	}{
		{
			name: "normalizes_phone",
			customer: helpers.CreateTestCustomer(func(c *domain.Customer) {
				c.Phone = " +1 (555) 010-0100 "
			}),
			setupMocks: func(m *mocks.MockCustomerRepository) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedPhone: "+15550100100",
		},
		{
			name:          "rejects_missing_phone",
			customer:      helpers.CreateTestCustomer(func(c *domain.Customer) { c.Phone = "n/a" }),
			setupMocks:    func(*mocks.MockCustomerRepository) {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "rejects_bad_email",
			customer:      helpers.CreateTestCustomer(func(c *domain.Customer) { c.Email = "not-an-email" }),
			setupMocks:    func(*mocks.MockCustomerRepository) {},
			expectedError: domain.ErrValidation,
		},
		{
			name:     "duplicate_phone",
			customer: helpers.CreateTestCustomer(),
			setupMocks: func(m *mocks.MockCustomerRepository) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.ErrAlreadyExists)
			},
			expectedError: domain.ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockCustomerRepository(ctrl)
			tt.setupMocks(repo)

			service := services.NewCustomerService(repo, nil, helpers.TestLogger())
			err := service.CreateCustomer(context.Background(), tt.customer)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPhone, tt.customer.Phone)
		})
	}
}

func TestCustomerService_UpdateAndDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockCustomerRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	service := services.NewCustomerService(repo, cache, helpers.TestLogger())
	ctx := context.Background()

	repo.EXPECT().Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c *domain.Customer) error {
			assert.Equal(t, int64(8), c.ID)
			return nil
		})
	cache.EXPECT().DeletePattern(gomock.Any(), services.ReportCachePattern).Return(nil)
	require.NoError(t, service.UpdateCustomer(ctx, 8, helpers.CreateTestCustomer()))

	repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(domain.ErrReferentialConflict)
	assert.ErrorIs(t, service.UpdateCustomer(ctx, 8, helpers.CreateTestCustomer()), domain.ErrReferentialConflict)

	repo.EXPECT().Delete(gomock.Any(), int64(8)).Return(domain.ErrReferentialConflict)
	assert.ErrorIs(t, service.DeleteCustomer(ctx, 8), domain.ErrReferentialConflict)

	repo.EXPECT().Delete(gomock.Any(), int64(9)).Return(nil)
	cache.EXPECT().DeletePattern(gomock.Any(), services.ReportCachePattern).Return(nil)
	assert.NoError(t, service.DeleteCustomer(ctx, 9))
}

func TestCustomerService_ListCustomers(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockCustomerRepository(ctrl)
	service := services.NewCustomerService(repo, nil, helpers.TestLogger())

	repo.EXPECT().List(gomock.Any(), ports.CustomerFilter{Search: "doe", Page: 1, PageSize: 50}).
		Return(&ports.CustomerPage{TotalCount: 1, Customers: []domain.Customer{{Name: "Jane Doe"}}}, nil)

	page, err := service.ListCustomers(context.Background(), ports.CustomerFilter{Search: "doe"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalCount)
}
