// internal/handlers/customers_test.go
package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/test/helpers"
)

func TestCustomerHandler_CreateCustomer(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		serviceErr     error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "creates_customer",
			body:           map[string]any{"name": "Ana Ruiz", "phone": "555-0100", "email": "ana@example.com"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "phone_taken",
			body:           map[string]any{"name": "Ana Ruiz", "phone": "555-0100"},
			serviceErr:     domain.ErrAlreadyExists,
			expectedStatus: http.StatusConflict,
			expectedCode:   "already_exists",
		},
		{
			name:           "invalid_customer",
			body:           map[string]any{"name": "", "phone": "555-0100"},
			serviceErr:     domain.ErrValidation,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "validation_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.customers.EXPECT().
				CreateCustomer(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ any, c *domain.Customer) error {
					if tt.serviceErr != nil {
						return tt.serviceErr
					}
					c.ID = 8
					return nil
				})

			w := api.do(jsonRequest(t, http.MethodPost, "/api/v1/customers", tt.body))
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
				return
			}
			assert.Equal(t, "/api/v1/customers/8", w.Header().Get("Location"))
		})
	}
}

func TestCustomerHandler_CRUD(t *testing.T) {
	customer := helpers.CreateTestCustomer(func(c *domain.Customer) { c.ID = 8 })

	t.Run("list", func(t *testing.T) {
		api := newTestAPI(t)
		api.customers.EXPECT().
			ListCustomers(gomock.Any(), ports.CustomerFilter{Search: "ana", Page: 1, PageSize: 50}).
			Return(&ports.CustomerPage{Customers: []domain.Customer{*customer}, Page: 1, PageSize: 50, TotalCount: 1, TotalPages: 1}, nil)

		w := api.do(jsonRequest(t, http.MethodGet, "/api/v1/customers?search=ana", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var page ports.CustomerPage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Len(t, page.Customers, 1)
	})

	t.Run("get_missing", func(t *testing.T) {
		api := newTestAPI(t)
		api.customers.EXPECT().GetCustomer(gomock.Any(), int64(8)).Return(nil, domain.NewNotFound("customer", 8))
		w := api.do(jsonRequest(t, http.MethodGet, "/api/v1/customers/8", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update", func(t *testing.T) {
		api := newTestAPI(t)
		api.customers.EXPECT().UpdateCustomer(gomock.Any(), int64(8), gomock.Any()).Return(nil)
		w := api.do(jsonRequest(t, http.MethodPut, "/api/v1/customers/8", map[string]any{"name": "Ana R", "phone": "5550100"}))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("delete_with_sales", func(t *testing.T) {
		api := newTestAPI(t)
		api.customers.EXPECT().DeleteCustomer(gomock.Any(), int64(8)).Return(domain.ErrReferentialConflict)
		w := api.do(jsonRequest(t, http.MethodDelete, "/api/v1/customers/8", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		api := newTestAPI(t)
		api.customers.EXPECT().DeleteCustomer(gomock.Any(), int64(8)).Return(nil)
		w := api.do(jsonRequest(t, http.MethodDelete, "/api/v1/customers/8", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("history", func(t *testing.T) {
		api := newTestAPI(t)
		api.reports.EXPECT().PurchaseHistory(gomock.Any(), int64(8)).Return(&domain.PurchaseHistory{
			Customer:  customer,
			SaleCount: 0,
			Sales:     []domain.SaleSummary{},
		}, nil)
		w := api.do(jsonRequest(t, http.MethodGet, "/api/v1/customers/8/history", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"sale_count":0`)
	})
}

func TestDashboardHandler_GetDashboard(t *testing.T) {
	api := newTestAPI(t)
	api.reports.EXPECT().Dashboard(gomock.Any()).Return(&domain.Dashboard{
		ItemCount:         12,
		CustomerCount:     4,
		RecentSales:       []domain.SaleSummary{},
		LowStock:          []domain.Item{},
		LowStockThreshold: 10,
	}, nil)

	w := api.do(jsonRequest(t, http.MethodGet, "/api/v1/dashboard", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(12), got.ItemCount)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
}
