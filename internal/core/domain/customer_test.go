package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
)

func TestCustomer_Validate(t *testing.T) {
	tests := []struct {
		name      string
		customer  domain.Customer
		wantError bool
		errorMsg  string
	}{
		{
			name:     "valid_customer",
			customer: domain.Customer{Name: "Ana Ruiz", Phone: "(555) 010-0200", Email: "ana@example.com"},
		},
		{
			name:      "missing_name",
			customer:  domain.Customer{Phone: "5550100"},
			wantError: true,
			errorMsg:  "name is required",
		},
		{
			name:      "missing_phone",
			customer:  domain.Customer{Name: "Ana"},
			wantError: true,
			errorMsg:  "phone is required",
		},
		{
			name:      "bad_email",
			customer:  domain.Customer{Name: "Ana", Phone: "5550100", Email: "not-an-email"},
			wantError: true,
			errorMsg:  "email is invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.customer.Validate()
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "555-0100", want: "5550100"},
		{in: " +1 (555) 010 0200 ", want: "+15550100200"},
		{in: "55+5", want: "555"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.NormalizePhone(tt.in))
		})
	}
}

func TestErrors_Matching(t *testing.T) {
	notFound := fmt.Errorf("lookup: %w", domain.NewNotFound("item", 42))
	assert.ErrorIs(t, notFound, domain.ErrNotFound)
	var nf *domain.NotFoundError
	require.ErrorAs(t, notFound, &nf)
	assert.Equal(t, "42", nf.Key)

	short := fmt.Errorf("submit: %w", &domain.InsufficientStockError{ItemID: 1, Requested: 3, Available: 2})
	assert.ErrorIs(t, short, domain.ErrInsufficientStock)
	assert.Contains(t, short.Error(), "requested 3, available 2")

	cause := errors.New("connection reset")
	unavailable := domain.StorageUnavailable("deduct", cause)
	assert.ErrorIs(t, unavailable, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, unavailable, cause)
	assert.NotErrorIs(t, unavailable, domain.ErrNotFound)
}
