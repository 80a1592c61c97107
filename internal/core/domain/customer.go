// internal/core/domain/customer.go
package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Customer is linked to sales through the phone number
type Customer struct {
	ID        int64     `json:"customer_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate performs domain validation on the customer
func (c *Customer) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = NormalizePhone(c.Phone)
	c.Email = strings.TrimSpace(c.Email)

	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if c.Phone == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return fmt.Errorf("%w: email is invalid", ErrValidation)
		}
	}
	return nil
}

// PrepareForStorage sets timestamps
func (c *Customer) PrepareForStorage() {
	c.Address = strings.TrimSpace(c.Address)
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

// NormalizePhone strips formatting characters so that equal numbers compare equal.
// A leading + is kept.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
