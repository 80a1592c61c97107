// internal/core/domain/item.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is the quantity below which an item is reported as low stock.
const DefaultLowStockThreshold = 10

// CurrencyPlaces is the number of decimal places persisted for money values.
const CurrencyPlaces = 2

// Item represents a sellable inventory unit (a medicine)
type Item struct {
	ID             int64           `json:"item_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	Manufacturer   string          `json:"manufacturer,omitempty"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StockLevel is the authoritative price and stock snapshot of an item
type StockLevel struct {
	ItemID         int64           `json:"item_id"`
	Name           string          `json:"name,omitempty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	QuantityOnHand int             `json:"quantity_on_hand"`
}

// Validate performs domain validation on the item
func (i *Item) Validate() error {
	i.Name = strings.TrimSpace(i.Name)
	if i.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if i.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit_price cannot be negative", ErrValidation)
	}
	if !i.UnitPrice.Equal(i.UnitPrice.Round(CurrencyPlaces)) {
		return fmt.Errorf("%w: unit_price supports at most %d decimal places", ErrValidation, CurrencyPlaces)
	}
	if i.QuantityOnHand < 0 {
		return fmt.Errorf("%w: quantity_on_hand cannot be negative", ErrValidation)
	}
	return nil
}

// PrepareForStorage normalizes the item before it is persisted
func (i *Item) PrepareForStorage() {
	i.UnitPrice = i.UnitPrice.Round(CurrencyPlaces)
	i.Description = strings.TrimSpace(i.Description)
	i.Manufacturer = strings.TrimSpace(i.Manufacturer)

	now := time.Now().UTC()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	i.UpdatedAt = now
}

// Stock returns the stock snapshot of the item
func (i *Item) Stock() StockLevel {
	return StockLevel{
		ItemID:         i.ID,
		Name:           i.Name,
		UnitPrice:      i.UnitPrice,
		QuantityOnHand: i.QuantityOnHand,
	}
}

// IsLowStock reports whether the item is below the given threshold
func (i *Item) IsLowStock(threshold int) bool {
	return i.QuantityOnHand < threshold
}

// IsExpired reports whether the item expiry date is before the given instant
func (i *Item) IsExpired(at time.Time) bool {
	return i.ExpiryDate != nil && i.ExpiryDate.Before(at)
}
