// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrEmptySale           = errors.New("sale has no lines")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrReferentialConflict = errors.New("referential conflict")
	ErrValidation          = errors.New("validation failed")
	ErrAlreadyExists       = errors.New("already exists")
	ErrDuplicateRequest    = errors.New("duplicate request in progress")
)

// NotFoundError identifies the missing entity
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound builds a NotFoundError for the entity and key
func NewNotFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// InsufficientStockError carries the quantities of a failed stock check
type InsufficientStockError struct {
	ItemID    int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StorageUnavailable wraps a storage fault so that it matches ErrStorageUnavailable
// while keeping the original cause reachable.
func StorageUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
