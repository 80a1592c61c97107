// internal/adapters/memory/inventory.go
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// GetStock returns the current price and quantity of an item
func (s *Store) GetStock(ctx context.Context, itemID int64) (domain.StockLevel, error) {
	if err := ctx.Err(); err != nil {
		return domain.StockLevel{}, domain.StorageUnavailable("get stock", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return domain.StockLevel{}, domain.NewNotFound("item", itemID)
	}
	return item.Stock(), nil
}

// Restock adds delta units to the item under its lock
func (s *Store) Restock(ctx context.Context, itemID int64, delta int) (int, error) {
	if delta <= 0 {
		return 0, fmt.Errorf("%w: restock delta must be positive, got %d", domain.ErrInvalidQuantity, delta)
	}
	if err := ctx.Err(); err != nil {
		return 0, domain.StorageUnavailable("restock", err)
	}

	unlock := s.locks.acquire(itemKey(itemID), false)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return 0, domain.NewNotFound("item", itemID)
	}
	item.QuantityOnHand += delta
	item.UpdatedAt = s.now()
	return item.QuantityOnHand, nil
}

// Deduct subtracts quantity only if enough stock remains
func (s *Store) Deduct(ctx context.Context, itemID int64, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: deduct quantity must be positive, got %d", domain.ErrInvalidQuantity, quantity)
	}
	if err := ctx.Err(); err != nil {
		return 0, domain.StorageUnavailable("deduct", err)
	}

	unlock := s.locks.acquire(itemKey(itemID), false)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return 0, domain.NewNotFound("item", itemID)
	}
	if item.QuantityOnHand < quantity {
		return 0, &domain.InsufficientStockError{
			ItemID:    itemID,
			Requested: quantity,
			Available: item.QuantityOnHand,
		}
	}
	item.QuantityOnHand -= quantity
	item.UpdatedAt = s.now()
	return item.QuantityOnHand, nil
}

// CreateItem stores a new item and assigns its id
func (s *Store) CreateItem(ctx context.Context, item *domain.Item) error {
	if err := ctx.Err(); err != nil {
		return domain.StorageUnavailable("create item", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextItemID++
	item.ID = s.nextItemID
	now := s.now()
	item.CreatedAt, item.UpdatedAt = now, now

	stored := *item
	s.items[item.ID] = &stored
	return nil
}

// GetItem returns a copy of the item
func (s *Store) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StorageUnavailable("get item", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return nil, domain.NewNotFound("item", itemID)
	}
	found := *item
	return &found, nil
}

// UpdateItem replaces the descriptive fields and price. Stock only changes
// through Restock and Deduct.
func (s *Store) UpdateItem(ctx context.Context, item *domain.Item) error {
	if err := ctx.Err(); err != nil {
		return domain.StorageUnavailable("update item", err)
	}

	unlock := s.locks.acquire(itemKey(item.ID), false)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[item.ID]
	if !ok {
		return domain.NewNotFound("item", item.ID)
	}
	current.Name = item.Name
	current.Description = item.Description
	current.UnitPrice = item.UnitPrice
	current.Manufacturer = item.Manufacturer
	current.ExpiryDate = item.ExpiryDate
	current.UpdatedAt = s.now()

	*item = *current
	return nil
}

// DeleteItem removes an item that no sale line references
func (s *Store) DeleteItem(ctx context.Context, itemID int64) error {
	if err := ctx.Err(); err != nil {
		return domain.StorageUnavailable("delete item", err)
	}

	unlock := s.locks.acquire(itemKey(itemID), false)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		return domain.NewNotFound("item", itemID)
	}
	for _, sale := range s.sales {
		for _, line := range sale.Lines {
			if line.ItemID == itemID {
				return fmt.Errorf("%w: item %d is referenced by sale %d",
					domain.ErrReferentialConflict, itemID, sale.ID)
			}
		}
	}
	delete(s.items, itemID)
	return nil
}

// ListItems filters, sorts and pages the items
func (s *Store) ListItems(ctx context.Context, filter ports.ItemFilter) (*ports.ItemPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StorageUnavailable("list items", err)
	}
	filter.Normalize()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	s.mu.RLock()
	matched := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if filter.InStockOnly && item.QuantityOnHand <= 0 {
			continue
		}
		if search != "" && !itemMatches(item, search) {
			continue
		}
		matched = append(matched, *item)
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b domain.Item) int {
		c := compareItems(a, b, filter.SortBy)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if filter.SortOrder == "desc" {
			return -c
		}
		return c
	})

	total := int64(len(matched))
	start := min((filter.Page-1)*filter.PageSize, len(matched))
	end := min(start+filter.PageSize, len(matched))

	return &ports.ItemPage{
		Items:      matched[start:end],
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
		TotalPages: ports.TotalPages(total, filter.PageSize),
	}, nil
}

func itemMatches(item *domain.Item, search string) bool {
	return strings.Contains(strings.ToLower(item.Name), search) ||
		strings.Contains(strings.ToLower(item.Description), search) ||
		strings.Contains(strings.ToLower(item.Manufacturer), search)
}

func compareItems(a, b domain.Item, column string) int {
	switch column {
	case "item_id":
		return cmp.Compare(a.ID, b.ID)
	case "unit_price":
		return a.UnitPrice.Cmp(b.UnitPrice)
	case "quantity_on_hand":
		return cmp.Compare(a.QuantityOnHand, b.QuantityOnHand)
	case "expiry_date":
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return 0
		case a.ExpiryDate == nil:
			return 1
		case b.ExpiryDate == nil:
			return -1
		}
		return a.ExpiryDate.Compare(*b.ExpiryDate)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}
