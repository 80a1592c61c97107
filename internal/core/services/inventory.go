// internal/core/services/inventory.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// InventoryService handles item records and stock changes outside of sales
type InventoryService struct {
	store  ports.InventoryStore
	cache  ports.CacheRepository
	logger *slog.Logger
}

// Statically assert that *InventoryService implements the InventoryService interface.
var _ ports.InventoryService = (*InventoryService)(nil)

// NewInventoryService creates a new inventory service. cache may be nil.
func NewInventoryService(store ports.InventoryStore, cache ports.CacheRepository, logger *slog.Logger) *InventoryService {
	return &InventoryService{
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("service", "inventory")),
	}
}

// CreateItem validates and stores a new item
func (s *InventoryService) CreateItem(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	item.PrepareForStorage()

	if err := s.store.CreateItem(ctx, item); err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	s.logger.InfoContext(ctx, "created item",
		slog.Int64("item_id", item.ID),
		slog.String("name", item.Name),
		slog.Int("quantity_on_hand", item.QuantityOnHand))

	invalidateAggregates(ctx, s.cache, s.logger)
	return nil
}

// GetItem retrieves an item by id
func (s *InventoryService) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// UpdateItem replaces the descriptive fields and price of an item
func (s *InventoryService) UpdateItem(ctx context.Context, itemID int64, item *domain.Item) error {
	item.ID = itemID
	if err := item.Validate(); err != nil {
		return err
	}
	item.PrepareForStorage()

	if err := s.store.UpdateItem(ctx, item); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	s.logger.InfoContext(ctx, "updated item",
		slog.Int64("item_id", itemID),
		slog.String("unit_price", item.UnitPrice.StringFixed(domain.CurrencyPlaces)))

	invalidateAggregates(ctx, s.cache, s.logger)
	return nil
}

// DeleteItem removes an item that has never been sold
func (s *InventoryService) DeleteItem(ctx context.Context, itemID int64) error {
	if err := s.store.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	s.logger.InfoContext(ctx, "deleted item", slog.Int64("item_id", itemID))
	invalidateAggregates(ctx, s.cache, s.logger)
	return nil
}

// ListItems returns a page of items
func (s *InventoryService) ListItems(ctx context.Context, filter ports.ItemFilter) (*ports.ItemPage, error) {
	filter.Normalize()
	page, err := s.store.ListItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return page, nil
}

// SaleableItems returns every item with stock, ordered by name
func (s *InventoryService) SaleableItems(ctx context.Context) ([]domain.Item, error) {
	filter := ports.ItemFilter{InStockOnly: true, SortBy: "name", PageSize: 500}
	filter.Normalize()

	var items []domain.Item
	for {
		page, err := s.store.ListItems(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list saleable items: %w", err)
		}
		items = append(items, page.Items...)
		if filter.Page >= page.TotalPages || len(page.Items) == 0 {
			return items, nil
		}
		filter.Page++
	}
}

// GetStock returns the current price and quantity of an item
func (s *InventoryService) GetStock(ctx context.Context, itemID int64) (domain.StockLevel, error) {
	stock, err := s.store.GetStock(ctx, itemID)
	if err != nil {
		return domain.StockLevel{}, fmt.Errorf("failed to get stock: %w", err)
	}
	return stock, nil
}

// Restock adds delta units to an item
func (s *InventoryService) Restock(ctx context.Context, itemID int64, delta int) (int, error) {
	if delta <= 0 {
		return 0, fmt.Errorf("%w: restock quantity must be positive, got %d", domain.ErrInvalidQuantity, delta)
	}

	quantity, err := s.store.Restock(ctx, itemID, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to restock item: %w", err)
	}

	s.logger.InfoContext(ctx, "restocked item",
		slog.Int64("item_id", itemID),
		slog.Int("delta", delta),
		slog.Int("quantity_on_hand", quantity))

	invalidateAggregates(ctx, s.cache, s.logger)
	return quantity, nil
}
