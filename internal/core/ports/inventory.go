// internal/core/ports/inventory.go
package ports

import (
	"context"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
)

// InventoryStore is the persistence port for items and their stock levels.
// Restock and Deduct are single atomic steps relative to every other stock
// change on the same item.
type InventoryStore interface {
	GetStock(ctx context.Context, itemID int64) (domain.StockLevel, error)
	Restock(ctx context.Context, itemID int64, delta int) (int, error)
	Deduct(ctx context.Context, itemID int64, quantity int) (int, error)

	CreateItem(ctx context.Context, item *domain.Item) error
	GetItem(ctx context.Context, itemID int64) (*domain.Item, error)
	UpdateItem(ctx context.Context, item *domain.Item) error
	DeleteItem(ctx context.Context, itemID int64) error
	ListItems(ctx context.Context, filter ItemFilter) (*ItemPage, error)
}

// ItemFilter holds parameters for listing items
type ItemFilter struct {
	Search      string
	InStockOnly bool
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// ItemPage holds one page of items
type ItemPage struct {
	Items      []domain.Item `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}

// ItemSortColumns lists the columns items may be sorted by
var ItemSortColumns = map[string]bool{
	"item_id":          true,
	"name":             true,
	"unit_price":       true,
	"quantity_on_hand": true,
	"expiry_date":      true,
	"created_at":       true,
}

// Normalize fills defaults and clamps paging values
func (f *ItemFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 50
	}
	if f.PageSize > 500 {
		f.PageSize = 500
	}
	if !ItemSortColumns[f.SortBy] {
		f.SortBy = "name"
	}
	if f.SortOrder != "desc" {
		f.SortOrder = "asc"
	}
}

// TotalPages returns the number of pages for count rows of the given size
func TotalPages(count int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((count + int64(pageSize) - 1) / int64(pageSize))
}
