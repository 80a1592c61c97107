// internal/core/ports/sales.go
package ports

import (
	"context"
	"iter"
	"time"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
)

// SaleLedger is the append-only store of sale headers and lines
type SaleLedger interface {
	CreateSale(ctx context.Context, draft domain.SaleDraft) (int64, error)
	GetSale(ctx context.Context, saleID int64) (*domain.Sale, error)
	// ListSalesByCustomer yields the customer's sales, most recent first.
	// Rows are read as the caller iterates; stopping early releases them.
	ListSalesByCustomer(ctx context.Context, phone string) iter.Seq2[domain.SaleSummary, error]
	ListSales(ctx context.Context, filter SaleFilter) ([]domain.SaleSummary, error)
}

// SaleFilter holds parameters for listing sales
type SaleFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// SaleTx is the storage handle scoped to one sale transaction. Locks taken
// through it are held until the transaction ends.
type SaleTx interface {
	// LockCustomer share-locks the customer so it cannot be deleted or
	// re-keyed before the transaction ends.
	LockCustomer(ctx context.Context, phone string) (*domain.Customer, error)
	// LockItems exclusively locks the items in ascending id order and returns
	// their current price and stock.
	LockItems(ctx context.Context, itemIDs []int64) (map[int64]domain.StockLevel, error)
	Deduct(ctx context.Context, itemID int64, quantity int) (int, error)
	AppendSale(ctx context.Context, draft domain.SaleDraft) (*domain.Sale, error)
}

// SaleTransactor runs fn inside one storage transaction. A nil return commits;
// any error or panic rolls everything back.
type SaleTransactor interface {
	WithinSaleTx(ctx context.Context, fn func(ctx context.Context, tx SaleTx) error) error
}

// IdempotencyStore deduplicates sale submissions carrying a client key
type IdempotencyStore interface {
	// Claim reserves key. It returns claimed=true for a fresh key, the bound
	// sale id for a completed key, and domain.ErrDuplicateRequest while
	// another submission holds the key.
	Claim(ctx context.Context, key string, ttl time.Duration) (saleID int64, claimed bool, err error)
	Complete(ctx context.Context, key string, saleID int64, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// SaleEventPublisher hands committed sales to background processing
type SaleEventPublisher interface {
	PublishSaleCommitted(ctx context.Context, event domain.SaleCommitted) error
}
