// internal/core/services/sales.go
package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// SaleCoordinator commits sales atomically across inventory and ledger
type SaleCoordinator struct {
	transactor  ports.SaleTransactor
	ledger      ports.SaleLedger
	customers   ports.CustomerRepository
	idempotency ports.IdempotencyStore
	events      ports.SaleEventPublisher
	cache       ports.CacheRepository
	opts        SaleOptions
	logger      *slog.Logger
}

// Statically assert that *SaleCoordinator implements the SaleService interface.
var _ ports.SaleService = (*SaleCoordinator)(nil)

// SaleOptions tunes the coordinator
type SaleOptions struct {
	// IdempotencyTTL is how long a committed sale stays bound to its key
	IdempotencyTTL time.Duration
	// PendingKeyTTL is how long a claimed key blocks duplicates before the
	// sale is bound to it. It must outlast a sale transaction.
	PendingKeyTTL time.Duration
	// PostCommitTimeout bounds the side effects run after a commit
	PostCommitTimeout time.Duration
}

// SaleDeps groups the optional collaborators of the coordinator. Any of them
// may be nil.
type SaleDeps struct {
	Idempotency ports.IdempotencyStore
	Events      ports.SaleEventPublisher
	Cache       ports.CacheRepository
}

// NewSaleCoordinator creates a new sale coordinator
func NewSaleCoordinator(
	transactor ports.SaleTransactor,
	ledger ports.SaleLedger,
	customers ports.CustomerRepository,
	deps SaleDeps,
	opts SaleOptions,
	logger *slog.Logger,
) *SaleCoordinator {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	if opts.PostCommitTimeout <= 0 {
		opts.PostCommitTimeout = 5 * time.Second
	}
	if opts.PendingKeyTTL <= 0 {
		opts.PendingKeyTTL = 2 * time.Minute
	}
	opts.PendingKeyTTL = min(opts.PendingKeyTTL, opts.IdempotencyTTL)
	return &SaleCoordinator{
		transactor:  transactor,
		ledger:      ledger,
		customers:   customers,
		idempotency: deps.Idempotency,
		events:      deps.Events,
		cache:       deps.Cache,
		opts:        opts,
		logger:      logger.With(slog.String("service", "sales")),
	}
}

// SubmitSale validates the request, then deducts stock and records the sale in
// one transaction. Prices are read from the locked item rows.
func (s *SaleCoordinator) SubmitSale(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		saleID, claimed, err := s.idempotency.Claim(ctx, req.IdempotencyKey, s.opts.PendingKeyTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		if !claimed {
			s.logger.InfoContext(ctx, "replaying committed sale",
				slog.Int64("sale_id", saleID))
			return s.ledger.GetSale(ctx, saleID)
		}
	}

	sale, changes, err := s.commit(ctx, req)
	if err != nil {
		s.releaseKey(req.IdempotencyKey)
		s.logFailure(ctx, req, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "sale committed",
		slog.Int64("sale_id", sale.ID),
		slog.String("operator_id", sale.OperatorID),
		slog.Int("line_count", len(sale.Lines)),
		slog.String("total", sale.Total.StringFixed(domain.CurrencyPlaces)))

	s.afterCommit(ctx, req.IdempotencyKey, sale, changes)
	return sale, nil
}

func (s *SaleCoordinator) commit(ctx context.Context, req domain.SaleRequest) (*domain.Sale, []domain.StockChange, error) {
	var (
		sale    *domain.Sale
		changes []domain.StockChange
	)

	err := s.transactor.WithinSaleTx(ctx, func(ctx context.Context, tx ports.SaleTx) error {
		sale, changes = nil, nil

		if _, err := tx.LockCustomer(ctx, req.CustomerPhone); err != nil {
			return err
		}

		itemIDs := req.ItemIDs()
		levels, err := tx.LockItems(ctx, itemIDs)
		if err != nil {
			return err
		}

		demand := req.Demand()
		for _, id := range itemIDs {
			level, ok := levels[id]
			if !ok {
				return domain.NewNotFound("item", id)
			}
			if level.QuantityOnHand < demand[id] {
				return &domain.InsufficientStockError{
					ItemID:    id,
					Requested: demand[id],
					Available: level.QuantityOnHand,
				}
			}
		}

		draft := domain.SaleDraft{
			CustomerPhone: req.CustomerPhone,
			OperatorID:    req.OperatorID,
			Lines:         make([]domain.SaleLine, 0, len(req.Lines)),
		}
		for _, line := range req.Lines {
			draft.Lines = append(draft.Lines, domain.SaleLine{
				ItemID:    line.ItemID,
				Quantity:  line.Quantity,
				UnitPrice: levels[line.ItemID].UnitPrice,
			})
		}

		for _, id := range itemIDs {
			remaining, err := tx.Deduct(ctx, id, demand[id])
			if err != nil {
				return err
			}
			changes = append(changes, domain.StockChange{
				ItemID:    id,
				Name:      levels[id].Name,
				Deducted:  demand[id],
				Remaining: remaining,
			})
		}

		sale, err = tx.AppendSale(ctx, draft)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return sale, changes, nil
}

// afterCommit runs best-effort side effects. Failures are logged and never
// undo the sale.
func (s *SaleCoordinator) afterCommit(ctx context.Context, key string, sale *domain.Sale, changes []domain.StockChange) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PostCommitTimeout)
	defer cancel()

	if key != "" && s.idempotency != nil {
		if err := s.idempotency.Complete(ctx, key, sale.ID, s.opts.IdempotencyTTL); err != nil {
			s.logger.WarnContext(ctx, "failed to bind idempotency key",
				slog.Int64("sale_id", sale.ID),
				slog.String("error", err.Error()))
		}
	}

	invalidateAggregates(ctx, s.cache, s.logger)

	if s.events != nil {
		event := domain.SaleCommitted{
			SaleID:        sale.ID,
			CustomerPhone: sale.CustomerPhone,
			OperatorID:    sale.OperatorID,
			Total:         sale.Total,
			CommittedAt:   sale.CreatedAt,
			StockChanges:  changes,
		}
		if err := s.events.PublishSaleCommitted(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish sale event",
				slog.Int64("sale_id", sale.ID),
				slog.String("error", err.Error()))
		}
	}
}

func (s *SaleCoordinator) releaseKey(key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.PostCommitTimeout)
	defer cancel()
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to release idempotency key",
			slog.String("error", err.Error()))
	}
}

func (s *SaleCoordinator) logFailure(ctx context.Context, req domain.SaleRequest, err error) {
	attrs := []any{
		slog.String("operator_id", req.OperatorID),
		slog.Int("line_count", len(req.Lines)),
		slog.String("error", err.Error()),
	}

	var short *domain.InsufficientStockError
	switch {
	case errors.As(err, &short):
		s.logger.InfoContext(ctx, "sale rejected: insufficient stock",
			append(attrs,
				slog.Int64("item_id", short.ItemID),
				slog.Int("requested", short.Requested),
				slog.Int("available", short.Available))...)
	case errors.Is(err, domain.ErrNotFound):
		s.logger.InfoContext(ctx, "sale rejected: unknown reference", attrs...)
	default:
		s.logger.ErrorContext(ctx, "sale failed", attrs...)
	}
}

// GetSale returns a committed sale
func (s *SaleCoordinator) GetSale(ctx context.Context, saleID int64) (*domain.Sale, error) {
	sale, err := s.ledger.GetSale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

// GetInvoice returns the sale with its customer's contact details
func (s *SaleCoordinator) GetInvoice(ctx context.Context, saleID int64) (*domain.Invoice, error) {
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.GetByPhone(ctx, sale.CustomerPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice customer: %w", err)
	}

	return &domain.Invoice{Sale: sale, Customer: customer}, nil
}

// ListSalesByCustomer streams the customer's sales, most recent first
func (s *SaleCoordinator) ListSalesByCustomer(ctx context.Context, phone string) iter.Seq2[domain.SaleSummary, error] {
	return s.ledger.ListSalesByCustomer(ctx, domain.NormalizePhone(phone))
}

// ListSales returns sales most recent first
func (s *SaleCoordinator) ListSales(ctx context.Context, filter ports.SaleFilter) ([]domain.SaleSummary, error) {
	sales, err := s.ledger.ListSales(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}
