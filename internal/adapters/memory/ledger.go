// internal/adapters/memory/ledger.go
package memory

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// WithinSaleTx runs fn with a transaction handle. Locks taken through the
// handle are held until fn returns; staged writes are applied only when fn
// returns nil.
func (s *Store) WithinSaleTx(ctx context.Context, fn func(ctx context.Context, tx ports.SaleTx) error) error {
	if err := ctx.Err(); err != nil {
		return domain.StorageUnavailable("begin sale transaction", err)
	}

	tx := &saleTx{
		store:  s,
		items:  make(map[int64]bool),
		stock:  make(map[int64]int),
		unlock: make([]func(), 0, 4),
	}
	defer tx.release()

	defer func() {
		if p := recover(); p != nil {
			s.logger.Warn("sale transaction rolled back after panic")
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domain.StorageUnavailable("commit sale transaction", err)
	}

	tx.commit()
	return nil
}

type saleTx struct {
	store    *Store
	customer string
	items    map[int64]bool
	stock    map[int64]int
	sales    []*domain.Sale
	unlock   []func()
}

func (tx *saleTx) release() {
	for i := len(tx.unlock) - 1; i >= 0; i-- {
		tx.unlock[i]()
	}
	tx.unlock = nil
}

func (tx *saleTx) commit() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, qty := range tx.stock {
		if item, ok := s.items[id]; ok {
			item.QuantityOnHand = qty
			item.UpdatedAt = now
		}
	}
	s.sales = append(s.sales, tx.sales...)
}

// LockCustomer takes a shared lock on the customer phone
func (tx *saleTx) LockCustomer(ctx context.Context, phone string) (*domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StorageUnavailable("lock customer", err)
	}
	if tx.customer != phone {
		tx.unlock = append(tx.unlock, tx.store.locks.acquire(customerKey(phone), true))
		tx.customer = phone
	}

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	return tx.store.customerByPhoneLocked(phone)
}

// LockItems takes exclusive item locks in ascending id order
func (tx *saleTx) LockItems(ctx context.Context, itemIDs []int64) (map[int64]domain.StockLevel, error) {
	ids := slices.Clone(itemIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, domain.StorageUnavailable("lock items", err)
		}
		if tx.items[id] {
			continue
		}
		tx.unlock = append(tx.unlock, tx.store.locks.acquire(itemKey(id), false))
		tx.items[id] = true
	}

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	levels := make(map[int64]domain.StockLevel, len(ids))
	for _, id := range ids {
		item, ok := tx.store.items[id]
		if !ok {
			return nil, domain.NewNotFound("item", id)
		}
		level := item.Stock()
		if qty, staged := tx.stock[id]; staged {
			level.QuantityOnHand = qty
		}
		levels[id] = level
	}
	return levels, nil
}

// Deduct stages a conditional decrement on a locked item
func (tx *saleTx) Deduct(ctx context.Context, itemID int64, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: deduct quantity must be positive, got %d", domain.ErrInvalidQuantity, quantity)
	}
	if !tx.items[itemID] {
		if _, err := tx.LockItems(ctx, []int64{itemID}); err != nil {
			return 0, err
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, domain.StorageUnavailable("deduct", err)
	}

	available, staged := tx.stock[itemID]
	if !staged {
		tx.store.mu.RLock()
		item, ok := tx.store.items[itemID]
		if ok {
			available = item.QuantityOnHand
		}
		tx.store.mu.RUnlock()
		if !ok {
			return 0, domain.NewNotFound("item", itemID)
		}
	}

	if available < quantity {
		return 0, &domain.InsufficientStockError{ItemID: itemID, Requested: quantity, Available: available}
	}
	tx.stock[itemID] = available - quantity
	return available - quantity, nil
}

// AppendSale stages the sale header and lines and assigns the sale id
func (tx *saleTx) AppendSale(ctx context.Context, draft domain.SaleDraft) (*domain.Sale, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.StorageUnavailable("append sale", err)
	}

	customer, err := tx.LockCustomer(ctx, draft.CustomerPhone)
	if err != nil {
		return nil, err
	}

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]domain.SaleLine, len(draft.Lines))
	for i, line := range draft.Lines {
		item, ok := s.items[line.ItemID]
		if !ok {
			return nil, domain.NewNotFound("item", line.ItemID)
		}
		line.LineNo = i + 1
		line.UnitPrice = line.UnitPrice.Round(domain.CurrencyPlaces)
		line.ItemName = item.Name
		line.Manufacturer = item.Manufacturer
		lines[i] = line
	}

	s.nextSaleID++
	sale := &domain.Sale{
		ID:            s.nextSaleID,
		CustomerPhone: customer.Phone,
		CustomerName:  customer.Name,
		OperatorID:    draft.OperatorID,
		CreatedAt:     s.now(),
		Lines:         lines,
	}
	sale.Total = domain.ComputeTotal(lines)

	tx.sales = append(tx.sales, sale)
	return cloneSale(sale), nil
}

// CreateSale appends a priced sale without touching stock
func (s *Store) CreateSale(ctx context.Context, draft domain.SaleDraft) (int64, error) {
	if err := draft.Validate(); err != nil {
		return 0, err
	}

	var saleID int64
	err := s.WithinSaleTx(ctx, func(ctx context.Context, tx ports.SaleTx) error {
		ids := make([]int64, 0, len(draft.Lines))
		for _, line := range draft.Lines {
			ids = append(ids, line.ItemID)
		}
		if _, err := tx.LockCustomer(ctx, draft.CustomerPhone); err != nil {
			return err
		}
		if _, err := tx.LockItems(ctx, ids); err != nil {
			return err
		}
		sale, err := tx.AppendSale(ctx, draft)
		if err != nil {
			return err
		}
		saleID = sale.ID
		return nil
	})
	return saleID, err
}

// GetSale returns a sale with its ordered lines
func (s *Store) GetSale(ctx context.Context, saleID int64) (*domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StorageUnavailable("get sale", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sale := range s.sales {
		if sale.ID == saleID {
			found := cloneSale(sale)
			found.CustomerName = s.customerNameLocked(sale.CustomerPhone)
			return found, nil
		}
	}
	return nil, domain.NewNotFound("sale", saleID)
}

// ListSalesByCustomer yields the customer's sales, most recent first. The
// snapshot is taken when iteration starts.
func (s *Store) ListSalesByCustomer(ctx context.Context, phone string) iter.Seq2[domain.SaleSummary, error] {
	return func(yield func(domain.SaleSummary, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(domain.SaleSummary{}, domain.StorageUnavailable("list customer sales", err))
			return
		}

		summaries := s.summaries(func(sale *domain.Sale) bool {
			return sale.CustomerPhone == phone
		})
		for _, summary := range summaries {
			if err := ctx.Err(); err != nil {
				yield(domain.SaleSummary{}, domain.StorageUnavailable("list customer sales", err))
				return
			}
			if !yield(summary, nil) {
				return
			}
		}
	}
}

// ListSales returns sales in the optional time range, most recent first
func (s *Store) ListSales(ctx context.Context, filter ports.SaleFilter) ([]domain.SaleSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StorageUnavailable("list sales", err)
	}

	summaries := s.summaries(func(sale *domain.Sale) bool {
		if filter.From != nil && sale.CreatedAt.Before(*filter.From) {
			return false
		}
		if filter.To != nil && !sale.CreatedAt.Before(*filter.To) {
			return false
		}
		return true
	})
	if filter.Limit > 0 && len(summaries) > filter.Limit {
		summaries = summaries[:filter.Limit]
	}
	return summaries, nil
}

func (s *Store) summaries(keep func(*domain.Sale) bool) []domain.SaleSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SaleSummary, 0)
	for _, sale := range s.sales {
		if !keep(sale) {
			continue
		}
		summary := sale.Summary()
		summary.CustomerName = s.customerNameLocked(sale.CustomerPhone)
		out = append(out, summary)
	}
	slices.SortFunc(out, func(a, b domain.SaleSummary) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return out
}

func (s *Store) customerNameLocked(phone string) string {
	if id, ok := s.phones[phone]; ok {
		return s.customers[id].Name
	}
	return ""
}

func cloneSale(sale *domain.Sale) *domain.Sale {
	c := *sale
	c.Lines = slices.Clone(sale.Lines)
	return &c
}
