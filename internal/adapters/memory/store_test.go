package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/pharmacy-pos/internal/adapters/memory"
	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/test/helpers"
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	return memory.NewStore(helpers.TestLogger())
}

func seedItem(t *testing.T, s *memory.Store, name, price string, qty int) *domain.Item {
	t.Helper()
	item := helpers.CreateTestItem(func(i *domain.Item) {
		i.Name = name
		i.UnitPrice = decimal.RequireFromString(price)
		i.QuantityOnHand = qty
	})
	require.NoError(t, s.CreateItem(context.Background(), item))
	return item
}

func seedCustomer(t *testing.T, s *memory.Store, phone string) *domain.Customer {
	t.Helper()
	c := helpers.CreateTestCustomer(func(c *domain.Customer) { c.Phone = phone })
	require.NoError(t, s.Create(context.Background(), c))
	return c
}

// sell deducts and records one line inside a sale transaction
func sell(ctx context.Context, s *memory.Store, phone string, itemID int64, qty int) (*domain.Sale, error) {
	var sale *domain.Sale
	err := s.WithinSaleTx(ctx, func(ctx context.Context, tx ports.SaleTx) error {
		if _, err := tx.LockCustomer(ctx, phone); err != nil {
			return err
		}
		levels, err := tx.LockItems(ctx, []int64{itemID})
		if err != nil {
			return err
		}
		if _, err := tx.Deduct(ctx, itemID, qty); err != nil {
			return err
		}
		sale, err = tx.AppendSale(ctx, domain.SaleDraft{
			CustomerPhone: phone,
			OperatorID:    "op-1",
			Lines:         []domain.SaleLine{{ItemID: itemID, Quantity: qty, UnitPrice: levels[itemID].UnitPrice}},
		})
		return err
	})
	return sale, err
}

func TestStore_Deduct(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		quantity  int
		missing   bool
		wantLeft  int
		wantErr   error
		wantStock int
	}{
		{name: "within_stock", stock: 10, quantity: 3, wantLeft: 7, wantStock: 7},
		{name: "exact_stock", stock: 3, quantity: 3, wantLeft: 0, wantStock: 0},
		{name: "beyond_stock", stock: 2, quantity: 3, wantErr: domain.ErrInsufficientStock, wantStock: 2},
		{name: "zero_quantity", stock: 2, quantity: 0, wantErr: domain.ErrInvalidQuantity, wantStock: 2},
		{name: "missing_item", missing: true, quantity: 1, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			item := seedItem(t, s, "Aspirin", "1.00", tt.stock)
			id := item.ID
			if tt.missing {
				id += 100
			}

			left, err := s.Deduct(ctx, id, tt.quantity)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantLeft, left)
			}

			if !tt.missing {
				level, err := s.GetStock(ctx, item.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.wantStock, level.QuantityOnHand)
			}
		})
	}
}

func TestStore_InsufficientStockDetails(t *testing.T) {
	s := newStore(t)
	item := seedItem(t, s, "Aspirin", "1.00", 2)

	_, err := s.Deduct(context.Background(), item.ID, 5)

	var short *domain.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, item.ID, short.ItemID)
	assert.Equal(t, 5, short.Requested)
	assert.Equal(t, 2, short.Available)
}

func TestStore_Restock(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	item := seedItem(t, s, "Aspirin", "1.00", 2)

	qty, err := s.Restock(ctx, item.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)

	_, err = s.Restock(ctx, item.ID, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = s.Restock(ctx, item.ID+1, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SaleCommits(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	item := seedItem(t, s, "Amoxicillin", "12.40", 10)
	customer := seedCustomer(t, s, "5550100")

	sale, err := sell(ctx, s, customer.Phone, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sale.ID)
	assert.True(t, decimal.RequireFromString("49.60").Equal(sale.Total))
	assert.Equal(t, customer.Name, sale.CustomerName)
	require.Len(t, sale.Lines, 1)
	assert.Equal(t, 1, sale.Lines[0].LineNo)
	assert.Equal(t, "Amoxicillin", sale.Lines[0].ItemName)

	level, err := s.GetStock(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, level.QuantityOnHand)
}

func TestStore_SaleRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	item := seedItem(t, s, "Cetirizine", "5.00", 5)
	seedCustomer(t, s, "5550101")
	boom := errors.New("boom")

	err := s.WithinSaleTx(ctx, func(ctx context.Context, tx ports.SaleTx) error {
		if _, err := tx.LockItems(ctx, []int64{item.ID}); err != nil {
			return err
		}
		if _, err := tx.Deduct(ctx, item.ID, 3); err != nil {
			return err
		}
		if _, err := tx.AppendSale(ctx, domain.SaleDraft{
			CustomerPhone: "5550101",
			OperatorID:    "op-1",
			Lines:         []domain.SaleLine{{ItemID: item.ID, Quantity: 3, UnitPrice: decimal.NewFromInt(5)}},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	level, err := s.GetStock(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, level.QuantityOnHand)

	sales, err := s.ListSales(ctx, ports.SaleFilter{})
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.Equal(t, 0, s.Health(ctx)["locks"])
}

func TestStore_SaleRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	item := seedItem(t, s, "Cetirizine", "5.00", 5)

	assert.Panics(t, func() {
		_ = s.WithinSaleTx(ctx, func(ctx context.Context, tx ports.SaleTx) error {
			if _, err := tx.Deduct(ctx, item.ID, 2); err != nil {
				return err
			}
			panic("ledger exploded")
		})
	})

	level, err := s.GetStock(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, level.QuantityOnHand)

	// locks were released, so a new sale can proceed
	_, err = s.Deduct(ctx, item.ID, 1)
	assert.NoError(t, err)
}

func TestStore_StagedDeductsAccumulate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	item := seedItem(t, s, "Zinc", "2.00", 5)

	err := s.WithinSaleTx(ctx, func(ctx context.Context, tx ports.SaleTx) error {
		if _, err := tx.Deduct(ctx, item.ID, 3); err != nil {
			return err
		}
		levels, err := tx.LockItems(ctx, []int64{item.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, levels[item.ID].QuantityOnHand)

		_, err = tx.Deduct(ctx, item.ID, 3)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	level, err := s.GetStock(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, level.QuantityOnHand)
}

func TestStore_SaleKeepsPriceAtTimeOfSale(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	item := seedItem(t, s, "Omeprazole", "8.00", 10)
	seedCustomer(t, s, "5550102")

	sale, err := sell(ctx, s, "5550102", item.ID, 2)
	require.NoError(t, err)

	item.UnitPrice = decimal.RequireFromString("9.50")
	require.NoError(t, s.UpdateItem(ctx, item))

	stored, err := s.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("8.00").Equal(stored.Lines[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("16.00").Equal(stored.Total))
}

func TestStore_UpdateItemKeepsStock(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	item := seedItem(t, s, "Omeprazole", "8.00", 10)

	item.QuantityOnHand = 500
	item.Name = "Omeprazole 20mg"
	require.NoError(t, s.UpdateItem(ctx, item))
	assert.Equal(t, 10, item.QuantityOnHand)
	assert.Equal(t, "Omeprazole 20mg", item.Name)

	missing := helpers.CreateTestItem(func(i *domain.Item) { i.ID = 999 })
	assert.ErrorIs(t, s.UpdateItem(ctx, missing), domain.ErrNotFound)
}

func TestStore_UnknownCustomerRejected(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	item := seedItem(t, s, "Loratadine", "6.00", 10)

	_, err := sell(ctx, s, "5550199", item.ID, 1)
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "customer", nf.Entity)

	level, err := s.GetStock(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, level.QuantityOnHand)
}

func TestStore_ReferentialGuards(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	item := seedItem(t, s, "Loratadine", "6.00", 10)
	customer := seedCustomer(t, s, "5550103")
	_, err := sell(ctx, s, customer.Phone, item.ID, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteItem(ctx, item.ID), domain.ErrReferentialConflict)
	assert.ErrorIs(t, s.Delete(ctx, customer.ID), domain.ErrReferentialConflict)

	renamed := *customer
	renamed.Phone = "5550999"
	assert.ErrorIs(t, s.Update(ctx, &renamed), domain.ErrReferentialConflict)

	renamed = *customer
	renamed.Name = "New Name"
	require.NoError(t, s.Update(ctx, &renamed))

	other := seedCustomer(t, s, "5550104")
	other.Phone = customer.Phone
	assert.ErrorIs(t, s.Update(ctx, other), domain.ErrAlreadyExists)

	unsold := seedItem(t, s, "Unsold", "1.00", 1)
	assert.NoError(t, s.DeleteItem(ctx, unsold.ID))
	lonely := seedCustomer(t, s, "5550105")
	assert.NoError(t, s.Delete(ctx, lonely.ID))
	assert.ErrorIs(t, s.Delete(ctx, lonely.ID), domain.ErrNotFound)
}

func TestStore_DuplicatePhone(t *testing.T) {
	s := newStore(t)
	seedCustomer(t, s, "5550106")

	dup := helpers.CreateTestCustomer(func(c *domain.Customer) { c.Phone = "5550106" })
	assert.ErrorIs(t, s.Create(context.Background(), dup), domain.ErrAlreadyExists)
}

func TestStore_ListSalesByCustomer(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	s := memory.NewStore(helpers.TestLogger(), memory.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}))

	item := seedItem(t, s, "Vitamin C", "3.00", 50)
	seedCustomer(t, s, "5550107")
	seedCustomer(t, s, "5550108")
	for range 3 {
		_, err := sell(ctx, s, "5550107", item.ID, 1)
		require.NoError(t, err)
	}
	_, err := sell(ctx, s, "5550108", item.ID, 1)
	require.NoError(t, err)

	var ids []int64
	for summary, err := range s.ListSalesByCustomer(ctx, "5550107") {
		require.NoError(t, err)
		ids = append(ids, summary.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)

	seen := 0
	for range s.ListSalesByCustomer(ctx, "5550107") {
		seen++
		break
	}
	assert.Equal(t, 1, seen)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	for _, err := range s.ListSalesByCustomer(cancelled, "5550107") {
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	}

	from := base.Add(3 * time.Minute)
	ranged, err := s.ListSales(ctx, ports.SaleFilter{From: &from, Limit: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, ranged)
	for _, sale := range ranged {
		assert.False(t, sale.CreatedAt.Before(from))
	}
}

func TestStore_ListItems(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "Vitamin B", "4.00", 0)
	seedItem(t, s, "vitamin A", "9.00", 3)
	seedItem(t, s, "Aspirin", "1.00", 7)

	page, err := s.ListItems(ctx, ports.ItemFilter{Search: "VITAMIN"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "vitamin A", page.Items[0].Name)

	page, err = s.ListItems(ctx, ports.ItemFilter{InStockOnly: true, SortBy: "unit_price", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "vitamin A", page.Items[0].Name)

	page, err = s.ListItems(ctx, ports.ItemFilter{PageSize: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Vitamin B", page.Items[0].Name)

	page, err = s.ListItems(ctx, ports.ItemFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestStore_Reports(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "Plenty", "1.00", 100)
	low := seedItem(t, s, "Low", "1.00", 4)
	seedItem(t, s, "Empty", "1.00", 0)
	customer := seedCustomer(t, s, "5550109")
	_, err := sell(ctx, s, customer.Phone, low.ID, 1)
	require.NoError(t, err)

	items, err := s.LowStockItems(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Empty", items[0].Name)
	assert.Equal(t, 3, items[1].QuantityOnHand)

	n, err := s.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	history, err := s.PurchaseHistory(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, history.SaleCount)
	assert.Equal(t, customer.Phone, history.Customer.Phone)

	_, err = s.PurchaseHistory(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ConcurrentSalesNeverOversell(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	item := seedItem(t, s, "Insulin Pen", "30.00", 5)
	seedCustomer(t, s, "5550110")

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sell(ctx, s, "5550110", item.ID, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, short int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			short++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, 45, short)

	level, err := s.GetStock(ctx, item.ID)
	require.NoError(t, err)
	assert.Zero(t, level.QuantityOnHand)
	assert.Equal(t, 0, s.Health(ctx)["locks"])
}

func TestStore_OppositeLockOrderDoesNotDeadlock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := newStore(t)
	a := seedItem(t, s, "A", "1.00", 1000)
	b := seedItem(t, s, "B", "1.00", 1000)

	var wg sync.WaitGroup
	for i := range 40 {
		ids := []int64{a.ID, b.ID}
		if i%2 == 1 {
			ids = []int64{b.ID, a.ID}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinSaleTx(ctx, func(ctx context.Context, tx ports.SaleTx) error {
				if _, err := tx.LockItems(ctx, ids); err != nil {
					return err
				}
				for _, id := range ids {
					if _, err := tx.Deduct(ctx, id, 1); err != nil {
						return err
					}
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("sale transactions deadlocked")
	}

	level, err := s.GetStock(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 960, level.QuantityOnHand)
}

func TestStore_CancelledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetItem(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	err = s.WithinSaleTx(ctx, func(context.Context, ports.SaleTx) error { return nil })
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Error(t, s.Ping(ctx))
}
