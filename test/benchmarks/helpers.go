// test/benchmarks/helpers.go
package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/pharmacy-pos/internal/adapters/memory"
	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/services"
	"github.com/ammerola/pharmacy-pos/test/helpers"
)

// benchStack wires the services over the in-memory store
type benchStack struct {
	store     *memory.Store
	sales     *services.SaleCoordinator
	inventory *services.InventoryService
	itemIDs   []int64
	phone     string
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newBenchStack seeds numItems items, each stocked with stock units, and a
// single customer
func newBenchStack(b *testing.B, numItems, stock int) *benchStack {
	b.Helper()
	log := quietLogger()
	store := memory.NewStore(log)
	ctx := context.Background()

	stack := &benchStack{
		store:     store,
		sales:     services.NewSaleCoordinator(store, store, store, services.SaleDeps{}, services.SaleOptions{}, log),
		inventory: services.NewInventoryService(store, nil, log),
		phone:     "5550199",
	}

	customers := services.NewCustomerService(store, nil, log)
	if err := customers.CreateCustomer(ctx, helpers.CreateTestCustomer(func(c *domain.Customer) {
		c.Phone = stack.phone
	})); err != nil {
		b.Fatalf("seed customer: %v", err)
	}

	for i := range numItems {
		item := helpers.CreateTestItem(func(it *domain.Item) {
			it.Name = fmt.Sprintf("Bench Medicine %04d", i)
			it.UnitPrice = decimal.New(int64(100+i), -2)
			it.QuantityOnHand = stock
		})
		if err := stack.inventory.CreateItem(ctx, item); err != nil {
			b.Fatalf("seed item: %v", err)
		}
		stack.itemIDs = append(stack.itemIDs, item.ID)
	}
	return stack
}

// saleRequest builds a sale with lineCount single-unit lines starting at
// item offset
func (s *benchStack) saleRequest(offset, lineCount int) domain.SaleRequest {
	lines := make([]domain.LineRequest, lineCount)
	for i := range lines {
		lines[i] = domain.LineRequest{ItemID: s.itemIDs[(offset+i)%len(s.itemIDs)], Quantity: 1}
	}
	return domain.SaleRequest{CustomerPhone: s.phone, OperatorID: "bench", Lines: lines}
}

// deliveryNoteText simulates the extracted text of a supplier delivery note
func deliveryNoteText(numLines int) []string {
	text := []string{
		"ACME WHOLESALE PHARMA",
		"Delivery note DN-2026-0042",
		"Item ID   Description                 Qty",
	}
	names := []string{
		"Paracetamol 500mg tablets",
		"Ibuprofen 400mg tablets",
		"Amoxicillin 250mg capsules",
		"Cetirizine 10mg tablets",
		"Oral rehydration salts",
	}
	for i := range numLines {
		text = append(text, fmt.Sprintf("#%d   %s   %d units", i+1, names[i%len(names)], 10+i%90))
	}
	return append(text, "Total "+strings.Repeat("=", 10), "Received by ____________")
}

func benchSummaries(n int) []domain.SaleSummary {
	now := time.Now().UTC()
	out := make([]domain.SaleSummary, n)
	for i := range out {
		out[i] = domain.SaleSummary{
			ID:            int64(i + 1),
			CustomerPhone: "5550100",
			CustomerName:  "Bench Customer",
			OperatorID:    "bench",
			CreatedAt:     now.Add(-time.Duration(i) * time.Minute),
			Total:         decimal.New(int64(999+i), -2),
			LineCount:     1 + i%5,
		}
	}
	return out
}
