// internal/adapters/db/report_store.go
package db

import (
	"context"
	"log/slog"

	"github.com/Masterminds/squirrel"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// ReportStore runs the dashboard and history queries
type ReportStore struct {
	db        *Database
	ledger    *SaleLedger
	customers *CustomerRepository
	logger    *slog.Logger
}

var _ ports.ReportStore = (*ReportStore)(nil)

// NewReportStore creates a new PostgreSQL report store
func NewReportStore(db *Database, logger *slog.Logger) *ReportStore {
	return &ReportStore{
		db:        db,
		ledger:    NewSaleLedger(db, logger),
		customers: NewCustomerRepository(db, logger),
		logger:    logger.With(slog.String("component", "report_store")),
	}
}

// CountItems returns the number of catalog items
func (s *ReportStore) CountItems(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, classify("count items", err)
	}
	return n, nil
}

// CountCustomers returns the number of customers
func (s *ReportStore) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return 0, classify("count customers", err)
	}
	return n, nil
}

// RecentSales returns the latest sales
func (s *ReportStore) RecentSales(ctx context.Context, limit int) ([]domain.SaleSummary, error) {
	return s.ledger.ListSales(ctx, ports.SaleFilter{Limit: limit})
}

// LowStockItems returns items whose stock is below threshold, scarcest first
func (s *ReportStore) LowStockItems(ctx context.Context, threshold, limit int) ([]domain.Item, error) {
	builder := squirrel.Select(itemColumns).
		From("items").
		Where(squirrel.Lt{"quantity_on_hand": threshold}).
		OrderBy("quantity_on_hand ASC", "lower(name) ASC", "item_id ASC").
		PlaceholderFormat(squirrel.Dollar)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("low stock items", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, classify("scan item", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("low stock items", err)
	}
	return items, nil
}

// PurchaseHistory returns a customer with all of their sales
func (s *ReportStore) PurchaseHistory(ctx context.Context, customerID int64) (*domain.PurchaseHistory, error) {
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	history := &domain.PurchaseHistory{
		Customer: customer,
		Sales:    make([]domain.SaleSummary, 0),
	}
	for summary, err := range s.ledger.ListSalesByCustomer(ctx, customer.Phone) {
		if err != nil {
			return nil, err
		}
		history.Sales = append(history.Sales, summary)
	}
	history.SaleCount = len(history.Sales)
	return history, nil
}
