// internal/adapters/db/sale_ledger.go
package db

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

const saleSummarySelect = `
	SELECT s.sale_id, s.customer_phone, COALESCE(c.name, ''), s.operator_id, s.created_at, s.total_amount,
	       (SELECT COUNT(*) FROM sale_lines l WHERE l.sale_id = s.sale_id)
	FROM sales s
	LEFT JOIN customers c ON c.phone = s.customer_phone`

// SaleLedger is the append-only PostgreSQL sale store. It also opens the
// transactions sales are committed in.
type SaleLedger struct {
	db     *Database
	logger *slog.Logger
}

var (
	_ ports.SaleLedger     = (*SaleLedger)(nil)
	_ ports.SaleTransactor = (*SaleLedger)(nil)
)

// NewSaleLedger creates a new PostgreSQL sale ledger
func NewSaleLedger(db *Database, logger *slog.Logger) *SaleLedger {
	return &SaleLedger{
		db:     db,
		logger: logger.With(slog.String("component", "sale_ledger")),
	}
}

// WithinSaleTx runs fn in a read committed transaction. Row locks taken
// through the handle are released at commit or rollback.
func (l *SaleLedger) WithinSaleTx(ctx context.Context, fn func(ctx context.Context, tx ports.SaleTx) error) error {
	err := l.db.TransactionWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &saleTx{tx: tx})
	})
	return classify("sale transaction", err)
}

// CreateSale appends a priced sale without touching stock
func (l *SaleLedger) CreateSale(ctx context.Context, draft domain.SaleDraft) (int64, error) {
	if err := draft.Validate(); err != nil {
		return 0, err
	}

	var saleID int64
	err := l.WithinSaleTx(ctx, func(ctx context.Context, tx ports.SaleTx) error {
		ids := make([]int64, 0, len(draft.Lines))
		for _, line := range draft.Lines {
			ids = append(ids, line.ItemID)
		}
		if _, err := tx.LockCustomer(ctx, domain.NormalizePhone(draft.CustomerPhone)); err != nil {
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

// GetSale returns a sale with its lines in line order
func (l *SaleLedger) GetSale(ctx context.Context, saleID int64) (*domain.Sale, error) {
	sale, err := getSale(ctx, l.db, saleID)
	if err != nil {
		return nil, classify("get sale", err)
	}
	return sale, nil
}

func getSale(ctx context.Context, q querier, saleID int64) (*domain.Sale, error) {
	var sale domain.Sale
	var lineCount int
	err := q.QueryRow(ctx, saleSummarySelect+` WHERE s.sale_id = $1`, saleID).Scan(
		&sale.ID, &sale.CustomerPhone, &sale.CustomerName, &sale.OperatorID,
		&sale.CreatedAt, &sale.Total, &lineCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("sale", saleID)
		}
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT l.line_no, l.item_id, l.quantity, l.unit_price, i.name, i.manufacturer
		FROM sale_lines l
		JOIN items i ON i.item_id = l.item_id
		WHERE l.sale_id = $1
		ORDER BY l.line_no`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sale.Lines = make([]domain.SaleLine, 0, lineCount)
	for rows.Next() {
		var line domain.SaleLine
		if err := rows.Scan(&line.LineNo, &line.ItemID, &line.Quantity, &line.UnitPrice,
			&line.ItemName, &line.Manufacturer); err != nil {
			return nil, err
		}
		sale.Lines = append(sale.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func scanSummary(row pgx.Row) (domain.SaleSummary, error) {
	var s domain.SaleSummary
	err := row.Scan(&s.ID, &s.CustomerPhone, &s.CustomerName, &s.OperatorID, &s.CreatedAt, &s.Total, &s.LineCount)
	return s, err
}

// ListSalesByCustomer streams the customer's sales, most recent first
func (l *SaleLedger) ListSalesByCustomer(ctx context.Context, phone string) iter.Seq2[domain.SaleSummary, error] {
	return func(yield func(domain.SaleSummary, error) bool) {
		rows, err := l.db.Query(ctx, saleSummarySelect+`
			WHERE s.customer_phone = $1
			ORDER BY s.created_at DESC, s.sale_id DESC`, phone)
		if err != nil {
			yield(domain.SaleSummary{}, classify("list customer sales", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			summary, err := scanSummary(rows)
			if err != nil {
				yield(domain.SaleSummary{}, classify("scan sale", err))
				return
			}
			if !yield(summary, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.SaleSummary{}, classify("list customer sales", err))
		}
	}
}

// ListSales returns sales in the optional time range, most recent first
func (l *SaleLedger) ListSales(ctx context.Context, filter ports.SaleFilter) ([]domain.SaleSummary, error) {
	where := squirrel.And{}
	if filter.From != nil {
		where = append(where, squirrel.GtOrEq{"s.created_at": *filter.From})
	}
	if filter.To != nil {
		where = append(where, squirrel.Lt{"s.created_at": *filter.To})
	}

	builder := squirrel.Select(
		"s.sale_id", "s.customer_phone", "COALESCE(c.name, '')", "s.operator_id",
		"s.created_at", "s.total_amount",
		"(SELECT COUNT(*) FROM sale_lines l WHERE l.sale_id = s.sale_id)",
	).
		From("sales s").
		LeftJoin("customers c ON c.phone = s.customer_phone").
		Where(where).
		OrderBy("s.created_at DESC", "s.sale_id DESC").
		PlaceholderFormat(squirrel.Dollar)
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list sales", err)
	}
	defer rows.Close()

	summaries := make([]domain.SaleSummary, 0)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, classify("scan sale", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list sales", err)
	}
	return summaries, nil
}

// saleTx runs the sale steps on one pgx transaction
type saleTx struct {
	tx pgx.Tx
}

// LockCustomer share-locks the customer row so it cannot be deleted or
// re-keyed until the transaction ends
func (t *saleTx) LockCustomer(ctx context.Context, phone string) (*domain.Customer, error) {
	c, err := scanCustomer(t.tx.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE phone = $1 FOR SHARE`, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("customer", phone)
		}
		return nil, classify("lock customer", err)
	}
	return c, nil
}

// LockItems row-locks the items in ascending id order
func (t *saleTx) LockItems(ctx context.Context, itemIDs []int64) (map[int64]domain.StockLevel, error) {
	ids := slices.Clone(itemIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	// LockRows sits above the sort, so rows are locked in item_id order
	rows, err := t.tx.Query(ctx, `
		SELECT item_id, name, unit_price, quantity_on_hand
		FROM items
		WHERE item_id = ANY($1)
		ORDER BY item_id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, classify("lock items", err)
	}
	defer rows.Close()

	levels := make(map[int64]domain.StockLevel, len(ids))
	for rows.Next() {
		var level domain.StockLevel
		if err := rows.Scan(&level.ItemID, &level.Name, &level.UnitPrice, &level.QuantityOnHand); err != nil {
			return nil, classify("scan item", err)
		}
		levels[level.ItemID] = level
	}
	if err := rows.Err(); err != nil {
		return nil, classify("lock items", err)
	}

	for _, id := range ids {
		if _, ok := levels[id]; !ok {
			return nil, domain.NewNotFound("item", id)
		}
	}
	return levels, nil
}

// Deduct removes quantity units from a locked item
func (t *saleTx) Deduct(ctx context.Context, itemID int64, quantity int) (int, error) {
	return deductStock(ctx, t.tx, itemID, quantity)
}

// AppendSale inserts the header and lines and reads the sale back
func (t *saleTx) AppendSale(ctx context.Context, draft domain.SaleDraft) (*domain.Sale, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	phone := domain.NormalizePhone(draft.CustomerPhone)

	var saleID int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sales (customer_phone, operator_id, total_amount)
		VALUES ($1, $2, $3)
		RETURNING sale_id`,
		phone, draft.OperatorID, draft.Total(),
	).Scan(&saleID)
	if err != nil {
		return nil, classify("insert sale", err)
	}

	batch := &pgx.Batch{}
	for i, line := range draft.Lines {
		batch.Queue(`
			INSERT INTO sale_lines (sale_id, line_no, item_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			saleID, i+1, line.ItemID, line.Quantity, line.UnitPrice.Round(domain.CurrencyPlaces))
	}

	results := t.tx.SendBatch(ctx, batch)
	for range draft.Lines {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return nil, classify("insert sale line", err)
		}
	}
	if err := results.Close(); err != nil {
		return nil, classify("insert sale lines", err)
	}

	sale, err := getSale(ctx, t.tx, saleID)
	if err != nil {
		return nil, classify("read sale", err)
	}
	return sale, nil
}
