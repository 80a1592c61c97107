// internal/adapters/db/inventory_store.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

const itemColumns = "item_id, name, description, unit_price, quantity_on_hand, manufacturer, expiry_date, created_at, updated_at"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// InventoryStore persists items in PostgreSQL
type InventoryStore struct {
	db     *Database
	logger *slog.Logger
}

var _ ports.InventoryStore = (*InventoryStore)(nil)

// NewInventoryStore creates a new PostgreSQL inventory store
func NewInventoryStore(db *Database, logger *slog.Logger) *InventoryStore {
	return &InventoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "inventory_store")),
	}
}

func itemKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var item domain.Item
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.UnitPrice,
		&item.QuantityOnHand,
		&item.Manufacturer,
		&item.ExpiryDate,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetStock reads the current stock level of an item
func (s *InventoryStore) GetStock(ctx context.Context, id int64) (domain.StockLevel, error) {
	var level domain.StockLevel
	err := s.db.QueryRow(ctx,
		`SELECT item_id, name, unit_price, quantity_on_hand FROM items WHERE item_id = $1`, id,
	).Scan(&level.ItemID, &level.Name, &level.UnitPrice, &level.QuantityOnHand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StockLevel{}, domain.NewNotFound("item", itemKey(id))
		}
		return domain.StockLevel{}, classify("get stock", err)
	}
	return level, nil
}

// Restock adds delta units and returns the new quantity
func (s *InventoryStore) Restock(ctx context.Context, id int64, delta int) (int, error) {
	if delta <= 0 {
		return 0, fmt.Errorf("%w: restock delta must be positive, got %d", domain.ErrInvalidQuantity, delta)
	}

	var qty int
	err := s.db.QueryRow(ctx, `
		UPDATE items SET quantity_on_hand = quantity_on_hand + $2, updated_at = now()
		WHERE item_id = $1
		RETURNING quantity_on_hand`, id, delta).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.NewNotFound("item", itemKey(id))
		}
		return 0, classify("restock item", err)
	}
	return qty, nil
}

// Deduct removes qty units as a single conditional update
func (s *InventoryStore) Deduct(ctx context.Context, id int64, qty int) (int, error) {
	return deductStock(ctx, s.db, id, qty)
}

// deductStock never takes stock below zero. The follow-up read only
// distinguishes a missing item from a short one.
func deductStock(ctx context.Context, q querier, id int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: deduct quantity must be positive, got %d", domain.ErrInvalidQuantity, qty)
	}

	var remaining int
	err := q.QueryRow(ctx, `
		UPDATE items SET quantity_on_hand = quantity_on_hand - $2, updated_at = now()
		WHERE item_id = $1 AND quantity_on_hand >= $2
		RETURNING quantity_on_hand`, id, qty).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, classify("deduct stock", err)
	}

	var available int
	err = q.QueryRow(ctx, `SELECT quantity_on_hand FROM items WHERE item_id = $1`, id).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.NewNotFound("item", itemKey(id))
		}
		return 0, classify("deduct stock", err)
	}
	return 0, &domain.InsufficientStockError{ItemID: id, Requested: qty, Available: available}
}

// CreateItem inserts an item and fills its generated fields
func (s *InventoryStore) CreateItem(ctx context.Context, item *domain.Item) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO items (name, description, unit_price, quantity_on_hand, manufacturer, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING item_id, created_at, updated_at`,
		item.Name, item.Description, item.UnitPrice, item.QuantityOnHand, item.Manufacturer, item.ExpiryDate,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return classify("create item", err)
	}

	s.logger.DebugContext(ctx, "item created", slog.Int64("item_id", item.ID))
	return nil
}

// GetItem retrieves an item by id
func (s *InventoryStore) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := scanItem(s.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE item_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("item", itemKey(id))
		}
		return nil, classify("get item", err)
	}
	return item, nil
}

// UpdateItem rewrites descriptive fields and price. Stock moves only through
// Restock and Deduct.
func (s *InventoryStore) UpdateItem(ctx context.Context, item *domain.Item) error {
	updated, err := scanItem(s.db.QueryRow(ctx, `
		UPDATE items
		SET name = $2, description = $3, unit_price = $4, manufacturer = $5, expiry_date = $6, updated_at = now()
		WHERE item_id = $1
		RETURNING `+itemColumns,
		item.ID, item.Name, item.Description, item.UnitPrice, item.Manufacturer, item.ExpiryDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFound("item", itemKey(item.ID))
		}
		return classify("update item", err)
	}
	*item = *updated
	return nil
}

// DeleteItem removes an item that no sale references
func (s *InventoryStore) DeleteItem(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM items WHERE item_id = $1`, id)
	if err != nil {
		return classify("delete item", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("item", itemKey(id))
	}
	return nil
}

// ListItems retrieves one page of items matching filter
func (s *InventoryStore) ListItems(ctx context.Context, filter ports.ItemFilter) (*ports.ItemPage, error) {
	filter.Normalize()

	where := squirrel.And{}
	if filter.Search != "" {
		pattern := "%" + likeEscaper.Replace(filter.Search) + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"description": pattern},
			squirrel.ILike{"manufacturer": pattern},
		})
	}
	if filter.InStockOnly {
		where = append(where, squirrel.Gt{"quantity_on_hand": 0})
	}

	var total int64
	countSQL, countArgs, err := squirrel.Select("COUNT(*)").
		From("items").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}
	if err := s.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, classify("count items", err)
	}

	sortColumn := filter.SortBy
	if sortColumn == "name" {
		sortColumn = "lower(name)"
	}
	direction := "ASC"
	if filter.SortOrder == "desc" {
		direction = "DESC"
	}

	query, args, err := squirrel.Select(itemColumns).
		From("items").
		Where(where).
		OrderBy(fmt.Sprintf("%s %s", sortColumn, direction), "item_id ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64((filter.Page - 1) * filter.PageSize)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list items", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0, filter.PageSize)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, classify("scan item", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list items", err)
	}

	return &ports.ItemPage{
		Items:      items,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
		TotalPages: ports.TotalPages(total, filter.PageSize),
	}, nil
}
