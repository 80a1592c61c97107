// internal/adapters/db/customer_repository.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

const customerColumns = "customer_id, name, phone, email, address, created_at, updated_at"

// CustomerRepository persists customers in PostgreSQL
type CustomerRepository struct {
	db     *Database
	logger *slog.Logger
}

var _ ports.CustomerRepository = (*CustomerRepository)(nil)

// NewCustomerRepository creates a new PostgreSQL customer repository
func NewCustomerRepository(db *Database, logger *slog.Logger) *CustomerRepository {
	return &CustomerRepository{
		db:     db,
		logger: logger.With(slog.String("component", "customer_repository")),
	}
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a customer; a taken phone fails with ErrAlreadyExists
func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (name, phone, email, address)
		VALUES ($1, $2, $3, $4)
		RETURNING customer_id, created_at, updated_at`,
		customer.Name, customer.Phone, customer.Email, customer.Address,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		return classify("create customer", err)
	}
	return nil
}

// Get retrieves a customer by id
func (r *CustomerRepository) Get(ctx context.Context, customerID int64) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE customer_id = $1`, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("customer", customerID)
		}
		return nil, classify("get customer", err)
	}
	return c, nil
}

// GetByPhone retrieves a customer by normalized phone
func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE phone = $1`, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("customer", phone)
		}
		return nil, classify("get customer by phone", err)
	}
	return c, nil
}

// Update rewrites a customer. The phone may change only while no sale
// references the old one.
func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx,
			`SELECT phone FROM customers WHERE customer_id = $1 FOR UPDATE`, customer.ID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NewNotFound("customer", customer.ID)
			}
			return err
		}

		if current != customer.Phone {
			sales, err := countSales(ctx, tx, current)
			if err != nil {
				return err
			}
			if sales > 0 {
				return fmt.Errorf("%w: customer %d has %d sales under phone %s",
					domain.ErrReferentialConflict, customer.ID, sales, current)
			}
		}

		updated, err := scanCustomer(tx.QueryRow(ctx, `
			UPDATE customers
			SET name = $2, phone = $3, email = $4, address = $5, updated_at = now()
			WHERE customer_id = $1
			RETURNING `+customerColumns,
			customer.ID, customer.Name, customer.Phone, customer.Email, customer.Address))
		if err != nil {
			return err
		}
		*customer = *updated
		return nil
	})
	return classify("update customer", err)
}

// Delete removes a customer that has no sales
func (r *CustomerRepository) Delete(ctx context.Context, customerID int64) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		// FOR UPDATE waits out any sale holding the customer row
		var phone string
		err := tx.QueryRow(ctx,
			`SELECT phone FROM customers WHERE customer_id = $1 FOR UPDATE`, customerID).Scan(&phone)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NewNotFound("customer", customerID)
			}
			return err
		}

		sales, err := countSales(ctx, tx, phone)
		if err != nil {
			return err
		}
		if sales > 0 {
			return fmt.Errorf("%w: customer %d has %d sales", domain.ErrReferentialConflict, customerID, sales)
		}

		_, err = tx.Exec(ctx, `DELETE FROM customers WHERE customer_id = $1`, customerID)
		return err
	})
	if err != nil {
		return classify("delete customer", err)
	}

	r.logger.InfoContext(ctx, "customer deleted", slog.Int64("customer_id", customerID))
	return nil
}

// List retrieves one page of customers ordered by name
func (r *CustomerRepository) List(ctx context.Context, filter ports.CustomerFilter) (*ports.CustomerPage, error) {
	filter.Normalize()

	where := squirrel.And{}
	if filter.Search != "" {
		pattern := "%" + likeEscaper.Replace(filter.Search) + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"email": pattern},
			squirrel.Like{"phone": pattern},
		})
	}

	countSQL, countArgs, err := squirrel.Select("COUNT(*)").
		From("customers").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, classify("count customers", err)
	}

	query, args, err := squirrel.Select(customerColumns).
		From("customers").
		Where(where).
		OrderBy("lower(name) ASC", "customer_id ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64((filter.Page - 1) * filter.PageSize)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list customers", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, filter.PageSize)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, classify("scan customer", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list customers", err)
	}

	return &ports.CustomerPage{
		Customers:  customers,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
		TotalPages: ports.TotalPages(total, filter.PageSize),
	}, nil
}

func countSales(ctx context.Context, q querier, phone string) (int64, error) {
	var n int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE customer_phone = $1`, phone).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
