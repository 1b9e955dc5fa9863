package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/propcrm-transaction-import/internal/domain/directory"
	"github.com/propcrm-transaction-import/internal/platform/persistence"
)

// CustomerRepository implements the directory.CustomerReader interface for
// PostgreSQL
type CustomerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCustomerRepository creates a new PostgreSQL customer repository
func NewCustomerRepository(logger *slog.Logger, db *persistence.PostgresDB) directory.CustomerReader {
	return &CustomerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByPaypropID retrieves a customer by PayProp identifier, nil when absent
func (r *CustomerRepository) GetByPaypropID(ctx context.Context, paypropID string) (*directory.Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, payprop_id
		FROM customers
		WHERE payprop_id = $1
	`

	cust, err := r.scanOne(r.querier.QueryRow(ctx, query, paypropID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get customer by payprop id", "payprop_id", paypropID, "error", err)
		return nil, fmt.Errorf("failed to get customer by payprop id: %w", err)
	}
	return cust, nil
}

// GetByEmail retrieves a customer by email, case-insensitive, nil when absent
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*directory.Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, payprop_id
		FROM customers
		WHERE LOWER(email) = LOWER($1)
		LIMIT 1
	`

	cust, err := r.scanOne(r.querier.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get customer by email", "error", err)
		return nil, fmt.Errorf("failed to get customer by email: %w", err)
	}
	return cust, nil
}

// ListAll returns every customer for fuzzy matching
func (r *CustomerRepository) ListAll(ctx context.Context) ([]*directory.Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, payprop_id
		FROM customers
		ORDER BY id
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list customers", "error", err)
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*directory.Customer
	for rows.Next() {
		var c directory.Customer
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.PaypropID); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read customers: %w", err)
	}
	return customers, nil
}

// Exists reports whether a customer with the given ID exists
func (r *CustomerRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		r.logger.Error("Failed to check customer existence", "id", id, "error", err)
		return false, fmt.Errorf("failed to check customer existence: %w", err)
	}
	return exists, nil
}

func (r *CustomerRepository) scanOne(row pgx.Row) (*directory.Customer, error) {
	var c directory.Customer
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.PaypropID); err != nil {
		return nil, err
	}
	return &c, nil
}
