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

// PropertyRepository implements the directory.PropertyReader interface for
// PostgreSQL
type PropertyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPropertyRepository creates a new PostgreSQL property repository
func NewPropertyRepository(logger *slog.Logger, db *persistence.PostgresDB) directory.PropertyReader {
	return &PropertyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByPaypropID retrieves a property by its PayProp identifier.
// Returns nil when no property carries the identifier.
func (r *PropertyRepository) GetByPaypropID(ctx context.Context, paypropID string) (*directory.Property, error) {
	query := `
		SELECT id, property_name, address_line1, postcode, payprop_id
		FROM properties
		WHERE payprop_id = $1
	`

	prop, err := r.scanOne(r.querier.QueryRow(ctx, query, paypropID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get property by payprop id", "payprop_id", paypropID, "error", err)
		return nil, fmt.Errorf("failed to get property by payprop id: %w", err)
	}
	return prop, nil
}

// ListByNameIgnoreCase retrieves every property with the exact name,
// case-insensitive. Namesakes are all returned so the caller can tell a
// unique hit from an ambiguous one.
func (r *PropertyRepository) ListByNameIgnoreCase(ctx context.Context, name string) ([]*directory.Property, error) {
	query := `
		SELECT id, property_name, address_line1, postcode, payprop_id
		FROM properties
		WHERE LOWER(property_name) = LOWER($1)
		ORDER BY id
	`

	rows, err := r.querier.Query(ctx, query, name)
	if err != nil {
		r.logger.Error("Failed to list properties by name", "name", name, "error", err)
		return nil, fmt.Errorf("failed to list properties by name: %w", err)
	}
	defer rows.Close()

	var properties []*directory.Property
	for rows.Next() {
		var p directory.Property
		if err := rows.Scan(&p.ID, &p.PropertyName, &p.AddressLine1, &p.Postcode, &p.PaypropID); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read properties: %w", err)
	}
	return properties, nil
}

// ListAll returns every property for fuzzy matching
func (r *PropertyRepository) ListAll(ctx context.Context) ([]*directory.Property, error) {
	query := `
		SELECT id, property_name, address_line1, postcode, payprop_id
		FROM properties
		ORDER BY id
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list properties", "error", err)
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var properties []*directory.Property
	for rows.Next() {
		var p directory.Property
		if err := rows.Scan(&p.ID, &p.PropertyName, &p.AddressLine1, &p.Postcode, &p.PaypropID); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read properties: %w", err)
	}
	return properties, nil
}

// Exists reports whether a property with the given ID exists
func (r *PropertyRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM properties WHERE id = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		r.logger.Error("Failed to check property existence", "id", id, "error", err)
		return false, fmt.Errorf("failed to check property existence: %w", err)
	}
	return exists, nil
}

func (r *PropertyRepository) scanOne(row pgx.Row) (*directory.Property, error) {
	var p directory.Property
	if err := row.Scan(&p.ID, &p.PropertyName, &p.AddressLine1, &p.Postcode, &p.PaypropID); err != nil {
		return nil, err
	}
	return &p, nil
}
