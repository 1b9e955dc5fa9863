package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/propcrm-transaction-import/internal/domain/directory"
	"github.com/propcrm-transaction-import/internal/platform/persistence"
)

// PaymentSourceRepository implements directory.PaymentSourceDirectory for
// PostgreSQL
type PaymentSourceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPaymentSourceRepository creates a new PostgreSQL payment source repository
func NewPaymentSourceRepository(logger *slog.Logger, db *persistence.PostgresDB) directory.PaymentSourceDirectory {
	return &PaymentSourceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Exists reports whether a payment source with the given ID exists
func (r *PaymentSourceRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM payment_sources WHERE id = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		r.logger.Error("Failed to check payment source existence", "id", id, "error", err)
		return false, fmt.Errorf("failed to check payment source existence: %w", err)
	}
	return exists, nil
}
