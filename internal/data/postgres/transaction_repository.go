// Package postgres provides PostgreSQL implementations of the storage
// contracts the import pipeline consumes: the historical transaction store
// and the property, customer, and payment source directories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/propcrm-transaction-import/internal/domain/transaction"
	"github.com/propcrm-transaction-import/internal/platform/persistence"
)

const transactionColumns = `id, transaction_date, amount, description, transaction_type,
		category, subcategory, bank_reference, payment_method, counterparty_name, notes,
		source, property_id, customer_id, payment_source_id, import_batch_id,
		payprop_transaction_id, payprop_property_id, payprop_tenant_id,
		payprop_beneficiary_id, payprop_category_id, payprop_batch_id, created_at`

// TransactionRepository implements the transaction.Store interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Store {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so repository calls share
// one database transaction
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Store {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Insert stores one historical transaction
func (r *TransactionRepository) Insert(ctx context.Context, txn *transaction.StoredTransaction) error {
	query := `
		INSERT INTO historical_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.TransactionDate,
		txn.Amount,
		txn.Description,
		txn.Type,
		txn.Category,
		txn.Subcategory,
		txn.BankReference,
		txn.PaymentMethod,
		txn.CounterpartyName,
		txn.Notes,
		txn.Source,
		txn.PropertyID,
		txn.CustomerID,
		txn.PaymentSourceID,
		txn.ImportBatchID,
		txn.PayProp.TransactionID,
		txn.PayProp.PropertyID,
		txn.PayProp.TenantID,
		txn.PayProp.BeneficiaryID,
		txn.PayProp.CategoryID,
		txn.PayProp.BatchID,
		txn.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert historical transaction", "batch_id", txn.ImportBatchID, "error", err)
		return fmt.Errorf("failed to insert historical transaction: %w", err)
	}

	return nil
}

// FindDuplicate returns the earliest transaction matching the exact key, or
// nil when none exists. A non-empty excludeBatchID removes that batch from
// the search.
func (r *TransactionRepository) FindDuplicate(ctx context.Context, key transaction.DuplicateKey, excludeBatchID string) (*transaction.StoredTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM historical_transactions
		WHERE transaction_date = $1 AND amount = $2 AND description = $3
		  AND ($4 = '' OR import_batch_id <> $4)
		ORDER BY created_at ASC
		LIMIT 1
	`

	txn, err := r.scanOne(r.querier.QueryRow(ctx, query, key.Date, key.Amount, key.Description, excludeBatchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to search for duplicate transaction", "error", err)
		return nil, fmt.Errorf("failed to search for duplicate transaction: %w", err)
	}
	return txn, nil
}

// FindDuplicateInBatch restricts the duplicate search to one batch
func (r *TransactionRepository) FindDuplicateInBatch(ctx context.Context, batchID string, key transaction.DuplicateKey) (*transaction.StoredTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM historical_transactions
		WHERE import_batch_id = $1
		  AND transaction_date = $2 AND amount = $3 AND description = $4
		ORDER BY created_at ASC
		LIMIT 1
	`

	txn, err := r.scanOne(r.querier.QueryRow(ctx, query, batchID, key.Date, key.Amount, key.Description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to search batch for duplicate transaction", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("failed to search batch for duplicate transaction: %w", err)
	}
	return txn, nil
}

// CountByBatch returns how many transactions a batch holds
func (r *TransactionRepository) CountByBatch(ctx context.Context, batchID string) (int64, error) {
	query := `SELECT COUNT(*) FROM historical_transactions WHERE import_batch_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, batchID).Scan(&count); err != nil {
		r.logger.Error("Failed to count batch transactions", "batch_id", batchID, "error", err)
		return 0, fmt.Errorf("failed to count batch transactions: %w", err)
	}
	return count, nil
}

// DeleteByBatch removes every transaction in a batch and reports the count
func (r *TransactionRepository) DeleteByBatch(ctx context.Context, batchID string) (int64, error) {
	query := `DELETE FROM historical_transactions WHERE import_batch_id = $1`

	tag, err := r.querier.Exec(ctx, query, batchID)
	if err != nil {
		r.logger.Error("Failed to delete batch", "batch_id", batchID, "error", err)
		return 0, fmt.Errorf("failed to delete batch: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RecentBatchSummaries lists committed batches, newest first
func (r *TransactionRepository) RecentBatchSummaries(ctx context.Context, limit int) ([]transaction.BatchSummary, error) {
	query := `
		SELECT import_batch_id, COUNT(*), MIN(transaction_date), MAX(transaction_date), MIN(created_at)
		FROM historical_transactions
		GROUP BY import_batch_id
		ORDER BY MIN(created_at) DESC
		LIMIT $1
	`

	rows, err := r.querier.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list batch summaries", "error", err)
		return nil, fmt.Errorf("failed to list batch summaries: %w", err)
	}
	defer rows.Close()

	var summaries []transaction.BatchSummary
	for rows.Next() {
		var s transaction.BatchSummary
		if err := rows.Scan(&s.BatchID, &s.Count, &s.FirstDate, &s.LastDate, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch summaries: %w", err)
	}
	return summaries, nil
}

func (r *TransactionRepository) scanOne(row pgx.Row) (*transaction.StoredTransaction, error) {
	var txn transaction.StoredTransaction
	err := row.Scan(
		&txn.ID,
		&txn.TransactionDate,
		&txn.Amount,
		&txn.Description,
		&txn.Type,
		&txn.Category,
		&txn.Subcategory,
		&txn.BankReference,
		&txn.PaymentMethod,
		&txn.CounterpartyName,
		&txn.Notes,
		&txn.Source,
		&txn.PropertyID,
		&txn.CustomerID,
		&txn.PaymentSourceID,
		&txn.ImportBatchID,
		&txn.PayProp.TransactionID,
		&txn.PayProp.PropertyID,
		&txn.PayProp.TenantID,
		&txn.PayProp.BeneficiaryID,
		&txn.PayProp.CategoryID,
		&txn.PayProp.BatchID,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
