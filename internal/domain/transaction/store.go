package transaction

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DuplicateKey is the exact-match identity used for duplicate detection:
// calendar date, signed amount, and description. Nothing is fuzzy here.
type DuplicateKey struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// Fingerprint renders the key as a stable string for in-memory set lookups
func (k DuplicateKey) Fingerprint() string {
	return k.Date.Format("2006-01-02") + "|" + k.Amount.String() + "|" + k.Description
}

// BatchSummary aggregates a committed import batch for listing screens
type BatchSummary struct {
	BatchID   string    `json:"batch_id"`
	Count     int64     `json:"count"`
	FirstDate time.Time `json:"first_date"`
	LastDate  time.Time `json:"last_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages historical transaction persistence for the import pipeline
type Store interface {
	Insert(ctx context.Context, txn *StoredTransaction) error

	// FindDuplicate returns the earliest persisted transaction matching the
	// key, or nil when none exists. A non-empty excludeBatchID removes that
	// batch from the search so batch-scope and database-scope results stay
	// disjoint.
	FindDuplicate(ctx context.Context, key DuplicateKey, excludeBatchID string) (*StoredTransaction, error)

	// FindDuplicateInBatch restricts the duplicate search to one batch
	FindDuplicateInBatch(ctx context.Context, batchID string, key DuplicateKey) (*StoredTransaction, error)

	CountByBatch(ctx context.Context, batchID string) (int64, error)
	DeleteByBatch(ctx context.Context, batchID string) (int64, error)
	RecentBatchSummaries(ctx context.Context, limit int) ([]BatchSummary, error)
}
