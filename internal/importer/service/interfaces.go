package service

import (
	"context"

	"github.com/propcrm-transaction-import/internal/domain/review"
	"github.com/propcrm-transaction-import/internal/domain/transaction"
	"github.com/propcrm-transaction-import/internal/importer/parser"
)

// ImportRequest is one submission of historical transaction data
type ImportRequest struct {
	// Payload is the raw pasted CSV or JSON text
	Payload string
	// Format selects the parser; blank is rejected
	Format parser.Format
	// SourceLabel is the operator-supplied provenance note, e.g. the name
	// of the spreadsheet the data came from
	SourceLabel string
	// BatchID continues an existing batch when set, so a follow-up paste
	// is deduplicated against rows already committed under it. Blank
	// starts a fresh batch.
	BatchID string
	// DefaultPaymentSourceID is applied to every row that the operator
	// does not override individually
	DefaultPaymentSourceID *int64
}

// ImportService runs the two-phase import pipeline
type ImportService interface {
	// ValidateForReview parses, analyzes, and classifies a submission
	// without persisting anything. The returned queue is the operator's
	// working copy; the server keeps no state between phases.
	ValidateForReview(ctx context.Context, req *ImportRequest) (*review.ReviewQueue, error)

	// ValidateOnly is the fast pre-flight pass: parse and coerce only,
	// no entity resolution and no duplicate queries. Its outcome depends
	// solely on the submitted text.
	ValidateOnly(ctx context.Context, req *ImportRequest) (*review.ImportResult, error)

	// ProcessConfirmed commits an operator-reviewed queue. Every row is
	// accounted for in the result exactly once.
	ProcessConfirmed(ctx context.Context, queue *review.ReviewQueue) (*review.ImportResult, error)

	// ImportDirect validates and immediately commits in one call, for
	// clean machine-generated feeds that need no human review. Rows that
	// would have needed review fail instead of importing wrong.
	ImportDirect(ctx context.Context, req *ImportRequest) (*review.ImportResult, error)
}

// BatchService manages committed batches after the fact
type BatchService interface {
	RecentBatches(ctx context.Context, limit int) ([]transaction.BatchSummary, error)
	BatchCount(ctx context.Context, batchID string) (int64, error)

	// DeleteBatch removes every transaction committed under the batch and
	// returns how many were deleted
	DeleteBatch(ctx context.Context, batchID string) (int64, error)
}
