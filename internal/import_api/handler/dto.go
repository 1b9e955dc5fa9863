package handler

import (
	"github.com/propcrm-transaction-import/internal/domain/review"
	"github.com/propcrm-transaction-import/internal/domain/transaction"
)

// ImportSubmissionRequest carries one paste of historical transaction data.
// BatchID continues a previously validated batch so multi-paste imports are
// deduplicated against each other.
type ImportSubmissionRequest struct {
	Payload                string `json:"payload" binding:"required"`
	Format                 string `json:"format" binding:"required,oneof=csv json"`
	SourceLabel            string `json:"source_label,omitempty"`
	BatchID                string `json:"batch_id,omitempty"`
	DefaultPaymentSourceID *int64 `json:"default_payment_source_id,omitempty"`
}

// ConfirmImportRequest is the operator-edited review queue resubmitted for
// commit. Review rows reuse the wire shape the validate call returned.
type ConfirmImportRequest struct {
	BatchID     string                      `json:"batch_id" binding:"required"`
	SourceLabel string                      `json:"source_label,omitempty"`
	Reviews     []*review.TransactionReview `json:"reviews" binding:"required"`
}

// toQueue rebuilds the domain queue, recomputing the derived counters
// rather than trusting any the client sent back
func (r *ConfirmImportRequest) toQueue() *review.ReviewQueue {
	queue := review.NewReviewQueue(r.BatchID)
	queue.SourceLabel = r.SourceLabel
	for _, rev := range r.Reviews {
		queue.AddReview(rev)
	}
	return queue
}

// BatchCountResponse reports the live size of one batch
type BatchCountResponse struct {
	BatchID string `json:"batch_id"`
	Count   int64  `json:"count"`
}

// BatchListResponse wraps the recent batch summaries
type BatchListResponse struct {
	Batches []transaction.BatchSummary `json:"batches"`
}

// DeleteBatchResponse reports the outcome of a batch deletion
type DeleteBatchResponse struct {
	BatchID             string `json:"batch_id"`
	DeletedTransactions int64  `json:"deleted_transactions"`
}
