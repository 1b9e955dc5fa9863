package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/propcrm-transaction-import/internal/domain/audit"
	"github.com/propcrm-transaction-import/internal/domain/transaction"
	"github.com/propcrm-transaction-import/internal/platform/messaging/producers"
)

const defaultBatchListLimit = 20

// BatchManagementService implements BatchService
type BatchManagementService struct {
	store     transaction.Store
	auditor   audit.Recorder
	publisher producers.MessagePublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewBatchManagementService(logger *slog.Logger, store transaction.Store, auditor audit.Recorder, publisher producers.MessagePublisher) *BatchManagementService {
	return &BatchManagementService{
		store:     store,
		auditor:   auditor,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// RecentBatches lists committed batches, newest first
func (s *BatchManagementService) RecentBatches(ctx context.Context, limit int) ([]transaction.BatchSummary, error) {
	if limit <= 0 {
		limit = defaultBatchListLimit
	}
	summaries, err := s.store.RecentBatchSummaries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return summaries, nil
}

// BatchCount returns how many transactions a batch holds
func (s *BatchManagementService) BatchCount(ctx context.Context, batchID string) (int64, error) {
	if batchID == "" {
		return 0, ErrMissingBatch
	}
	return s.store.CountByBatch(ctx, batchID)
}

// DeleteBatch removes a committed batch wholesale. The deletion is audited
// and announced; both are best-effort once the rows are gone.
func (s *BatchManagementService) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	if batchID == "" {
		return 0, ErrMissingBatch
	}

	deleted, err := s.store.DeleteByBatch(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("deleting batch %s: %w", batchID, err)
	}

	s.logger.Info("Batch deleted", "batch_id", batchID, "deleted_transactions", deleted)

	record := &audit.ImportRecord{
		BatchID:             batchID,
		Action:              audit.ActionDelete,
		DeletedTransactions: deleted,
		RecordedAt:          s.now(),
	}
	if err := s.auditor.Record(ctx, record); err != nil {
		s.logger.Warn("Failed to write delete audit record", "batch_id", batchID, "error", err)
	}

	event := &producers.BatchEvent{
		Type:                producers.BatchDeleted,
		BatchID:             batchID,
		DeletedTransactions: deleted,
		OccurredAt:          s.now(),
	}
	if err := s.publisher.Publish(ctx, batchID, event); err != nil {
		s.logger.Warn("Failed to publish batch deleted event", "batch_id", batchID, "error", err)
	}

	return deleted, nil
}
