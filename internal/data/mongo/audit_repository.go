// Package mongo stores the append-only import audit trail.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/propcrm-transaction-import/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit collection in MongoDB
	AuditCollectionName = "import_audit"
)

// AuditRepository implements the audit.Recorder interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Recorder {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends one audit document. Documents are never updated or
// deleted afterwards.
func (r *AuditRepository) Record(ctx context.Context, record *audit.ImportRecord) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to write audit record",
			"batch_id", record.BatchID,
			"action", string(record.Action),
			"error", err)
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	return nil
}
