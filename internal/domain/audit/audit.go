// Package audit defines the immutable record written after every batch
// mutation. Records are append-only evidence for support investigations,
// never read back by the pipeline itself.
package audit

import (
	"context"
	"time"
)

// Action distinguishes the batch mutations that get audited
type Action string

const (
	ActionImport Action = "IMPORT"
	ActionDelete Action = "DELETE"
)

// ImportRecord captures the outcome of one batch mutation
type ImportRecord struct {
	BatchID             string    `bson:"batch_id" json:"batch_id"`
	Action              Action    `bson:"action" json:"action"`
	SourceLabel         string    `bson:"source_label,omitempty" json:"source_label,omitempty"`
	TotalProcessed      int       `bson:"total_processed" json:"total_processed"`
	SuccessfulImports   int       `bson:"successful_imports" json:"successful_imports"`
	FailedImports       int       `bson:"failed_imports" json:"failed_imports"`
	SkippedDuplicates   int       `bson:"skipped_duplicates" json:"skipped_duplicates"`
	DeletedTransactions int64     `bson:"deleted_transactions,omitempty" json:"deleted_transactions,omitempty"`
	Errors              []string  `bson:"errors,omitempty" json:"errors,omitempty"`
	RecordedAt          time.Time `bson:"recorded_at" json:"recorded_at"`
}

// Recorder persists audit records. Implementations live in the data layer.
type Recorder interface {
	Record(ctx context.Context, record *ImportRecord) error
}
