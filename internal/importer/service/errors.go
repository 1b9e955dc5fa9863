package service

import (
	"errors"
	"fmt"

	"github.com/propcrm-transaction-import/internal/domain/review"
)

var (
	// ErrEmptyQueue is returned when a confirm call carries no reviews
	ErrEmptyQueue = errors.New("review queue has no rows")
	// ErrMissingBatchID is returned when a confirm call lacks a batch ID
	ErrMissingBatchID = errors.New("review queue has no batch id")
	// ErrMissingBatch is returned when a batch operation names an empty ID
	ErrMissingBatch = errors.New("batch id is required")
)

// TooManyRowsError rejects submissions above the configured row cap
type TooManyRowsError struct {
	Rows  int
	Limit int
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("submission has %d rows, limit is %d", e.Rows, e.Limit)
}

// InvalidStatusError rejects resubmitted queues carrying a status outside
// the closed set
type InvalidStatusError struct {
	LineNumber int
	Status     review.Status
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("line %d: unknown review status %q", e.LineNumber, e.Status)
}
