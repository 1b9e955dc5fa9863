// Package dedupe detects duplicate transactions across three widening
// scopes: earlier rows of the same paste, rows already committed under the
// same batch, and the rest of the database. Scopes are checked in that
// order and the first hit wins, so each duplicate is reported exactly once.
package dedupe

import (
	"context"
	"fmt"

	"github.com/propcrm-transaction-import/internal/domain/review"
	"github.com/propcrm-transaction-import/internal/domain/transaction"
)

// Detector carries the in-paste fingerprint set for one validation run.
// Not safe for concurrent use; the pipeline runs the duplicate phase
// sequentially in line order.
type Detector struct {
	store transaction.Store
	seen  map[string]int
}

func NewDetector(store transaction.Store) *Detector {
	return &Detector{
		store: store,
		seen:  make(map[string]int),
	}
}

// Check classifies one row's duplicate status and records its fingerprint
// for rows that follow. batchID scopes the in-batch search and is excluded
// from the database-wide search.
func (d *Detector) Check(ctx context.Context, key transaction.DuplicateKey, lineNumber int, batchID string) (*review.DuplicateInfo, error) {
	fp := key.Fingerprint()

	if firstLine, ok := d.seen[fp]; ok {
		return &review.DuplicateInfo{
			Scope:           review.ScopeInPaste,
			TransactionDate: key.Date,
			Amount:          key.Amount,
			Description:     key.Description,
			FirstLineNumber: firstLine,
		}, nil
	}
	// The first occurrence claims the fingerprint even when a wider scope
	// also matches; later identical rows are in-paste duplicates of it.
	d.seen[fp] = lineNumber

	if batchID != "" {
		existing, err := d.store.FindDuplicateInBatch(ctx, batchID, key)
		if err != nil {
			return nil, fmt.Errorf("batch duplicate check: %w", err)
		}
		if existing != nil {
			return duplicateFromStored(review.ScopeInBatch, existing), nil
		}
	}

	existing, err := d.store.FindDuplicate(ctx, key, batchID)
	if err != nil {
		return nil, fmt.Errorf("database duplicate check: %w", err)
	}
	if existing != nil {
		return duplicateFromStored(review.ScopeInDatabase, existing), nil
	}

	return nil, nil
}

func duplicateFromStored(scope review.DuplicateScope, existing *transaction.StoredTransaction) *review.DuplicateInfo {
	id := existing.ID
	return &review.DuplicateInfo{
		Scope:           scope,
		ExistingID:      &id,
		TransactionDate: existing.TransactionDate,
		Amount:          existing.Amount,
		Description:     existing.Description,
		BatchID:         existing.ImportBatchID,
	}
}
