// Package review holds the transient DTOs that make one validate/confirm
// round trip: raw parsed rows, typed fields, per-row review items, the
// queue surfaced to the operator, and the terminal import result. None of
// these are persisted; the caller owns the queue between the two phases.
package review

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propcrm-transaction-import/internal/domain/directory"
	"github.com/propcrm-transaction-import/internal/domain/transaction"
)

// RawRow is one input record exactly as parsed: original position, original
// text, and a column-name keyed view of the values. Immutable once built.
type RawRow struct {
	LineNumber int               `json:"line_number"`
	RawText    string            `json:"raw_text"`
	Fields     map[string]string `json:"fields"`
	ParseError string            `json:"parse_error,omitempty"`
}

// Field returns the named column value, blank where absent
func (r RawRow) Field(name string) string {
	return r.Fields[name]
}

// ParsedFields is the typed projection of a RawRow. Date and Amount are the
// only hard-required fields; everything else degrades gracefully.
type ParsedFields struct {
	Date             time.Time               `json:"transaction_date"`
	Amount           decimal.Decimal         `json:"amount"`
	Type             transaction.Type        `json:"transaction_type"`
	TypeInferred     bool                    `json:"type_inferred,omitempty"`
	Description      string                  `json:"description"`
	DescSynthesized  bool                    `json:"description_synthesized,omitempty"`
	Category         string                  `json:"category,omitempty"`
	Subcategory      string                  `json:"subcategory,omitempty"`
	BeneficiaryType  string                  `json:"beneficiary_type,omitempty"`
	PropertySource   string                  `json:"property_source,omitempty"`
	BankReference    string                  `json:"bank_reference,omitempty"`
	PaymentMethod    string                  `json:"payment_method,omitempty"`
	CounterpartyName string                  `json:"counterparty_name,omitempty"`
	Notes            string                  `json:"notes,omitempty"`
	Source           transaction.Source      `json:"source"`
	PropertyRef      string                  `json:"property_reference,omitempty"`
	CustomerRef      string                  `json:"customer_reference,omitempty"`
	PaymentSource    string                  `json:"payment_source,omitempty"`
	PayProp          transaction.PayPropRefs `json:"payprop,omitempty"`
}

// Key builds the exact duplicate-detection identity for this row
func (p *ParsedFields) Key() transaction.DuplicateKey {
	return transaction.DuplicateKey{
		Date:        p.Date,
		Amount:      p.Amount,
		Description: p.Description,
	}
}

// Status classifies a row after validation. The set is closed; every
// consumer switches exhaustively over it.
type Status string

const (
	StatusPerfectMatch  Status = "PERFECT_MATCH"
	StatusNeedsProperty Status = "NEEDS_PROPERTY"
	StatusNeedsCustomer Status = "NEEDS_CUSTOMER"
	StatusNeedsBoth     Status = "NEEDS_BOTH"
	StatusDuplicate     Status = "DUPLICATE"
	StatusError         Status = "ERROR"
)

// ValidStatus reports whether s is one of the closed Status values
func ValidStatus(s Status) bool {
	switch s {
	case StatusPerfectMatch, StatusNeedsProperty, StatusNeedsCustomer, StatusNeedsBoth, StatusDuplicate, StatusError:
		return true
	}
	return false
}

// DuplicateScope identifies where the prior instance of a duplicate lives
type DuplicateScope string

const (
	ScopeInPaste    DuplicateScope = "IN_PASTE"
	ScopeInBatch    DuplicateScope = "IN_BATCH"
	ScopeInDatabase DuplicateScope = "IN_DATABASE"
)

// ValidScope reports whether s is one of the closed DuplicateScope values
func ValidScope(s DuplicateScope) bool {
	switch s {
	case ScopeInPaste, ScopeInBatch, ScopeInDatabase:
		return true
	}
	return false
}

// DuplicateInfo is the evidence attached to a DUPLICATE row: the scope the
// prior instance was found in and enough of it to show the operator. At
// most one DuplicateInfo per row; detection stops at the first scope hit.
type DuplicateInfo struct {
	Scope           DuplicateScope  `json:"scope"`
	ExistingID      *uuid.UUID      `json:"existing_id,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	BatchID         string          `json:"batch_id,omitempty"`
	// FirstLineNumber points to the earlier paste line for IN_PASTE hits
	FirstLineNumber int `json:"first_line_number,omitempty"`
}

// Overrides carries the operator-supplied replacements applied at commit
// time in place of coerced or inferred values
type Overrides struct {
	TransactionType *transaction.Type `json:"transaction_type,omitempty"`
	Description     *string           `json:"description,omitempty"`
}

// TransactionReview is the unit of work surfaced to the operator: the
// immutable parse outcome plus the mutable selection the human fills in.
// It lives for exactly one validate/confirm round trip.
type TransactionReview struct {
	LineNumber         int                        `json:"line_number"`
	RawText            string                     `json:"raw_text"`
	Status             Status                     `json:"status"`
	ParsedData         *ParsedFields              `json:"parsed_data,omitempty"`
	PropertyCandidates []directory.MatchCandidate `json:"property_candidates,omitempty"`
	CustomerCandidates []directory.MatchCandidate `json:"customer_candidates,omitempty"`
	DuplicateInfo      *DuplicateInfo             `json:"duplicate_info,omitempty"`
	ErrorMessage       string                     `json:"error_message,omitempty"`

	// Operator selections, mutated only between validate and confirm
	SelectedPropertyID      *int64     `json:"selected_property_id,omitempty"`
	SelectedCustomerID      *int64     `json:"selected_customer_id,omitempty"`
	SelectedPaymentSourceID *int64     `json:"selected_payment_source_id,omitempty"`
	SkipDuplicate           bool       `json:"skip_duplicate"`
	UserNote                string     `json:"user_note,omitempty"`
	Overrides               *Overrides `json:"overrides,omitempty"`
}

// ReviewQueue is the batch-level aggregate returned from validation.
// Derived counts are maintained by AddReview and never stored server-side;
// the caller resubmits the edited queue wholesale on confirmation.
type ReviewQueue struct {
	BatchID        string               `json:"batch_id"`
	SourceLabel    string               `json:"source_label,omitempty"`
	Reviews        []*TransactionReview `json:"reviews"`
	TotalRows      int                  `json:"total_rows"`
	PerfectMatches int                  `json:"perfect_matches"`
	NeedsReview    int                  `json:"needs_review"`
	HasIssues      int                  `json:"has_issues"`
}

// NewReviewQueue creates an empty queue for the given batch
func NewReviewQueue(batchID string) *ReviewQueue {
	return &ReviewQueue{BatchID: batchID}
}

// AddReview appends a review and updates the derived counters
func (q *ReviewQueue) AddReview(r *TransactionReview) {
	q.Reviews = append(q.Reviews, r)
	q.TotalRows++
	switch r.Status {
	case StatusPerfectMatch:
		q.PerfectMatches++
	case StatusNeedsProperty, StatusNeedsCustomer, StatusNeedsBoth, StatusDuplicate:
		q.NeedsReview++
	case StatusError:
		q.HasIssues++
	}
}

// ImportResult is the terminal report of a confirm (or direct import) call.
// Invariant: SuccessfulImports + FailedImports + the three skipped counters
// equals TotalProcessed.
type ImportResult struct {
	BatchID                     string    `json:"batch_id"`
	SourceLabel                 string    `json:"source_label,omitempty"`
	TotalProcessed              int       `json:"total_processed"`
	SuccessfulImports           int       `json:"successful_imports"`
	FailedImports               int       `json:"failed_imports"`
	SkippedDuplicatesInPaste    int       `json:"skipped_duplicates_in_paste"`
	SkippedDuplicatesInBatch    int       `json:"skipped_duplicates_in_batch"`
	SkippedDuplicatesInDatabase int       `json:"skipped_duplicates_in_database"`
	Errors                      []string  `json:"errors,omitempty"`
	SkippedTransactions         []string  `json:"skipped_transactions,omitempty"`
	ImportTime                  time.Time `json:"import_time"`
}

// NewImportResult creates a result for one batch run
func NewImportResult(batchID, sourceLabel string) *ImportResult {
	return &ImportResult{
		BatchID:     batchID,
		SourceLabel: sourceLabel,
		ImportTime:  time.Now(),
	}
}

// AddError records a row-level failure message
func (r *ImportResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddSkipped records the diagnostic detail for a skipped duplicate
func (r *ImportResult) AddSkipped(msg string) {
	r.SkippedTransactions = append(r.SkippedTransactions, msg)
}

// IncrementSkipped bumps the counter matching the duplicate scope
func (r *ImportResult) IncrementSkipped(scope DuplicateScope) {
	switch scope {
	case ScopeInPaste:
		r.SkippedDuplicatesInPaste++
	case ScopeInBatch:
		r.SkippedDuplicatesInBatch++
	case ScopeInDatabase:
		r.SkippedDuplicatesInDatabase++
	}
}

// SkippedDuplicates is the sum of the three scope counters
func (r *ImportResult) SkippedDuplicates() int {
	return r.SkippedDuplicatesInPaste + r.SkippedDuplicatesInBatch + r.SkippedDuplicatesInDatabase
}

// CountsConsistent verifies the result invariant
func (r *ImportResult) CountsConsistent() bool {
	return r.SuccessfulImports+r.FailedImports+r.SkippedDuplicates() == r.TotalProcessed
}
