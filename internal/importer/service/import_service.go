package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/propcrm-transaction-import/internal/config"
	"github.com/propcrm-transaction-import/internal/domain/audit"
	"github.com/propcrm-transaction-import/internal/domain/directory"
	"github.com/propcrm-transaction-import/internal/domain/review"
	"github.com/propcrm-transaction-import/internal/domain/transaction"
	"github.com/propcrm-transaction-import/internal/importer/coerce"
	"github.com/propcrm-transaction-import/internal/importer/dedupe"
	"github.com/propcrm-transaction-import/internal/importer/parser"
	"github.com/propcrm-transaction-import/internal/platform/messaging/producers"
)

// HistoricalImportService implements ImportService
type HistoricalImportService struct {
	store          transaction.Store
	properties     directory.PropertyDirectory
	customers      directory.CustomerDirectory
	paymentSources directory.PaymentSourceDirectory
	analyzer       *rowAnalyzer
	auditor        audit.Recorder
	publisher      producers.MessagePublisher
	importCfg      config.ImportConfig
	logger         *slog.Logger
	now            func() time.Time
}

// NewHistoricalImportService wires the full pipeline
func NewHistoricalImportService(
	logger *slog.Logger,
	store transaction.Store,
	properties directory.PropertyDirectory,
	customers directory.CustomerDirectory,
	paymentSources directory.PaymentSourceDirectory,
	auditor audit.Recorder,
	publisher producers.MessagePublisher,
	importCfg config.ImportConfig,
	poolCfg config.WorkerPoolConfig,
) (*HistoricalImportService, error) {
	analyzer, err := newRowAnalyzer(properties, customers, poolCfg.Size, logger)
	if err != nil {
		return nil, fmt.Errorf("creating row analysis pool: %w", err)
	}

	return &HistoricalImportService{
		store:          store,
		properties:     properties,
		customers:      customers,
		paymentSources: paymentSources,
		analyzer:       analyzer,
		auditor:        auditor,
		publisher:      publisher,
		importCfg:      importCfg,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// Shutdown releases pipeline resources
func (s *HistoricalImportService) Shutdown() {
	s.analyzer.Shutdown()
}

// ValidateForReview runs phase one: parse, analyze concurrently, then
// classify sequentially in line order. Nothing is persisted.
func (s *HistoricalImportService) ValidateForReview(ctx context.Context, req *ImportRequest) (*review.ReviewQueue, error) {
	parsed, err := parser.Parse(req.Payload, req.Format)
	if err != nil {
		return nil, err
	}
	if len(parsed.Rows) > s.importCfg.MaxRowsPerPaste {
		return nil, &TooManyRowsError{Rows: len(parsed.Rows), Limit: s.importCfg.MaxRowsPerPaste}
	}

	batchID := s.resolveBatchID(req)

	analyses, err := s.analyzer.AnalyzeAll(ctx, parsed.Rows)
	if err != nil {
		return nil, fmt.Errorf("analyzing rows: %w", err)
	}

	queue := review.NewReviewQueue(batchID)
	queue.SourceLabel = req.SourceLabel
	if queue.SourceLabel == "" {
		queue.SourceLabel = parsed.SourceDescription
	}

	// Duplicate detection is order-sensitive (earlier rows claim the
	// fingerprint), so this phase stays sequential.
	detector := dedupe.NewDetector(s.store)
	for i, row := range parsed.Rows {
		rev, err := s.classifyRow(ctx, row, analyses[i], detector, batchID, req)
		if err != nil {
			return nil, err
		}
		queue.AddReview(rev)
	}

	s.logger.Info("Submission validated",
		"batch_id", batchID,
		"total_rows", queue.TotalRows,
		"perfect_matches", queue.PerfectMatches,
		"needs_review", queue.NeedsReview,
		"has_issues", queue.HasIssues,
	)
	return queue, nil
}

func (s *HistoricalImportService) classifyRow(
	ctx context.Context,
	row review.RawRow,
	analysis rowAnalysis,
	detector *dedupe.Detector,
	batchID string,
	req *ImportRequest,
) (*review.TransactionReview, error) {
	rev := &review.TransactionReview{
		LineNumber: row.LineNumber,
		RawText:    row.RawText,
	}

	if row.ParseError != "" {
		rev.Status = review.StatusError
		rev.ErrorMessage = fmt.Sprintf("%s: %s", row.ParseError, truncate(row.RawText, s.importCfg.LinePreviewChars))
		return rev, nil
	}

	rev.ParsedData = analysis.parsed
	if len(analysis.fieldErrors) > 0 {
		rev.Status = review.StatusError
		rev.ErrorMessage = strings.Join(analysis.fieldErrors, "; ")
		return rev, nil
	}

	rev.PropertyCandidates = analysis.propertyCandidates
	rev.CustomerCandidates = analysis.customerCandidates
	rev.SelectedPaymentSourceID = req.DefaultPaymentSourceID

	// A single exact candidate settles its dimension without human input.
	if len(analysis.propertyCandidates) == 1 && analysis.propertyCandidates[0].Exact() {
		id := analysis.propertyCandidates[0].EntityID
		rev.SelectedPropertyID = &id
	}
	if len(analysis.customerCandidates) == 1 && analysis.customerCandidates[0].Exact() {
		id := analysis.customerCandidates[0].EntityID
		rev.SelectedCustomerID = &id
	}

	dup, err := detector.Check(ctx, analysis.parsed.Key(), row.LineNumber, batchID)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		rev.Status = review.StatusDuplicate
		rev.DuplicateInfo = dup
		rev.SkipDuplicate = true
		return rev, nil
	}

	// Every transaction must land on a property; customers are attached
	// only when the row references one.
	propertyMissing := rev.SelectedPropertyID == nil
	customerMissing := analysis.parsed.CustomerRef != "" && rev.SelectedCustomerID == nil

	switch {
	case propertyMissing && customerMissing:
		rev.Status = review.StatusNeedsBoth
	case propertyMissing:
		rev.Status = review.StatusNeedsProperty
	case customerMissing:
		rev.Status = review.StatusNeedsCustomer
	default:
		rev.Status = review.StatusPerfectMatch
	}
	return rev, nil
}

// ProcessConfirmed runs phase two over the operator-edited queue. Every
// row lands in exactly one result bucket.
func (s *HistoricalImportService) ProcessConfirmed(ctx context.Context, queue *review.ReviewQueue) (*review.ImportResult, error) {
	if queue == nil || len(queue.Reviews) == 0 {
		return nil, ErrEmptyQueue
	}
	if queue.BatchID == "" {
		return nil, ErrMissingBatchID
	}
	for _, rev := range queue.Reviews {
		if !review.ValidStatus(rev.Status) {
			return nil, &InvalidStatusError{LineNumber: rev.LineNumber, Status: rev.Status}
		}
	}

	result := review.NewImportResult(queue.BatchID, queue.SourceLabel)
	for _, rev := range queue.Reviews {
		result.TotalProcessed++

		switch {
		case rev.Status == review.StatusError:
			result.FailedImports++
			result.AddError(fmt.Sprintf("Line %d: %s", rev.LineNumber, rev.ErrorMessage))

		case rev.Status == review.StatusDuplicate && rev.SkipDuplicate:
			// Clients resubmit the queue wholesale; a mangled scope must
			// still land in a counter or the result invariant breaks.
			scope := review.ScopeInDatabase
			desc := ""
			if rev.DuplicateInfo != nil {
				if review.ValidScope(rev.DuplicateInfo.Scope) {
					scope = rev.DuplicateInfo.Scope
				}
				desc = rev.DuplicateInfo.Description
			}
			result.IncrementSkipped(scope)
			result.AddSkipped(fmt.Sprintf("Line %d: duplicate (%s): %s", rev.LineNumber, scope, truncate(desc, s.importCfg.DescPreviewChars)))

		default:
			s.commitRow(ctx, rev, queue.BatchID, result)
		}
	}

	if !result.CountsConsistent() {
		s.logger.Error("Import result counters inconsistent",
			"batch_id", result.BatchID,
			"total_processed", result.TotalProcessed,
			"successful", result.SuccessfulImports,
			"failed", result.FailedImports,
			"skipped", result.SkippedDuplicates(),
		)
	}

	s.logger.Info("Batch import committed",
		"batch_id", result.BatchID,
		"successful", result.SuccessfulImports,
		"failed", result.FailedImports,
		"skipped", result.SkippedDuplicates(),
	)

	s.recordImportAudit(ctx, result)
	s.publishBatchImported(ctx, result)
	return result, nil
}

// commitRow persists one confirmed row, downgrading every problem to a
// per-row failure so the rest of the batch still lands
func (s *HistoricalImportService) commitRow(ctx context.Context, rev *review.TransactionReview, batchID string, result *review.ImportResult) {
	fail := func(msg string) {
		result.FailedImports++
		result.AddError(fmt.Sprintf("Line %d: %s", rev.LineNumber, msg))
	}

	parsed := rev.ParsedData
	if parsed == nil {
		fail("row has no parsed data")
		return
	}

	description := parsed.Description
	txType := parsed.Type
	if rev.Overrides != nil {
		if rev.Overrides.Description != nil {
			description = *rev.Overrides.Description
		}
		if rev.Overrides.TransactionType != nil {
			txType = *rev.Overrides.TransactionType
		}
	}

	if rev.SelectedPropertyID == nil {
		fail("unresolved property reference: " + parsed.PropertyRef)
		return
	}
	if ok, err := s.properties.Exists(ctx, *rev.SelectedPropertyID); err != nil {
		fail(fmt.Sprintf("property lookup failed: %v", err))
		return
	} else if !ok {
		fail(fmt.Sprintf("selected property %d does not exist", *rev.SelectedPropertyID))
		return
	}

	if rev.SelectedCustomerID != nil {
		if ok, err := s.customers.Exists(ctx, *rev.SelectedCustomerID); err != nil {
			fail(fmt.Sprintf("customer lookup failed: %v", err))
			return
		} else if !ok {
			fail(fmt.Sprintf("selected customer %d does not exist", *rev.SelectedCustomerID))
			return
		}
	}

	if rev.SelectedPaymentSourceID != nil {
		if ok, err := s.paymentSources.Exists(ctx, *rev.SelectedPaymentSourceID); err != nil {
			fail(fmt.Sprintf("payment source lookup failed: %v", err))
			return
		} else if !ok {
			fail(fmt.Sprintf("selected payment source %d does not exist", *rev.SelectedPaymentSourceID))
			return
		}
	}

	// Safety net against writes that raced in between validate and
	// confirm. Rows the operator explicitly chose to import despite a
	// known duplicate skip the wider database check (their call stands),
	// but a hit inside the current batch means a retried confirm already
	// committed this very row, so that check always runs.
	key := transaction.DuplicateKey{Date: parsed.Date, Amount: parsed.Amount, Description: description}
	checkDatabase := rev.Status != review.StatusDuplicate
	if skipped := s.safetyNetCheck(ctx, key, batchID, rev, result, checkDatabase); skipped {
		return
	}

	source := parsed.Source
	if source == "" {
		source = transaction.SourceHistoricalImport
	}

	txn := &transaction.StoredTransaction{
		ID:               uuid.New(),
		TransactionDate:  parsed.Date,
		Amount:           parsed.Amount,
		Description:      description,
		Type:             txType,
		Category:         parsed.Category,
		Subcategory:      parsed.Subcategory,
		BankReference:    parsed.BankReference,
		PaymentMethod:    parsed.PaymentMethod,
		CounterpartyName: parsed.CounterpartyName,
		Notes:            joinNotes(parsed.Notes, rev.UserNote),
		Source:           source,
		PropertyID:       rev.SelectedPropertyID,
		CustomerID:       rev.SelectedCustomerID,
		PaymentSourceID:  rev.SelectedPaymentSourceID,
		ImportBatchID:    batchID,
		PayProp:          parsed.PayProp,
		CreatedAt:        s.now(),
	}

	if err := s.store.Insert(ctx, txn); err != nil {
		fail(fmt.Sprintf("insert failed: %v", err))
		return
	}
	result.SuccessfulImports++
}

// safetyNetCheck re-runs duplicate detection against the live database
// right before insert. The in-batch check always runs; checkDatabase
// gates the cross-batch one. Returns true when the row was skipped.
func (s *HistoricalImportService) safetyNetCheck(ctx context.Context, key transaction.DuplicateKey, batchID string, rev *review.TransactionReview, result *review.ImportResult, checkDatabase bool) bool {
	skip := func(scope review.DuplicateScope) bool {
		result.IncrementSkipped(scope)
		result.AddSkipped(fmt.Sprintf("Line %d: duplicate (%s): %s", rev.LineNumber, scope, truncate(key.Description, s.importCfg.DescPreviewChars)))
		return true
	}

	existing, err := s.store.FindDuplicateInBatch(ctx, batchID, key)
	if err != nil {
		result.FailedImports++
		result.AddError(fmt.Sprintf("Line %d: duplicate re-check failed: %v", rev.LineNumber, err))
		return true
	}
	if existing != nil {
		return skip(review.ScopeInBatch)
	}

	if !checkDatabase {
		return false
	}

	existing, err = s.store.FindDuplicate(ctx, key, batchID)
	if err != nil {
		result.FailedImports++
		result.AddError(fmt.Sprintf("Line %d: duplicate re-check failed: %v", rev.LineNumber, err))
		return true
	}
	if existing != nil {
		return skip(review.ScopeInDatabase)
	}
	return false
}

// ValidateOnly reports which rows would parse and coerce cleanly, without
// touching the directories or the store. The outcome is a pure function of
// the submitted text, so it is safe to call repeatedly while an operator
// fixes up a spreadsheet.
func (s *HistoricalImportService) ValidateOnly(ctx context.Context, req *ImportRequest) (*review.ImportResult, error) {
	parsed, err := parser.Parse(req.Payload, req.Format)
	if err != nil {
		return nil, err
	}
	if len(parsed.Rows) > s.importCfg.MaxRowsPerPaste {
		return nil, &TooManyRowsError{Rows: len(parsed.Rows), Limit: s.importCfg.MaxRowsPerPaste}
	}

	sourceLabel := req.SourceLabel
	if sourceLabel == "" {
		sourceLabel = parsed.SourceDescription
	}

	result := review.NewImportResult(s.resolveBatchID(req), sourceLabel)
	for _, row := range parsed.Rows {
		result.TotalProcessed++

		if row.ParseError != "" {
			result.FailedImports++
			result.AddError(fmt.Sprintf("Line %d: %s: %s", row.LineNumber, row.ParseError, truncate(row.RawText, s.importCfg.LinePreviewChars)))
			continue
		}
		if _, fieldErrors := coerce.Coerce(row); len(fieldErrors) > 0 {
			result.FailedImports++
			result.AddError(fmt.Sprintf("Line %d: %s", row.LineNumber, strings.Join(fieldErrors, "; ")))
			continue
		}
		result.SuccessfulImports++
	}

	s.logger.Info("Submission pre-checked",
		"batch_id", result.BatchID,
		"total_rows", result.TotalProcessed,
		"clean", result.SuccessfulImports,
		"failed", result.FailedImports,
	)
	return result, nil
}

// ImportDirect chains both phases for feeds that need no human pass.
// Rows that would have needed review fail rather than import half-wrong.
func (s *HistoricalImportService) ImportDirect(ctx context.Context, req *ImportRequest) (*review.ImportResult, error) {
	queue, err := s.ValidateForReview(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.ProcessConfirmed(ctx, queue)
}

func (s *HistoricalImportService) recordImportAudit(ctx context.Context, result *review.ImportResult) {
	record := &audit.ImportRecord{
		BatchID:           result.BatchID,
		Action:            audit.ActionImport,
		SourceLabel:       result.SourceLabel,
		TotalProcessed:    result.TotalProcessed,
		SuccessfulImports: result.SuccessfulImports,
		FailedImports:     result.FailedImports,
		SkippedDuplicates: result.SkippedDuplicates(),
		Errors:            result.Errors,
		RecordedAt:        s.now(),
	}
	if err := s.auditor.Record(ctx, record); err != nil {
		s.logger.Warn("Failed to write import audit record", "batch_id", result.BatchID, "error", err)
	}
}

func (s *HistoricalImportService) publishBatchImported(ctx context.Context, result *review.ImportResult) {
	event := &producers.BatchEvent{
		Type:              producers.BatchImported,
		BatchID:           result.BatchID,
		SourceLabel:       result.SourceLabel,
		SuccessfulImports: result.SuccessfulImports,
		FailedImports:     result.FailedImports,
		SkippedDuplicates: result.SkippedDuplicates(),
		OccurredAt:        s.now(),
	}
	if err := s.publisher.Publish(ctx, result.BatchID, event); err != nil {
		s.logger.Warn("Failed to publish batch imported event", "batch_id", result.BatchID, "error", err)
	}
}

// resolveBatchID continues the caller-supplied batch when one is given;
// otherwise a fresh id is stamped. Continuation is what lets the in-batch
// duplicate scope fire across multiple pastes.
func (s *HistoricalImportService) resolveBatchID(req *ImportRequest) string {
	if id := strings.TrimSpace(req.BatchID); id != "" {
		return id
	}
	return generateBatchID(req.Format, s.now())
}

// generateBatchID stamps the format and submission time, e.g.
// HIST_CSV_20230615_143000
func generateBatchID(format parser.Format, at time.Time) string {
	return "HIST_" + strings.ToUpper(string(format)) + "_" + at.Format("20060102_150405")
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func joinNotes(notes, userNote string) string {
	switch {
	case notes == "":
		return userNote
	case userNote == "":
		return notes
	}
	return notes + " | " + userNote
}
