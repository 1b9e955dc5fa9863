package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReviewQueue_AddReview_Counters(t *testing.T) {
	q := NewReviewQueue("HIST_CSV_20250101_000000")

	q.AddReview(&TransactionReview{LineNumber: 2, Status: StatusPerfectMatch})
	q.AddReview(&TransactionReview{LineNumber: 3, Status: StatusNeedsProperty})
	q.AddReview(&TransactionReview{LineNumber: 4, Status: StatusNeedsBoth})
	q.AddReview(&TransactionReview{LineNumber: 5, Status: StatusDuplicate})
	q.AddReview(&TransactionReview{LineNumber: 6, Status: StatusError})

	assert.Equal(t, 5, q.TotalRows)
	assert.Equal(t, 1, q.PerfectMatches)
	assert.Equal(t, 3, q.NeedsReview)
	assert.Equal(t, 1, q.HasIssues)
	assert.Len(t, q.Reviews, 5)
}

func TestImportResult_Counts(t *testing.T) {
	r := NewImportResult("HIST_CSV_20250101_000000", "csv_paste_import")

	r.TotalProcessed = 5
	r.SuccessfulImports = 2
	r.FailedImports = 1
	r.IncrementSkipped(ScopeInPaste)
	r.IncrementSkipped(ScopeInDatabase)

	assert.Equal(t, 2, r.SkippedDuplicates())
	assert.True(t, r.CountsConsistent())

	r.IncrementSkipped(ScopeInBatch)
	assert.False(t, r.CountsConsistent())
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusPerfectMatch, StatusNeedsProperty, StatusNeedsCustomer, StatusNeedsBoth, StatusDuplicate, StatusError} {
		assert.True(t, ValidStatus(s), string(s))
	}
	assert.False(t, ValidStatus(Status("PERFECT")))
	assert.False(t, ValidStatus(Status("")))
}
