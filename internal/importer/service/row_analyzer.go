package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/propcrm-transaction-import/internal/domain/directory"
	"github.com/propcrm-transaction-import/internal/domain/review"
	"github.com/propcrm-transaction-import/internal/importer/coerce"
)

// rowAnalysis is the per-row outcome of the concurrent phase: typed fields
// plus resolver candidates. Duplicate detection happens later, in order.
type rowAnalysis struct {
	parsed             *review.ParsedFields
	fieldErrors        []string
	propertyCandidates []directory.MatchCandidate
	customerCandidates []directory.MatchCandidate
}

// rowAnalyzer coerces and resolves rows concurrently on a shared worker
// pool. Rows are independent at this stage so order does not matter;
// results land in the slot matching their input index.
type rowAnalyzer struct {
	properties directory.PropertyDirectory
	customers  directory.CustomerDirectory
	pool       *ants.Pool
	logger     *slog.Logger
}

func newRowAnalyzer(properties directory.PropertyDirectory, customers directory.CustomerDirectory, poolSize int, logger *slog.Logger) (*rowAnalyzer, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &rowAnalyzer{
		properties: properties,
		customers:  customers,
		pool:       pool,
		logger:     logger,
	}, nil
}

// AnalyzeAll fans rows out to the pool and waits for every result. The
// first resolver failure aborts the whole submission; a half-analyzed
// queue is not worth showing the operator.
func (a *rowAnalyzer) AnalyzeAll(ctx context.Context, rows []review.RawRow) ([]rowAnalysis, error) {
	results := make([]rowAnalysis, len(rows))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for i := range rows {
		if rows[i].ParseError != "" {
			// Unparsable rows skip analysis; classification handles them.
			continue
		}

		i := i
		wg.Add(1)
		err := a.pool.Submit(func() {
			defer wg.Done()
			analysis, err := a.analyzeRow(ctx, rows[i])
			if err != nil {
				setErr(err)
				return
			}
			results[i] = *analysis
		})
		if err != nil {
			wg.Done()
			setErr(err)
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (a *rowAnalyzer) analyzeRow(ctx context.Context, row review.RawRow) (*rowAnalysis, error) {
	parsed, fieldErrors := coerce.Coerce(row)
	analysis := &rowAnalysis{parsed: parsed, fieldErrors: fieldErrors}
	if len(fieldErrors) > 0 {
		return analysis, nil
	}

	if parsed.PropertyRef != "" {
		candidates, err := a.properties.FindCandidates(ctx, parsed.PropertyRef)
		if err != nil {
			return nil, err
		}
		analysis.propertyCandidates = candidates
	}

	if parsed.CustomerRef != "" {
		candidates, err := a.customers.FindCandidates(ctx, parsed.CustomerRef)
		if err != nil {
			return nil, err
		}
		analysis.customerCandidates = candidates
	}

	return analysis, nil
}

// Shutdown releases the worker pool
func (a *rowAnalyzer) Shutdown() {
	a.logger.Info("Shutting down row analysis pool", "running_workers", a.pool.Running())
	a.pool.Release()
}
