package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/propcrm-transaction-import/internal/domain/directory"
)

// CustomerResolver implements directory.CustomerDirectory over a
// CustomerReader
type CustomerResolver struct {
	reader directory.CustomerReader
	opts   Options
	logger *slog.Logger
}

func NewCustomerResolver(reader directory.CustomerReader, opts Options, logger *slog.Logger) *CustomerResolver {
	return &CustomerResolver{reader: reader, opts: opts, logger: logger}
}

// FindCandidates resolves a free-text customer reference. References that
// look like email addresses try the email index before anything else.
func (r *CustomerResolver) FindCandidates(ctx context.Context, text string) ([]directory.MatchCandidate, error) {
	ref := normalize(text)
	if ref == "" {
		return nil, nil
	}

	if cust, err := r.reader.GetByPaypropID(ctx, strings.TrimSpace(text)); err != nil {
		return nil, fmt.Errorf("customer lookup by external id: %w", err)
	} else if cust != nil {
		return []directory.MatchCandidate{customerCandidate(cust, 1, directory.MatchReasonExactID)}, nil
	}

	// An email address identifies a customer as reliably as a name match.
	if strings.Contains(ref, "@") {
		if cust, err := r.reader.GetByEmail(ctx, ref); err != nil {
			return nil, fmt.Errorf("customer lookup by email: %w", err)
		} else if cust != nil {
			return []directory.MatchCandidate{customerCandidate(cust, 1, directory.MatchReasonExactName)}, nil
		}
	}

	all, err := r.reader.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing customers for fuzzy match: %w", err)
	}

	var exact []directory.MatchCandidate
	var fuzzy []directory.MatchCandidate
	for _, cust := range all {
		name := normalize(cust.FullName())
		if name == "" {
			continue
		}
		if name == ref {
			exact = append(exact, customerCandidate(cust, 1, directory.MatchReasonExactName))
			continue
		}
		if score := fuzzyScore(ref, name); score >= r.opts.FuzzyThreshold {
			fuzzy = append(fuzzy, customerCandidate(cust, score, directory.MatchReasonFuzzyName))
		}
	}

	// A single exact full-name hit settles the dimension; several exact
	// hits are ambiguous and go to review like fuzzy ones would.
	if len(exact) == 1 {
		return exact, nil
	}
	candidates := rank(append(exact, fuzzy...), r.opts.MaxCandidates)
	r.logger.Debug("Customer reference resolved",
		"reference", text,
		"candidates", len(candidates),
	)
	return candidates, nil
}

// Exists delegates to the reader
func (r *CustomerResolver) Exists(ctx context.Context, id int64) (bool, error) {
	return r.reader.Exists(ctx, id)
}

func customerCandidate(c *directory.Customer, confidence float64, reason directory.MatchReason) directory.MatchCandidate {
	label := c.FullName()
	if c.Email != "" {
		label = label + " <" + c.Email + ">"
	}
	return directory.MatchCandidate{
		EntityID:     c.ID,
		DisplayLabel: label,
		Confidence:   confidence,
		Reason:       reason,
	}
}
