package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/propcrm-transaction-import/internal/domain/directory"
)

// PropertyResolver implements directory.PropertyDirectory over a
// PropertyReader
type PropertyResolver struct {
	reader directory.PropertyReader
	opts   Options
	logger *slog.Logger
}

func NewPropertyResolver(reader directory.PropertyReader, opts Options, logger *slog.Logger) *PropertyResolver {
	return &PropertyResolver{reader: reader, opts: opts, logger: logger}
}

// FindCandidates resolves a free-text property reference. An empty
// reference yields no candidates rather than an error; an absent property
// is a review outcome, not a failure.
func (r *PropertyResolver) FindCandidates(ctx context.Context, text string) ([]directory.MatchCandidate, error) {
	ref := normalize(text)
	if ref == "" {
		return nil, nil
	}

	// Tier 1: external system ID passthrough.
	if prop, err := r.reader.GetByPaypropID(ctx, strings.TrimSpace(text)); err != nil {
		return nil, fmt.Errorf("property lookup by external id: %w", err)
	} else if prop != nil {
		return []directory.MatchCandidate{propertyCandidate(prop, 1, directory.MatchReasonExactID)}, nil
	}

	// Tier 2: exact name, case-insensitive. A sole hit settles the
	// dimension; namesakes all come back at full confidence so the
	// operator picks between them.
	if props, err := r.reader.ListByNameIgnoreCase(ctx, strings.TrimSpace(text)); err != nil {
		return nil, fmt.Errorf("property lookup by name: %w", err)
	} else if len(props) > 0 {
		candidates := make([]directory.MatchCandidate, 0, len(props))
		for _, prop := range props {
			candidates = append(candidates, propertyCandidate(prop, 1, directory.MatchReasonExactName))
		}
		return rank(candidates, r.opts.MaxCandidates), nil
	}

	// Tier 3: fuzzy scan over the directory.
	all, err := r.reader.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing properties for fuzzy match: %w", err)
	}

	var candidates []directory.MatchCandidate
	for _, prop := range all {
		score := fuzzyScore(ref, normalize(prop.PropertyName))
		if s := fuzzyScore(ref, normalize(prop.AddressLine1)); s > score {
			score = s
		}
		reason := directory.MatchReasonFuzzyName

		// A postcode fragment in the reference disambiguates similarly
		// named properties.
		if pc := normalize(prop.Postcode); pc != "" && strings.Contains(ref, pc) {
			if score < r.opts.FuzzyThreshold {
				score = r.opts.FuzzyThreshold
				reason = directory.MatchReasonPostcode
			} else if score < 1-postcodeBoost {
				score += postcodeBoost
			}
		}

		if score >= r.opts.FuzzyThreshold {
			candidates = append(candidates, propertyCandidate(prop, score, reason))
		}
	}

	candidates = rank(candidates, r.opts.MaxCandidates)
	r.logger.Debug("Property reference resolved",
		"reference", text,
		"candidates", len(candidates),
	)
	return candidates, nil
}

// Exists delegates to the reader
func (r *PropertyResolver) Exists(ctx context.Context, id int64) (bool, error) {
	return r.reader.Exists(ctx, id)
}

func propertyCandidate(p *directory.Property, confidence float64, reason directory.MatchReason) directory.MatchCandidate {
	label := p.PropertyName
	if p.Postcode != "" {
		label = label + " (" + p.Postcode + ")"
	}
	return directory.MatchCandidate{
		EntityID:     p.ID,
		DisplayLabel: label,
		Confidence:   confidence,
		Reason:       reason,
	}
}
