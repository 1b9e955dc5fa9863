// Package match resolves free-text property and customer references from
// import rows into ranked directory candidates. Resolution runs in tiers:
// exact external ID, exact name, then fuzzy name scoring, with postcode
// fragments breaking ties for properties.
package match

import (
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/propcrm-transaction-import/internal/domain/directory"
)

const (
	containmentConfidence = 0.80
	postcodeBoost         = 0.10
)

// Options tunes the fuzzy tier
type Options struct {
	// FuzzyThreshold is the minimum normalized similarity (0-1) a
	// non-exact candidate needs to be surfaced
	FuzzyThreshold float64
	// MaxCandidates caps how many candidates a single lookup returns
	MaxCandidates int
}

// similarity is 1 for identical strings and falls toward 0 with edit
// distance, normalized by the longer string so short names are not
// penalized for length
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return 1 - float64(dist)/float64(longest)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// fuzzyScore compares a normalized reference against a normalized name.
// Containment (either direction) scores a flat confidence above the usual
// threshold; otherwise edit distance decides.
func fuzzyScore(ref, name string) float64 {
	if ref == "" || name == "" {
		return 0
	}
	if ref == name {
		return 1
	}
	if strings.Contains(name, ref) || strings.Contains(ref, name) {
		return containmentConfidence
	}
	return similarity(ref, name)
}

// rank sorts candidates by confidence descending (ID ascending on ties for
// stable output) and applies the cap
func rank(candidates []directory.MatchCandidate, max int) []directory.MatchCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].EntityID < candidates[j].EntityID
	})
	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}
