package search

import (
	"math"
	"strings"
)

// Scoring weights. The primary field dominates; a secondary hit adds a flat
// bonus; record magnitude contributes at most magnitudeCap points so size
// never outranks textual relevance.
const (
	scoreExact     = 100
	scorePrefix    = 75
	scoreSubstring = 50
	scoreSecondary = 30
	magnitudeCap   = 20
)

// Score grades how strongly a hit matches the query. The primary field is
// checked for exact equality, then prefix, then substring containment (all
// case-insensitive). The remaining fields are scanned in declared order and
// the first containment adds scoreSecondary once. A positive magnitude adds
// min(magnitudeCap, floor(log10(magnitude))).
func Score(h Hit, query string) int {
	q := strings.ToLower(query)
	if q == "" {
		return 0
	}

	score := 0
	primary := strings.ToLower(h.FieldValue(h.Primary))
	switch {
	case primary != "" && primary == q:
		score += scoreExact
	case strings.HasPrefix(primary, q):
		score += scorePrefix
	case strings.Contains(primary, q):
		score += scoreSubstring
	}

	for _, f := range h.Fields {
		if f.Name == h.Primary || f.Value == "" {
			continue
		}
		if strings.Contains(strings.ToLower(f.Value), q) {
			score += scoreSecondary
			break
		}
	}

	if h.Magnitude > 0 {
		bonus := int(math.Floor(math.Log10(h.Magnitude)))
		if bonus > magnitudeCap {
			bonus = magnitudeCap
		}
		if bonus > 0 {
			score += bonus
		}
	}

	return score
}
