// Package score computes the cheap similarity signals used to prune the
// (evidence x promise) candidate space before any judge call is made.
package score

import (
	"math"

	"github.com/civictrace/promislink/internal/keywords"
)

// Weights are the tunable boost constants layered on top of Jaccard overlap.
// One explicit scheme, validated empirically; the boosts are additive and the
// final score is clamped to [0, 1].
type Weights struct {
	// ImportantBoost is added once per domain-important tag present on both
	// sides, up to ImportantCap.
	ImportantBoost float64
	ImportantCap   float64

	// DepartmentBoost is added when a canonical department tag matches on
	// both sides. Department alignment is a strong relevance signal, so this
	// is the largest single boost.
	DepartmentBoost float64
}

// DefaultWeights returns the standard boost constants
func DefaultWeights() Weights {
	return Weights{
		ImportantBoost:  0.05,
		ImportantCap:    0.15,
		DepartmentBoost: 0.2,
	}
}

// Scorer computes keyword-set similarity
type Scorer struct {
	w Weights
}

// NewScorer creates a scorer with the given boost weights
func NewScorer(w Weights) *Scorer {
	return &Scorer{w: w}
}

// Similarity scores the overlap between two term sets: Jaccard index plus a
// small boost per shared domain-important tag and a larger boost on a shared
// department tag, clamped to [0, 1]. Empty input on either side scores 0.
// The function is symmetric and identical non-empty sets score 1.0.
func (s *Scorer) Similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	var intersection, topicMatches int
	deptMatch := false
	for tok := range small {
		if _, ok := large[tok]; !ok {
			continue
		}
		intersection++
		switch {
		case keywords.IsTopicTag(tok):
			topicMatches++
		case keywords.IsDeptTag(tok):
			deptMatch = true
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	sim := float64(intersection) / float64(union)
	sim += math.Min(float64(topicMatches)*s.w.ImportantBoost, s.w.ImportantCap)
	if deptMatch {
		sim += s.w.DepartmentBoost
	}

	return clamp01(sim)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
