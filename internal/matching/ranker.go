package matching

import (
	"cmp"
	"slices"
)

const (
	// DefaultLimit is the shortlist size when a request does not name one.
	DefaultLimit = 5
	// DefaultMinScore is the minimum acceptance threshold.
	DefaultMinScore = 0.3
)

// Ranked is a thresholded, ordered match.
type Ranked struct {
	MatchScore
	// Effective is the ranking key. It is never stored back into the score.
	Effective float64  `json:"-"`
	Strength  Strength `json:"matchStrength"`
}

// Ranker filters, sorts and truncates scored candidates.
type Ranker struct {
	MinScore float64
}

// Rank drops scores below MinScore, orders the rest by effective score and
// returns at most limit entries. A non-positive limit means DefaultLimit.
func (r Ranker) Rank(scores []MatchScore, limit int) []Ranked {
	if limit <= 0 {
		limit = DefaultLimit
	}

	ranked := make([]Ranked, 0, len(scores))
	for _, score := range scores {
		if score.Overall < r.MinScore {
			continue
		}
		ranked = append(ranked, Ranked{
			MatchScore: score,
			Effective:  EffectiveScore(score),
			Strength:   StrengthFor(score.Overall),
		})
	}

	slices.SortFunc(ranked, func(a, b Ranked) int {
		if c := cmp.Compare(b.Effective, a.Effective); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Overall, a.Overall); c != 0 {
			return c
		}
		return cmp.Compare(a.CandidateID, b.CandidateID)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// EffectiveScore adds the contextual tie-break bonus of up to 0.1 derived from
// the cultural and language sub-scores.
func EffectiveScore(s MatchScore) float64 {
	if s.SubScores == nil {
		return s.Overall
	}
	bonus := (s.SubScores.Cultural*100 + s.SubScores.Language*100) / 200 * 10
	return s.Overall + bonus/100
}
