package matching

import (
	"context"
	"time"
)

// Strategy names the scoring path that produced a MatchScore.
type Strategy string

const (
	StrategyEmbedding Strategy = "embedding"
	StrategyHeuristic Strategy = "heuristic"
	// StrategyFloor is recorded when every strategy failed.
	StrategyFloor Strategy = "floor"
)

// SubScores is the contextual breakdown of a match. Every value is in [0,1].
type SubScores struct {
	Sector   float64 `json:"sector"`
	Language float64 `json:"language"`
	Format   float64 `json:"format"`
	Cultural float64 `json:"cultural"`
}

// MatchScore is the outcome of scoring one candidate against a subject.
type MatchScore struct {
	SubjectID   string `json:"subjectId"`
	CandidateID string `json:"candidateId"`
	// Overall is always within [0,1].
	Overall float64 `json:"overallScore"`
	// SubScores is set only when contextual scoring was used.
	SubScores *SubScores `json:"subscores,omitempty"`
	Strategy  Strategy   `json:"strategy"`
	// Degraded marks scores produced after an earlier strategy failed.
	Degraded   bool      `json:"degraded,omitempty"`
	ComputedAt time.Time `json:"computedAt"`
}

// Key addresses a cached score. Variant separates scores of the same pair
// computed under different modes, preferences or entity versions.
type Key struct {
	SubjectID   string
	CandidateID string
	Variant     string
}

// ScoreCache stores computed scores. Implementations must be safe for
// concurrent use; concurrent writes of the same key may race, last writer wins.
type ScoreCache interface {
	Get(ctx context.Context, key Key) (MatchScore, bool)
	Put(ctx context.Context, key Key, score MatchScore)
}

// Strength is the display label of a score range.
type Strength string

const (
	StrengthExceptional Strength = "exceptional"
	StrengthExcellent   Strength = "excellent"
	StrengthStrong      Strength = "strong"
	StrengthGood        Strength = "good"
	StrengthModerate    Strength = "moderate"
	StrengthBasic       Strength = "basic"
)

// StrengthFor labels score.
func StrengthFor(score float64) Strength {
	switch {
	case score >= 0.9:
		return StrengthExceptional
	case score >= 0.8:
		return StrengthExcellent
	case score >= 0.7:
		return StrengthStrong
	case score >= 0.6:
		return StrengthGood
	case score >= 0.4:
		return StrengthModerate
	default:
		return StrengthBasic
	}
}
