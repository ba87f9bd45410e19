package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(ranked []Ranked) []string {
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.CandidateID)
	}
	return out
}

func TestRankThresholdAndLimit(t *testing.T) {
	scores := []MatchScore{
		{CandidateID: "a", Overall: 0.9},
		{CandidateID: "b", Overall: 0.2},
		{CandidateID: "c", Overall: 0.5},
		{CandidateID: "d", Overall: 0.31},
		{CandidateID: "e", Overall: 0.29},
	}

	ranked := Ranker{MinScore: DefaultMinScore}.Rank(scores, 2)

	assert.Equal(t, []string{"a", "c"}, ids(ranked))
}

func TestRankFewerThanLimit(t *testing.T) {
	scores := []MatchScore{
		{CandidateID: "a", Overall: 0.45},
		{CandidateID: "b", Overall: 0.1},
		{CandidateID: "c", Overall: 0.35},
	}

	ranked := Ranker{MinScore: DefaultMinScore}.Rank(scores, 3)

	assert.Equal(t, []string{"a", "c"}, ids(ranked))
	for _, r := range ranked {
		assert.GreaterOrEqual(t, r.Overall, DefaultMinScore)
	}
}

func TestRankDefaultLimit(t *testing.T) {
	scores := make([]MatchScore, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		scores = append(scores, MatchScore{CandidateID: id, Overall: 0.5})
	}

	ranked := Ranker{}.Rank(scores, 0)

	assert.Len(t, ranked, DefaultLimit)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(ranked))
}

func TestRankContextualBonusBreaksTies(t *testing.T) {
	scores := []MatchScore{
		{CandidateID: "plain", Overall: 0.7},
		{CandidateID: "fluent", Overall: 0.7, SubScores: &SubScores{Cultural: 1, Language: 1}},
		{CandidateID: "weak", Overall: 0.7, SubScores: &SubScores{}},
	}

	ranked := Ranker{}.Rank(scores, 5)

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"fluent", "plain", "weak"}, ids(ranked))
	assert.InDelta(t, 0.8, ranked[0].Effective, 1e-9)
	// the bonus is never stored in the score itself
	assert.Equal(t, 0.7, ranked[0].Overall)
}

func TestRankStrictlyDescendingByEffective(t *testing.T) {
	scores := []MatchScore{
		{CandidateID: "x", Overall: 0.62, SubScores: &SubScores{Cultural: 0.2, Language: 0.2}},
		{CandidateID: "y", Overall: 0.6, SubScores: &SubScores{Cultural: 1, Language: 1}},
		{CandidateID: "z", Overall: 0.95},
		{CandidateID: "w", Overall: 0.4},
	}

	ranked := Ranker{}.Rank(scores, 10)

	assert.Equal(t, []string{"z", "y", "x", "w"}, ids(ranked))
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Effective, ranked[i].Effective)
	}
}

func TestEffectiveScore(t *testing.T) {
	s := MatchScore{Overall: 0.5, SubScores: &SubScores{Cultural: 0.6, Language: 0.4}}
	assert.InDelta(t, 0.55, EffectiveScore(s), 1e-9)
	assert.Equal(t, 0.5, EffectiveScore(MatchScore{Overall: 0.5}))
}

func TestStrengthFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Strength
	}{
		{1, StrengthExceptional},
		{0.9, StrengthExceptional},
		{0.85, StrengthExcellent},
		{0.7, StrengthStrong},
		{0.65, StrengthGood},
		{0.4, StrengthModerate},
		{0.39, StrengthBasic},
		{0, StrengthBasic},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StrengthFor(tt.score), "score %v", tt.score)
	}
}

func TestRecommendations(t *testing.T) {
	contextual := MatchScore{SubScores: &SubScores{Sector: 0.9, Language: 0.2, Format: 0.7, Cultural: 0.4}}
	hints := Recommendations(contextual, HeuristicFactors{})
	assert.Len(t, hints, 2)

	plain := Recommendations(MatchScore{}, HeuristicFactors{Title: true, Bio: true})
	assert.Equal(t, []string{"Location differs from the job location"}, plain)

	assert.Empty(t, Recommendations(MatchScore{}, HeuristicFactors{Title: true, Industry: true, Location: true}))
}
