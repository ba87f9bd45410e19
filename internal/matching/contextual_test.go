package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spigell/match-engine/internal/domain"
)

func TestContextualLeadershipCoachLanguage(t *testing.T) {
	scorer := ContextualScorer{Weights: DefaultWeights()}

	sub := scorer.Score(leadershipCoach, seniorCoachJob, Preferences{})

	assert.Equal(t, 1.0, sub.Language)
	// government only on the job side
	assert.Equal(t, 0.4, sub.Sector)
}

func TestContextualWithoutSignals(t *testing.T) {
	scorer := ContextualScorer{Weights: DefaultWeights()}

	sub := scorer.Score(domain.Profile{}, domain.Job{}, Preferences{})

	assert.Equal(t, 0.3, sub.Sector)
	assert.Equal(t, 0.3, sub.Language)
	assert.Equal(t, 0.3, sub.Format)
	assert.InDelta(t, 0.25, sub.Cultural, 1e-9)
}

func TestContextualOverlapRules(t *testing.T) {
	scorer := ContextualScorer{}

	shared := scorer.Score(
		domain.Profile{Bio: "ten years in banking"},
		domain.Job{Description: "finance team"},
		Preferences{},
	)
	assert.Equal(t, 1.0, shared.Sector)

	disjoint := scorer.Score(
		domain.Profile{Bio: "software delivery"},
		domain.Job{Description: "hospital operations"},
		Preferences{},
	)
	assert.Equal(t, 0.2, disjoint.Sector)

	oneSided := scorer.Score(
		domain.Profile{Bio: "real estate advisor"},
		domain.Job{Description: "weekly sessions"},
		Preferences{},
	)
	assert.Equal(t, 0.4, oneSided.Sector)
}

func TestContextualPreferences(t *testing.T) {
	scorer := ContextualScorer{}
	profile := domain.Profile{Bio: "banking trainer, sessions over zoom"}

	tests := []struct {
		name  string
		job   domain.Job
		prefs Preferences
		check func(t *testing.T, s SubScores)
	}{
		{
			name:  "both sides mention sector",
			job:   domain.Job{Description: "finance onboarding"},
			prefs: Preferences{Sector: "finance"},
			check: func(t *testing.T, s SubScores) { assert.Equal(t, 1.0, s.Sector) },
		},
		{
			name:  "one side mentions sector",
			job:   domain.Job{Description: "retail onboarding"},
			prefs: Preferences{Sector: "Finance"},
			check: func(t *testing.T, s SubScores) { assert.Equal(t, 0.6, s.Sector) },
		},
		{
			name:  "neither side mentions sector",
			job:   domain.Job{Description: "retail onboarding"},
			prefs: Preferences{Sector: "healthcare"},
			check: func(t *testing.T, s SubScores) { assert.Equal(t, 0.1, s.Sector) },
		},
		{
			name:  "format alias resolves to canonical",
			job:   domain.Job{Description: "fully online programme"},
			prefs: Preferences{Format: "remote"},
			check: func(t *testing.T, s SubScores) { assert.Equal(t, 1.0, s.Format) },
		},
		{
			name:  "unknown preference is matched literally",
			job:   domain.Job{Description: "aviation safety"},
			prefs: Preferences{Sector: "aviation"},
			check: func(t *testing.T, s SubScores) { assert.Equal(t, 0.6, s.Sector) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, scorer.Score(profile, tt.job, tt.prefs))
		})
	}
}

func TestContextualHybridFormat(t *testing.T) {
	sub := ContextualScorer{}.Score(
		domain.Profile{Bio: "hybrid workshops"},
		domain.Job{Description: "on-site training"},
		Preferences{},
	)
	assert.Equal(t, 0.7, sub.Format)
}

func TestContextualCulturalUsesRegion(t *testing.T) {
	sub := ContextualScorer{}.Score(
		domain.Profile{Location: "Abu Dhabi"},
		domain.Job{Title: "Trainer", Region: "Abu Dhabi"},
		Preferences{},
	)
	assert.InDelta(t, 0.5*0.3+0.5*0.6, sub.Cultural, 1e-9)

	both := ContextualScorer{}.Score(
		domain.Profile{Bio: "multicultural teams across the GCC"},
		domain.Job{Description: "expat onboarding"},
		Preferences{},
	)
	assert.InDelta(t, 0.5*0.3+0.5*1.0, both.Cultural, 1e-9)
}

func TestWordBoundaries(t *testing.T) {
	sub := ContextualScorer{}.Score(
		domain.Profile{Bio: "arabian nights storyteller"},
		domain.Job{Description: "arabic tutor"},
		Preferences{},
	)
	// "arabian" is neither a language nor the cultural keyword "arab"
	assert.Equal(t, 0.4, sub.Language)
}

func TestWeightsCombine(t *testing.T) {
	all := SubScores{Sector: 1, Language: 1, Format: 1, Cultural: 1}
	assert.InDelta(t, 1.0, DefaultWeights().Combine(all), 1e-9)

	s := SubScores{Sector: 0.8, Language: 0.4, Format: 0.2, Cultural: 0.6}
	want := 0.35*0.8 + 0.25*0.4 + 0.15*0.2 + 0.25*0.6
	assert.InDelta(t, want, DefaultWeights().Combine(s), 1e-9)

	assert.InDelta(t, 0.8, Weights{Sector: 2}.Combine(s), 1e-9)
	assert.InDelta(t, want, Weights{}.Combine(s), 1e-9)
	assert.InDelta(t, want, Weights{Sector: -1, Language: 2}.Combine(s), 1e-9)
}

func TestPreferencesScoring(t *testing.T) {
	assert.False(t, Preferences{}.Scoring())
	assert.False(t, Preferences{Emirate: "Dubai"}.Scoring())
	assert.True(t, Preferences{Language: "arabic"}.Scoring())
}
