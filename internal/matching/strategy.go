package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/match-engine/internal/ai"
	"github.com/spigell/match-engine/internal/domain"
)

var errNoEmbedder = errors.New("no embedding provider configured")

// Input is a profile/job pair with whatever vectors are already known.
type Input struct {
	Profile       domain.Profile
	Job           domain.Job
	ProfileVector domain.Embedding
	JobVector     domain.Embedding
}

// StrategyResult is the outcome of one scoring attempt. A non-nil Err means
// the strategy could not produce a score and the next one should be tried.
type StrategyResult struct {
	Score float64
	Err   error
}

// Scorer is one step of the ordered scoring chain.
type Scorer interface {
	Name() Strategy
	Score(ctx context.Context, in Input) StrategyResult
}

// EmbeddingScorer scores a pair by the similarity of their embeddings,
// embedding whichever side has no vector yet.
type EmbeddingScorer struct {
	Embedder ai.Embedder
	// Timeout bounds every provider call.
	Timeout time.Duration
}

func (s EmbeddingScorer) Name() Strategy { return StrategyEmbedding }

func (s EmbeddingScorer) Score(ctx context.Context, in Input) StrategyResult {
	profile, err := s.vector(ctx, in.ProfileVector, in.Profile.Text())
	if err != nil {
		return StrategyResult{Err: fmt.Errorf("profile embedding: %w", err)}
	}

	job, err := s.vector(ctx, in.JobVector, in.Job.Text())
	if err != nil {
		return StrategyResult{Err: fmt.Errorf("job embedding: %w", err)}
	}

	score, err := Similarity(profile, job)
	if err != nil {
		return StrategyResult{Err: err}
	}
	return StrategyResult{Score: score}
}

func (s EmbeddingScorer) vector(ctx context.Context, known domain.Embedding, text string) (domain.Embedding, error) {
	if known.Valid() {
		return known, nil
	}
	return s.embed(ctx, text)
}

func (s EmbeddingScorer) embed(ctx context.Context, text string) (domain.Embedding, error) {
	if s.Embedder == nil {
		return nil, errNoEmbedder
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	vec, err := s.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if !vec.Valid() {
		return nil, ai.ErrEmptyEmbedding
	}
	return vec, nil
}

// HeuristicScorer never fails.
type HeuristicScorer struct{}

func (HeuristicScorer) Name() Strategy { return StrategyHeuristic }

func (HeuristicScorer) Score(_ context.Context, in Input) StrategyResult {
	return StrategyResult{Score: HeuristicScore(in.Profile, in.Job)}
}

// unavailable stands in for a strategy known to be failing for the whole
// request, e.g. when the subject itself could not be embedded.
type unavailable struct {
	name Strategy
	err  error
}

func (u unavailable) Name() Strategy { return u.name }

func (u unavailable) Score(context.Context, Input) StrategyResult {
	return StrategyResult{Err: u.err}
}
