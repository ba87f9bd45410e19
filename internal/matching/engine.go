// Package matching scores professionals against jobs and ranks the results.
package matching

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/match-engine/internal/ai"
	"github.com/spigell/match-engine/internal/domain"
	"github.com/spigell/match-engine/internal/filtering"
	"github.com/spigell/match-engine/internal/logger"
	"github.com/spigell/match-engine/internal/utils"
)

const (
	DirectionJobsForProfessional = "jobs_for_professional"
	DirectionProfessionalsForJob = "professionals_for_job"

	DefaultFloorScore    = 0.01
	DefaultContextWeight = 0.5
	DefaultConcurrency   = 8
	DefaultEmbedTimeout  = 5 * time.Second
	DefaultPoolSize      = 100
)

// ErrNilStore is returned by New when a store dependency is missing.
var ErrNilStore = errors.New("matching: profile and job stores are required")

// ProfileStore looks up professionals. GetProfile returns nil, nil when the
// profile does not exist.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	ListProfiles(ctx context.Context, limit int) ([]domain.Profile, error)
}

// JobStore looks up jobs. GetJob returns nil, nil when the job does not exist.
type JobStore interface {
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	ListOpenJobs(ctx context.Context, limit int) ([]domain.Job, error)
}

// Metrics receives engine events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	CacheLookup(hit bool)
	StrategyOutcome(strategy string, ok bool)
	ProviderFailure(provider string)
	RequestDone(direction string, elapsed time.Duration, scored int)
}

// Deps are the collaborators of an Engine. Embedder, Cache, Logger and
// Metrics are optional.
type Deps struct {
	Profiles ProfileStore
	Jobs     JobStore
	Embedder ai.Embedder
	Cache    ScoreCache
	Logger   *zap.Logger
	Metrics  Metrics
}

// Config tunes scoring. Zero values select the defaults.
type Config struct {
	MinScore      float64       `mapstructure:"min-score"`
	FloorScore    float64       `mapstructure:"floor-score"`
	ContextWeight float64       `mapstructure:"context-weight"`
	Weights       Weights       `mapstructure:"weights"`
	Concurrency   int           `mapstructure:"concurrency"`
	EmbedTimeout  time.Duration `mapstructure:"embed-timeout"`
	DefaultLimit  int           `mapstructure:"default-limit"`
	PoolSize      int           `mapstructure:"pool-size"`
	ExcludeFile   string        `mapstructure:"exclude-file"`
}

func (c Config) withDefaults() Config {
	if c.MinScore <= 0 {
		c.MinScore = DefaultMinScore
	}
	if c.FloorScore <= 0 {
		c.FloorScore = DefaultFloorScore
	}
	if c.ContextWeight <= 0 || c.ContextWeight > 1 {
		c.ContextWeight = DefaultContextWeight
	}
	if c.Weights.sum() <= 0 {
		c.Weights = DefaultWeights()
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = DefaultEmbedTimeout
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultLimit
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	return c
}

// Request describes one match request.
type Request struct {
	// Limit caps the number of returned matches.
	Limit int
	// Pool caps the number of candidates listed from the store.
	Pool int
	// Contextual enables sector, language, format and cultural scoring. It is
	// implied by any scoring preference.
	Contextual  bool
	Preferences Preferences
	// Exclude lists candidate IDs that must not be returned.
	Exclude []string
	// MinScore overrides the configured acceptance threshold when set.
	MinScore *float64
}

func (r Request) contextual() bool {
	return r.Contextual || r.Preferences.Scoring()
}

// Match is a ranked candidate together with its entity.
type Match[T domain.Entity] struct {
	Entity T `json:"entity"`
	Ranked
	Recommendations []string `json:"recommendations,omitempty"`
}

// Stats summarizes how a request was served.
type Stats struct {
	RequestID  string `json:"requestId"`
	Candidates int    `json:"candidates"`
	Filtered   int    `json:"filtered"`
	Scored     int    `json:"scored"`
	CacheHits  int    `json:"cacheHits"`
	Fallbacks  int    `json:"fallbacks"`
	// Partial is set when the request ended before every candidate was scored.
	Partial bool `json:"partial"`
}

// Result is the ranked shortlist of a request.
type Result[T domain.Entity] struct {
	Matches []Match[T] `json:"matches"`
	Stats   Stats      `json:"stats"`
}

// Engine orchestrates scoring, caching and ranking in both directions.
type Engine struct {
	profiles   ProfileStore
	jobs       JobStore
	embedder   ai.Embedder
	cache      ScoreCache
	contextual ContextualScorer
	metrics    Metrics
	logger     *zap.Logger
	cfg        Config
}

// New builds an Engine.
func New(deps Deps, cfg Config) (*Engine, error) {
	if deps.Profiles == nil || deps.Jobs == nil {
		return nil, ErrNilStore
	}

	cfg = cfg.withDefaults()

	e := &Engine{
		profiles:   deps.Profiles,
		jobs:       deps.Jobs,
		embedder:   deps.Embedder,
		cache:      deps.Cache,
		contextual: ContextualScorer{Weights: cfg.Weights},
		metrics:    deps.Metrics,
		logger:     logger.WithFields(deps.Logger),
		cfg:        cfg,
	}
	if e.cache == nil {
		e.cache = noCache{}
	}
	if e.metrics == nil {
		e.metrics = noMetrics{}
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// JobsForProfessional ranks open jobs for a professional. A missing
// professional yields an empty result and no error.
func (e *Engine) JobsForProfessional(ctx context.Context, professionalID string, req Request) (*Result[domain.Job], error) {
	return run(ctx, e, direction[domain.Profile, domain.Job]{
		name: DirectionJobsForProfessional,
		load: e.profiles.GetProfile,
		list: e.jobs.ListOpenJobs,
		filters: func(req Request) []filtering.Filter[domain.Job] {
			return []filtering.Filter[domain.Job]{
				filtering.NewOpenJobs(),
				filtering.NewRegion[domain.Job](req.Preferences.Emirate),
				filtering.NewExclude[domain.Job](req.Exclude),
				filtering.NewExcludeFile[domain.Job](e.cfg.ExcludeFile),
			}
		},
		subject: func(p domain.Profile) (domain.Embedding, string) {
			return p.Embedding, p.Text()
		},
		input: func(p domain.Profile, j domain.Job, vec domain.Embedding) Input {
			return Input{Profile: p, Job: j, ProfileVector: vec}
		},
	}, professionalID, req)
}

// ProfessionalsForJob ranks professionals for a job. A missing job yields an
// empty result and no error.
func (e *Engine) ProfessionalsForJob(ctx context.Context, jobID string, req Request) (*Result[domain.Profile], error) {
	return run(ctx, e, direction[domain.Job, domain.Profile]{
		name:   DirectionProfessionalsForJob,
		load:   e.jobs.GetJob,
		accept: domain.Job.IsOpen,
		list:   e.profiles.ListProfiles,
		filters: func(req Request) []filtering.Filter[domain.Profile] {
			return []filtering.Filter[domain.Profile]{
				filtering.NewRegion[domain.Profile](req.Preferences.Emirate),
				filtering.NewExclude[domain.Profile](req.Exclude),
				filtering.NewExcludeFile[domain.Profile](e.cfg.ExcludeFile),
			}
		},
		subject: func(j domain.Job) (domain.Embedding, string) {
			return nil, j.Text()
		},
		input: func(j domain.Job, p domain.Profile, vec domain.Embedding) Input {
			return Input{Profile: p, Job: j, ProfileVector: p.Embedding, JobVector: vec}
		},
	}, jobID, req)
}

// direction binds the generic pipeline to a subject and candidate type.
type direction[S, C domain.Entity] struct {
	name string
	load func(ctx context.Context, id string) (*S, error)
	// accept reports whether a loaded subject can be matched at all.
	accept  func(S) bool
	list    func(ctx context.Context, limit int) ([]C, error)
	filters func(req Request) []filtering.Filter[C]
	// subject returns the known vector and the text to embed otherwise.
	subject func(S) (domain.Embedding, string)
	input   func(subject S, candidate C, subjectVector domain.Embedding) Input
}

func run[S, C domain.Entity](ctx context.Context, e *Engine, d direction[S, C], subjectID string, req Request) (*Result[C], error) {
	start := time.Now()
	requestID := uuid.NewString()
	log := logger.WithRequest(e.logger, requestID, d.name, subjectID)

	result := &Result[C]{Matches: []Match[C]{}, Stats: Stats{RequestID: requestID}}
	defer func() {
		e.metrics.RequestDone(d.name, time.Since(start), result.Stats.Scored)
	}()

	req = e.normalize(req)

	subject, err := d.load(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("loading subject %q: %w", subjectID, err)
	}
	if subject == nil {
		log.Info("subject not found")
		return result, nil
	}
	if d.accept != nil && !d.accept(*subject) {
		log.Info("subject is not matchable")
		return result, nil
	}

	candidates, err := d.list(ctx, req.Pool)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	candidates = unique(candidates)
	result.Stats.Candidates = len(candidates)

	candidates, err = filtering.Run(ctx, log, d.filters(req), candidates)
	if err != nil {
		return nil, fmt.Errorf("filtering candidates: %w", err)
	}
	result.Stats.Filtered = result.Stats.Candidates - len(candidates)

	known, text := d.subject(*subject)
	scorers, subjectVector := e.scorers(ctx, log, known, text)
	contextual := req.contextual()
	variantPrefix := e.variantPrefix(d.name, contextual, req.Preferences, (*subject).Version())

	slots := make([]*MatchScore, len(candidates))
	inputs := make([]Input, len(candidates))
	var hits, fallbacks atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Concurrency)

	for i, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		inputs[i] = d.input(*subject, candidate, subjectVector)

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			key := Key{
				SubjectID:   subjectID,
				CandidateID: candidate.EntityID(),
				Variant:     variantPrefix + ":" + versionStamp(candidate.Version()),
			}

			if cached, ok := e.cache.Get(ctx, key); ok {
				e.metrics.CacheLookup(true)
				hits.Add(1)
				slots[i] = &cached
				return nil
			}
			e.metrics.CacheLookup(false)

			candidateLog := logger.WithCandidate(log, candidate.EntityID())
			score := e.compute(ctx, candidateLog, scorers, inputs[i], contextual, req.Preferences)
			score.SubjectID = subjectID
			score.CandidateID = candidate.EntityID()

			if score.Degraded {
				fallbacks.Add(1)
			} else {
				e.cache.Put(ctx, key, score)
			}
			slots[i] = &score
			return nil
		})
	}
	_ = g.Wait()

	scores := make([]MatchScore, 0, len(slots))
	byID := make(map[string]int, len(slots))
	for i, slot := range slots {
		if slot == nil {
			continue
		}
		scores = append(scores, *slot)
		byID[slot.CandidateID] = i
	}

	result.Stats.Scored = len(scores)
	result.Stats.CacheHits = int(hits.Load())
	result.Stats.Fallbacks = int(fallbacks.Load())
	result.Stats.Partial = ctx.Err() != nil || len(scores) < len(candidates)

	ranker := Ranker{MinScore: *req.MinScore}
	for _, ranked := range ranker.Rank(scores, req.Limit) {
		i := byID[ranked.CandidateID]
		in := inputs[i]
		result.Matches = append(result.Matches, Match[C]{
			Entity:          candidates[i],
			Ranked:          ranked,
			Recommendations: Recommendations(ranked.MatchScore, Heuristic(in.Profile, in.Job)),
		})
	}

	log.Debug("match request finished",
		zap.Int("candidates", result.Stats.Candidates),
		zap.Int("filtered", result.Stats.Filtered),
		zap.Int("scored", result.Stats.Scored),
		zap.Int("cache_hits", result.Stats.CacheHits),
		zap.Int("fallbacks", result.Stats.Fallbacks),
		zap.Int("matches", len(result.Matches)),
		zap.Bool("partial", result.Stats.Partial),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

// unique keeps the first candidate of every ID.
func unique[C domain.Entity](candidates []C) []C {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]C, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.EntityID()]; ok {
			continue
		}
		seen[c.EntityID()] = struct{}{}
		out = append(out, c)
	}
	return out
}

func (e *Engine) normalize(req Request) Request {
	if req.Limit <= 0 {
		req.Limit = e.cfg.DefaultLimit
	}
	if req.Pool <= 0 {
		req.Pool = e.cfg.PoolSize
	}
	if req.Pool < req.Limit {
		req.Pool = req.Limit
	}
	minScore := e.cfg.MinScore
	if req.MinScore != nil {
		minScore = utils.Clamp01(*req.MinScore)
	}
	req.MinScore = &minScore
	return req
}

// scorers returns the ordered strategy chain for one request together with
// the subject vector, embedding the subject once.
func (e *Engine) scorers(ctx context.Context, log *zap.Logger, known domain.Embedding, text string) ([]Scorer, domain.Embedding) {
	heuristic := HeuristicScorer{}
	if e.embedder == nil {
		return []Scorer{heuristic}, nil
	}

	embedding := EmbeddingScorer{Embedder: e.embedder, Timeout: e.cfg.EmbedTimeout}
	if known.Valid() {
		return []Scorer{embedding, heuristic}, known
	}

	vec, err := embedding.embed(ctx, text)
	if err != nil {
		log.Warn("subject embedding unavailable, using heuristic scoring", zap.Error(err))
		return []Scorer{unavailable{name: StrategyEmbedding, err: err}, heuristic}, nil
	}
	return []Scorer{embedding, heuristic}, vec
}

// compute runs the strategies in order and merges contextual sub-scores.
func (e *Engine) compute(ctx context.Context, log *zap.Logger, scorers []Scorer, in Input, contextual bool, prefs Preferences) MatchScore {
	score := MatchScore{Strategy: StrategyFloor}

	var base float64
	for _, scorer := range scorers {
		res := scorer.Score(ctx, in)
		e.metrics.StrategyOutcome(string(scorer.Name()), res.Err == nil)
		if res.Err == nil {
			base = res.Score
			score.Strategy = scorer.Name()
			break
		}

		score.Degraded = true
		if scorer.Name() == StrategyEmbedding {
			e.metrics.ProviderFailure(e.embedder.Model())
		}
		log.Warn("scoring strategy failed, falling back",
			zap.String("strategy", string(scorer.Name())),
			zap.Error(res.Err),
		)
	}

	overall := base
	if contextual {
		sub := e.contextual.Score(in.Profile, in.Job, prefs)
		score.SubScores = &sub
		overall = (1-e.cfg.ContextWeight)*base + e.cfg.ContextWeight*e.contextual.Overall(sub)
	}

	if score.Degraded {
		overall = max(overall, e.cfg.FloorScore)
	}

	score.Overall = utils.Clamp01(overall)
	score.ComputedAt = time.Now().UTC()
	return score
}

func (e *Engine) variantPrefix(direction string, contextual bool, prefs Preferences, subjectVersion time.Time) string {
	mode := "base"
	if contextual {
		mode = "contextual:" + prefs.key()
	}
	model := "none"
	if e.embedder != nil {
		model = e.embedder.Model()
	}
	return strings.Join([]string{direction, model, mode, versionStamp(subjectVersion)}, ":")
}

func versionStamp(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

type noCache struct{}

func (noCache) Get(context.Context, Key) (MatchScore, bool) { return MatchScore{}, false }
func (noCache) Put(context.Context, Key, MatchScore)        {}

type noMetrics struct{}

func (noMetrics) CacheLookup(bool)                       {}
func (noMetrics) StrategyOutcome(string, bool)           {}
func (noMetrics) ProviderFailure(string)                 {}
func (noMetrics) RequestDone(string, time.Duration, int) {}
