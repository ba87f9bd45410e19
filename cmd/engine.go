package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/spigell/match-engine/internal/ai"
	"github.com/spigell/match-engine/internal/ai/gemini"
	"github.com/spigell/match-engine/internal/ai/openai"
	"github.com/spigell/match-engine/internal/marketplace"
	"github.com/spigell/match-engine/internal/matching"
	"github.com/spigell/match-engine/internal/metrics"
	"github.com/spigell/match-engine/internal/scorecache"
	"github.com/spigell/match-engine/internal/secrets"
	"github.com/spigell/match-engine/internal/store/memory"
	"github.com/spigell/match-engine/internal/store/postgres"
)

// stores bundles both store sides of one backend.
type stores interface {
	matching.ProfileStore
	matching.JobStore
}

// services holds everything a command needs to serve match requests.
type services struct {
	engine  *matching.Engine
	metrics *metrics.Recorder
	logger  *zap.Logger
	closers []func()
}

func (r *services) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func newServices(ctx context.Context, config *Config, logger *zap.Logger) (*services, error) {
	rt := &services{logger: logger}

	store, err := newStore(ctx, rt, config.Store, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("store: %w", err)
	}

	embedder, err := newEmbedder(ctx, config.Embedding, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.metrics = metrics.New(registry)

	engine, err := matching.New(matching.Deps{
		Profiles: store,
		Jobs:     store,
		Embedder: embedder,
		Cache:    newCache(ctx, rt, config.Cache, logger),
		Logger:   logger,
		Metrics:  rt.metrics,
	}, config.Matching)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.engine = engine

	return rt, nil
}

func newStore(ctx context.Context, rt *services, cfg StoreConfig, logger *zap.Logger) (stores, error) {
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case "", "memory":
		if cfg.Fixture == "" {
			logger.Warn("no fixture configured, starting with an empty store")
			return memory.New(nil, nil), nil
		}
		return memory.Load(cfg.Fixture)

	case "postgres":
		store, err := postgres.Connect(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		return store, nil

	case "marketplace":
		var token string
		if cfg.Marketplace.TokenFile != "" {
			var err error
			token, err = secrets.Load(secrets.Source{
				Name: "marketplace token",
				File: cfg.Marketplace.TokenFile,
			})
			if err != nil {
				return nil, fmt.Errorf("%w (set store.marketplace.token-file or MARKETPLACE_TOKEN_FILE)", err)
			}
		}
		if cfg.Marketplace.URL == "" {
			return nil, fmt.Errorf("store.marketplace.url is required")
		}
		return marketplace.New(logger, cfg.Marketplace.Config, token), nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
}

// newEmbedder returns nil when embeddings are disabled; matching then relies
// on heuristic scoring only.
func newEmbedder(ctx context.Context, cfg EmbeddingConfig, logger *zap.Logger) (ai.Embedder, error) {
	var (
		embedder ai.Embedder
		err      error
	)

	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", "none":
		logger.Info("embedding provider disabled, using heuristic scoring")
		return nil, nil

	case "gemini":
		embedder, err = newGemini(ctx, cfg.Gemini, logger)

	case "openai":
		embedder, err = newOpenAI(cfg.OpenAI, logger)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return ai.NewMemo(embedder, cfg.MemoSize), nil
}

func newGemini(ctx context.Context, cfg *GeminiConfig, logger *zap.Logger) (*gemini.Client, error) {
	if cfg == nil {
		cfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set embedding.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	return gemini.NewClient(ctx, gemini.Config{
		APIKey:            apiKey,
		Model:             cfg.Model,
		MaxRetries:        cfg.MaxRetries,
		Dimensions:        cfg.Dimensions,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		MaxLogLength:      cfg.MaxLogLength,
	}, logger)
}

func newOpenAI(cfg *OpenAIConfig, logger *zap.Logger) (*openai.Client, error) {
	if cfg == nil {
		cfg = &OpenAIConfig{}
	}

	var apiKey string
	if cfg.APIKeyFile != "" || cfg.BaseURL == "" {
		var err error
		apiKey, err = secrets.Load(secrets.Source{
			Name: "openai api key",
			File: cfg.APIKeyFile,
			Env:  "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.openai.api-key-file or OPENAI_API_KEY_FILE)", err)
		}
	}

	return openai.NewClient(openai.Config{
		APIKey:            apiKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Dimensions:        cfg.Dimensions,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, logger)
}

func newCache(ctx context.Context, rt *services, cfg CacheConfig, logger *zap.Logger) matching.ScoreCache {
	local := scorecache.NewMemory()
	if cfg.RedisURL == "" {
		return local
	}

	rdb := scorecache.Connect(ctx, cfg.RedisURL, logger)
	if rdb == nil {
		logger.Warn("redis unavailable, using the in-process score cache only")
		return local
	}
	rt.closers = append(rt.closers, func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("closing redis", zap.Error(err))
		}
	})

	return scorecache.NewTiered(local, rdb, cfg.TTL, logger)
}
