// Package openai embeds text through any OpenAI-compatible embeddings endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/match-engine/internal/ai"
	"github.com/spigell/match-engine/internal/domain"
	"github.com/spigell/match-engine/internal/logger"
	"github.com/spigell/match-engine/internal/utils"
)

const (
	defaultModel      = string(goopenai.SmallEmbedding3)
	defaultMaxRetries = 3
	baseRetryDelay    = 500 * time.Millisecond
)

// wait pauses between attempts; tests replace it.
var wait = utils.WaitFor

type embeddingCreator interface {
	CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error)
}

// Config configures the OpenAI embedding client.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Dimensions        int
	MaxRetries        int
	RequestsPerSecond float64
	Burst             int
}

// Client implements ai.Embedder on top of go-openai.
type Client struct {
	api        embeddingCreator
	model      string
	dimensions int
	maxRetries int
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ ai.Embedder = (*Client)(nil)

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("openai api key is required")
	}

	clientConfig := goopenai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return newClient(goopenai.NewClientWithConfig(clientConfig), cfg, log), nil
}

func newClient(api embeddingCreator, cfg Config, log *zap.Logger) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	return &Client{
		api:        api,
		model:      model,
		dimensions: cfg.Dimensions,
		maxRetries: maxRetries,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.WithCommonFields(log, "openai", model),
	}
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

func (c *Client) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("openai client is not initialized")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	req := goopenai.EmbeddingRequest{
		Input:      []string{text},
		Model:      goopenai.EmbeddingModel(c.model),
		Dimensions: c.dimensions,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err == nil {
			if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
				return nil, ai.ErrEmptyEmbedding
			}
			return domain.Embedding(resp.Data[0].Embedding), nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.maxRetries {
			break
		}

		delay := baseRetryDelay * time.Duration(1<<(attempt-1))
		c.logger.Warn("openai embed failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("create embeddings failed: %w", lastErr)
}

func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return statusRetryable(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return statusRetryable(reqErr.HTTPStatusCode)
	}
	return false
}

func statusRetryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
