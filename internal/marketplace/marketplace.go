// Package marketplace reads profiles and jobs from the marketplace REST API.
package marketplace

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/match-engine/internal/logger"
)

const (
	userAgent = "spigell/match-engine"

	ProfilesPath = "/api/v1/profiles"
	JobsPath     = "/api/v1/jobs"

	// Max value for listing per page.
	perPage = 100
)

// Config configures the marketplace client.
type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(log *zap.Logger, cfg Config, token string) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		token:  token,
		APIURL: strings.TrimRight(cfg.URL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		logger:    logger.WithFields(log, zap.String("store", "marketplace")),
		UserAgent: userAgent,
	}
}
