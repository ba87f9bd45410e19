// Package api exposes the matching engine over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/spigell/match-engine/internal/domain"
	"github.com/spigell/match-engine/internal/logger"
	"github.com/spigell/match-engine/internal/matching"
)

const (
	DefaultAddr = ":8080"

	// MaxLimit caps the limit query parameter.
	MaxLimit = 50

	messageInternalServerError = "internal server error"
)

// Matcher is the engine surface served over HTTP.
type Matcher interface {
	JobsForProfessional(ctx context.Context, professionalID string, req matching.Request) (*matching.Result[domain.Job], error)
	ProfessionalsForJob(ctx context.Context, jobID string, req matching.Request) (*matching.Result[domain.Profile], error)
}

// Config configures the HTTP server.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

// Server serves match requests.
type Server struct {
	app     *fiber.App
	matcher Matcher
	logger  *zap.Logger
	cfg     Config
}

// New builds a Server. metrics may be nil, in which case /metrics is not served.
func New(matcher Matcher, metrics http.Handler, cfg Config, log *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		matcher: matcher,
		logger:  logger.WithFields(log, zap.String("component", "api")),
		cfg:     cfg,
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "match-engine",
		ErrorHandler: s.handleError,
	})
	s.app.Use(s.accessLog)

	s.app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	v1 := s.app.Group("/api/v1")
	v1.Get("/professionals/:id/jobs", s.jobsForProfessional)
	v1.Get("/jobs/:id/professionals", s.professionalsForJob)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		errCh <- s.app.Listen(s.cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	return s.app.ShutdownWithContext(shutdownCtx)
}

type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleError(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := messageInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code > 0 && fiberErr.Code < 500 {
		status = fiberErr.Code
		message = fiberErr.Message
	} else {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}

	return c.Status(status).JSON(errorResponse{Status: status, Message: message})
}

func (s *Server) accessLog(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	s.logger.Debug("http access",
		zap.String("method", c.Method()),
		zap.String("path", c.OriginalURL()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
		zap.String("ip", c.IP()),
	)
	return err
}
