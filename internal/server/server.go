// Package server exposes settings storage, budget allocation and chat over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout = 5 * time.Second
	pruneInterval   = time.Minute
	visitorIdleTTL  = 10 * time.Minute
)

// Config controls the HTTP server.
type Config struct {
	Addr      string
	RateLimit float64
	Burst     int
}

// Option configures a Server.
type Option func(*Server)

// WithAssistant sets the assistant used by /ai_chat.
func WithAssistant(a Assistant) Option {
	return func(s *Server) {
		s.assistant = a
	}
}

// Server serves the paysplit HTTP API.
type Server struct {
	echo      *echo.Echo
	repo      *Repository
	metrics   *Metrics
	limiter   *RateLimiter
	assistant Assistant
	cfg       Config
}

// New builds a server backed by repo.
func New(cfg Config, repo *Repository, opts ...Option) *Server {
	s := &Server{
		echo:    echo.New(),
		repo:    repo,
		metrics: NewMetrics(),
		limiter: NewRateLimiter(cfg.RateLimit, cfg.Burst),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(RequestID())
	e.Use(RequestLogger(s.metrics))
	e.Use(s.limiter.Middleware())

	e.GET("/settings", s.getSettings)
	e.POST("/settings", s.postSettings)
	e.POST("/budget", s.postBudget)
	e.POST("/ai_chat", s.postChat)
	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", s.cfg.Addr)
		errCh <- s.echo.Start(s.cfg.Addr)
	}()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server failed: %w", err)
		case now := <-ticker.C:
			if n := s.limiter.Prune(now.Add(-visitorIdleTTL)); n > 0 {
				slog.Debug("Pruned idle rate limit entries", "count", n)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			slog.Info("Shutting down server")
			if err := s.echo.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		}
	}
}
