package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/config"
	"github.com/fyrsmithlabs/notesd/internal/logging"
	"github.com/fyrsmithlabs/notesd/internal/notes"
	"github.com/fyrsmithlabs/notesd/internal/render"
	"github.com/fyrsmithlabs/notesd/internal/tenant"
)

const (
	serverName    = "notesd"
	serverVersion = "0.3.0"
)

// Server implements the MCP protocol over HTTP with the Echo router.
//
// Endpoints:
//   - POST /mcp      JSON-RPC 2.0 method routing with session tracking
//   - DELETE /mcp    explicit session close
//   - GET /health    liveness
//   - GET /metrics   Prometheus metrics
type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	sessions *SessionStore
	repo     *notes.Repository
	renderer *render.Renderer // nil when rendering is disabled
	resolver *tenant.Resolver
	logger   *logging.Logger
	metrics  *Metrics
}

// NewServer wires the protocol server. renderer may be nil; metrics may
// be nil.
func NewServer(
	cfg *config.Config,
	repo *notes.Repository,
	renderer *render.Renderer,
	resolver *tenant.Resolver,
	logger *logging.Logger,
	metrics *Metrics,
	gatherer prometheus.Gatherer,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("note repository is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("tenant resolver is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:     e,
		cfg:      cfg,
		sessions: NewSessionStore(),
		repo:     repo,
		renderer: renderer,
		resolver: resolver,
		logger:   logger.Named("mcp"),
		metrics:  metrics,
	}

	e.POST("/mcp", s.handleMCPRequest)
	e.DELETE("/mcp", s.handleSessionClose)
	e.GET("/health", s.handleHealth)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s, nil
}

// Sessions exposes the session table for tests and diagnostics.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serverName,
	})
}

// Start starts the HTTP server and blocks until the context is
// cancelled, then shuts down gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "starting MCP server", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info(shutdownCtx, "shutting down MCP server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
