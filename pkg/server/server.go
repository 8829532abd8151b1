// Package server exposes the Agentic Memories HTTP API.
//
// Routes are grouped under /api/v1: memory CRUD plus semantic search,
// and scheduled intent management with pause/resume and execution
// history. Operational endpoints are /health and /metrics.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agenticmem/agenticmem-go/pkg/core"
	"github.com/agenticmem/agenticmem-go/pkg/intent"
	"github.com/agenticmem/agenticmem-go/pkg/telemetry"
)

// Server is the Agentic Memories HTTP server.
type Server struct {
	echo    *echo.Echo
	client  *core.Client
	intents intent.Store
	logger  *zap.Logger
	metrics *telemetry.Metrics
	addr    string
}

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Client is the memory client. Required.
	Client *core.Client

	// Intents is the intent store. Optional, intent routes return 503
	// when nil.
	Intents intent.Store

	// Logger is the request logger. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics holds the Prometheus collectors. Required for /metrics.
	Metrics *telemetry.Metrics
}

// New builds the server and registers all routes.
func New(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Client == nil {
		return nil, errors.New("server: client is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		client:  cfg.Client,
		intents: cfg.Intents,
		logger:  logger,
		metrics: metrics,
		addr:    cfg.Addr,
	}

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(s.requestLogger())

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
		metrics.Registry(), promhttp.HandlerOpts{})))

	v1 := e.Group("/api/v1")

	v1.POST("/memories", s.handleAddMemory)
	v1.POST("/memories/search", s.handleSearchMemories)
	v1.GET("/memories", s.handleListMemories)
	v1.GET("/memories/:id", s.handleGetMemory)
	v1.PUT("/memories/:id", s.handleUpdateMemory)
	v1.DELETE("/memories/:id", s.handleDeleteMemory)
	v1.DELETE("/memories", s.handleDeleteAllMemories)

	v1.POST("/intents", s.handleCreateIntent)
	v1.GET("/intents", s.handleListIntents)
	v1.GET("/intents/:id", s.handleGetIntent)
	v1.DELETE("/intents/:id", s.handleDeleteIntent)
	v1.POST("/intents/:id/pause", s.handlePauseIntent)
	v1.POST("/intents/:id/resume", s.handleResumeIntent)
	v1.GET("/intents/:id/executions", s.handleListExecutions)

	return s, nil
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.addr))
	err := s.echo.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying http.Handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

// jsonError writes an error response with the right status code.
func jsonError(c echo.Context, status int, err error) error {
	return c.JSON(status, errorResponse{Error: err.Error()})
}
