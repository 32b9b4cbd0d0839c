package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
	"github.com/quarterpin/oraclebot/internal/server/handler"
	"github.com/quarterpin/oraclebot/internal/server/middleware"
	"github.com/quarterpin/oraclebot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Streams and Snapshots are optional; nil leaves the route unregistered.
type Handlers struct {
	Health        *handler.HealthHandler
	Opportunities *handler.OpportunityHandler
	Predictions   *handler.PredictionHandler
	Jobs          *handler.JobHandler
	Scan          *handler.ScanHandler
	Streams       *handler.StreamHandler
	Snapshots     *handler.SnapshotHandler
}

// Server is the headless HTTP + WebSocket API for the odds scanner.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, optional rate limiting) and
// attaches the WebSocket hub. A nil limiter disables API rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Arbitrage opportunity endpoints.
	mux.HandleFunc("GET /api/opportunities/recent", handlers.Opportunities.ListRecent)

	// Prediction history endpoints.
	mux.HandleFunc("GET /api/predictions", handlers.Predictions.List)

	// Analysis job status.
	mux.HandleFunc("GET /api/jobs/{id}", handlers.Jobs.Get)

	// Manual scan trigger.
	mux.HandleFunc("POST /api/scan/trigger", handlers.Scan.Trigger)

	// Durable stream replay for clients that missed live fan-out.
	if handlers.Streams != nil {
		mux.HandleFunc("GET /api/streams/{channel}", handlers.Streams.Replay)
	}

	// Raw odds snapshot browsing (requires object storage).
	if handlers.Snapshots != nil {
		mux.HandleFunc("GET /api/snapshots", handlers.Snapshots.List)
		mux.HandleFunc("GET /api/snapshots/{path...}", handlers.Snapshots.Get)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting if a limiter is available.
	if limiter != nil {
		h = middleware.RateLimit(limiter, 60, time.Minute)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
