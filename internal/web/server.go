package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/ai"
	"github.com/facetrace/attendance/internal/alerts"
	"github.com/facetrace/attendance/internal/analysis"
	"github.com/facetrace/attendance/internal/attendance"
	"github.com/facetrace/attendance/internal/config"
	"github.com/facetrace/attendance/internal/embedding"
	"github.com/facetrace/attendance/internal/identity"
	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/recognize"
	"github.com/facetrace/attendance/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	log        *zap.SugaredLogger

	repo     *identity.Repository
	matcher  *recognize.Matcher
	ledger   *attendance.Ledger
	alerts   *alerts.Ledger
	detector *alerts.PatternDetector
	analyzer *analysis.Analyzer
	provider embedding.Provider
}

// Deps bundles the domain components the server routes to.
type Deps struct {
	Repo       *identity.Repository
	Matcher    *recognize.Matcher
	Ledger     *attendance.Ledger
	Alerts     *alerts.Ledger
	Detector   *alerts.PatternDetector
	Provider   embedding.Provider
	AIProvider ai.Provider
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, port int, host string, deps Deps, log *zap.SugaredLogger) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:   cfg,
		router:   r,
		log:      logger.Named(log, "web"),
		repo:     deps.Repo,
		matcher:  deps.Matcher,
		ledger:   deps.Ledger,
		alerts:   deps.Alerts,
		detector: deps.Detector,
		analyzer: analysis.NewAnalyzer(deps.Ledger, deps.AIProvider, log),
		provider: deps.Provider,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS())

	// Set up routes
	s.setupRoutes(log)

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Infow("starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infow("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
