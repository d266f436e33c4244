// Package server exposes the pipeline over HTTP: opportunities, cycles, the
// paper ledger, Kelly portfolios, performance reports, Prometheus metrics and
// a WebSocket stream of cycle reports.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rickgao/baserate-arb/internal/ledger"
	"github.com/rickgao/baserate-arb/internal/metrics"
	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/rank"
	"github.com/rickgao/baserate-arb/internal/scheduler"
)

// Pipeline is the orchestrator surface the API drives.
type Pipeline interface {
	RunCycle(ctx context.Context, opts scheduler.RunOptions) (scheduler.CycleReport, error)
	LastReport(ctx context.Context) (scheduler.CycleReport, bool, error)
	Opportunities(ctx context.Context, criteria rank.Criteria) ([]model.OpportunityAnalysis, error)
	ResearchMarket(ctx context.Context, id string) (model.BaseRate, error)
	Running() bool
	Guards() map[string]string
}

// Config holds HTTP server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	// MetricsPath mounts the Prometheus handler. Empty disables it.
	MetricsPath string
	// RequestTimeout bounds API requests other than cycle runs.
	RequestTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg      Config
	pipeline Pipeline
	ledger   *ledger.Ledger
	hub      *Hub
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	router   chi.Router
}

// New creates a Server. hub and m may be nil.
func New(cfg Config, p Pipeline, l *ledger.Ledger, hub *Hub, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		ledger:   l,
		hub:      hub,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if s.hub != nil {
		r.Get("/ws/reports", s.hub.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(requestLogger(s.logger))

		r.Get("/health", s.health)
		if s.cfg.MetricsPath != "" && s.metrics != nil {
			r.Method(http.MethodGet, s.cfg.MetricsPath, s.metrics.Handler())
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Cycles run to completion even if the client goes away.
			r.Post("/cycles", s.runCycle)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(s.cfg.RequestTimeout))

				r.Get("/opportunities", s.getOpportunities)
				r.Get("/cycles/last", s.lastCycle)

				r.Get("/ledger", s.getLedger)
				r.Post("/ledger/positions", s.openPosition)
				r.Post("/ledger/settlements", s.settle)

				r.Post("/kelly/portfolio", s.kellyPortfolio)
				r.Get("/report", s.getReport)

				r.Post("/markets/{id}/research", s.researchMarket)
			})
		})
	})
	return r
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
