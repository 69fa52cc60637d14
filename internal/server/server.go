// Package server exposes the analytics engine, the store and the findings
// stream over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ran-analytics/internal/analytics"
	"ran-analytics/internal/models"
	"ran-analytics/internal/monitor"
	"ran-analytics/internal/storage"
	"ran-analytics/internal/stream"
)

const (
	Version = "1.0.0"

	defaultEventLimit = 100
	shutdownTimeout   = 30 * time.Second
)

// RecentCache serves the Redis-backed recent views.
type RecentCache interface {
	RecentSamples(ctx context.Context, kind models.MetricKind, n int64) ([]models.Sample, error)
	RecentAnomalies(ctx context.Context, n int64) ([]models.AnomalyResult, error)
	RecentRecommendations(ctx context.Context, n int64) ([]models.RecommendationResult, error)
}

type Options struct {
	// Cache enables the /cache routes when set.
	Cache RecentCache
	// WindowSize is the default number of samples returned by the history
	// endpoint.
	WindowSize   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	router  *mux.Router
	engine  *analytics.Analyzer
	monitor *monitor.Monitor
	store   storage.Store
	hub     *stream.Hub
	logger  *zap.Logger
	opts    Options
	started time.Time
}

// New wires the routes. hub may be nil, in which case /ws/findings is not
// served.
func New(engine *analytics.Analyzer, mon *monitor.Monitor, store storage.Store, hub *stream.Hub, logger *zap.Logger, opts Options) *Server {
	if opts.WindowSize <= 0 {
		opts.WindowSize = 100
	}
	s := &Server{
		router:  mux.NewRouter(),
		engine:  engine,
		monitor: mon,
		store:   store,
		hub:     hub,
		logger:  logger,
		opts:    opts,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.instrument)

	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
	s.router.HandleFunc("/metrics/ingest", s.ingestHandler).Methods("POST")

	a := s.router.PathPrefix("/analytics").Subrouter()
	a.HandleFunc("/stats", s.statsHandler).Methods("GET")
	a.HandleFunc("/history/{kind}", s.historyHandler).Methods("GET")
	a.HandleFunc("/anomalies", s.anomaliesHandler).Methods("GET")
	a.HandleFunc("/recommendations", s.recommendationsHandler).Methods("GET")
	a.HandleFunc("/thresholds", s.thresholdsHandler).Methods("GET")
	a.HandleFunc("/model", s.modelHandler).Methods("GET")
	a.HandleFunc("/model/{kind}/train", s.trainModelHandler).Methods("POST")

	st := s.router.PathPrefix("/storage").Subrouter()
	st.HandleFunc("/metrics/{kind}", s.storedMetricsHandler).Methods("GET")
	st.HandleFunc("/anomalies", s.storedAnomaliesHandler).Methods("GET")
	st.HandleFunc("/recommendations", s.storedRecommendationsHandler).Methods("GET")
	st.HandleFunc("/events", s.storedEventsHandler).Methods("GET")

	if s.opts.Cache != nil {
		c := s.router.PathPrefix("/cache").Subrouter()
		c.HandleFunc("/samples/{kind}", s.cachedSamplesHandler).Methods("GET")
		c.HandleFunc("/anomalies", s.cachedAnomaliesHandler).Methods("GET")
		c.HandleFunc("/recommendations", s.cachedRecommendationsHandler).Methods("GET")
	}

	if s.hub != nil {
		s.router.HandleFunc("/ws/findings", s.hub.ServeWS).Methods("GET")
	}
	s.router.Handle("/metrics/prometheus", promhttp.Handler())
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info("server is shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server is ready to handle requests", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not listen on %s: %w", addr, err)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("could not gracefully shutdown the server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
