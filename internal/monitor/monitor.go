// Package monitor runs the analytics engine as a service: it serialises
// ingestion through one worker and periodically moves findings to storage,
// the cache and stream subscribers.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ran-analytics/internal/analytics"
	"ran-analytics/internal/metrics"
	"ran-analytics/internal/models"
	"ran-analytics/internal/storage"
)

// ErrQueueFull is returned by Submit when the ingestion queue has no room.
var ErrQueueFull = errors.New("ingestion queue full")

const shutdownFlushTimeout = 5 * time.Second

type Config struct {
	QueueSize       int
	DrainInterval   time.Duration
	ReportInterval  time.Duration
	CleanupInterval time.Duration
	NodeStaleAfter  time.Duration
	MetricRetention time.Duration
	EventRetention  time.Duration
}

func DefaultConfig() Config {
	return Config{
		QueueSize:       1000,
		DrainInterval:   5 * time.Second,
		ReportInterval:  10 * time.Second,
		CleanupInterval: time.Hour,
		NodeStaleAfter:  60 * time.Second,
		MetricRetention: 7 * 24 * time.Hour,
		EventRetention:  30 * 24 * time.Hour,
	}
}

// ResultCache receives every sample and finding.
type ResultCache interface {
	StoreSample(ctx context.Context, s models.Sample) error
	StoreAnomaly(ctx context.Context, a models.AnomalyResult) error
	StoreRecommendation(ctx context.Context, r models.RecommendationResult) error
}

// Publisher receives drained findings for live subscribers.
type Publisher interface {
	PublishAnomaly(a models.AnomalyResult)
	PublishRecommendation(r models.RecommendationResult)
}

type Option func(*Monitor)

func WithCache(c ResultCache) Option { return func(m *Monitor) { m.cache = c } }

func WithPublisher(p Publisher) Option { return func(m *Monitor) { m.pub = p } }

func WithClock(now func() time.Time) Option { return func(m *Monitor) { m.now = now } }

type Monitor struct {
	engine *analytics.Analyzer
	store  storage.Store
	cache  ResultCache
	pub    Publisher
	nodes  *NodeRegistry
	logger *zap.Logger
	cfg    Config
	now    func() time.Time

	queue chan models.Sample

	mu      sync.Mutex
	pending []models.Sample

	dropped atomic.Uint64
}

func New(engine *analytics.Analyzer, store storage.Store, logger *zap.Logger, cfg Config, opts ...Option) *Monitor {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = def.DrainInterval
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = def.ReportInterval
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.NodeStaleAfter <= 0 {
		cfg.NodeStaleAfter = def.NodeStaleAfter
	}
	if cfg.MetricRetention <= 0 {
		cfg.MetricRetention = def.MetricRetention
	}
	if cfg.EventRetention <= 0 {
		cfg.EventRetention = def.EventRetention
	}

	m := &Monitor{
		engine: engine,
		store:  store,
		nodes:  NewNodeRegistry(),
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
		queue:  make(chan models.Sample, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Nodes exposes the registry of reporting nodes.
func (m *Monitor) Nodes() *NodeRegistry { return m.nodes }

// Submit queues a sample for the ingestion worker without blocking. A zero
// timestamp is replaced with the submit time.
func (m *Monitor) Submit(s models.Sample) error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: %d", analytics.ErrInvalidMetricKind, s.Kind)
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = m.now()
	}

	select {
	case m.queue <- s:
		metrics.QueueDepth.Set(float64(len(m.queue)))
		return nil
	default:
		m.dropped.Add(1)
		metrics.SamplesDropped.Inc()
		m.logger.Warn("ingestion queue is full, dropping sample",
			zap.Stringer("kind", s.Kind),
			zap.Uint32("node_id", s.NodeID))
		return ErrQueueFull
	}
}

// Run starts the ingestion, drain, report and cleanup workers and blocks
// until ctx is cancelled. Queued samples and pending findings are flushed
// before it returns.
func (m *Monitor) Run(ctx context.Context) error {
	m.logEvent(ctx, models.Event{Type: models.EventStart, Message: "analytics monitor started"})
	m.logger.Info("monitor started",
		zap.Int("queue_size", m.cfg.QueueSize),
		zap.Duration("drain_interval", m.cfg.DrainInterval),
		zap.Duration("report_interval", m.cfg.ReportInterval))

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		m.ingestLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		every(ctx, m.cfg.DrainInterval, func() { m.Drain(ctx) })
	}()
	go func() {
		defer wg.Done()
		every(ctx, m.cfg.ReportInterval, func() { m.Report(ctx) })
	}()
	go func() {
		defer wg.Done()
		every(ctx, m.cfg.CleanupInterval, func() { m.Cleanup(ctx) })
	}()

	<-ctx.Done()
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()

	report := m.Drain(flushCtx)
	stats := m.engine.GetCurrentStats()
	m.logEvent(flushCtx, models.Event{Type: models.EventStop, Message: "analytics monitor stopped"})
	m.logger.Info("monitor stopped",
		zap.Uint64("processed_metrics", stats.ProcessedMetrics),
		zap.Uint64("detected_anomalies", stats.DetectedAnomalies),
		zap.Uint64("generated_recommendations", stats.GeneratedRecommendations),
		zap.Int("flushed_samples", report.Samples))
	return nil
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// ingestLoop is the single writer into the engine.
func (m *Monitor) ingestLoop(ctx context.Context) {
	for {
		select {
		case s := <-m.queue:
			m.process(ctx, s)
		case <-ctx.Done():
			for {
				select {
				case s := <-m.queue:
					m.process(context.Background(), s)
				default:
					metrics.QueueDepth.Set(0)
					return
				}
			}
		}
	}
}

func (m *Monitor) process(ctx context.Context, s models.Sample) {
	metrics.QueueDepth.Set(float64(len(m.queue)))

	res, err := m.engine.IngestSample(s)
	if err != nil {
		m.logger.Error("failed to ingest sample", zap.Error(err))
		return
	}

	kind := s.Kind.String()
	metrics.SamplesIngested.WithLabelValues(kind).Inc()
	metrics.LastValue.WithLabelValues(kind).Set(s.Value)
	metrics.LastZScore.WithLabelValues(kind).Set(res.Stats.ZScore)

	if a := res.Anomaly; a.Severity != models.SeverityNone {
		metrics.AnomaliesDetected.WithLabelValues(kind, a.Severity.String(), a.Detector).Inc()
		m.logger.Warn("anomaly detected",
			zap.String("kind", kind),
			zap.Stringer("severity", a.Severity),
			zap.String("detector", a.Detector),
			zap.Float64("actual", a.Actual),
			zap.Float64("threshold", a.Threshold),
			zap.Uint32("node_id", a.NodeID),
			zap.String("description", a.Description))
	}
	if r := res.Recommendation; r.Kind != models.RecommendationNone {
		metrics.RecommendationsGenerated.WithLabelValues(r.Kind.String()).Inc()
		m.logger.Info("recommendation generated",
			zap.Stringer("kind", r.Kind),
			zap.Uint32("node_id", r.NodeID),
			zap.String("parameters", r.Parameters))
	}

	if m.nodes.Touch(s.NodeID, m.now()) {
		m.logger.Info("node connected", zap.Uint32("node_id", s.NodeID))
		m.logEvent(ctx, models.Event{Type: models.EventNodeConnect, NodeID: s.NodeID, Message: "node reporting"})
	}

	if m.cache != nil {
		if err := m.cache.StoreSample(ctx, res.Sample); err != nil {
			metrics.PersistenceErrors.WithLabelValues("cache").Inc()
			m.logger.Warn("failed to cache sample", zap.Error(err))
		}
	}

	m.mu.Lock()
	m.pending = append(m.pending, res.Sample)
	m.mu.Unlock()
}

// DrainReport counts what one Drain moved.
type DrainReport struct {
	Samples         int `json:"samples"`
	Anomalies       int `json:"anomalies"`
	Recommendations int `json:"recommendations"`
}

// Drain persists samples processed since the last call and hands every
// finding the engine produced since the last call to storage, the cache and
// the publisher. A failed sample batch is logged and discarded.
func (m *Monitor) Drain(ctx context.Context) DrainReport {
	m.mu.Lock()
	samples := m.pending
	m.pending = nil
	m.mu.Unlock()

	var report DrainReport
	if len(samples) > 0 {
		if err := m.store.SaveSamples(ctx, samples); err != nil {
			metrics.PersistenceErrors.WithLabelValues("store").Inc()
			m.logger.Error("failed to persist samples", zap.Int("count", len(samples)), zap.Error(err))
		} else {
			report.Samples = len(samples)
		}
	}

	for _, a := range m.engine.DrainAnomalies() {
		report.Anomalies++
		if err := m.store.SaveAnomaly(ctx, a); err != nil {
			metrics.PersistenceErrors.WithLabelValues("store").Inc()
			m.logger.Error("failed to persist anomaly", zap.String("id", a.ID), zap.Error(err))
		}
		if m.cache != nil {
			if err := m.cache.StoreAnomaly(ctx, a); err != nil {
				metrics.PersistenceErrors.WithLabelValues("cache").Inc()
				m.logger.Warn("failed to cache anomaly", zap.String("id", a.ID), zap.Error(err))
			}
		}
		if m.pub != nil {
			m.pub.PublishAnomaly(a)
		}
		m.logEvent(ctx, models.Event{
			Type:    models.EventAnomalyDetected,
			NodeID:  a.NodeID,
			Message: "Anomaly detected",
			Details: a.Description,
		})
	}

	for _, r := range m.engine.DrainRecommendations() {
		report.Recommendations++
		if err := m.store.SaveRecommendation(ctx, r); err != nil {
			metrics.PersistenceErrors.WithLabelValues("store").Inc()
			m.logger.Error("failed to persist recommendation", zap.String("id", r.ID), zap.Error(err))
		}
		if m.cache != nil {
			if err := m.cache.StoreRecommendation(ctx, r); err != nil {
				metrics.PersistenceErrors.WithLabelValues("cache").Inc()
				m.logger.Warn("failed to cache recommendation", zap.String("id", r.ID), zap.Error(err))
			}
		}
		if m.pub != nil {
			m.pub.PublishRecommendation(r)
		}
		m.logEvent(ctx, models.Event{
			Type:    models.EventRecommendationGenerated,
			NodeID:  r.NodeID,
			Message: "Recommendation generated",
			Details: r.Description,
		})
	}

	if report != (DrainReport{}) {
		m.logger.Debug("drained results",
			zap.Int("samples", report.Samples),
			zap.Int("anomalies", report.Anomalies),
			zap.Int("recommendations", report.Recommendations))
	}
	return report
}

// Report is a point-in-time view of the service.
type Report struct {
	Engine     models.EngineStats `json:"engine"`
	Storage    storage.Counters   `json:"storage"`
	QueueDepth int                `json:"queue_depth"`
	Dropped    uint64             `json:"dropped"`
	Nodes      []NodeStatus       `json:"nodes"`
}

// Report logs engine and storage counters and marks nodes that stopped
// reporting.
func (m *Monitor) Report(ctx context.Context) Report {
	for _, n := range m.nodes.Sweep(m.now(), m.cfg.NodeStaleAfter) {
		silent := m.now().Sub(n.LastUpdate)
		m.logger.Warn("node appears to be stale",
			zap.Uint32("node_id", n.NodeID),
			zap.Duration("since_last_update", silent))
		m.logEvent(ctx, models.Event{
			Type:    models.EventNodeDisconnect,
			NodeID:  n.NodeID,
			Message: "node stale",
			Details: fmt.Sprintf("no update for %s", silent.Round(time.Second)),
		})
	}
	metrics.ActiveNodes.Set(float64(m.nodes.Active()))

	r := m.Snapshot()
	m.logger.Info("analytics statistics",
		zap.Uint64("processed_metrics", r.Engine.ProcessedMetrics),
		zap.Uint64("detected_anomalies", r.Engine.DetectedAnomalies),
		zap.Uint64("generated_recommendations", r.Engine.GeneratedRecommendations),
		zap.Float64("anomaly_rate", r.Engine.AnomalyRate),
		zap.Float64("recommendation_rate", r.Engine.RecommendationRate),
		zap.Uint64("db_inserts", r.Storage.Inserts),
		zap.Uint64("db_errors", r.Storage.Errors),
		zap.Int("queue_depth", r.QueueDepth),
		zap.Uint64("dropped", r.Dropped))
	return r
}

// Snapshot gathers the current counters without side effects.
func (m *Monitor) Snapshot() Report {
	return Report{
		Engine:     m.engine.GetCurrentStats(),
		Storage:    m.store.Counters(),
		QueueDepth: len(m.queue),
		Dropped:    m.dropped.Load(),
		Nodes:      m.nodes.Snapshot(),
	}
}

// Cleanup applies the retention windows to the store.
func (m *Monitor) Cleanup(ctx context.Context) {
	res, err := m.store.Cleanup(ctx, m.cfg.MetricRetention, m.cfg.EventRetention)
	if err != nil {
		metrics.PersistenceErrors.WithLabelValues("store").Inc()
		m.logger.Error("retention cleanup failed", zap.Error(err))
		return
	}
	m.logger.Info("retention cleanup completed",
		zap.Int64("metrics", res.Metrics),
		zap.Int64("anomalies", res.Anomalies),
		zap.Int64("recommendations", res.Recommendations),
		zap.Int64("events", res.Events))
}

func (m *Monitor) logEvent(ctx context.Context, e models.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = m.now()
	}
	if _, err := m.store.LogEvent(ctx, e); err != nil {
		metrics.PersistenceErrors.WithLabelValues("store").Inc()
		m.logger.Error("failed to log event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}
