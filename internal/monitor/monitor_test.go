package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ran-analytics/internal/analytics"
	"ran-analytics/internal/models"
	"ran-analytics/internal/storage"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu              sync.Mutex
	samples         []models.Sample
	anomalies       []models.AnomalyResult
	recommendations []models.RecommendationResult
}

func (r *recorder) StoreSample(_ context.Context, s models.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return nil
}

func (r *recorder) StoreAnomaly(_ context.Context, a models.AnomalyResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies = append(r.anomalies, a)
	return nil
}

func (r *recorder) StoreRecommendation(_ context.Context, rec models.RecommendationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recommendations = append(r.recommendations, rec)
	return nil
}

func (r *recorder) PublishAnomaly(a models.AnomalyResult) { _ = r.StoreAnomaly(context.Background(), a) }

func (r *recorder) PublishRecommendation(rec models.RecommendationResult) {
	_ = r.StoreRecommendation(context.Background(), rec)
}

type fixture struct {
	monitor *Monitor
	engine  *analytics.Analyzer
	store   storage.Store
	clock   *fakeClock
	cache   *recorder
	stream  *recorder
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	store, err := storage.NewSQLiteStore(":memory:", storage.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	opts := analytics.DefaultOptions()
	opts.Now = clock.Now
	engine := analytics.NewAnalyzer(opts)

	f := &fixture{engine: engine, store: store, clock: clock, cache: &recorder{}, stream: &recorder{}}
	f.monitor = New(engine, store, zap.NewNop(), cfg,
		WithCache(f.cache), WithPublisher(f.stream), WithClock(clock.Now))
	return f
}

func eventsOf(t *testing.T, s storage.Store, typ models.EventType) []models.Event {
	t.Helper()
	events, err := s.QueryEvents(context.Background(), storage.EventQuery{Type: typ})
	require.NoError(t, err)
	return events
}

func TestMonitor_SubmitRejectsInvalidKind(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	err := f.monitor.Submit(models.Sample{Kind: models.MetricKind(42)})
	assert.True(t, errors.Is(err, analytics.ErrInvalidMetricKind))
}

func TestMonitor_SubmitDropsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueSize = 1
	f := newFixture(t, cfg)

	require.NoError(t, f.monitor.Submit(models.Sample{Kind: models.MetricSINR, Value: 1}))
	assert.ErrorIs(t, f.monitor.Submit(models.Sample{Kind: models.MetricSINR, Value: 2}), ErrQueueFull)

	snap := f.monitor.Snapshot()
	assert.Equal(t, uint64(1), snap.Dropped)
	assert.Equal(t, 1, snap.QueueDepth)
}

func TestMonitor_ProcessAndDrain(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		f.monitor.process(ctx, models.Sample{Kind: models.MetricPRBUsage, Value: 99, NodeID: 3, CellID: 1, Timestamp: f.clock.Now()})
	}

	report := f.monitor.Drain(ctx)
	assert.Equal(t, DrainReport{Samples: 12, Anomalies: 3, Recommendations: 3}, report)

	stored, err := f.store.QueryMetrics(ctx, storage.MetricQuery{Kind: models.MetricPRBUsage})
	require.NoError(t, err)
	assert.Len(t, stored, 12)

	anomalies, err := f.store.RecentAnomalies(ctx, 10)
	require.NoError(t, err)
	require.Len(t, anomalies, 3)
	assert.Equal(t, models.SeverityCritical, anomalies[0].Severity)
	assert.NotEmpty(t, anomalies[0].ID)

	recs, err := f.store.RecentRecommendations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, models.RecommendationLoadBalance, recs[0].Kind)

	assert.Len(t, eventsOf(t, f.store, models.EventNodeConnect), 1)
	assert.Len(t, eventsOf(t, f.store, models.EventAnomalyDetected), 3)
	assert.Len(t, eventsOf(t, f.store, models.EventRecommendationGenerated), 3)

	assert.Len(t, f.cache.samples, 12)
	assert.Len(t, f.cache.anomalies, 3)
	assert.Len(t, f.stream.anomalies, 3)
	assert.Len(t, f.stream.recommendations, 3)

	assert.Equal(t, DrainReport{}, f.monitor.Drain(ctx), "nothing is handed out twice")
}

func TestMonitor_ReportMarksStaleNodes(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	f.monitor.process(ctx, models.Sample{Kind: models.MetricSINR, Value: 10, NodeID: 7})

	r := f.monitor.Report(ctx)
	require.Len(t, r.Nodes, 1)
	assert.True(t, r.Nodes[0].Connected)
	assert.Equal(t, uint64(1), r.Engine.ProcessedMetrics)

	f.clock.Advance(61 * time.Second)
	r = f.monitor.Report(ctx)
	assert.False(t, r.Nodes[0].Connected)
	f.monitor.Report(ctx)
	assert.Len(t, eventsOf(t, f.store, models.EventNodeDisconnect), 1, "stale transition is logged once")

	f.monitor.process(ctx, models.Sample{Kind: models.MetricSINR, Value: 11, NodeID: 7})
	assert.Len(t, eventsOf(t, f.store, models.EventNodeConnect), 2)
	assert.Equal(t, 1, f.monitor.Nodes().Active())
}

func TestMonitor_RunFlushesOnShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DrainInterval = time.Hour
	cfg.ReportInterval = time.Hour
	f := newFixture(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.monitor.Run(ctx) }()

	for i := 0; i < 15; i++ {
		require.NoError(t, f.monitor.Submit(models.Sample{Kind: models.MetricLatency, Value: 150, NodeID: 1}))
	}
	require.Eventually(t, func() bool {
		return f.engine.GetCurrentStats().ProcessedMetrics == 15
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}

	stored, err := f.store.QueryMetrics(context.Background(), storage.MetricQuery{Kind: models.MetricLatency})
	require.NoError(t, err)
	assert.Len(t, stored, 15)

	anomalies, err := f.store.RecentAnomalies(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, anomalies, 6)

	assert.Len(t, eventsOf(t, f.store, models.EventStart), 1)
	assert.Len(t, eventsOf(t, f.store, models.EventStop), 1)
}

func TestMonitor_Cleanup(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	old := f.clock.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, f.store.SaveSample(ctx, models.Sample{Kind: models.MetricRSRQ, Value: -10, Timestamp: old}))

	f.monitor.Cleanup(ctx)

	left, err := f.store.QueryMetrics(ctx, storage.MetricQuery{Kind: models.MetricRSRQ})
	require.NoError(t, err)
	assert.Empty(t, left)
}
