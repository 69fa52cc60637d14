package analytics

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"ran-analytics/internal/models"
	"ran-analytics/internal/ring"
)

// ResultCapacity bounds the recent anomaly and recommendation buffers.
const ResultCapacity = 100

// ErrInvalidMetricKind is returned for kinds outside the MetricKind enum.
var ErrInvalidMetricKind = errors.New("invalid metric kind")

type Options struct {
	Thresholds models.ThresholdTable
	// TrendWindow is both the history size that enables trend estimation and
	// the number of trailing samples the fit uses.
	TrendWindow int
	// OutlierDetection enables the statistical stage.
	OutlierDetection bool
	// ModelDetection enables the model stage.
	ModelDetection bool
	// Prediction lets the model stage query the linear model.
	Prediction bool

	Now   func() time.Time
	Rand  *rand.Rand
	NewID func() string
}

func DefaultOptions() Options {
	return Options{
		Thresholds:       models.DefaultThresholds(),
		TrendWindow:      50,
		OutlierDetection: true,
		ModelDetection:   true,
		Prediction:       true,
	}
}

// IngestResult reports what one Ingest call derived. Anomaly.Severity and
// Recommendation.Kind are None when nothing was found.
type IngestResult struct {
	Sample         models.Sample               `json:"sample"`
	HistoryLen     int                         `json:"history_len"`
	Stats          models.Statistics           `json:"stats"`
	Trend          models.Trend                `json:"trend"`
	Anomaly        models.AnomalyResult        `json:"anomaly"`
	Recommendation models.RecommendationResult `json:"recommendation"`
}

// Analyzer owns all per-kind history, the recent result buffers, the linear
// model and the counters. One lock covers all of it so an ingest is atomic
// with respect to readers of either result buffer.
type Analyzer struct {
	mu sync.RWMutex

	history         [models.MetricKindCount]*HistoryBuffer
	anomalies       *ring.Ring[models.AnomalyResult]
	recommendations *ring.Ring[models.RecommendationResult]
	model           *LinearModel
	cascade         Cascade
	thresholds      models.ThresholdTable
	trendWindow     int

	processed uint64
	detected  uint64
	generated uint64

	anomalyMark        uint64
	recommendationMark uint64

	now   func() time.Time
	newID func() string
}

func NewAnalyzer(opts Options) *Analyzer {
	if opts.TrendWindow < 2 {
		opts.TrendWindow = DefaultOptions().TrendWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	a := &Analyzer{
		anomalies:       ring.New[models.AnomalyResult](ResultCapacity),
		recommendations: ring.New[models.RecommendationResult](ResultCapacity),
		model:           NewLinearModel(opts.Rand),
		thresholds:      opts.Thresholds,
		trendWindow:     opts.TrendWindow,
		now:             opts.Now,
		newID:           opts.NewID,
	}
	for i := range a.history {
		a.history[i] = NewHistoryBuffer(HistoryCapacity)
	}

	a.cascade = Cascade{ThresholdDetector{}}
	if opts.OutlierDetection {
		a.cascade = append(a.cascade, StatisticalDetector{})
	}
	if opts.ModelDetection {
		a.cascade = append(a.cascade, ModelDetector{Model: a.model, Predict: opts.Prediction})
	}

	return a
}

// Ingest stamps the sample with the current time and runs it through the
// pipeline.
func (a *Analyzer) Ingest(kind models.MetricKind, value float64, nodeID, cellID uint32) (IngestResult, error) {
	return a.IngestSample(models.Sample{
		Kind:   kind,
		Value:  value,
		NodeID: nodeID,
		CellID: cellID,
	})
}

// IngestSample keeps a non-zero Timestamp and stamps a zero one.
func (a *Analyzer) IngestSample(sample models.Sample) (IngestResult, error) {
	if !sample.Kind.Valid() {
		return IngestResult{}, fmt.Errorf("%w: %d", ErrInvalidMetricKind, int(sample.Kind))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if sample.Timestamp.IsZero() {
		sample.Timestamp = now
	}

	h := a.history[sample.Kind]
	h.Push(sample)
	a.processed++

	result := IngestResult{
		Sample:     sample,
		HistoryLen: h.Count(),
		Anomaly: models.AnomalyResult{
			Kind:     sample.Kind,
			Severity: models.SeverityNone,
			Actual:   sample.Value,
		},
		Recommendation: models.RecommendationResult{Kind: models.RecommendationNone, MetricKind: sample.Kind},
	}

	if h.Count() < MinHistoryForAnalysis {
		return result, nil
	}

	h.setStats(ComputeStatistics(h.Samples()))
	if h.Count() >= a.trendWindow {
		h.setTrend(ComputeTrend(h.Tail(a.trendWindow)))
	}
	result.Stats = h.Stats()
	result.Trend = h.Trend()

	threshold := a.thresholds[sample.Kind]
	anomaly := a.cascade.Detect(DetectionInput{
		Sample:     sample,
		Threshold:  threshold,
		HistoryLen: h.Count(),
		Stats:      h.Stats(),
		Recent:     h.RecentValues(ModelFeatures),
		Now:        now,
	})
	result.Anomaly = anomaly
	if anomaly.Severity == models.SeverityNone {
		return result, nil
	}

	anomaly.ID = a.newID()
	a.anomalies.Push(anomaly)
	a.detected++
	result.Anomaly = anomaly

	rec := Recommend(sample, anomaly, threshold, now)
	if rec.Kind != models.RecommendationNone {
		rec.ID = a.newID()
		a.recommendations.Push(rec)
		a.generated++
	}
	result.Recommendation = rec

	return result, nil
}

// GetHistory returns a copy of the kind's history and last summaries.
func (a *Analyzer) GetHistory(kind models.MetricKind) (History, error) {
	if !kind.Valid() {
		return History{}, fmt.Errorf("%w: %d", ErrInvalidMetricKind, int(kind))
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.history[kind].Snapshot(kind), nil
}

// GetRecentAnomalies returns up to ResultCapacity anomalies in arrival order
// together with their count, as one consistent snapshot.
func (a *Analyzer) GetRecentAnomalies() ([]models.AnomalyResult, int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	items := a.anomalies.Items()
	return items, len(items)
}

func (a *Analyzer) GetRecentRecommendations() ([]models.RecommendationResult, int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	items := a.recommendations.Items()
	return items, len(items)
}

// DrainAnomalies returns the anomalies appended since the previous drain.
// Entries overwritten before they were drained are lost.
func (a *Analyzer) DrainAnomalies() []models.AnomalyResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	items := a.anomalies.Since(a.anomalyMark)
	a.anomalyMark = a.anomalies.Total()
	return items
}

func (a *Analyzer) DrainRecommendations() []models.RecommendationResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	items := a.recommendations.Since(a.recommendationMark)
	a.recommendationMark = a.recommendations.Total()
	return items
}

func (a *Analyzer) GetCurrentStats() models.EngineStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := models.EngineStats{
		ProcessedMetrics:         a.processed,
		DetectedAnomalies:        a.detected,
		GeneratedRecommendations: a.generated,
	}
	if a.processed > 0 {
		stats.AnomalyRate = float64(a.detected) / float64(a.processed)
		stats.RecommendationRate = float64(a.generated) / float64(a.processed)
	}
	return stats
}

func (a *Analyzer) Thresholds() models.ThresholdTable {
	// array copy
	return a.thresholds
}

// TrainModel fits the linear model on the retained history of kind. The
// ingestion path never calls it.
func (a *Analyzer) TrainModel(kind models.MetricKind) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMetricKind, int(kind))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model.Train(sampleValues(a.history[kind].Samples())), nil
}

// UpdateModel applies one training step using the kind's most recent values
// as features and target as the expected value.
func (a *Analyzer) UpdateModel(kind models.MetricKind, target float64) (float64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMetricKind, int(kind))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model.Update(a.history[kind].RecentValues(ModelFeatures), target), nil
}

// Model returns a copy of the linear model parameters.
func (a *Analyzer) Model() LinearModel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.model
}
