// Package storage persists samples, findings and service events.
package storage

import (
	"context"
	"time"

	"ran-analytics/internal/models"
)

// Store is the persistence interface used by the monitor and the HTTP layer.
type Store interface {
	MetricStore
	AnomalyStore
	RecommendationStore
	EventStore

	// Cleanup removes samples, anomalies and recommendations older than
	// metricRetention and events older than eventRetention.
	Cleanup(ctx context.Context, metricRetention, eventRetention time.Duration) (CleanupResult, error)

	// Counters reports insert, query and error totals since open.
	Counters() Counters

	Close() error
	Ping(ctx context.Context) error
}

// ─── Metrics ─────────────────────────────────────────────────────────────────

// MetricQuery selects samples of one kind. NodeID 0 matches every node; zero
// From/To leave that side of the range open.
type MetricQuery struct {
	Kind   models.MetricKind
	NodeID uint32
	From   time.Time
	To     time.Time
}

// MetricSummary is the SQL-side aggregate over a MetricQuery.
type MetricSummary struct {
	Count int64   `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type MetricStore interface {
	SaveSample(ctx context.Context, s models.Sample) error
	// SaveSamples stores a batch in one transaction.
	SaveSamples(ctx context.Context, samples []models.Sample) error
	// QueryMetrics returns matching samples oldest first.
	QueryMetrics(ctx context.Context, q MetricQuery) ([]models.Sample, error)
	// RecentMetrics returns up to limit samples of kind, newest first.
	RecentMetrics(ctx context.Context, kind models.MetricKind, limit int) ([]models.Sample, error)
	MetricStats(ctx context.Context, q MetricQuery) (MetricSummary, error)
}

// ─── Anomalies ───────────────────────────────────────────────────────────────

// AnomalyQuery filters stored anomalies. SeverityNone matches any severity.
type AnomalyQuery struct {
	Severity models.Severity
	From     time.Time
	To       time.Time
}

type AnomalyStore interface {
	SaveAnomaly(ctx context.Context, a models.AnomalyResult) error
	// QueryAnomalies returns matching anomalies oldest first.
	QueryAnomalies(ctx context.Context, q AnomalyQuery) ([]models.AnomalyResult, error)
	// RecentAnomalies returns up to limit anomalies, newest first.
	RecentAnomalies(ctx context.Context, limit int) ([]models.AnomalyResult, error)
}

// ─── Recommendations ─────────────────────────────────────────────────────────

// RecommendationQuery filters stored recommendations. RecommendationNone
// matches any kind.
type RecommendationQuery struct {
	Kind models.RecommendationKind
	From time.Time
	To   time.Time
}

type RecommendationStore interface {
	SaveRecommendation(ctx context.Context, r models.RecommendationResult) error
	QueryRecommendations(ctx context.Context, q RecommendationQuery) ([]models.RecommendationResult, error)
	RecentRecommendations(ctx context.Context, limit int) ([]models.RecommendationResult, error)
}

// ─── Events ──────────────────────────────────────────────────────────────────

// EventQuery filters the event log. An empty Type matches every type.
type EventQuery struct {
	Type models.EventType
	From time.Time
	To   time.Time
}

type EventStore interface {
	// LogEvent appends an event and returns its row id.
	LogEvent(ctx context.Context, e models.Event) (int64, error)
	QueryEvents(ctx context.Context, q EventQuery) ([]models.Event, error)
	RecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// CleanupResult counts the rows each table lost.
type CleanupResult struct {
	Metrics         int64 `json:"metrics"`
	Anomalies       int64 `json:"anomalies"`
	Recommendations int64 `json:"recommendations"`
	Events          int64 `json:"events"`
}

type Counters struct {
	Inserts uint64 `json:"inserts"`
	Queries uint64 `json:"queries"`
	Errors  uint64 `json:"errors"`
}
