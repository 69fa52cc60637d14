// Package metrics holds the Prometheus instruments exported on
// /metrics/prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	SamplesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ran_samples_ingested_total",
		Help: "Samples run through the analytics engine",
	}, []string{"kind"})

	SamplesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ran_samples_dropped_total",
		Help: "Samples rejected because the ingestion queue was full",
	})

	AnomaliesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ran_anomalies_detected_total",
		Help: "Total number of anomalies detected",
	}, []string{"kind", "severity", "detector"})

	RecommendationsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ran_recommendations_generated_total",
		Help: "Total number of recommendations generated",
	}, []string{"kind"})

	PersistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ran_persistence_errors_total",
		Help: "Failed writes to the store or cache",
	}, []string{"target"})

	LastValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ran_metric_last_value",
		Help: "Most recent sample value per metric kind",
	}, []string{"kind"})

	LastZScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ran_metric_last_zscore",
		Help: "Z-score of the most recent sample per metric kind",
	}, []string{"kind"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ran_ingest_queue_depth",
		Help: "Samples waiting for the ingestion worker",
	})

	ActiveNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ran_active_nodes",
		Help: "Nodes that reported within the staleness window",
	})

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ran_stream_clients",
		Help: "Connected websocket subscribers",
	})
)
