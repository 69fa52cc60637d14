package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MetricKind identifies one of the measured radio/network quantities.
type MetricKind int

const (
	MetricThroughput MetricKind = iota
	MetricLatency
	MetricPacketLoss
	MetricCPUUtilization
	MetricMemoryUsage
	MetricRSRP
	MetricRSRQ
	MetricSINR
	MetricPRBUsage

	MetricKindCount int = iota
)

var metricKindNames = [MetricKindCount]string{
	"throughput",
	"latency",
	"packet_loss",
	"cpu_utilization",
	"memory_usage",
	"rsrp",
	"rsrq",
	"sinr",
	"prb_usage",
}

// AllMetricKinds returns every kind in declaration order.
func AllMetricKinds() []MetricKind {
	kinds := make([]MetricKind, MetricKindCount)
	for i := range kinds {
		kinds[i] = MetricKind(i)
	}
	return kinds
}

func (k MetricKind) Valid() bool {
	return k >= 0 && int(k) < MetricKindCount
}

func (k MetricKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("unknown(%d)", int(k))
	}
	return metricKindNames[k]
}

// ParseMetricKind resolves the snake_case name used in config files and the API.
func ParseMetricKind(name string) (MetricKind, error) {
	for i, n := range metricKindNames {
		if n == name {
			return MetricKind(i), nil
		}
	}
	return -1, fmt.Errorf("unknown metric kind %q", name)
}

func (k MetricKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *MetricKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseMetricKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Sample is one timestamped observation of a metric for a node/cell.
type Sample struct {
	Kind      MetricKind `json:"kind"`
	Value     float64    `json:"value"`
	NodeID    uint32     `json:"node_id"`
	CellID    uint32     `json:"cell_id"`
	Timestamp time.Time  `json:"timestamp"`
}

type Statistics struct {
	Mean      float64 `json:"mean"`
	Variance  float64 `json:"variance"`
	StdDev    float64 `json:"std_dev"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Median    float64 `json:"median"`
	ZScore    float64 `json:"z_score"`
	IsOutlier bool    `json:"is_outlier"`
}

type Trend struct {
	Slope        float64 `json:"slope"`
	Intercept    float64 `json:"intercept"`
	Correlation  float64 `json:"correlation"`
	IsIncreasing bool    `json:"is_increasing"`
	IsDecreasing bool    `json:"is_decreasing"`
	IsStable     bool    `json:"is_stable"`
}

// ThresholdConfig bounds a metric kind. For throughput the critical level
// sits below the warning level; detection still compares with >=.
type ThresholdConfig struct {
	Warning  float64 `json:"warning" yaml:"warning"`
	Critical float64 `json:"critical" yaml:"critical"`
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max"`
	Enabled  bool    `json:"enabled" yaml:"enabled"`
}

type Severity int

const (
	SeverityNone Severity = iota
	SeverityWarning
	SeverityCritical
)

var severityNames = []string{"none", "warning", "critical"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SeverityNone, fmt.Errorf("unknown severity %q", name)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type AnomalyResult struct {
	ID          string     `json:"id,omitempty"`
	Kind        MetricKind `json:"kind"`
	Severity    Severity   `json:"severity"`
	Threshold   float64    `json:"threshold_value"`
	Actual      float64    `json:"actual_value"`
	Confidence  float64    `json:"confidence"`
	DetectedAt  time.Time  `json:"detected_at"`
	Description string     `json:"description"`
	NodeID      uint32     `json:"node_id"`
	CellID      uint32     `json:"cell_id"`
	Detector    string     `json:"detector,omitempty"`
}

type RecommendationKind int

const (
	RecommendationNone RecommendationKind = iota
	RecommendationIncreasePower
	RecommendationDecreasePower
	RecommendationHandover
	RecommendationLoadBalance
	RecommendationResourceAllocation
	RecommendationParameterAdjustment
)

var recommendationNames = []string{
	"none",
	"increase_power",
	"decrease_power",
	"handover",
	"load_balance",
	"resource_allocation",
	"parameter_adjustment",
}

func (k RecommendationKind) String() string {
	if k < 0 || int(k) >= len(recommendationNames) {
		return "unknown"
	}
	return recommendationNames[k]
}

func ParseRecommendationKind(name string) (RecommendationKind, error) {
	for i, n := range recommendationNames {
		if n == name {
			return RecommendationKind(i), nil
		}
	}
	return RecommendationNone, fmt.Errorf("unknown recommendation kind %q", name)
}

func (k RecommendationKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *RecommendationKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseRecommendationKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

type RecommendationResult struct {
	ID                  string             `json:"id,omitempty"`
	Kind                RecommendationKind `json:"kind"`
	MetricKind          MetricKind         `json:"metric_kind"`
	NodeID              uint32             `json:"node_id"`
	CellID              uint32             `json:"cell_id"`
	Confidence          float64            `json:"confidence"`
	ExpectedImprovement float64            `json:"expected_improvement"`
	GeneratedAt         time.Time          `json:"generated_at"`
	Description         string             `json:"description"`
	Parameters          string             `json:"parameters"`
}

type EventType string

const (
	EventStart                   EventType = "xapp_start"
	EventStop                    EventType = "xapp_stop"
	EventNodeConnect             EventType = "node_connect"
	EventNodeDisconnect          EventType = "node_disconnect"
	EventIndicationReceived      EventType = "indication_received"
	EventAnomalyDetected         EventType = "anomaly_detected"
	EventRecommendationGenerated EventType = "recommendation_generated"
	EventError                   EventType = "error"
)

// Event is a free-form record handed to the persistence layer.
type Event struct {
	ID        int64     `json:"id,omitempty"`
	Type      EventType `json:"type"`
	NodeID    uint32    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
}

type EngineStats struct {
	ProcessedMetrics         uint64  `json:"processed_metrics"`
	DetectedAnomalies        uint64  `json:"detected_anomalies"`
	GeneratedRecommendations uint64  `json:"generated_recommendations"`
	AnomalyRate              float64 `json:"anomaly_rate"`
	RecommendationRate       float64 `json:"recommendation_rate"`
}

// ThresholdTable holds one ThresholdConfig per metric kind, indexed by kind.
type ThresholdTable [MetricKindCount]ThresholdConfig

// DefaultThresholds: every kind warns at 80 and is critical at 95 within
// [0, 100], with throughput, latency and packet loss overridden.
func DefaultThresholds() ThresholdTable {
	var t ThresholdTable
	for i := range t {
		t[i] = ThresholdConfig{Warning: 80, Critical: 95, Min: 0, Max: 100, Enabled: true}
	}
	t[MetricThroughput] = ThresholdConfig{Warning: 100, Critical: 50, Min: 0, Max: 1000, Enabled: true}
	t[MetricLatency] = ThresholdConfig{Warning: 50, Critical: 100, Min: 0, Max: 200, Enabled: true}
	t[MetricPacketLoss] = ThresholdConfig{Warning: 1, Critical: 5, Min: 0, Max: 100, Enabled: true}
	return t
}
