package analytics

import (
	"fmt"
	"math"
	"time"

	"ran-analytics/internal/models"
)

const (
	// MinHistoryForAnalysis is the history size at which statistics are
	// derived and the cascade starts running.
	MinHistoryForAnalysis = 10
	// MinHistoryForModel gates the model stage.
	MinHistoryForModel = 20

	criticalConfidence = 1.0
	warningConfidence  = 0.8
	floorConfidence    = 0.7

	criticalZScore     = 3.0
	modelBoundSigmas   = 2.0
	modelCriticalRatio = 1.5
)

// DetectionInput is what every detector sees for one ingested sample.
type DetectionInput struct {
	Sample     models.Sample
	Threshold  models.ThresholdConfig
	HistoryLen int
	Stats      models.Statistics
	// Recent holds up to ModelFeatures values of the kind, newest first,
	// including Sample itself.
	Recent []float64
	Now    time.Time
}

// Detector is one stage of the anomaly cascade. ok is false when the stage
// has nothing to report.
type Detector interface {
	Name() string
	Detect(in DetectionInput) (result models.AnomalyResult, ok bool)
}

// Cascade runs detectors in order and stops at the first finding.
type Cascade []Detector

// Detect always returns a result; SeverityNone means no stage fired.
func (c Cascade) Detect(in DetectionInput) models.AnomalyResult {
	for _, d := range c {
		if result, ok := d.Detect(in); ok {
			return result
		}
	}
	return baseResult(in)
}

func baseResult(in DetectionInput) models.AnomalyResult {
	return models.AnomalyResult{
		Kind:       in.Sample.Kind,
		Severity:   models.SeverityNone,
		Actual:     in.Sample.Value,
		DetectedAt: in.Now,
		NodeID:     in.Sample.NodeID,
		CellID:     in.Sample.CellID,
	}
}

// ThresholdDetector compares the raw value against the kind's configured
// levels: critical, then warning, then the minimum floor.
type ThresholdDetector struct{}

func (ThresholdDetector) Name() string { return "threshold" }

func (d ThresholdDetector) Detect(in DetectionInput) (models.AnomalyResult, bool) {
	t := in.Threshold
	if !t.Enabled {
		return models.AnomalyResult{}, false
	}

	v := in.Sample.Value
	result := baseResult(in)
	result.Detector = d.Name()

	switch {
	case v >= t.Critical:
		result.Severity = models.SeverityCritical
		result.Threshold = t.Critical
		result.Confidence = criticalConfidence
		result.Description = fmt.Sprintf("Critical threshold exceeded: %.2f >= %.2f (%s)", v, t.Critical, in.Sample.Kind)
	case v >= t.Warning:
		result.Severity = models.SeverityWarning
		result.Threshold = t.Warning
		result.Confidence = warningConfidence
		result.Description = fmt.Sprintf("Warning threshold exceeded: %.2f >= %.2f (%s)", v, t.Warning, in.Sample.Kind)
	case v <= t.Min:
		result.Severity = models.SeverityWarning
		result.Threshold = t.Min
		result.Confidence = floorConfidence
		result.Description = fmt.Sprintf("Minimum value violation: %.2f <= %.2f (%s)", v, t.Min, in.Sample.Kind)
	default:
		return models.AnomalyResult{}, false
	}
	return result, true
}

// StatisticalDetector reports the outlier flag of the kind's latest
// statistics.
type StatisticalDetector struct{}

func (StatisticalDetector) Name() string { return "statistical" }

func (d StatisticalDetector) Detect(in DetectionInput) (models.AnomalyResult, bool) {
	if in.HistoryLen < MinHistoryForAnalysis || !in.Stats.IsOutlier {
		return models.AnomalyResult{}, false
	}

	z := in.Stats.ZScore
	absZ := math.Abs(z)
	sign := 1.0
	if z <= 0 {
		sign = -1.0
	}

	result := baseResult(in)
	result.Detector = d.Name()
	result.Severity = models.SeverityWarning
	if absZ > criticalZScore {
		result.Severity = models.SeverityCritical
	}
	result.Threshold = in.Stats.Mean + sign*OutlierZScore*in.Stats.StdDev
	result.Confidence = math.Min(absZ/criticalZScore, 1.0)
	result.Description = fmt.Sprintf("Statistical outlier detected: %.2f (z-score: %.2f) (%s)", in.Sample.Value, z, in.Sample.Kind)
	return result, true
}

// ModelDetector compares the sample with the linear model's prediction. The
// residual bound is twice the kind's standard deviation.
type ModelDetector struct {
	Model *LinearModel
	// Predict disables prediction when false; the residual is then zero.
	Predict bool
}

func (ModelDetector) Name() string { return "model" }

func (d ModelDetector) Detect(in DetectionInput) (models.AnomalyResult, bool) {
	if d.Model == nil || in.HistoryLen < MinHistoryForModel {
		return models.AnomalyResult{}, false
	}

	v := in.Sample.Value
	predicted := v
	if d.Predict {
		predicted = d.Model.Predict(v, in.Recent)
	}
	residual := math.Abs(v - predicted)
	bound := in.Stats.StdDev * modelBoundSigmas
	if residual <= bound {
		return models.AnomalyResult{}, false
	}

	result := baseResult(in)
	result.Detector = d.Name()
	result.Severity = models.SeverityWarning
	if residual > bound*modelCriticalRatio {
		result.Severity = models.SeverityCritical
	}
	result.Threshold = predicted
	result.Confidence = 1.0
	if bound > 0 {
		result.Confidence = math.Min(residual/(bound*2), 1.0)
	}
	result.Description = fmt.Sprintf("ML anomaly detected: %.2f (predicted: %.2f, error: %.2f) (%s)", v, predicted, residual, in.Sample.Kind)
	return result, true
}
