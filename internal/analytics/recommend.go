package analytics

import (
	"time"

	"ran-analytics/internal/models"
)

type recommendationRule struct {
	kind        models.RecommendationKind
	confidence  float64
	improvement float64
	description string
	parameters  string
	// applies gates the rule on the triggering value; nil always applies.
	applies func(value float64, t models.ThresholdConfig) bool
}

func belowWarning(v float64, t models.ThresholdConfig) bool { return v < t.Warning }
func aboveWarning(v float64, t models.ThresholdConfig) bool { return v > t.Warning }

var recommendationRules = map[models.MetricKind]recommendationRule{
	models.MetricThroughput: {
		kind:        models.RecommendationIncreasePower,
		confidence:  0.8,
		improvement: 20.0,
		description: "Increase transmission power to improve throughput",
		parameters:  "power_increase=5dB",
		applies:     belowWarning,
	},
	models.MetricLatency: {
		kind:        models.RecommendationParameterAdjustment,
		confidence:  0.7,
		improvement: 15.0,
		description: "Adjust scheduling parameters to reduce latency",
		parameters:  "scheduling_weight=0.8",
		applies:     aboveWarning,
	},
	models.MetricPacketLoss: {
		kind:        models.RecommendationHandover,
		confidence:  0.6,
		improvement: 30.0,
		description: "Consider handover to reduce packet loss",
		parameters:  "handover_threshold=-105dBm",
		applies:     aboveWarning,
	},
	models.MetricPRBUsage: {
		kind:        models.RecommendationLoadBalance,
		confidence:  0.9,
		improvement: 25.0,
		description: "Implement load balancing to reduce PRB usage",
		parameters:  "load_balance_factor=0.7",
		applies:     aboveWarning,
	},
}

var genericRecommendation = recommendationRule{
	kind:        models.RecommendationParameterAdjustment,
	confidence:  0.5,
	improvement: 10.0,
	description: "General parameter adjustment recommended",
	parameters:  "generic_adjustment=true",
}

// Recommend maps an anomaly to a remediation. The result has kind
// RecommendationNone when the anomaly has no severity or the kind's rule
// does not apply to the value.
func Recommend(sample models.Sample, anomaly models.AnomalyResult, threshold models.ThresholdConfig, at time.Time) models.RecommendationResult {
	result := models.RecommendationResult{
		Kind:        models.RecommendationNone,
		MetricKind:  sample.Kind,
		NodeID:      sample.NodeID,
		CellID:      sample.CellID,
		GeneratedAt: at,
	}
	if anomaly.Severity == models.SeverityNone {
		return result
	}

	rule, ok := recommendationRules[sample.Kind]
	if !ok {
		rule = genericRecommendation
	}
	if rule.applies != nil && !rule.applies(sample.Value, threshold) {
		return result
	}

	result.Kind = rule.kind
	result.Confidence = rule.confidence
	result.ExpectedImprovement = rule.improvement
	result.Description = rule.description
	result.Parameters = rule.parameters
	return result
}
