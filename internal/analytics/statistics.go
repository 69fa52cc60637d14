package analytics

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ran-analytics/internal/models"
)

// OutlierZScore is the fixed |z| above which the newest sample of a window is
// flagged. It does not follow the configured outlier threshold.
const OutlierZScore = 2.0

// ComputeStatistics summarises the window. The z-score and outlier flag refer
// to the last sample. An empty window yields the zero value.
func ComputeStatistics(samples []models.Sample) models.Statistics {
	var result models.Statistics
	if len(samples) == 0 {
		return result
	}

	values := sampleValues(samples)

	// population variance: divide by n
	result.Mean, result.Variance = stat.PopMeanVariance(values, nil)
	result.StdDev = math.Sqrt(result.Variance)
	result.Min = floats.Min(values)
	result.Max = floats.Max(values)

	// Median sorts a copy and averages the two central values for even n.
	median, err := stats.Median(values)
	if err == nil {
		result.Median = median
	}

	result.ZScore = ZScore(values[len(values)-1], result.Mean, result.StdDev)
	result.IsOutlier = IsOutlier(result.ZScore, OutlierZScore)

	return result
}

// ZScore returns 0 when the deviation is not positive.
func ZScore(value, mean, stdDev float64) float64 {
	if stdDev <= 0 {
		return 0
	}
	return (value - mean) / stdDev
}

func IsOutlier(zScore, threshold float64) bool {
	return math.Abs(zScore) > threshold
}

func sampleValues(samples []models.Sample) []float64 {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	return values
}
