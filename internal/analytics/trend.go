package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"ran-analytics/internal/models"
)

// TrendSlopeThreshold separates increasing/decreasing from stable.
const TrendSlopeThreshold = 0.1

// ComputeTrend fits value against 0-based position in the window (not wall
// clock time). Fewer than two samples yield the zero value.
func ComputeTrend(samples []models.Sample) models.Trend {
	var result models.Trend
	if len(samples) < 2 {
		return result
	}

	ys := sampleValues(samples)
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}

	result.Intercept, result.Slope = stat.LinearRegression(xs, ys, nil, false)

	// Correlation stays 0 for a flat series instead of NaN.
	if stat.PopVariance(ys, nil) > 0 {
		result.Correlation = stat.Correlation(xs, ys, nil)
	}

	result.IsIncreasing = result.Slope > TrendSlopeThreshold
	result.IsDecreasing = result.Slope < -TrendSlopeThreshold
	result.IsStable = math.Abs(result.Slope) <= TrendSlopeThreshold

	return result
}
