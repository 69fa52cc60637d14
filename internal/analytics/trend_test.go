package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ran-analytics/internal/models"
)

func TestComputeTrend_Increasing(t *testing.T) {
	values := make([]float64, 10)
	for i := range values {
		values[i] = 2 * float64(i)
	}

	trend := ComputeTrend(samplesOf(models.MetricThroughput, values...))

	assert.Greater(t, trend.Slope, 1.0)
	assert.InDelta(t, 2.0, trend.Slope, 1e-9)
	assert.InDelta(t, 0.0, trend.Intercept, 1e-9)
	assert.InDelta(t, 1.0, trend.Correlation, 1e-9)
	assert.True(t, trend.IsIncreasing)
	assert.False(t, trend.IsDecreasing)
	assert.False(t, trend.IsStable)
}

func TestComputeTrend_Decreasing(t *testing.T) {
	trend := ComputeTrend(samplesOf(models.MetricRSRP, 10, 9, 8, 7, 6))

	assert.InDelta(t, -1.0, trend.Slope, 1e-9)
	assert.InDelta(t, 10.0, trend.Intercept, 1e-9)
	assert.InDelta(t, -1.0, trend.Correlation, 1e-9)
	assert.True(t, trend.IsDecreasing)
	assert.False(t, trend.IsIncreasing)
	assert.False(t, trend.IsStable)
}

func TestComputeTrend_FlatSeries(t *testing.T) {
	trend := ComputeTrend(samplesOf(models.MetricLatency, 5, 5, 5, 5))

	assert.Zero(t, trend.Slope)
	assert.InDelta(t, 5.0, trend.Intercept, 1e-9)
	assert.Zero(t, trend.Correlation, "no deviation in values leaves correlation at zero")
	assert.True(t, trend.IsStable)
}

func TestComputeTrend_SmallSlopeIsStable(t *testing.T) {
	trend := ComputeTrend(samplesOf(models.MetricSINR, 10, 10.05, 10.1, 10.15))
	assert.InDelta(t, 0.05, trend.Slope, 1e-9)
	assert.True(t, trend.IsStable)
	assert.False(t, trend.IsIncreasing)
}

func TestComputeTrend_TooFewSamples(t *testing.T) {
	assert.Equal(t, models.Trend{}, ComputeTrend(nil))
	assert.Equal(t, models.Trend{}, ComputeTrend(samplesOf(models.MetricSINR, 3)))
}
