package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ran-analytics/internal/models"
)

func samplesOf(kind models.MetricKind, values ...float64) []models.Sample {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Sample, len(values))
	for i, v := range values {
		out[i] = models.Sample{Kind: kind, Value: v, NodeID: 1, CellID: 1, Timestamp: base.Add(time.Duration(i) * time.Second)}
	}
	return out
}

func TestComputeStatistics_OneToTen(t *testing.T) {
	stats := ComputeStatistics(samplesOf(models.MetricLatency, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	assert.InDelta(t, 5.5, stats.Mean, 1e-9)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 10.0, stats.Max)
	assert.InDelta(t, 8.25, stats.Variance, 1e-9, "population variance")
	assert.InDelta(t, 2.8723, stats.StdDev, 1e-4)
	assert.InDelta(t, 5.5, stats.Median, 1e-9)

	// last sample is 10: z = 4.5 / 2.8723
	assert.InDelta(t, 1.5667, stats.ZScore, 1e-4)
	assert.False(t, stats.IsOutlier)
}

func TestComputeStatistics_OddMedianUnsorted(t *testing.T) {
	stats := ComputeStatistics(samplesOf(models.MetricSINR, 9, 1, 5))
	assert.Equal(t, 5.0, stats.Median)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 9.0, stats.Max)
}

func TestComputeStatistics_Empty(t *testing.T) {
	assert.Equal(t, models.Statistics{}, ComputeStatistics(nil))
}

func TestComputeStatistics_SingleSample(t *testing.T) {
	stats := ComputeStatistics(samplesOf(models.MetricRSRP, -90))
	assert.Equal(t, -90.0, stats.Mean)
	assert.Equal(t, -90.0, stats.Median)
	assert.Zero(t, stats.StdDev)
	assert.Zero(t, stats.ZScore)
	assert.False(t, stats.IsOutlier)
}

func TestComputeStatistics_ConstantWindowHasZeroZScore(t *testing.T) {
	stats := ComputeStatistics(samplesOf(models.MetricCPUUtilization, 50, 50, 50, 50))
	assert.Zero(t, stats.StdDev)
	assert.Zero(t, stats.ZScore)
	assert.False(t, stats.IsOutlier)
}

func TestComputeStatistics_OutlierIsLastSample(t *testing.T) {
	values := make([]float64, 0, 16)
	for i := 0; i < 15; i++ {
		values = append(values, 50)
	}
	values = append(values, 200)

	stats := ComputeStatistics(samplesOf(models.MetricCPUUtilization, values...))
	assert.True(t, stats.IsOutlier)
	assert.Greater(t, stats.ZScore, 3.0)
}

func TestZScore(t *testing.T) {
	assert.Equal(t, 2.5, ZScore(10.0, 5.0, 2.0))
	assert.Equal(t, -2.5, ZScore(0.0, 5.0, 2.0))
	assert.Zero(t, ZScore(10.0, 5.0, 0))
	assert.Zero(t, ZScore(10.0, 5.0, -1))
}

func TestIsOutlier(t *testing.T) {
	tests := []struct {
		z    float64
		want bool
	}{
		{2.5, true},
		{1.5, false},
		{-2.5, true},
		{2.0, false},
		{math.Inf(1), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsOutlier(tt.z, 2.0), "z=%v", tt.z)
	}
}
