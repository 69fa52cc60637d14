package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ran-analytics/internal/models"
)

// newTestClient connects to REDIS_ADDR and flushes the selected database.
func newTestClient(t *testing.T) *RedisClient {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedisClient(ctx, Options{Addr: addr, PoolSize: 4, MaxRetries: 1})
	require.NoError(t, err)
	require.NoError(t, r.client.FlushDB(ctx).Err())
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedis_Samples(t *testing.T) {
	r := newTestClient(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s := models.Sample{Kind: models.MetricLatency, Value: float64(i), NodeID: 1, Timestamp: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, r.StoreSample(ctx, s))
	}
	require.NoError(t, r.StoreSample(ctx, models.Sample{Kind: models.MetricSINR, Value: 9, Timestamp: base}))

	got, err := r.RecentSamples(ctx, models.MetricLatency, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 4.0, got[0].Value, "newest first")
	assert.Equal(t, 2.0, got[2].Value)
	assert.True(t, base.Add(4*time.Second).Equal(got[0].Timestamp))
}

func TestRedis_ResultListsAreCapped(t *testing.T) {
	r := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < ResultListSize+10; i++ {
		require.NoError(t, r.StoreAnomaly(ctx, models.AnomalyResult{Kind: models.MetricPRBUsage, Actual: float64(i), Severity: models.SeverityWarning}))
	}
	require.NoError(t, r.StoreRecommendation(ctx, models.RecommendationResult{Kind: models.RecommendationLoadBalance}))

	anomalies, err := r.RecentAnomalies(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, anomalies, ResultListSize)
	assert.Equal(t, float64(ResultListSize+9), anomalies[0].Actual)

	recs, err := r.RecentRecommendations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.RecommendationLoadBalance, recs[0].Kind)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisClient(ctx, Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	assert.Error(t, err)
}
