package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ran-analytics/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	SampleListSize = 1000
	ResultListSize = 100

	anomalyListKey        = "anomalies:recent"
	recommendationListKey = "recommendations:recent"
)

type Options struct {
	Addr         string
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	// SampleTTL bounds how long an individual sample key lives.
	SampleTTL time.Duration
}

// RedisClient keeps the latest samples and findings where dashboards can read
// them without touching the database.
type RedisClient struct {
	client    *redis.Client
	sampleTTL time.Duration
}

func NewRedisClient(ctx context.Context, opts Options) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		MaxRetries:   opts.MaxRetries,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.Addr, err)
	}

	ttl := opts.SampleTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisClient{client: client, sampleTTL: ttl}, nil
}

func sampleListKey(kind models.MetricKind) string {
	return "samples:recent:" + kind.String()
}

func (r *RedisClient) StoreSample(ctx context.Context, s models.Sample) error {
	key := fmt.Sprintf("sample:%s:%d:%d", s.Kind, s.NodeID, s.Timestamp.UnixNano())

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	listKey := sampleListKey(s.Kind)
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, data, r.sampleTTL)
		p.LPush(ctx, listKey, key)
		p.LTrim(ctx, listKey, 0, SampleListSize-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store sample in Redis: %w", err)
	}
	return nil
}

// RecentSamples returns up to n samples of kind, newest first. Keys that
// expired since they were listed are skipped.
func (r *RedisClient) RecentSamples(ctx context.Context, kind models.MetricKind, n int64) ([]models.Sample, error) {
	keys, err := r.client.LRange(ctx, sampleListKey(kind), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sample keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent samples: %w", err)
	}

	samples := make([]models.Sample, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		var s models.Sample
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			continue
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func (r *RedisClient) StoreAnomaly(ctx context.Context, a models.AnomalyResult) error {
	return r.pushResult(ctx, anomalyListKey, a)
}

func (r *RedisClient) StoreRecommendation(ctx context.Context, rec models.RecommendationResult) error {
	return r.pushResult(ctx, recommendationListKey, rec)
}

func (r *RedisClient) pushResult(ctx context.Context, listKey string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s entry: %w", listKey, err)
	}
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, listKey, data)
		p.LTrim(ctx, listKey, 0, ResultListSize-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", listKey, err)
	}
	return nil
}

// RecentAnomalies returns up to n cached anomalies, newest first.
func (r *RedisClient) RecentAnomalies(ctx context.Context, n int64) ([]models.AnomalyResult, error) {
	var out []models.AnomalyResult
	err := r.readResults(ctx, anomalyListKey, n, func(data []byte) error {
		var a models.AnomalyResult
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

// RecentRecommendations returns up to n cached recommendations, newest first.
func (r *RedisClient) RecentRecommendations(ctx context.Context, n int64) ([]models.RecommendationResult, error) {
	var out []models.RecommendationResult
	err := r.readResults(ctx, recommendationListKey, n, func(data []byte) error {
		var rec models.RecommendationResult
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (r *RedisClient) readResults(ctx context.Context, listKey string, n int64, decode func([]byte) error) error {
	entries, err := r.client.LRange(ctx, listKey, 0, n-1).Result()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", listKey, err)
	}
	for _, e := range entries {
		if err := decode([]byte(e)); err != nil {
			continue // skip entries written by an incompatible version
		}
	}
	return nil
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
