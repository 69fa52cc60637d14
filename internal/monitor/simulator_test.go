package monitor

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ran-analytics/internal/models"
)

func TestSimulator_GenerateRanges(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	sim := NewSimulator(2, rand.New(rand.NewSource(7)), clock.Now)

	for round := 0; round < 200; round++ {
		samples := sim.Generate()
		require.Len(t, samples, 10)

		for i, s := range samples {
			assert.Equal(t, uint32(i/5+1), s.NodeID)
			assert.Equal(t, uint32(1), s.CellID)
			assert.Equal(t, clock.Now(), s.Timestamp)

			switch s.Kind {
			case models.MetricThroughput:
				assert.InDelta(t, 126, s.Value, 72)
			case models.MetricLatency:
				assert.InDelta(t, 31, s.Value, 13)
			case models.MetricRSRP:
				assert.InDelta(t, -85, s.Value, 10.5)
			case models.MetricCPUUtilization:
				assert.InDelta(t, 63.6, s.Value, 20.2)
			case models.MetricPRBUsage:
				assert.InDelta(t, 69.4, s.Value, 18.3)
			default:
				t.Fatalf("unexpected kind %s", s.Kind)
			}
		}
		clock.Advance(37 * time.Second)
	}
}

func TestSimulator_RunSubmitsUntilCancelled(t *testing.T) {
	sim := NewSimulator(1, rand.New(rand.NewSource(1)), nil)

	var (
		mu  sync.Mutex
		got []models.Sample
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sim.Run(ctx, 5*time.Millisecond, func(s models.Sample) error {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
			return nil
		})
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 10
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestNodeRegistry(t *testing.T) {
	r := NewNodeRegistry()
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, r.Touch(2, t0), "new node")
	assert.False(t, r.Touch(2, t0.Add(time.Second)))
	assert.True(t, r.Touch(1, t0))

	assert.Empty(t, r.Sweep(t0.Add(30*time.Second), time.Minute))
	stale := r.Sweep(t0.Add(62*time.Second), time.Minute)
	require.Len(t, stale, 2)
	assert.Equal(t, uint32(1), stale[0].NodeID)
	assert.Zero(t, r.Active())

	assert.True(t, r.Touch(2, t0.Add(70*time.Second)), "reconnect")
	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, uint64(3), snap[1].Samples)
	assert.True(t, snap[1].Connected)
	assert.Equal(t, 1, r.Active())
}
