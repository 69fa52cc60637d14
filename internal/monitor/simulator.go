package monitor

import (
	"context"
	"math"
	"math/rand"
	"time"

	"ran-analytics/internal/models"
)

const (
	baseThroughput = 150.0
	baseLatency    = 25.0
	baseRSRP       = -85.0
	maxRSRPDrift   = 10.0
)

// Simulator produces synthetic indications for nodes 1..n: an hourly
// sinusoid on throughput and latency, a bounded random walk on RSRP, and
// CPU and PRB load that follow throughput.
type Simulator struct {
	nodes int
	rng   *rand.Rand
	now   func() time.Time
	drift []float64
}

func NewSimulator(nodes int, rng *rand.Rand, now func() time.Time) *Simulator {
	if nodes < 1 {
		nodes = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Simulator{nodes: nodes, rng: rng, now: now, drift: make([]float64, nodes)}
}

// Generate returns one round of samples, five per node.
func (s *Simulator) Generate() []models.Sample {
	now := s.now()
	phase := float64(now.Unix()%3600) / 3600.0
	wave := math.Sin(phase * 2 * math.Pi)

	out := make([]models.Sample, 0, s.nodes*5)
	for i := 0; i < s.nodes; i++ {
		nodeID := uint32(i + 1)
		noise := (s.rng.Float64() - 0.5) * 0.2

		throughput := baseThroughput * (0.8 + 0.4*wave) * (1 + noise)
		latency := baseLatency * (1.2 - 0.4*wave) * (1 + noise)

		s.drift[i] += (s.rng.Float64() - 0.5) * 2.0
		s.drift[i] = math.Max(-maxRSRPDrift, math.Min(maxRSRPDrift, s.drift[i]))
		rsrp := baseRSRP + s.drift[i] + noise*5.0

		load := throughput / baseThroughput
		cpu := 30.0 + load*40.0 + noise*10.0
		prb := 40.0 + load*35.0 + noise*15.0

		for _, v := range []struct {
			kind  models.MetricKind
			value float64
		}{
			{models.MetricThroughput, throughput},
			{models.MetricLatency, latency},
			{models.MetricRSRP, rsrp},
			{models.MetricCPUUtilization, cpu},
			{models.MetricPRBUsage, prb},
		} {
			out = append(out, models.Sample{Kind: v.kind, Value: v.value, NodeID: nodeID, CellID: 1, Timestamp: now})
		}
	}
	return out
}

// Run feeds a round into submit every interval until ctx is done. Submit
// errors are left to the submitter to report.
func (s *Simulator) Run(ctx context.Context, interval time.Duration, submit func(models.Sample) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sample := range s.Generate() {
				_ = submit(sample)
			}
		}
	}
}
