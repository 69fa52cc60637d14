package analytics

import (
	"ran-analytics/internal/models"
	"ran-analytics/internal/ring"
)

// HistoryCapacity is the number of samples retained per metric kind.
const HistoryCapacity = 1000

// HistoryBuffer keeps the most recent samples of one kind plus the summaries
// last derived from them.
type HistoryBuffer struct {
	samples   *ring.Ring[models.Sample]
	lastStats models.Statistics
	lastTrend models.Trend
}

func NewHistoryBuffer(capacity int) *HistoryBuffer {
	return &HistoryBuffer{samples: ring.New[models.Sample](capacity)}
}

func (h *HistoryBuffer) Push(s models.Sample) { h.samples.Push(s) }

func (h *HistoryBuffer) Count() int { return h.samples.Len() }

func (h *HistoryBuffer) Capacity() int { return h.samples.Cap() }

// Samples copies the retained window, oldest first.
func (h *HistoryBuffer) Samples() []models.Sample { return h.samples.Items() }

// Tail copies the n most recent samples, oldest first.
func (h *HistoryBuffer) Tail(n int) []models.Sample { return h.samples.Tail(n) }

// RecentValues returns up to n values, newest first.
func (h *HistoryBuffer) RecentValues(n int) []float64 {
	last := h.samples.Last(n)
	values := make([]float64, len(last))
	for i, s := range last {
		values[i] = s.Value
	}
	return values
}

func (h *HistoryBuffer) Stats() models.Statistics { return h.lastStats }

func (h *HistoryBuffer) Trend() models.Trend { return h.lastTrend }

func (h *HistoryBuffer) setStats(s models.Statistics) { h.lastStats = s }

func (h *HistoryBuffer) setTrend(t models.Trend) { h.lastTrend = t }

// History is a read-only copy of a HistoryBuffer handed to callers.
type History struct {
	Kind     models.MetricKind `json:"kind"`
	Count    int               `json:"count"`
	Capacity int               `json:"capacity"`
	Samples  []models.Sample   `json:"samples"`
	Stats    models.Statistics `json:"stats"`
	Trend    models.Trend      `json:"trend"`
}

func (h *HistoryBuffer) Snapshot(kind models.MetricKind) History {
	return History{
		Kind:     kind,
		Count:    h.Count(),
		Capacity: h.Capacity(),
		Samples:  h.Samples(),
		Stats:    h.lastStats,
		Trend:    h.lastTrend,
	}
}
