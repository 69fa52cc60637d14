package analytics

import (
	"math/rand"
)

const (
	// ModelFeatures is the number of trailing values fed to the linear model.
	ModelFeatures = 10

	defaultLearningRate = 0.01
)

// LinearModel predicts the next value of a series from its ten most recent
// values. It starts uninitialized and only becomes active after a training
// step; until then Predict echoes the current value.
type LinearModel struct {
	Initialized  bool
	Weights      [ModelFeatures]float64
	Bias         float64
	LearningRate float64
}

// NewLinearModel draws weights uniformly from [-0.5, 0.5).
func NewLinearModel(rng *rand.Rand) *LinearModel {
	m := &LinearModel{LearningRate: defaultLearningRate}
	for i := range m.Weights {
		m.Weights[i] = rng.Float64() - 0.5
	}
	return m
}

// Predict expects recent newest first. With fewer than ModelFeatures values,
// or before any training, it returns current.
func (m *LinearModel) Predict(current float64, recent []float64) float64 {
	if !m.Initialized || len(recent) < ModelFeatures {
		return current
	}
	return m.dot(recent)
}

// Update applies one gradient step on squared error toward target and returns
// the absolute error before the step. It is a no-op below ModelFeatures values.
func (m *LinearModel) Update(recent []float64, target float64) float64 {
	if len(recent) < ModelFeatures {
		return 0
	}
	diff := m.dot(recent) - target
	for i := 0; i < ModelFeatures; i++ {
		m.Weights[i] -= m.LearningRate * diff * recent[i]
	}
	m.Bias -= m.LearningRate * diff
	m.Initialized = true
	if diff < 0 {
		return -diff
	}
	return diff
}

// Train replays Update over every full window of the series (oldest first),
// predicting each value from the ten that precede it. It returns the number
// of steps taken.
func (m *LinearModel) Train(series []float64) int {
	steps := 0
	features := make([]float64, ModelFeatures)
	for i := ModelFeatures; i < len(series); i++ {
		for j := 0; j < ModelFeatures; j++ {
			features[j] = series[i-1-j]
		}
		m.Update(features, series[i])
		steps++
	}
	return steps
}

func (m *LinearModel) dot(recent []float64) float64 {
	sum := m.Bias
	for i := 0; i < ModelFeatures; i++ {
		sum += m.Weights[i] * recent[i]
	}
	return sum
}
