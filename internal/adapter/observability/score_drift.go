package observability

import (
	"log/slog"
	"sync"
)

// ScoreDriftMonitor tracks the rolling mean of oracle answer scores against a
// baseline. A model swap or prompt regression shows up as sustained drift.
type ScoreDriftMonitor struct {
	mu             sync.Mutex
	model          string
	baseline       float64
	windowSize     int
	driftThreshold float64
	recent         []float64
	alerting       bool
}

// NewScoreDriftMonitor creates a monitor for one oracle model.
func NewScoreDriftMonitor(model string, baseline float64, windowSize int, driftThreshold float64) *ScoreDriftMonitor {
	if windowSize <= 0 {
		windowSize = 20
	}
	return &ScoreDriftMonitor{
		model:          model,
		baseline:       baseline,
		windowSize:     windowSize,
		driftThreshold: driftThreshold,
		recent:         make([]float64, 0, windowSize),
	}
}

// Record adds an oracle-scored answer and returns the current drift.
// Drift stays 0 until the window is full.
func (m *ScoreDriftMonitor) Record(score float64) float64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recent = append(m.recent, score)
	if len(m.recent) > m.windowSize {
		m.recent = m.recent[1:]
	}
	if len(m.recent) < m.windowSize {
		return 0
	}
	drift := m.drift()
	ScoreDriftGauge.WithLabelValues(m.model).Set(drift)

	// log once per excursion, not on every sample
	over := drift > m.driftThreshold
	if over && !m.alerting {
		slog.Warn("oracle score drift detected",
			slog.String("model", m.model),
			slog.Float64("drift", drift),
			slog.Float64("baseline", m.baseline),
			slog.Float64("threshold", m.driftThreshold))
	}
	m.alerting = over
	return drift
}

func (m *ScoreDriftMonitor) drift() float64 {
	var sum float64
	for _, s := range m.recent {
		sum += s
	}
	d := sum/float64(len(m.recent)) - m.baseline
	if d < 0 {
		d = -d
	}
	return d
}

// Drift returns the drift of the current window, or 0 before it fills.
func (m *ScoreDriftMonitor) Drift() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recent) < m.windowSize {
		return 0
	}
	return m.drift()
}

// Reset clears the window.
func (m *ScoreDriftMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent = m.recent[:0]
	m.alerting = false
}
