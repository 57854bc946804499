package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreDriftMonitor_WindowMustFill(t *testing.T) {
	m := NewScoreDriftMonitor("test-model", 60, 3, 10)
	assert.Zero(t, m.Record(90))
	assert.Zero(t, m.Record(90))
	assert.InDelta(t, 30.0, m.Record(90), 1e-9)
	assert.InDelta(t, 30.0, m.Drift(), 1e-9)
}

func TestScoreDriftMonitor_SlidingWindow(t *testing.T) {
	m := NewScoreDriftMonitor("test-model", 50, 2, 10)
	m.Record(10)
	m.Record(50)
	// window now [50, 90]
	assert.InDelta(t, 20.0, m.Record(90), 1e-9)
	m.Reset()
	assert.Zero(t, m.Drift())
}

func TestScoreDriftMonitor_NilSafe(t *testing.T) {
	var m *ScoreDriftMonitor
	assert.Zero(t, m.Record(42))
}

func TestNewScoreDriftMonitor_DefaultWindow(t *testing.T) {
	m := NewScoreDriftMonitor("x", 0, 0, 0)
	assert.Equal(t, 20, m.windowSize)
}
