package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := New(reg)

	m.Frames.WithLabelValues(FrameRendered).Add(3)
	m.Frames.WithLabelValues(FrameEmpty).Inc()
	m.StateTransitions.WithLabelValues("FOCUSED").Inc()
	m.HapticPulses.Inc()
	m.StepDuration.Observe(0.011)

	if got := testutil.ToFloat64(m.Frames.WithLabelValues(FrameRendered)); got != 3 {
		t.Errorf("rendered frames = %v, want 3", got)
	}
	if got := testutil.CollectAndCount(m.Frames); got != 2 {
		t.Errorf("frame series = %d, want 2", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n != 7 {
		t.Errorf("GatherAndCount() = %d, %v, want 7 series", n, err)
	}
}

func TestNewTwiceOnOneRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("second New on the same registry did not panic")
		}
	}()
	New(reg)
}
