// Package metrics holds the Prometheus collectors of the frame loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame outcomes.
const (
	FrameRendered = "rendered"
	FrameEmpty    = "empty"
	FrameSkipped  = "skipped"
)

// Metrics holds the frame loop collectors.
type Metrics struct {
	Frames       *prometheus.CounterVec
	StepDuration prometheus.Histogram
	FPS          prometheus.Gauge

	StateTransitions *prometheus.CounterVec
	Events           *prometheus.CounterVec
	Transient        *prometheus.CounterVec

	HapticPulses   prometheus.Counter
	OverlayRenders prometheus.Gauge
}

// New registers the collectors with reg. Use prometheus.DefaultRegisterer
// to expose them on the default handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Frames: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xr_frames_total",
				Help: "Loop iterations by frame outcome",
			},
			[]string{"outcome"},
		),
		StepDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xr_step_duration_seconds",
				Help:    "Duration of one loop iteration including the frame wait",
				Buckets: []float64{.001, .0025, .005, .008, .011, .014, .017, .025, .05, .1},
			},
		),
		FPS: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "xr_frames_per_second",
				Help: "Rendered frames per second over the last window",
			},
		),
		StateTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xr_session_state_transitions_total",
				Help: "Session state changes by target state",
			},
			[]string{"state"},
		),
		Events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xr_runtime_events_total",
				Help: "Runtime events by type",
			},
			[]string{"event"},
		),
		Transient: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xr_transient_conditions_total",
				Help: "Absorbed transient runtime conditions by kind",
			},
			[]string{"kind"},
		),
		HapticPulses: f.NewCounter(
			prometheus.CounterOpts{
				Name: "xr_haptic_pulses_total",
				Help: "Squeeze haptic pulses sent",
			},
		),
		OverlayRenders: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "xr_overlay_renders",
				Help: "Frames rendered by the overlay worker",
			},
		),
	}
}
