package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load() = %+v, want %+v", cfg, Default())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XR_DRIVER", "sim")
	t.Setenv("XR_FRAMES", "90")
	t.Setenv("XR_FRAME_PERIOD", "20ms")
	t.Setenv("XR_LOG_LEVEL", "debug")
	t.Setenv("XR_METRICS_ADDR", ":9090")
	t.Setenv("XR_PANEL", "false")
	t.Setenv("XR_DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &Config{
		Driver:      "sim",
		Frames:      90,
		FramePeriod: 20 * time.Millisecond,
		LogLevel:    "debug",
		MetricsAddr: ":9090",
		Debug:       true,
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"level", "XR_LOG_LEVEL", "loud"},
		{"frames", "XR_FRAMES", "-1"},
		{"not a number", "XR_FRAMES", "many"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s succeeded", tt.key, tt.value)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}
