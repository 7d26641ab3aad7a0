// Package config loads the xrdemo configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the demo configuration. Command-line flags override it.
type Config struct {
	// Driver names the runtime driver. Empty selects the best available one.
	Driver string `envconfig:"DRIVER"`

	// Frames stops the loop after this many iterations. Zero runs until the
	// session ends.
	Frames int `envconfig:"FRAMES" default:"0"`

	// FramePeriod paces the simulated runtime.
	FramePeriod time.Duration `envconfig:"FRAME_PERIOD" default:"11ms"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	// Bindings is a YAML file with extra interaction profiles.
	Bindings string `envconfig:"BINDINGS"`

	Panel bool `envconfig:"PANEL" default:"true"`

	// Debug enables the runtime diagnostic messenger.
	Debug bool `envconfig:"DEBUG" default:"false"`

	Cubemap string `envconfig:"CUBEMAP"`
}

// Prefix is the environment variable prefix.
const Prefix = "XR"

// Load reads the configuration from XR_* variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.Frames < 0 {
		return nil, fmt.Errorf("config: %s_FRAMES must not be negative, got %d", Prefix, cfg.Frames)
	}
	return &cfg, nil
}

// Default returns the configuration with every variable unset.
func Default() *Config {
	return &Config{
		FramePeriod: 11 * time.Millisecond,
		LogLevel:    "info",
		Panel:       true,
	}
}

// ParseLevel converts a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", s, err)
	}
	return l, nil
}
