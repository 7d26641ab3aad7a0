package threaded

import (
	"image/color"
	"log/slog"
	"time"

	"github.com/gogpu/xr/driver"
)

// DefaultWakeInterval bounds how long the worker sleeps before it retries a
// frame that could not be rendered.
const DefaultWakeInterval = 100 * time.Millisecond

// Option configures a Renderer.
type Option func(*options)

type options struct {
	wake         time.Duration
	imageTimeout time.Duration
	placeholder  color.Color
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		wake:         DefaultWakeInterval,
		imageTimeout: driver.InfiniteDuration,
		placeholder:  color.Transparent,
	}
}

// WithWakeInterval sets the worker wake bound. Non-positive values are
// ignored.
func WithWakeInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.wake = d
		}
	}
}

// WithImageTimeout bounds the wait for a swapchain image. A timed out frame
// is retried on the next wake.
func WithImageTimeout(d time.Duration) Option {
	return func(o *options) {
		o.imageTimeout = d
	}
}

// WithPlaceholder sets the color of the frame rendered during New.
func WithPlaceholder(c color.Color) Option {
	return func(o *options) {
		o.placeholder = c
	}
}

// WithLogger sets the logger. Defaults to xr.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
