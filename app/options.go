package app

import (
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
	"golang.org/x/text/language"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/driver"
	"github.com/gogpu/xr/internal/metrics"
)

// Option configures an App.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	metrics      *metrics.Metrics
	contextOpts  []xr.ContextOption
	formats      []gputypes.TextureFormat
	mirror       int
	swapInterval int
	imageTimeout time.Duration
	clear        color.Color
	title        string
	lang         language.Tag
	fpsWindow    time.Duration
	warnEvery    time.Duration
	maxFrames    int
	cubemap      string
	model        string

	panel       bool
	panelSize   image.Point
	panelOffset xr.Pose
}

func defaultOptions() options {
	return options{
		formats: []gputypes.TextureFormat{
			gputypes.TextureFormatRGBA8UnormSrgb,
			gputypes.TextureFormatBGRA8UnormSrgb,
			gputypes.TextureFormatRGBA8Unorm,
			gputypes.TextureFormatBGRA8Unorm,
		},
		mirror:       4,
		imageTimeout: driver.InfiniteDuration,
		clear:        color.RGBA{A: 255},
		title:        "xr",
		lang:         language.English,
		fpsWindow:    time.Second,
		warnEvery:    time.Second,
		panel:        true,
		panelSize:    image.Pt(512, 256),
		panelOffset: xr.Pose{
			Orientation: xr.IdentityPose.Orientation,
			Position:    f32.Vec3{0, 0.08, -0.12},
		},
	}
}

// WithLogger sets the logger. Defaults to xr.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records loop metrics into m. Without it the collectors are
// registered on a private registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithContextOptions passes options to the xr.Context the App creates. The
// App installs its own event and state hooks after them.
func WithContextOptions(opts ...xr.ContextOption) Option {
	return func(o *options) {
		o.contextOpts = append(o.contextOpts, opts...)
	}
}

// WithFormats sets the preferred swapchain formats, best first.
func WithFormats(formats ...gputypes.TextureFormat) Option {
	return func(o *options) {
		o.formats = formats
	}
}

// WithMirrorDivisor sizes the desktop mirror at 1/n of the render target.
// Zero disables the mirror blit.
func WithMirrorDivisor(n int) Option {
	return func(o *options) {
		o.mirror = n
	}
}

// WithSwapInterval sets the window swap interval. Defaults to 0 so that
// the runtime, not the desktop display, paces the loop.
func WithSwapInterval(n int) Option {
	return func(o *options) {
		o.swapInterval = n
	}
}

// WithImageTimeout bounds swapchain image waits.
func WithImageTimeout(d time.Duration) Option {
	return func(o *options) {
		o.imageTimeout = d
	}
}

// WithClearColor sets the color the eye framebuffer is cleared to.
func WithClearColor(c color.Color) Option {
	return func(o *options) {
		o.clear = c
	}
}

// WithTitle sets the window title prefix.
func WithTitle(title string) Option {
	return func(o *options) {
		o.title = title
	}
}

// WithLanguage sets the language of the window title and the panel.
func WithLanguage(tag language.Tag) Option {
	return func(o *options) {
		o.lang = tag
	}
}

// WithFPSWindow sets the minimum interval the frame rate is averaged over.
func WithFPSWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fpsWindow = d
		}
	}
}

// WithWarnInterval limits transient-condition warnings to one per d.
func WithWarnInterval(d time.Duration) Option {
	return func(o *options) {
		o.warnEvery = d
	}
}

// WithMaxFrames closes the window after n loop iterations. Zero runs until
// the session ends.
func WithMaxFrames(n int) Option {
	return func(o *options) {
		o.maxFrames = n
	}
}

// WithCubemap loads a background into scenes that support it.
func WithCubemap(path string) Option {
	return func(o *options) {
		o.cubemap = path
	}
}

// WithModel loads a model into scenes that support it.
func WithModel(path string) Option {
	return func(o *options) {
		o.model = path
	}
}

// WithPanel enables or disables the overlay panel.
func WithPanel(enabled bool) Option {
	return func(o *options) {
		o.panel = enabled
	}
}

// WithPanelSize sets the panel resolution in pixels.
func WithPanelSize(size image.Point) Option {
	return func(o *options) {
		o.panelSize = size
	}
}

// WithPanelOffset places the panel relative to the left hand's aim pose.
func WithPanelOffset(p xr.Pose) Option {
	return func(o *options) {
		o.panelOffset = p
	}
}
