// Package headless runs the host capabilities on the CPU: a window without
// a display, framebuffers backed by images, offscreen contexts that enforce
// single ownership and a stereo debug scene drawn with gg.
//
// Together with the simulated runtime it lets the complete frame loop run in
// tests and on machines without a GPU or headset:
//
//	win := headless.NewWindow(640, 180)
//	defer win.Destroy()
//	scene := headless.NewDebugScene()
package headless

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/host"
)

// Option configures a Window.
type Option func(*options)

type options struct {
	scale  float64
	tick   time.Duration
	title  string
	logger *slog.Logger
}

// WithScaleFactor sets the DPI scale factor. The back buffer is allocated
// at the physical size.
func WithScaleFactor(sf float64) Option {
	return func(o *options) {
		if sf > 0 {
			o.scale = sf
		}
	}
}

// WithTickInterval paces Run. Zero, the default, runs ticks back to back.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		o.tick = d
	}
}

// WithTitle sets the initial title.
func WithTitle(title string) Option {
	return func(o *options) {
		o.title = title
	}
}

// WithLogger sets the logger. Defaults to xr.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Window is a window without a display. Presented frames are kept in a
// front buffer for inspection.
type Window struct {
	size  image.Point
	opts  options
	log   *slog.Logger
	group *shareGroup

	primary *Context
	closed  atomic.Bool
	redraws atomic.Int64

	mu        sync.Mutex
	title     string
	interval  int
	front     *Texture
	back      *Texture
	swaps     int
	contexts  []*Context
	destroyed bool
}

var _ host.Window = (*Window)(nil)

// NewWindow creates a window of width x height logical pixels. Its primary
// context is current on return, as with a desktop toolkit.
func NewWindow(width, height int, opts ...Option) *Window {
	o := options{scale: 1}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = xr.Logger()
	}
	pw, ph := int(float64(width)*o.scale), int(float64(height)*o.scale)
	w := &Window{
		size:  image.Pt(width, height),
		opts:  o,
		log:   log,
		group: &shareGroup{},
		title: o.title,
		front: NewTexture(pw, ph),
		back:  NewTexture(pw, ph),
	}
	w.primary = newContext(w.group, "primary")
	_ = w.primary.MakeCurrent()
	log.Debug("headless: window created", "width", width, "height", height, "scale", o.scale)
	return w
}

// Size implements gpucontext.WindowProvider.
func (w *Window) Size() (width, height int) { return w.size.X, w.size.Y }

// ScaleFactor implements gpucontext.WindowProvider.
func (w *Window) ScaleFactor() float64 { return w.opts.scale }

// RequestRedraw implements gpucontext.WindowProvider.
func (w *Window) RequestRedraw() { w.redraws.Add(1) }

// Redraws returns the number of RequestRedraw calls.
func (w *Window) Redraws() int64 { return w.redraws.Load() }

// Device returns the null device handle.
func (w *Window) Device() gpucontext.DeviceProvider { return NullDevice{} }

// Primary returns the primary context.
func (w *Window) Primary() *Context { return w.primary }

// MakeCurrent makes the primary context current.
func (w *Window) MakeCurrent() error { return w.primary.MakeCurrent() }

// DoneCurrent releases the primary context.
func (w *Window) DoneCurrent() error { return w.primary.DoneCurrent() }

// SetSwapInterval records the swap interval. A headless window never waits
// for vertical blank.
func (w *Window) SetSwapInterval(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interval = n
}

// SwapInterval returns the last interval set.
func (w *Window) SwapInterval() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interval
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.title = title
}

// Title returns the window title.
func (w *Window) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

// Run calls tick until it fails, RequestClose is called or ctx is done.
func (w *Window) Run(ctx context.Context, tick func() error) error {
	var pace <-chan time.Time
	if w.opts.tick > 0 {
		t := time.NewTicker(w.opts.tick)
		defer t.Stop()
		pace = t.C
	}
	for !w.closed.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := tick(); err != nil {
			return err
		}
		if pace != nil && !w.closed.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		}
	}
	return nil
}

// SwapBuffers presents the back buffer.
func (w *Window) SwapBuffers() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return fmt.Errorf("headless: swap buffers: %w", host.ErrContextDestroyed)
	}
	w.front, w.back = w.back, w.front
	w.swaps++
	return nil
}

// Swaps returns the number of presented frames.
func (w *Window) Swaps() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.swaps
}

// BackBuffer returns the texture the next SwapBuffers presents.
func (w *Window) BackBuffer() gpucontext.Texture {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.back
}

// Front returns the last presented frame.
func (w *Window) Front() *Texture {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.front
}

// RequestClose makes Run return after the current tick.
func (w *Window) RequestClose() { w.closed.Store(true) }

// CloseRequested reports whether RequestClose was called.
func (w *Window) CloseRequested() bool { return w.closed.Load() }

// NewOffscreenContext creates a context sharing resources with the window.
// It is not current on return.
func (w *Window) NewOffscreenContext() (host.GLContext, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return nil, host.ErrContextDestroyed
	}
	c := newContext(w.group, fmt.Sprintf("offscreen-%d", len(w.contexts)+1))
	w.contexts = append(w.contexts, c)
	return c, nil
}

// Contexts returns the offscreen contexts created so far.
func (w *Window) Contexts() []*Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Context(nil), w.contexts...)
}

// NewFramebuffer creates a framebuffer. A context of the window must be
// current on the calling goroutine.
func (w *Window) NewFramebuffer(size image.Point) (host.Framebuffer, error) {
	if !w.group.anyCurrent() {
		return nil, fmt.Errorf("headless: new framebuffer: %w", host.ErrContextNotCurrent)
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("headless: new framebuffer: invalid size %v", size)
	}
	return NewFramebuffer(size), nil
}

// Destroy closes the window and releases the primary context.
func (w *Window) Destroy() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return nil
	}
	w.destroyed = true
	w.mu.Unlock()

	w.closed.Store(true)
	if w.primary.Current() {
		_ = w.primary.DoneCurrent()
	}
	return w.primary.Destroy()
}
