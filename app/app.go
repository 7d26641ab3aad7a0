// Package app runs the frame loop: it polls the runtime, synchronizes
// input, waits for and begins frames, renders the scene into the stereo
// swapchain, submits the layer stack and mirrors the result to the desktop
// window.
//
// Basic usage:
//
//	inst, err := xr.Create()
//	...
//	a, err := app.New[*sim.Image](inst, win, scene)
//	...
//	defer a.Destroy()
//	err = a.Run(ctx)
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/message"
	"golang.org/x/time/rate"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/driver"
	"github.com/gogpu/xr/host"
	"github.com/gogpu/xr/internal/metrics"
	"github.com/gogpu/xr/panel"
	"github.com/gogpu/xr/threaded"
)

// App drives one session. All methods must be called from the goroutine
// that owns the window's primary context.
type App[I gpucontext.Texture] struct {
	inst  *xr.Instance
	win   host.Window
	scene host.Scene
	opts  options
	log   *slog.Logger
	m     *metrics.Metrics

	c       *xr.Context
	eyes    *xr.Swapchain[I]
	fb      host.Framebuffer
	target  image.Point
	panel   *panel.Panel
	overlay *threaded.Renderer[I]
	quad    *xr.QuadLayer

	warn    *rate.Limiter
	printer *message.Printer

	prepared      bool
	exitRequested bool
	iterations    int
	frames        int
	pulses        int
	fps           float64
	fpsStart      time.Time
	fpsFrames     int
}

// New creates the xr.Context of the App. The scene stays owned by the
// caller.
func New[I gpucontext.Texture](inst *xr.Instance, win host.Window, scene host.Scene, opts ...Option) (*App[I], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = xr.Logger()
	}
	m := o.metrics
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	a := &App[I]{
		inst:    inst,
		win:     win,
		scene:   scene,
		opts:    o,
		log:     log,
		m:       m,
		warn:    rate.NewLimiter(rate.Every(o.warnEvery), 1),
		printer: message.NewPrinter(o.lang),
	}
	ctxOpts := append([]xr.ContextOption{xr.WithContextLogger(log)}, o.contextOpts...)
	ctxOpts = append(ctxOpts, xr.WithEventHook(a.onEvent), xr.WithStateHook(a.onState),
		xr.WithBeforeStateHook(a.beforeState))
	c, err := xr.NewContext(inst, ctxOpts...)
	if err != nil {
		return nil, err
	}
	a.c = c
	return a, nil
}

// Context returns the session coordinator.
func (a *App[I]) Context() *xr.Context { return a.c }

// Swapchain returns the stereo swapchain. It is nil before Prepare.
func (a *App[I]) Swapchain() *xr.Swapchain[I] { return a.eyes }

// Overlay returns the panel renderer, or nil when the panel is disabled.
func (a *App[I]) Overlay() *threaded.Renderer[I] { return a.overlay }

// Frames returns the number of frames submitted with content.
func (a *App[I]) Frames() int { return a.frames }

// FPS returns the frame rate of the last completed window.
func (a *App[I]) FPS() float64 { return a.fps }

// Prepare creates the session, the stereo swapchain and its framebuffer and
// the overlay panel. Failures are *xr.SetupError.
func (a *App[I]) Prepare() error {
	if a.prepared {
		return nil
	}
	if err := a.prepare(); err != nil {
		a.release()
		var se *xr.SetupError
		if errors.As(err, &se) {
			return err
		}
		return &xr.SetupError{Op: "prepare", Err: err}
	}
	a.prepared = true
	a.fpsStart = time.Now()
	return nil
}

func (a *App[I]) prepare() error {
	if err := a.c.CreateSession(a.win.Device()); err != nil {
		return err
	}
	format, err := a.c.ChooseFormat(a.opts.formats...)
	if err != nil {
		return err
	}
	w, h := a.inst.RenderTargetSize()
	a.target = image.Pt(w, h)
	a.eyes, err = xr.NewSwapchain[I](a.c, xr.SwapchainSpec{
		Width:  w,
		Height: h,
		Format: format,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopyDst,
	}, xr.WithSwapchainLogger[I](a.log))
	if err != nil {
		return err
	}
	if a.fb, err = a.win.NewFramebuffer(a.target); err != nil {
		return fmt.Errorf("app: eye framebuffer: %w", err)
	}
	a.win.SetSwapInterval(a.opts.swapInterval)

	if a.opts.cubemap != "" {
		if s, ok := a.scene.(host.CubemapSetter); ok {
			if err := s.SetCubemap(a.opts.cubemap); err != nil {
				return err
			}
		} else {
			a.log.Warn("app: scene has no cubemap support", "path", a.opts.cubemap)
		}
	}
	if a.opts.model != "" {
		if s, ok := a.scene.(host.ModelLoader); ok {
			if err := s.LoadModel(a.opts.model); err != nil {
				return err
			}
		} else {
			a.log.Warn("app: scene has no model support", "path", a.opts.model)
		}
	}

	if a.opts.panel {
		if err := a.preparePanel(format); err != nil {
			return err
		}
	}
	a.log.Info("app: prepared", "width", w, "height", h, "format", format, "panel", a.opts.panel)
	return nil
}

func (a *App[I]) preparePanel(format gputypes.TextureFormat) error {
	p, err := panel.New(panel.WithTitle(a.opts.title), panel.WithLanguage(a.opts.lang), panel.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.panel = p
	a.overlay, err = threaded.New[I](a.c, a.win, xr.SwapchainSpec{
		Width:  a.opts.panelSize.X,
		Height: a.opts.panelSize.Y,
		Format: format,
		Usage:  gputypes.TextureUsageRenderAttachment,
	}, p.Render, threaded.WithLogger(a.log), threaded.WithImageTimeout(a.opts.imageTimeout))
	if err != nil {
		return fmt.Errorf("app: panel renderer: %w", err)
	}
	a.quad = a.overlay.QuadLayer(a.c.Space(), a.opts.panelOffset)
	return nil
}

// Run prepares the App if needed and drives Step from the window loop
// until the session ends, the window closes or ctx is done.
func (a *App[I]) Run(ctx context.Context) error {
	if err := a.Prepare(); err != nil {
		return err
	}
	return a.win.Run(ctx, func() error { return a.Step(ctx) })
}

// Step runs one loop iteration.
func (a *App[I]) Step(ctx context.Context) error {
	start := time.Now()
	defer func() { a.m.StepDuration.Observe(time.Since(start).Seconds()) }()

	if err := a.c.PollEvents(); err != nil {
		return err
	}
	if a.c.Stopped() || a.c.Session() == nil || a.c.InstanceLost() {
		a.stopOverlay()
		a.win.RequestClose()
		return nil
	}

	var frameErr error
	if a.c.CanSyncActions() {
		frameErr = a.startFrame(ctx)
	}
	switch {
	case frameErr != nil:
		if a.c.FrameBegun() {
			frameErr = errors.Join(frameErr, a.c.EndFrame())
		}
	case a.c.ShouldRender():
		frameErr = a.renderFrame(ctx)
	case a.c.FrameBegun():
		frameErr = a.c.EndFrame()
		a.m.Frames.WithLabelValues(metrics.FrameEmpty).Inc()
	default:
		a.m.Frames.WithLabelValues(metrics.FrameSkipped).Inc()
	}

	err := errors.Join(frameErr, a.present())
	a.iterations++
	if a.opts.maxFrames > 0 && a.iterations >= a.opts.maxFrames {
		a.win.RequestClose()
	}
	return err
}

// startFrame synchronizes input, waits for and begins the frame and hands
// the fresh hand and eye states to the scene and the panel.
func (a *App[I]) startFrame(ctx context.Context) error {
	if err := a.c.SyncActions(); err != nil {
		return err
	}
	hands := a.c.UpdateHands()
	if n := a.c.Binder().Pulses(); n > a.pulses {
		a.m.HapticPulses.Add(float64(n - a.pulses))
		a.pulses = n
	}
	if a.c.Binder().QuitRequested() && !a.exitRequested {
		a.exitRequested = true
		if err := a.c.RequestExit(); err != nil {
			return err
		}
	}

	res, err := a.c.OnFrameStart(ctx)
	if err != nil {
		return err
	}
	switch res {
	case driver.ResultFrameDiscarded:
		a.transient("frame_discarded", xr.ErrFrameDiscarded)
	case driver.ResultSessionLossPending:
		a.transient("session_loss_pending", xr.ErrSessionLossPending)
	}
	if res != driver.ResultSuccess || !a.c.FrameBegun() {
		// Step still ends a discarded frame empty.
		return nil
	}

	eyes, err := a.c.UpdateEyeViews()
	if err != nil {
		return err
	}
	a.scene.UpdateHands(hands)
	a.scene.UpdateEyes(eyes)
	if a.panel != nil {
		a.panel.Update(hands, a.fps)
	}
	if a.quad != nil {
		xr.FollowHand(a.quad, hands[xr.LeftHand], a.opts.panelOffset)
	}
	return nil
}

// renderFrame draws the scene, copies it into the stereo swapchain, asks
// the overlay for a new frame and ends the frame with the layer stack.
func (a *App[I]) renderFrame(ctx context.Context) error {
	if err := a.drawScene(); err != nil {
		return errors.Join(err, a.c.EndFrame())
	}

	if err := a.transfer(ctx); err != nil {
		if xr.IsTransient(err) {
			a.transient("wait_image_timeout", err)
			a.m.Frames.WithLabelValues(metrics.FrameEmpty).Inc()
			return a.c.EndFrame()
		}
		return errors.Join(err, a.c.EndFrame())
	}
	if a.overlay != nil {
		a.overlay.RequestFrame()
		a.m.OverlayRenders.Set(float64(a.overlay.Renders()))
	}

	proj := a.c.ProjectionLayer(a.c.StereoSubImages(a.eyes.Handle()))
	if err := a.c.EndFrame(xr.Layers(proj, a.quad)...); err != nil {
		return err
	}
	a.m.Frames.WithLabelValues(metrics.FrameRendered).Inc()
	a.frames++
	a.tickFPS()
	return nil
}

func (a *App[I]) drawScene() error {
	if err := a.fb.Bind(); err != nil {
		return err
	}
	a.fb.SetViewport(image.Rectangle{Max: a.target})
	a.fb.Clear(a.opts.clear, 1, 0)
	err := a.scene.Render(a.fb)
	return errors.Join(err, a.fb.Unbind())
}

// transfer blits the eye framebuffer into the next swapchain image. After
// a timed out wait the held image is reused by the next frame.
func (a *App[I]) transfer(ctx context.Context) error {
	var img I
	if idx := a.eyes.CurrentIndex(); idx != xr.InvalidIndex {
		img = a.eyes.Images()[idx]
	} else {
		var err error
		if img, err = a.eyes.Acquire(); err != nil {
			return err
		}
	}
	if err := a.eyes.WaitImage(ctx, a.opts.imageTimeout); err != nil {
		return err
	}
	err := a.fb.BlitTo(img, image.Rectangle{Max: a.target}, host.MaskColor, host.FilterNearest)
	return errors.Join(err, a.eyes.Release())
}

// present mirrors the eye framebuffer to the window and swaps buffers.
func (a *App[I]) present() error {
	if a.fb != nil && a.opts.mirror > 0 {
		back := a.win.BackBuffer()
		r := image.Rectangle{Max: a.target.Div(a.opts.mirror)}
		r = r.Intersect(image.Rect(0, 0, back.Width(), back.Height()))
		if err := a.fb.BlitTo(back, r, host.MaskColor, host.FilterLinear); err != nil {
			a.log.Warn("app: mirror blit", "err", err)
		}
	}
	return a.win.SwapBuffers()
}

func (a *App[I]) tickFPS() {
	a.fpsFrames++
	elapsed := time.Since(a.fpsStart)
	if elapsed < a.opts.fpsWindow {
		return
	}
	a.fps = float64(a.fpsFrames) / elapsed.Seconds()
	a.fpsFrames = 0
	a.fpsStart = time.Now()
	a.m.FPS.Set(a.fps)
	a.win.SetTitle(a.printer.Sprintf("%s - %.1f fps", a.opts.title, a.fps))
}

func (a *App[I]) transient(kind string, err error) {
	a.m.Transient.WithLabelValues(kind).Inc()
	if a.warn.Allow() {
		a.log.Warn("app: transient runtime condition", "kind", kind, "err", err)
	}
}

func (a *App[I]) onEvent(ev driver.Event) {
	a.m.Events.WithLabelValues(eventName(ev)).Inc()
}

func (a *App[I]) onState(_, to driver.SessionState) {
	a.m.StateTransitions.WithLabelValues(to.String()).Inc()
}

// beforeState stops the overlay worker before the session is ended or
// destroyed underneath its swapchain.
func (a *App[I]) beforeState(_, to driver.SessionState) {
	switch to {
	case driver.SessionStateStopping, driver.SessionStateExiting, driver.SessionStateLossPending:
		a.stopOverlay()
	}
}

func eventName(ev driver.Event) string {
	switch ev.(type) {
	case driver.SessionStateChanged:
		return "session_state_changed"
	case driver.InstanceLossPending:
		return "instance_loss_pending"
	case driver.InteractionProfileChanged:
		return "interaction_profile_changed"
	case driver.ReferenceSpaceChangePending:
		return "reference_space_change_pending"
	case driver.EventsLost:
		return "events_lost"
	default:
		return "other"
	}
}

// stopOverlay stops the panel worker before the session goes away. The
// renderer stays referenced so that release still reports it.
func (a *App[I]) stopOverlay() {
	if a.overlay == nil || a.quad == nil {
		return
	}
	if err := a.overlay.Destroy(); err != nil {
		a.log.Warn("app: stop panel renderer", "err", err)
	}
	a.quad = nil
}

func (a *App[I]) release() error {
	var errs []error
	if a.overlay != nil {
		errs = append(errs, a.overlay.Destroy())
		a.overlay, a.quad = nil, nil
	}
	if a.panel != nil {
		errs = append(errs, a.panel.Destroy())
		a.panel = nil
	}
	if a.fb != nil {
		errs = append(errs, a.fb.Destroy())
		a.fb = nil
	}
	if a.eyes != nil {
		errs = append(errs, a.eyes.Destroy())
		a.eyes = nil
	}
	a.prepared = false
	return errors.Join(errs...)
}

// Destroy releases the overlay, the swapchains and the session.
func (a *App[I]) Destroy() error {
	return errors.Join(a.release(), a.c.Destroy())
}
