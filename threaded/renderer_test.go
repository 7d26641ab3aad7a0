package threaded_test

import (
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/driver/sim"
	"github.com/gogpu/xr/host"
	"github.com/gogpu/xr/host/headless"
	"github.com/gogpu/xr/threaded"
)

const waitLimit = 2 * time.Second

type fixture struct {
	rt  *sim.Runtime
	c   *xr.Context
	win *headless.Window
}

func setup(t *testing.T) fixture {
	t.Helper()
	rt := sim.New()
	inst, err := xr.Create(xr.WithLoader(rt))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = inst.Destroy() })
	c, err := xr.NewContext(inst)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() { _ = c.Destroy() })
	win := headless.NewWindow(64, 32)
	t.Cleanup(func() { _ = win.Destroy() })
	if err := c.CreateSession(win.Device()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	return fixture{rt: rt, c: c, win: win}
}

var panelSpec = xr.SwapchainSpec{
	Width:  32,
	Height: 16,
	Format: gputypes.TextureFormatRGBA8Unorm,
	Usage:  gputypes.TextureUsageRenderAttachment,
}

func (f fixture) start(t *testing.T, render threaded.RenderFunc, opts ...threaded.Option) *threaded.Renderer[*sim.Image] {
	t.Helper()
	r, err := threaded.New[*sim.Image](f.c, f.win, panelSpec, render, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Destroy() })
	return r
}

func fill(c color.Color) threaded.RenderFunc {
	return func(fb host.Framebuffer) error {
		fb.Clear(c, 1, 0)
		return nil
	}
}

func await(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitLimit):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// painted returns the number of images whose first pixel is c.
func painted(images []*sim.Image, c color.RGBA) int {
	n := 0
	for _, img := range images {
		if img.Snapshot().RGBAAt(0, 0) == c {
			n++
		}
	}
	return n
}

func TestNewRendersPlaceholder(t *testing.T) {
	f := setup(t)
	red := color.RGBA{R: 255, A: 255}
	r := f.start(t, fill(color.White), threaded.WithPlaceholder(red))

	if got := painted(r.Swapchain().Images(), red); got != 1 {
		t.Errorf("placeholder images = %d, want 1", got)
	}
	if got := r.Renders(); got != 0 {
		t.Errorf("Renders() = %d, want 0", got)
	}
	if !f.win.Primary().Current() {
		t.Error("primary context not current after New")
	}
	ctxs := f.win.Contexts()
	if len(ctxs) != 1 || !ctxs[0].Current() {
		t.Fatalf("offscreen contexts = %v, want one current context", ctxs)
	}
	if got := ctxs[0].MakeCurrentCount(); got != 2 {
		t.Errorf("offscreen MakeCurrent calls = %d, want 2 (setup and worker)", got)
	}
	if got := r.Swapchain().CurrentIndex(); got != xr.InvalidIndex {
		t.Errorf("CurrentIndex() = %d, want no held image", got)
	}
}

func TestRequestFrame(t *testing.T) {
	f := setup(t)
	green := color.RGBA{G: 255, A: 255}
	rendered := make(chan struct{}, 1)
	var offscreen, bound atomic.Bool
	ctx := func() *headless.Context { return f.win.Contexts()[0] }

	r := f.start(t, func(fb host.Framebuffer) error {
		offscreen.Store(ctx().Current())
		bound.Store(fb.(*headless.Framebuffer).Bound())
		fb.Clear(green, 1, 0)
		rendered <- struct{}{}
		return nil
	})
	images := r.Swapchain().Images()

	r.RequestFrame()
	await(t, rendered, "render")
	if err := r.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if got := r.Renders(); got != 1 {
		t.Errorf("Renders() = %d, want 1", got)
	}
	if !offscreen.Load() || !bound.Load() {
		t.Errorf("render ran with offscreen current = %v, framebuffer bound = %v", offscreen.Load(), bound.Load())
	}
	if got := painted(images, green); got != 1 {
		t.Errorf("rendered images = %d, want 1", got)
	}
}

func TestRequestsCollapse(t *testing.T) {
	f := setup(t)
	started := make(chan struct{})
	gate := make(chan struct{})
	r := f.start(t, func(host.Framebuffer) error {
		started <- struct{}{}
		<-gate
		return nil
	})

	r.RequestFrame()
	await(t, started, "first render")
	for range 5 {
		r.RequestFrame()
	}
	gate <- struct{}{}
	await(t, started, "second render")
	gate <- struct{}{}

	if err := r.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got := r.Renders(); got != 2 {
		t.Errorf("Renders() = %d, want 2", got)
	}
}

func TestDestroyRightAfterRequest(t *testing.T) {
	f := setup(t)
	var calls atomic.Int64
	r := f.start(t, func(host.Framebuffer) error {
		calls.Add(1)
		return nil
	})

	r.RequestFrame()
	if err := r.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	n := calls.Load()
	if n > 1 {
		t.Errorf("renders = %d, want at most 1", n)
	}

	gl := f.win.Contexts()[0]
	if gl.Current() || !gl.Destroyed() {
		t.Errorf("offscreen context current = %v, destroyed = %v, want released and destroyed", gl.Current(), gl.Destroyed())
	}
	r.RequestFrame()
	if err := r.Destroy(); err != nil {
		t.Errorf("second Destroy: %v", err)
	}
	if got := calls.Load(); got != n {
		t.Errorf("renders after Destroy = %d, want %d", got, n)
	}
	if _, err := r.Swapchain().Acquire(); !errors.Is(err, xr.ErrSwapchainDestroyed) {
		t.Errorf("Acquire after Destroy = %v, want ErrSwapchainDestroyed", err)
	}
}

func TestImageTimeoutIsRetried(t *testing.T) {
	f := setup(t)
	rendered := make(chan struct{}, 1)
	r := f.start(t, func(host.Framebuffer) error {
		rendered <- struct{}{}
		return nil
	}, threaded.WithImageTimeout(5*time.Millisecond), threaded.WithWakeInterval(10*time.Millisecond))

	f.rt.SetImageWaitDelay(time.Hour)
	r.RequestFrame()
	deadline := time.Now().Add(waitLimit)
	for r.Failures() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no timed out frame")
		}
		time.Sleep(time.Millisecond)
	}
	f.rt.SetImageWaitDelay(0)
	await(t, rendered, "retried render")

	if err := r.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got := r.Renders(); got != 1 {
		t.Errorf("Renders() = %d, want 1", got)
	}
}

func TestRenderErrorKeepsProtocol(t *testing.T) {
	f := setup(t)
	boom := errors.New("boom")
	calls := make(chan struct{}, 2)
	r := f.start(t, func(host.Framebuffer) error {
		calls <- struct{}{}
		return boom
	})

	r.RequestFrame()
	await(t, calls, "failing render")
	r.RequestFrame()
	await(t, calls, "second render")
	if err := r.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got := r.Failures(); got != 2 {
		t.Errorf("Failures() = %d, want 2", got)
	}
}

func TestNewNeedsCurrentPrimary(t *testing.T) {
	f := setup(t)
	if err := f.win.DoneCurrent(); err != nil {
		t.Fatalf("DoneCurrent: %v", err)
	}
	if _, err := threaded.New[*sim.Image](f.c, f.win, panelSpec, fill(color.White)); !errors.Is(err, host.ErrContextNotCurrent) {
		t.Errorf("New error = %v, want ErrContextNotCurrent", err)
	}
	if ctxs := f.win.Contexts(); len(ctxs) != 1 || !ctxs[0].Destroyed() {
		t.Errorf("offscreen context leaked: %v", ctxs)
	}
}

func TestFramebufferAttachment(t *testing.T) {
	fb := headless.NewFramebuffer(image.Pt(4, 4))
	att, err := threaded.NewFramebufferAttachment[*headless.Texture](fb)
	if err != nil {
		t.Fatalf("NewFramebufferAttachment: %v", err)
	}
	if err := att.OnCreate([]*headless.Texture{headless.NewTexture(4, 2)}); err == nil {
		t.Error("OnCreate with a mismatched image succeeded")
	}

	tex := headless.NewTexture(4, 4)
	if err := att.Attach(0, tex); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	fb.Clear(color.White, 1, 0)
	if err := att.Detach(0, tex); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if got := tex.At(3, 3); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("texture pixel = %v, want white", got)
	}

	type plain struct{ host.Framebuffer }
	if _, err := threaded.NewFramebufferAttachment[*headless.Texture](plain{fb}); !errors.Is(err, threaded.ErrNoColorAttachment) {
		t.Errorf("NewFramebufferAttachment(plain) error = %v, want ErrNoColorAttachment", err)
	}
}
