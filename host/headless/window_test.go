package headless

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/xr/host"
)

func newWindow(t *testing.T, opts ...Option) *Window {
	t.Helper()
	w := NewWindow(64, 32, opts...)
	t.Cleanup(func() { _ = w.Destroy() })
	return w
}

func TestWindowDefaults(t *testing.T) {
	w := newWindow(t, WithScaleFactor(2), WithTitle("mirror"))

	if gw, gh := w.Size(); gw != 64 || gh != 32 {
		t.Errorf("Size() = %d, %d, want 64, 32", gw, gh)
	}
	if got := w.BackBuffer().Width(); got != 128 {
		t.Errorf("back buffer width = %d, want 128", got)
	}
	if got := w.Title(); got != "mirror" {
		t.Errorf("Title() = %q, want %q", got, "mirror")
	}
	if !w.Primary().Current() {
		t.Error("primary context not current after NewWindow")
	}
	if got := w.Device().AdapterInfo().Type; got != gpucontext.AdapterTypeSoftware {
		t.Errorf("adapter type = %v, want software", got)
	}
	w.RequestRedraw()
	if got := w.Redraws(); got != 1 {
		t.Errorf("Redraws() = %d, want 1", got)
	}
}

func TestWindowRun(t *testing.T) {
	w := newWindow(t)
	n := 0
	err := w.Run(context.Background(), func() error {
		n++
		if n == 3 {
			w.RequestClose()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 3 {
		t.Errorf("ticks = %d, want 3", n)
	}

	boom := errors.New("boom")
	w2 := newWindow(t)
	if err := w2.Run(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}

func TestWindowRunCancelled(t *testing.T) {
	w := newWindow(t, WithTickInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	ticks := 0
	err := w.Run(ctx, func() error {
		ticks++
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if ticks != 1 {
		t.Errorf("ticks = %d, want 1", ticks)
	}
}

func TestWindowSwapBuffers(t *testing.T) {
	w := newWindow(t)
	back := w.BackBuffer()
	if err := w.SwapBuffers(); err != nil {
		t.Fatalf("SwapBuffers() error = %v", err)
	}
	if w.Front() != back {
		t.Error("Front() is not the previous back buffer")
	}
	if got := w.Swaps(); got != 1 {
		t.Errorf("Swaps() = %d, want 1", got)
	}
}

func TestWindowFramebufferNeedsCurrentContext(t *testing.T) {
	w := newWindow(t)
	if _, err := w.NewFramebuffer(image.Pt(0, 4)); err == nil {
		t.Error("NewFramebuffer(empty) error = nil")
	}
	if err := w.DoneCurrent(); err != nil {
		t.Fatalf("DoneCurrent() error = %v", err)
	}
	if _, err := w.NewFramebuffer(image.Pt(4, 4)); !errors.Is(err, host.ErrContextNotCurrent) {
		t.Errorf("NewFramebuffer() error = %v, want ErrContextNotCurrent", err)
	}

	off, err := w.NewOffscreenContext()
	if err != nil {
		t.Fatalf("NewOffscreenContext() error = %v", err)
	}
	if err := off.MakeCurrent(); err != nil {
		t.Fatalf("MakeCurrent() error = %v", err)
	}
	fb, err := w.NewFramebuffer(image.Pt(4, 4))
	if err != nil {
		t.Fatalf("NewFramebuffer() error = %v", err)
	}
	if got := fb.Size(); got != image.Pt(4, 4) {
		t.Errorf("Size() = %v, want (4,4)", got)
	}
	if got := w.Contexts(); len(got) != 1 || got[0].Name() != "offscreen-1" {
		t.Errorf("Contexts() = %v, want [offscreen-1]", got)
	}
	_ = off.DoneCurrent()
	_ = off.Destroy()
}

func TestWindowDestroy(t *testing.T) {
	w := NewWindow(8, 8)
	if err := w.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := w.Destroy(); err != nil {
		t.Errorf("second Destroy() error = %v", err)
	}
	if !w.Primary().Destroyed() || !w.CloseRequested() {
		t.Error("Destroy() left the primary context alive or the window open")
	}
	if _, err := w.NewOffscreenContext(); !errors.Is(err, host.ErrContextDestroyed) {
		t.Errorf("NewOffscreenContext() error = %v, want ErrContextDestroyed", err)
	}
	if err := w.SwapBuffers(); !errors.Is(err, host.ErrContextDestroyed) {
		t.Errorf("SwapBuffers() error = %v, want ErrContextDestroyed", err)
	}
}
