package xr_test

import (
	"context"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/driver"
	"github.com/gogpu/xr/driver/sim"
)

// newInstance creates an instance on a fresh simulated runtime.
func newInstance(t *testing.T, rtOpts []sim.Option, opts ...xr.InstanceOption) (*sim.Runtime, *xr.Instance) {
	t.Helper()
	rt := sim.New(rtOpts...)
	inst, err := xr.Create(append([]xr.InstanceOption{xr.WithLoader(rt)}, opts...)...)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = inst.Destroy() })
	return rt, inst
}

// newSession creates a context with a session. With the default automatic
// lifecycle the first PollEvents takes it to Focused.
func newSession(t *testing.T, rtOpts []sim.Option, opts ...xr.ContextOption) (*sim.Runtime, *xr.Context) {
	t.Helper()
	rt, inst := newInstance(t, rtOpts)
	c, err := xr.NewContext(inst, opts...)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() { _ = c.Destroy() })
	if err := c.CreateSession(nil); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return rt, c
}

// focused returns a context whose session is Focused.
func focused(t *testing.T, rtOpts []sim.Option, opts ...xr.ContextOption) (*sim.Runtime, *xr.Context) {
	t.Helper()
	rt, c := newSession(t, rtOpts, opts...)
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if c.State() != driver.SessionStateFocused {
		t.Fatalf("State = %v, want Focused", c.State())
	}
	return rt, c
}

// stereoSwapchain creates the double-width color swapchain.
func stereoSwapchain(t *testing.T, c *xr.Context) *xr.Swapchain[*sim.Image] {
	t.Helper()
	w, h := c.Instance().RenderTargetSize()
	sc, err := xr.NewSwapchain[*sim.Image](c, xr.SwapchainSpec{
		Width:  w,
		Height: h,
		Format: gputypes.TextureFormatRGBA8UnormSrgb,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	return sc
}

// cycle runs one image use: acquire, wait, release.
func cycle[I gpucontext.Texture](t *testing.T, sc *xr.Swapchain[I]) {
	t.Helper()
	if _, err := sc.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := sc.WaitImage(context.Background(), driver.InfiniteDuration); err != nil {
		t.Fatalf("WaitImage: %v", err)
	}
	if err := sc.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func boolPtr(v bool) *bool { return &v }
