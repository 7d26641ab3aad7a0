package xr_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/driver"
	"github.com/gogpu/xr/driver/sim"
)

func TestNewQuadLayer(t *testing.T) {
	sub := driver.SwapchainSubImage{ImageRect: driver.Rect2Di{Extent: driver.Extent2Di{Width: 1800, Height: 900}}}
	q := xr.NewQuadLayer(nil, sub, xr.IdentityPose)
	if q.Size != (driver.Extent2Df{Width: 0.5, Height: 0.25}) {
		t.Errorf("Size = %+v, want 0.5x0.25", q.Size)
	}
	if q.Flags&driver.LayerBlendTextureSourceAlpha == 0 {
		t.Error("quad does not blend with source alpha")
	}
	if q.EyeVisibility != driver.EyeVisibilityBoth {
		t.Errorf("EyeVisibility = %v, want both", q.EyeVisibility)
	}
}

func TestFollowHand(t *testing.T) {
	hand := xr.HandState{Aim: xr.Pose{
		Orientation: f32.Vec4{0, 0, 0, 1},
		Position:    f32.Vec3{0.2, -0.3, -0.4},
	}}
	offset := xr.Pose{Orientation: f32.Vec4{0, 0, 0, 1}, Position: f32.Vec3{0, 0.1, 0}}

	q := xr.NewQuadLayer(nil, driver.SwapchainSubImage{}, xr.IdentityPose)
	xr.FollowHand(q, hand, offset)
	want := f32.Vec3{0.2, -0.2, -0.4}
	for i := range want {
		if !approx(q.Pose.Position[i], want[i]) {
			t.Fatalf("Position = %v, want %v", q.Pose.Position, want)
		}
	}
}

func TestNewCylinderLayer(t *testing.T) {
	c := xr.NewCylinderLayer(nil, driver.SwapchainSubImage{})
	if c.Radius != xr.DefaultCylinderRadius || c.AspectRatio != xr.DefaultCylinderAspectRatio {
		t.Errorf("radius %v aspect %v", c.Radius, c.AspectRatio)
	}
	if c.Pose.Position[2] != -0.5 {
		t.Errorf("z = %v, want -0.5", c.Pose.Position[2])
	}
}

func TestLayersSkipsNil(t *testing.T) {
	var quad *xr.QuadLayer
	proj := &xr.ProjectionLayer{}
	got := xr.Layers(nil, quad, proj, (*xr.CylinderLayer)(nil))
	if len(got) != 1 || got[0] != xr.CompositionLayer(proj) {
		t.Errorf("Layers = %v, want only the projection layer", got)
	}
	if got := xr.Layers(); len(got) != 0 {
		t.Errorf("Layers() = %v, want empty", got)
	}
}

// beginFrame starts a frame that should be rendered.
func beginFrame(t *testing.T, c *xr.Context) {
	t.Helper()
	if _, err := c.OnFrameStart(context.Background()); err != nil {
		t.Fatalf("OnFrameStart: %v", err)
	}
	if !c.ShouldRender() {
		t.Fatal("ShouldRender = false")
	}
	if _, err := c.UpdateEyeViews(); err != nil {
		t.Fatalf("UpdateEyeViews: %v", err)
	}
}

func TestSubmitLayerStack(t *testing.T) {
	rt, c := focused(t, nil)
	eyes := stereoSwapchain(t, c)
	panel, err := xr.NewSwapchain[*sim.Image](c, xr.SwapchainSpec{
		Width:  512,
		Height: 256,
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}

	beginFrame(t, c)
	cycle(t, eyes)
	cycle(t, panel)

	proj := c.ProjectionLayer(c.StereoSubImages(eyes.Handle()))
	quad := xr.NewQuadLayer(c.Space(), panel.FullImage(), xr.IdentityPose)
	cyl := xr.NewCylinderLayer(c.Space(), panel.FullImage())
	if err := c.EndFrame(xr.Layers(proj, quad, cyl)...); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	frames := rt.Frames()
	if len(frames) != 1 || len(frames[0].Layers) != 3 {
		t.Fatalf("frames = %+v, want one frame with 3 layers", frames)
	}
	got, ok := frames[0].Layers[0].(*driver.ProjectionLayer)
	if !ok || len(got.Views) != 2 {
		t.Fatalf("first layer = %T, want a stereo projection", frames[0].Layers[0])
	}
	if got.Views[1].SubImage.ImageRect.Offset.X != 640 {
		t.Errorf("right eye offset = %d, want 640", got.Views[1].SubImage.ImageRect.Offset.X)
	}
}

func TestCylinderNeedsExtension(t *testing.T) {
	rt, inst := newInstance(t, nil, xr.WithOptionalExtensions())
	c, err := xr.NewContext(inst)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() { _ = c.Destroy() })
	if err := c.CreateSession(nil); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	panel, err := xr.NewSwapchain[*sim.Image](c, xr.SwapchainSpec{
		Width:  64,
		Height: 64,
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}

	beginFrame(t, c)
	cycle(t, panel)
	err = c.EndFrame(xr.NewCylinderLayer(c.Space(), panel.FullImage()))
	if !errors.Is(err, driver.ErrExtensionNotPresent) {
		t.Errorf("EndFrame = %v, want ErrExtensionNotPresent", err)
	}
	if len(rt.Frames()) != 0 {
		t.Error("rejected frame was recorded")
	}
}

func approx(a, b float32) bool {
	d := a - b
	return d < 1e-5 && d > -1e-5
}
