package headless

import (
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/host"
)

func straightAhead() host.EyeState {
	q := float32(math.Pi / 4)
	fov := xr.Fov{AngleLeft: -q, AngleRight: q, AngleUp: q, AngleDown: -q}
	return host.EyeState{
		Pose:       xr.IdentityPose,
		Fov:        fov,
		Projection: xr.ProjectionGL(fov, 0.05, 100),
	}
}

func handAt(p f32.Vec3) host.HandState {
	return host.HandState{Aim: xr.Pose{Orientation: xr.IdentityPose.Orientation, Position: p}}
}

func TestProject(t *testing.T) {
	eye := straightAhead()
	tests := []struct {
		name   string
		p      f32.Vec3
		x, y   float64
		inView bool
	}{
		{"center", f32.Vec3{0, 0, -1}, 50, 50, true},
		{"above", f32.Vec3{0, 0.2, -1}, 50, 40, true},
		{"right edge", f32.Vec3{1, 0, -1}, 100, 50, true},
		{"behind", f32.Vec3{0, 0, 1}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, ok := project(eye, tt.p, 100, 100)
			if ok != tt.inView {
				t.Fatalf("project() ok = %v, want %v", ok, tt.inView)
			}
			if ok && (math.Abs(x-tt.x) > 0.01 || math.Abs(y-tt.y) > 0.01) {
				t.Errorf("project() = %.2f, %.2f, want %.0f, %.0f", x, y, tt.x, tt.y)
			}
		})
	}
	if _, _, ok := project(host.EyeState{}, f32.Vec3{0, 0, -1}, 100, 100); ok {
		t.Error("project() with no projection ok = true")
	}
}

func TestDebugSceneDrawsHands(t *testing.T) {
	s := NewDebugScene()
	t.Cleanup(func() { _ = s.Destroy() })
	fb := NewFramebuffer(image.Pt(200, 100))

	s.UpdateHands([xr.HandCount]host.HandState{
		xr.LeftHand:  handAt(f32.Vec3{0, 0.2, -1}),
		xr.RightHand: handAt(f32.Vec3{0, 0, 2}),
	})
	if err := s.Render(fb); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	background := fb.Image().RGBAAt(50, 40)

	s.UpdateEyes([2]host.EyeState{straightAhead(), straightAhead()})
	if err := s.Render(fb); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, x := range []int{50, 150} {
		got := fb.Image().RGBAAt(x, 40)
		if got == background || got.B <= got.R {
			t.Errorf("pixel(%d, 40) = %v, want the left hand marker", x, got)
		}
	}
	if got := fb.Image().RGBAAt(5, 5); got != background {
		t.Errorf("corner = %v, want background %v", got, background)
	}
	if got := s.Renders(); got != 2 {
		t.Errorf("Renders() = %d, want 2", got)
	}
}

func TestDebugSceneCubemap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sky.png")
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0, 255, 0, 255
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	s := NewDebugScene()
	t.Cleanup(func() { _ = s.Destroy() })
	if err := s.SetCubemap(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("SetCubemap(missing) error = nil")
	}
	if err := s.SetCubemap(path); err != nil {
		t.Fatalf("SetCubemap() error = %v", err)
	}
	fb := NewFramebuffer(image.Pt(64, 32))
	if err := s.Render(fb); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got := fb.Image().RGBAAt(10, 5)
	if got.G < 200 || got.R > 50 {
		t.Errorf("pixel = %v, want the green backdrop", got)
	}
}
