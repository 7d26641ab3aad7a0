package headless

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/host"
)

// Eye background colors, left then right.
var eyeColors = [2]gg.RGBA{
	gg.RGB(0.10, 0.12, 0.20),
	gg.RGB(0.12, 0.10, 0.20),
}

// Hand marker colors: left is blue, right is orange.
var handColors = [xr.HandCount]gg.RGBA{
	gg.RGB(0.25, 0.55, 1.0),
	gg.RGB(1.0, 0.55, 0.15),
}

// DebugScene draws a side-by-side stereo view: one half per eye with a
// horizon line and a marker for each hand's aim pose, scaled by how far
// the trigger is pulled.
type DebugScene struct {
	mu       sync.Mutex
	hands    [xr.HandCount]host.HandState
	eyes     [2]host.EyeState
	dc       *gg.Context
	backdrop *gg.ImageBuf
	renders  int
}

var (
	_ host.Scene         = (*DebugScene)(nil)
	_ host.CubemapSetter = (*DebugScene)(nil)
)

// NewDebugScene returns an empty scene.
func NewDebugScene() *DebugScene { return &DebugScene{} }

// UpdateHands implements host.Scene.
func (s *DebugScene) UpdateHands(hands [xr.HandCount]host.HandState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hands = hands
}

// UpdateEyes implements host.Scene.
func (s *DebugScene) UpdateEyes(eyes [2]host.EyeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eyes = eyes
}

// SetCubemap loads an image drawn behind each eye.
func (s *DebugScene) SetCubemap(path string) error {
	img, err := gg.LoadImage(path)
	if err != nil {
		return fmt.Errorf("headless: cubemap %s: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backdrop = img
	return nil
}

// Renders returns the number of Render calls.
func (s *DebugScene) Renders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders
}

// Render draws both eyes into fb.
func (s *DebugScene) Render(fb host.Framebuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := fb.Size()
	if s.dc == nil || s.dc.Width() != size.X || s.dc.Height() != size.Y {
		if s.dc != nil {
			_ = s.dc.Close()
		}
		s.dc = gg.NewContext(size.X, size.Y)
	}
	dc := s.dc
	half := float64(size.X) / 2
	h := float64(size.Y)

	for eye := range s.eyes {
		x0 := half * float64(eye)
		dc.SetColor(eyeColors[eye])
		dc.DrawRectangle(x0, 0, half, h)
		if err := dc.Fill(); err != nil {
			return err
		}
		if s.backdrop != nil {
			dc.DrawImageEx(s.backdrop, gg.DrawImageOptions{
				X: x0, DstWidth: half, DstHeight: h, Opacity: 1,
			})
		}

		dc.SetRGB(0.5, 0.5, 0.55)
		dc.SetLineWidth(1)
		dc.DrawLine(x0, h/2, x0+half, h/2)
		if err := dc.Stroke(); err != nil {
			return err
		}

		for hand, st := range s.hands {
			px, py, ok := project(s.eyes[eye], st.Aim.Position, half, h)
			if !ok {
				continue
			}
			dc.SetColor(handColors[hand])
			dc.DrawCircle(x0+px, py, 4+8*float64(st.Trigger))
			if err := dc.Fill(); err != nil {
				return err
			}
		}
	}
	if err := dc.FlushGPU(); err != nil {
		return err
	}

	dst := fb.Image()
	draw.Draw(dst, dst.Bounds(), dc.Image(), image.Point{}, draw.Src)
	s.renders++
	return nil
}

// project maps a point in the base space to pixel coordinates of an eye
// viewport of size w x h.
func project(eye host.EyeState, p f32.Vec3, w, h float64) (x, y float64, ok bool) {
	if eye.Projection == (f32.Mat4{}) {
		return 0, 0, false
	}
	v := xr.TransformPoint(xr.ViewMatrix(eye.Pose), p)
	if v[2] >= 0 {
		return 0, 0, false
	}
	ndc := xr.TransformPoint(eye.Projection, v)
	return (float64(ndc[0]) + 1) / 2 * w, (1 - float64(ndc[1])) / 2 * h, true
}

// Destroy releases the drawing context.
func (s *DebugScene) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dc == nil {
		return nil
	}
	err := s.dc.Close()
	s.dc = nil
	return err
}
