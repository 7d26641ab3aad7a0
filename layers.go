package xr

import (
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/driver"
)

// Layer kinds, re-exported so that callers rarely need package driver.
type (
	CompositionLayer = driver.CompositionLayer
	ProjectionLayer  = driver.ProjectionLayer
	QuadLayer        = driver.QuadLayer
	CylinderLayer    = driver.CylinderLayer
	CubeLayer        = driver.CubeLayer
)

// DefaultPixelsPerMeter sizes quad layers from their pixel dimensions.
const DefaultPixelsPerMeter = 3600

// Cylinder layer defaults.
const (
	DefaultCylinderRadius      = 0.25
	DefaultCylinderAspectRatio = 16.0 / 9.0
	DefaultCylinderAngle       = math.Pi / 2
)

// ProjectionLayer builds the stereo projection layer from the current eye
// states. images holds the left and right sub-images, usually the two
// halves of one double-width swapchain.
func (c *Context) ProjectionLayer(images [2]driver.SwapchainSubImage) *ProjectionLayer {
	views := make([]driver.ProjectionView, len(c.eyes))
	for i, e := range c.eyes {
		views[i] = driver.ProjectionView{Pose: e.Pose, Fov: e.Fov, SubImage: images[i]}
	}
	return &ProjectionLayer{Space: c.space, Views: views}
}

// StereoSubImages splits a side-by-side swapchain into the eye rects of the
// instance's render target.
func (c *Context) StereoSubImages(sc driver.Swapchain) [2]driver.SwapchainSubImage {
	return [2]driver.SwapchainSubImage{
		{Swapchain: sc, ImageRect: c.inst.EyeRect(0)},
		{Swapchain: sc, ImageRect: c.inst.EyeRect(1)},
	}
}

// NewQuadLayer returns a quad sized from the pixel dimensions of sub at
// DefaultPixelsPerMeter, with source alpha blending.
func NewQuadLayer(space driver.Space, sub driver.SwapchainSubImage, pose Pose) *QuadLayer {
	return &QuadLayer{
		Flags:    driver.LayerBlendTextureSourceAlpha,
		Space:    space,
		SubImage: sub,
		Pose:     pose,
		Size:     QuadSize(int(sub.ImageRect.Extent.Width), int(sub.ImageRect.Extent.Height), DefaultPixelsPerMeter),
	}
}

// FollowHand places q at offset from the aim pose of hand.
func FollowHand(q *QuadLayer, hand HandState, offset Pose) {
	q.Pose = hand.Aim.Mul(offset)
}

// NewCylinderLayer returns a cylinder half a meter in front of the origin
// using the default radius, angle and aspect ratio.
func NewCylinderLayer(space driver.Space, sub driver.SwapchainSubImage) *CylinderLayer {
	return &CylinderLayer{
		Flags:        driver.LayerBlendTextureSourceAlpha,
		Space:        space,
		SubImage:     sub,
		Pose:         Pose{Orientation: f32.Vec4{0, 0, 0, 1}, Position: f32.Vec3{0, 0, -0.5}},
		Radius:       DefaultCylinderRadius,
		CentralAngle: DefaultCylinderAngle,
		AspectRatio:  DefaultCylinderAspectRatio,
	}
}

// NewCubeLayer returns a cubemap layer for a six-face swapchain.
func NewCubeLayer(space driver.Space, sc driver.Swapchain) *CubeLayer {
	return &CubeLayer{
		Space:       space,
		Swapchain:   sc,
		Orientation: IdentityPose,
	}
}

// Layers collects the non-nil layers of an ordered list.
func Layers(layers ...CompositionLayer) []CompositionLayer {
	out := layers[:0:0]
	for _, l := range layers {
		if l == nil || isNilLayer(l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func isNilLayer(l CompositionLayer) bool {
	switch l := l.(type) {
	case *ProjectionLayer:
		return l == nil
	case *QuadLayer:
		return l == nil
	case *CylinderLayer:
		return l == nil
	case *CubeLayer:
		return l == nil
	}
	return false
}
