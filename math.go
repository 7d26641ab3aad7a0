package xr

import (
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/driver"
)

// Default clip planes for projection matrices.
const (
	DefaultNear = 0.01
	DefaultFar  = 10000.0
)

// Pose is a rigid transform in a runtime space.
type Pose = driver.Pose

// Fov is an asymmetric field of view.
type Fov = driver.Fov

// IdentityPose is the pose with no rotation and no translation.
var IdentityPose = driver.IdentityPose

// ProjectionGL returns the projection matrix for fov with a [-1, 1] clip
// space depth range (OpenGL, OpenGL ES). The matrix is row-major like every
// f32.Mat4.
func ProjectionGL(fov Fov, near, far float32) f32.Mat4 {
	return projection(fov, near, far, near, false)
}

// ProjectionVK returns the projection matrix for fov with a [0, 1] clip
// space depth range and a downward Y axis (Vulkan, WebGPU, Metal).
func ProjectionVK(fov Fov, near, far float32) f32.Mat4 {
	return projection(fov, near, far, 0, true)
}

func projection(fov Fov, near, far, offsetZ float32, flipY bool) f32.Mat4 {
	tanLeft := float32(math.Tan(float64(fov.AngleLeft)))
	tanRight := float32(math.Tan(float64(fov.AngleRight)))
	tanUp := float32(math.Tan(float64(fov.AngleUp)))
	tanDown := float32(math.Tan(float64(fov.AngleDown)))

	width := tanRight - tanLeft
	height := tanUp - tanDown
	if flipY {
		height = tanDown - tanUp
	}

	return f32.Mat4{
		2 / width, 0, (tanRight + tanLeft) / width, 0,
		0, 2 / height, (tanUp + tanDown) / height, 0,
		0, 0, -(far + offsetZ) / (far - near), -(far * (near + offsetZ)) / (far - near),
		0, 0, -1, 0,
	}
}

// PoseMatrix returns the row-major transform translation * rotation of p.
func PoseMatrix(p Pose) f32.Mat4 {
	x, y, z, w := p.Orientation[0], p.Orientation[1], p.Orientation[2], p.Orientation[3]
	return f32.Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w), p.Position[0],
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w), p.Position[1],
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y), p.Position[2],
		0, 0, 0, 1,
	}
}

// ViewMatrix returns the world-to-eye transform for an eye at p.
func ViewMatrix(p Pose) f32.Mat4 {
	return PoseMatrix(p.Inverse())
}

// MulMat4 returns a * b.
func MulMat4(a, b f32.Mat4) f32.Mat4 {
	var m f32.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[r*4+k] * b[k*4+c]
			}
			m[r*4+c] = sum
		}
	}
	return m
}

// TransformPoint applies m to the point v and performs the perspective
// divide.
func TransformPoint(m f32.Mat4, v f32.Vec3) f32.Vec3 {
	x := m[0]*v[0] + m[1]*v[1] + m[2]*v[2] + m[3]
	y := m[4]*v[0] + m[5]*v[1] + m[6]*v[2] + m[7]
	z := m[8]*v[0] + m[9]*v[1] + m[10]*v[2] + m[11]
	w := m[12]*v[0] + m[13]*v[1] + m[14]*v[2] + m[15]
	if w != 0 && w != 1 {
		x, y, z = x/w, y/w, z/w
	}
	return f32.Vec3{x, y, z}
}

// QuadSize returns the size in meters of a quad layer showing an image of
// w x h pixels at ppm pixels per meter.
func QuadSize(w, h int, ppm float32) driver.Extent2Df {
	return driver.Extent2Df{Width: float32(w) / ppm, Height: float32(h) / ppm}
}
