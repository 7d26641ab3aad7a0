package driver

import "golang.org/x/image/math/f32"

// Mul returns the pose that first applies q and then p, i.e. q expressed
// in the space p is expressed in.
func (p Pose) Mul(q Pose) Pose {
	return Pose{
		Orientation: quatMul(p.Orientation, q.Orientation),
		Position:    add3(p.Position, p.Rotate(q.Position)),
	}
}

// Inverse returns the pose that undoes p.
func (p Pose) Inverse() Pose {
	inv := Pose{Orientation: quatConj(p.Orientation)}
	t := inv.Rotate(p.Position)
	inv.Position = f32.Vec3{-t[0], -t[1], -t[2]}
	return inv
}

// Rotate rotates v by the orientation of p.
func (p Pose) Rotate(v f32.Vec3) f32.Vec3 {
	q := p.Orientation
	// v' = v + 2w(u x v) + 2u x (u x v)
	u := f32.Vec3{q[0], q[1], q[2]}
	c := cross(u, v)
	cc := cross(u, c)
	return f32.Vec3{
		v[0] + 2*(q[3]*c[0]+cc[0]),
		v[1] + 2*(q[3]*c[1]+cc[1]),
		v[2] + 2*(q[3]*c[2]+cc[2]),
	}
}

// Transform maps the point v from p's local frame to its parent frame.
func (p Pose) Transform(v f32.Vec3) f32.Vec3 {
	return add3(p.Position, p.Rotate(v))
}

func quatMul(a, b f32.Vec4) f32.Vec4 {
	return f32.Vec4{
		a[3]*b[0] + a[0]*b[3] + a[1]*b[2] - a[2]*b[1],
		a[3]*b[1] - a[0]*b[2] + a[1]*b[3] + a[2]*b[0],
		a[3]*b[2] + a[0]*b[1] - a[1]*b[0] + a[2]*b[3],
		a[3]*b[3] - a[0]*b[0] - a[1]*b[1] - a[2]*b[2],
	}
}

func quatConj(q f32.Vec4) f32.Vec4 {
	return f32.Vec4{-q[0], -q[1], -q[2], q[3]}
}

func cross(a, b f32.Vec3) f32.Vec3 {
	return f32.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func add3(a, b f32.Vec3) f32.Vec3 {
	return f32.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}
