// Package transform - rigid-body transforms for 6D pose evaluation.
package transform

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Quaternion is a rotation in scalar-first (w, x, y, z) order.
type Quaternion [4]float64

// Identity returns the identity rotation.
func Identity() Quaternion {
	return Quaternion{1, 0, 0, 0}
}

// Norm returns the L2 norm of the quaternion.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

// Normalize returns the unit quaternion pointing in the same direction.
// The zero quaternion normalizes to the identity rotation.
func (q Quaternion) Normalize() Quaternion {
	n := q.Norm()
	if n == 0 {
		return Identity()
	}
	return Quaternion{q[0] / n, q[1] / n, q[2] / n, q[3] / n}
}

// Rotation converts the quaternion into a gonum rotation. The quaternion is
// normalized first, as r3.Rotation assumes a unit quaternion.
func (q Quaternion) Rotation() r3.Rotation {
	u := q.Normalize()
	return r3.Rotation(quat.Number{Real: u[0], Imag: u[1], Jmag: u[2], Kmag: u[3]})
}

// Rigid is a rotation followed by a translation.
type Rigid struct {
	R r3.Rotation
	T r3.Vec
}

// Compose builds the rigid transform that rotates by q and then translates
// by t.
func Compose(q Quaternion, t r3.Vec) Rigid {
	return Rigid{R: q.Rotation(), T: t}
}

// Apply transforms a single point.
func (m Rigid) Apply(p r3.Vec) r3.Vec {
	return r3.Add(m.R.Rotate(p), m.T)
}

// ApplyAll transforms every point into a new slice.
func (m Rigid) ApplyAll(pts []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(pts))
	for i, p := range pts {
		out[i] = m.Apply(p)
	}
	return out
}

// Matrix returns the homogeneous 4x4 form of the transform.
func (m Rigid) Matrix() [4][4]float64 {
	q := quat.Number(m.R)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return [4][4]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y), m.T.X},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x), m.T.Y},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y), m.T.Z},
		{0, 0, 0, 1},
	}
}
