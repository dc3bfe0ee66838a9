package noise

import "math"

// Quaternion is a rotation from the body frame to the earth frame.
// Earth frame axes: 1 is east, 2 is north, 3 is up.
type Quaternion struct {
	W, X, Y, Z float32
}

// IdentityQuaternion is the level, north facing orientation.
var IdentityQuaternion = Quaternion{W: 1}

// FromTilt returns the orientation for the given roll and pitch with zero yaw.
func FromTilt(roll, pitch float32) Quaternion {
	sr, cr := math.Sincos(float64(roll) / 2)
	sp, cp := math.Sincos(float64(pitch) / 2)
	return Quaternion{
		W: float32(cr * cp),
		X: float32(sr * cp),
		Y: float32(cr * sp),
		Z: float32(-sr * sp),
	}
}

// Norm returns the Euclidean norm of q.
func (q Quaternion) Norm() float32 {
	return float32(math.Sqrt(float64(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)))
}

// Unit returns q scaled to unit norm. The zero quaternion maps to the identity.
func (q Quaternion) Unit() Quaternion {
	n := q.Norm()
	if n == 0 {
		return IdentityQuaternion
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Rotate rotates v from the body frame into the earth frame.
func (q Quaternion) Rotate(v [3]float32) [3]float32 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return [3]float32{
		(1-2*(y*y+z*z))*v[0] + 2*(x*y-w*z)*v[1] + 2*(x*z+w*y)*v[2],
		2*(x*y+w*z)*v[0] + (1-2*(x*x+z*z))*v[1] + 2*(y*z-w*x)*v[2],
		2*(x*z-w*y)*v[0] + 2*(y*z+w*x)*v[1] + (1-2*(x*x+y*y))*v[2],
	}
}
