package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// BlendEpsilon is the tolerance used when comparing blend weights.
const BlendEpsilon float32 = 1e-5

// IdentityMatrix returns a column-major 4x4 identity matrix by value.
//
// Returns:
//   - [16]float32: the identity matrix
func IdentityMatrix() [16]float32 {
	return [16]float32(mgl32.Ident4())
}

// IsFinite reports whether v is neither NaN nor an infinity.
//
// Parameters:
//   - v: the value to check
//
// Returns:
//   - bool: true if v is a finite number
func IsFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Clamp01 clamps v into [0, 1]. NaN clamps to 0.
//
// Parameters:
//   - v: the value to clamp
//
// Returns:
//   - float32: the clamped value
func Clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Vec3 converts a [3]float32 into an mgl32.Vec3.
func Vec3(v [3]float32) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[1], v[2]}
}

// Quat converts an (x, y, z, w) [4]float32 into an mgl32.Quat.
func Quat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

// QuatArray converts an mgl32.Quat back into (x, y, z, w) order.
func QuatArray(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// SlerpShortest spherically interpolates between a and b by t, flipping b when the
// two quaternions lie in opposite hemispheres so the rotation takes the short path.
//
// Parameters:
//   - a: the start rotation
//   - b: the end rotation
//   - t: the interpolation factor in [0, 1]
//
// Returns:
//   - mgl32.Quat: the normalized interpolated rotation
func SlerpShortest(a, b mgl32.Quat, t float32) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, t).Normalize()
}
