// math/vecmat.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// All positions and vectors are in the local NED frame: x north, y east,
// z down. Angles measured in the horizontal plane are atan2(y, x), so 0
// is north and +pi/2 is east.

///////////////////////////////////////////////////////////////////////////
// point 2f

// Names are brief in order to avoid clutter when they're used.

// a+b
func Add2f(a [2]float32, b [2]float32) [2]float32 {
	return [2]float32{a[0] + b[0], a[1] + b[1]}
}

// a-b
func Sub2f(a [2]float32, b [2]float32) [2]float32 {
	return [2]float32{a[0] - b[0], a[1] - b[1]}
}

// a*s
func Scale2f(a [2]float32, s float32) [2]float32 {
	return [2]float32{s * a[0], s * a[1]}
}

func Dot(a, b [2]float32) float32 {
	return a[0]*b[0] + a[1]*b[1]
}

// Length of v
func Length2f(v [2]float32) float32 {
	return Sqrt(v[0]*v[0] + v[1]*v[1])
}

// Squared length of v
func LengthSqr2f(v [2]float32) float32 {
	return v[0]*v[0] + v[1]*v[1]
}

// Distance between two points
func Distance2f(a [2]float32, b [2]float32) float32 {
	return Length2f(Sub2f(a, b))
}

// Normalizes the given vector; the zero vector is returned unchanged.
func Normalize2f(a [2]float32) [2]float32 {
	l := Length2f(a)
	if l == 0 {
		return [2]float32{0, 0}
	}
	return Scale2f(a, 1/l)
}

// Right returns v rotated +90 degrees in the horizontal plane, i.e., the
// direction to the right of v seen from above (north becomes east).
func Right(v [2]float32) [2]float32 {
	return [2]float32{-v[1], v[0]}
}

// Rotate2f rotates v by theta radians; positive angles turn clockwise seen
// from above, matching yaw.
func Rotate2f(v [2]float32, theta float32) [2]float32 {
	s, c := Sin(theta), Cos(theta)
	return [2]float32{c*v[0] - s*v[1], s*v[0] + c*v[1]}
}

// Angle2f returns the horizontal angle of v, atan2(v.y, v.x).
func Angle2f(v [2]float32) float32 {
	return Atan2(v[1], v[0])
}

// Unit2f returns the unit vector pointing at the given horizontal angle.
func Unit2f(theta float32) [2]float32 {
	return [2]float32{Cos(theta), Sin(theta)}
}

///////////////////////////////////////////////////////////////////////////
// point 3f

func Add3f(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func Sub3f(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func Scale3f(a [3]float32, s float32) [3]float32 {
	return [3]float32{s * a[0], s * a[1], s * a[2]}
}

func LengthSqr3f(v [3]float32) float32 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

// DistanceSqr3f returns the squared distance between a and b.
func DistanceSqr3f(a, b [3]float32) float32 {
	return LengthSqr3f(Sub3f(a, b))
}

// XY returns the horizontal components of a 3D vector.
func XY(v [3]float32) [2]float32 {
	return [2]float32{v[0], v[1]}
}

// XYZ extends a horizontal vector with the given z.
func XYZ(v [2]float32, z float32) [3]float32 {
	return [3]float32{v[0], v[1], z}
}
