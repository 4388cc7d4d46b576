// math/core.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

// Radians converts an angle expressed in degrees to radians
func Radians(d float32) float32 {
	return d / 180 * gomath.Pi
}

// Degrees converts an angle expressed in radians to degrees
func Degrees(r float32) float32 {
	return r * 180 / gomath.Pi
}

func Pi() float32 {
	return float32(gomath.Pi)
}

// Most of the navigation state is float32, so these wrap the float64
// math package functions to save casts at every call site.

func Sin(a float32) float32 {
	return float32(gomath.Sin(float64(a)))
}

func Cos(a float32) float32 {
	return float32(gomath.Cos(float64(a)))
}

func Atan2(y, x float32) float32 {
	return float32(gomath.Atan2(float64(y), float64(x)))
}

func Sqrt(a float32) float32 {
	return float32(gomath.Sqrt(float64(a)))
}

func Mod(a, b float32) float32 {
	return float32(gomath.Mod(float64(a), float64(b)))
}

func Sign(v float32) float32 {
	if v > 0 {
		return 1
	} else if v < 0 {
		return -1
	}
	return 0
}

// IsFinite returns false for NaN and +/-Inf.
func IsFinite(v float32) bool {
	f := float64(v)
	return !gomath.IsNaN(f) && !gomath.IsInf(f, 0)
}

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

///////////////////////////////////////////////////////////////////////////
// angles

// NormalizeAngle wraps an angle in radians to [-pi, pi).
func NormalizeAngle(a float32) float32 {
	a = Mod(a+Pi(), 2*Pi())
	if a < 0 {
		a += 2 * Pi()
	}
	return a - Pi()
}

// WrapTwoPi wraps an angle in radians to [0, 2pi).
func WrapTwoPi(a float32) float32 {
	a = Mod(a, 2*Pi())
	if a < 0 {
		a += 2 * Pi()
	}
	if a >= 2*Pi() {
		a = 0
	}
	return a
}

// AngleDifference returns the absolute difference between two angles in
// radians, in [0, pi].
func AngleDifference(a, b float32) float32 {
	return Abs(NormalizeAngle(a - b))
}
