// nav/curve.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"github.com/mavcore/autopilot/math"
)

// SolveTransit computes the circle-line-circle curve from start, where the
// vehicle is moving along entryDir, to goal, where it should be moving along
// exitDir while turning with exitSense (+1 clockwise, -1 counter-clockwise).
// The lengths of entryDir and exitDir are the entry and exit circle radii;
// they are used as given.
//
// Both senses for the entry circle are tried and the one giving the
// shorter path is used; on a tie the exit sense wins. The function is pure:
// the same inputs always give the same curve.
func SolveTransit(start, entryDir, goal, exitDir [2]float32, exitSense float32) TransitCurve {
	r1, r2 := math.Length2f(entryDir), math.Length2f(exitDir)
	s2 := math.Sign(exitSense)
	if s2 == 0 {
		s2 = 1
	}

	u2 := math.Normalize2f(exitDir)
	c2 := math.Add2f(goal, math.Scale2f(math.Right(u2), s2*r2))

	u1 := math.Normalize2f(entryDir)
	if u1 == ([2]float32{}) {
		// No direction of travel; head straight for the exit circle.
		u1 = math.Normalize2f(math.Sub2f(c2, start))
	}

	best := solveWithEntrySense(start, u1, r1, c2, r2, s2, s2)
	if alt := solveWithEntrySense(start, u1, r1, c2, r2, s2, -s2); alt.Length < best.Length {
		best = alt
	}
	return best
}

func solveWithEntrySense(start, u1 [2]float32, r1 float32, c2 [2]float32, r2, s2, s1 float32) TransitCurve {
	c1 := math.Add2f(start, math.Scale2f(math.Right(u1), s1*r1))

	d := math.Sub2f(c2, c1)
	k := s2*r2 - s1*r1
	dd := math.LengthSqr2f(d)

	// The line direction v and length L satisfy d = L*v + k*Right(v).
	var v [2]float32
	var l float32
	if dd > k*k && dd > 0 {
		l = math.Sqrt(dd - k*k)
		v = math.Scale2f(math.Sub2f(math.Scale2f(d, l), math.Scale2f(math.Right(d), k)), 1/dd)
	} else if dd > 0 {
		// The circles are too close for a tangent line between them.
		v = math.Normalize2f(d)
	} else {
		v = u1
	}

	t1 := math.Sub2f(c1, math.Scale2f(math.Right(v), s1*r1))
	t2 := math.Sub2f(c2, math.Scale2f(math.Right(v), s2*r2))

	arc := float32(0)
	if r1 > 0 {
		sweep := math.WrapTwoPi(s1 * (math.Angle2f(math.Sub2f(t1, c1)) - math.Angle2f(math.Sub2f(start, c1))))
		// Already at the tangent point up to roundoff.
		if sweep > 2*math.Pi()-1e-4 {
			sweep = 0
		}
		arc = r1 * sweep
	}

	return TransitCurve{
		EntryCenter:   c1,
		EntryTangent:  t1,
		ExitCenter:    c2,
		ExitTangent:   t2,
		LineDirection: v,
		EntryRadius:   r1,
		ExitRadius:    r2,
		EntrySense:    s1,
		ExitSense:     s2,
		EntryArc:      arc,
		LineLength:    l,
		Length:        arc + l,
	}
}
