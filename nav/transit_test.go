// nav/transit_test.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"testing"
	"time"

	"github.com/mavcore/autopilot/math"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestTransitScenario(t *testing.T) {
	tr := NewTransit(20, 0.35)
	target := Waypoint{Position: [3]float32{100, 0, -10}, Radius: 5}
	k := Kinematics{Velocity: [3]float32{1, 0, 0}}

	wp := tr.Update(target, k, 0, t0)
	if tr.Phase != PhaseEntryArc {
		t.Fatalf("phase %s after INIT, expected ENTRY_ARC", tr.Phase)
	}
	if wp.Curve != tr.Curve {
		t.Errorf("returned waypoint doesn't carry the curve")
	}
	if !wp.SameTarget(target) {
		t.Errorf("returned waypoint %s differs from target %s", wp, target)
	}
	if tr.Curve.EntryRadius != 20 {
		t.Errorf("entry radius %f, expected the minimal radius", tr.Curve.EntryRadius)
	}
	if tr.Curve.ExitRadius != 20 {
		t.Errorf("exit radius %f, expected the minimal radius", tr.Curve.ExitRadius)
	}
	if !near2(tr.Curve.ExitCenter, [2]float32{100, 0}, 1e-3) {
		t.Errorf("exit circle centered at %v, expected the target", tr.Curve.ExitCenter)
	}

	// Heading error to the exit tangent point is ~0.2 rad, under the
	// acceptance.
	tr.Update(target, k, 0, t0.Add(time.Second))
	if tr.Phase != PhaseStraight {
		t.Fatalf("phase %s, expected STRAIGHT", tr.Phase)
	}
	if c := tr.Course(k); !near(c, math.Angle2f(tr.Curve.LineDirection), 1e-6) {
		t.Errorf("course %f on the line, expected %f", c, math.Angle2f(tr.Curve.LineDirection))
	}

	k.Position = [3]float32{50, -10, -10}
	tr.Update(target, k, 0, t0.Add(2*time.Second))
	if tr.Phase != PhaseStraight {
		t.Errorf("phase %s before the tangent point, expected STRAIGHT", tr.Phase)
	}

	k.Position = [3]float32{97, -20, -10}
	tr.Update(target, k, 0, t0.Add(3*time.Second))
	if tr.Phase != PhaseExitArc {
		t.Fatalf("phase %s after the tangent point, expected EXIT_ARC", tr.Phase)
	}

	// Clockwise on the west side of the circle is northbound.
	if c := tr.Course(k); c < -0.3 || c > 0 {
		t.Errorf("exit arc course %f, expected slightly west of north", c)
	}

	// Terminal.
	k.Position = [3]float32{0, 0, 0}
	tr.Update(target, k, 0, t0.Add(4*time.Second))
	if tr.Phase != PhaseExitArc {
		t.Errorf("left EXIT_ARC without a reset")
	}
}

func TestTransitHeadingNotAccepted(t *testing.T) {
	tr := NewTransit(20, 0.35)
	target := Waypoint{Position: [3]float32{-100, 0, -10}, Radius: 20}
	k := Kinematics{Velocity: [3]float32{1, 0, 0}}

	tr.Update(target, k, 0, t0)
	tr.Update(target, k, 0, t0)
	if tr.Phase != PhaseEntryArc {
		t.Errorf("phase %s while flying away from the target, expected ENTRY_ARC", tr.Phase)
	}
}

func TestTransitDeterministic(t *testing.T) {
	target := Waypoint{Position: [3]float32{40, -75, -20}, Radius: -12}
	k := Kinematics{Position: [3]float32{3, 4, -20}, Velocity: [3]float32{2, 1, 0}, Yaw: 0.4}

	a, b := NewTransit(15, 0.3), NewTransit(15, 0.3)
	a.Update(target, k, 30, t0)

	// Drive b through some unrelated history first.
	b.Update(Waypoint{Position: [3]float32{-300, 10, 0}}, k, 0, t0)
	b.Update(Waypoint{Position: [3]float32{-300, 10, 0}}, k, 0, t0)
	b.Reset()
	b.Update(target, k, 30, t0)

	if a.Curve != b.Curve || a.Phase != b.Phase {
		t.Errorf("INIT is not deterministic:\n%+v\n%+v", a.Curve, b.Curve)
	}
	if !near(a.Curve.EntryRadius, 30, 1e-4) {
		t.Errorf("entry radius %f, expected the mission radius 30", a.Curve.EntryRadius)
	}
	if a.Curve.ExitSense != -1 || !near(a.Curve.ExitRadius, 15, 1e-4) {
		t.Errorf("exit sense %f radius %f, expected -1 and the minimal radius", a.Curve.ExitSense,
			a.Curve.ExitRadius)
	}
	if !near2(a.Curve.ExitCenter, [2]float32{40, -75}, 1e-3) {
		t.Errorf("exit center %v, expected the target", a.Curve.ExitCenter)
	}
}

func TestTransitAtTarget(t *testing.T) {
	tr := NewTransit(20, 0.35)
	pos := [3]float32{10, 10, -5}
	target := Waypoint{Position: [3]float32{10.1, 10.1, -5}, Radius: 8}

	tr.Update(target, Kinematics{Position: pos}, 0, t0)
	if tr.Phase != PhaseExitArc {
		t.Errorf("phase %s at the target, expected EXIT_ARC", tr.Phase)
	}
	if tr.Curve.ExitCenter != math.XY(pos) || tr.Curve.LineLength != 0 {
		t.Errorf("expected a circle around the current position, got %+v", tr.Curve)
	}
}

func TestTransitHoldFrom(t *testing.T) {
	target := Waypoint{Position: [3]float32{100, 0, -10}, Radius: 5}
	k := Kinematics{Velocity: [3]float32{1, 0, 0}}

	// Entry arc: keep circling the entry circle.
	tr := NewTransit(20, 0.35)
	tr.Update(target, k, 0, t0)
	entry := tr.Curve
	hold := tr.HoldFrom(target, k, t0)
	if tr.Phase != PhaseExitArc {
		t.Errorf("phase %s after hold on the entry arc, expected EXIT_ARC", tr.Phase)
	}
	if math.XY(hold.Position) != entry.EntryCenter || hold.Radius != entry.EntrySense*entry.EntryRadius {
		t.Errorf("hold %s doesn't follow the entry circle %+v", hold, entry)
	}
	if hold.Curve.ExitCenter != entry.EntryCenter {
		t.Errorf("hold curve exit center %v, expected %v", hold.Curve.ExitCenter, entry.EntryCenter)
	}

	// Straight: loiter here, recomputing the curve.
	tr = NewTransit(20, 0.35)
	tr.Update(target, k, 0, t0)
	tr.Update(target, k, 0, t0)
	k.Position = [3]float32{30, -5, -10}
	hold = tr.HoldFrom(target, k, t0)
	if tr.Phase != PhaseInit {
		t.Errorf("phase %s after hold on the line, expected INIT", tr.Phase)
	}
	if hold.Position != k.Position || hold.Radius != 20 || hold.Command != CommandLoiter {
		t.Errorf("unexpected hold waypoint %s", hold)
	}
	tr.Update(hold, k, 0, t0)
	if tr.Phase != PhaseExitArc {
		t.Errorf("phase %s flying to a hold at the current position, expected EXIT_ARC", tr.Phase)
	}

	// No curve yet: loiter here as well.
	tr = NewTransit(20, 0.35)
	k.Position = [3]float32{-4, 7, -12}
	hold = tr.HoldFrom(target, k, t0)
	if tr.Phase != PhaseInit || tr.Curve != (TransitCurve{}) {
		t.Errorf("phase %s curve %+v after hold before any update, expected INIT", tr.Phase, tr.Curve)
	}
	if hold.Position != k.Position || hold.Radius != 20 {
		t.Errorf("hold %s before any update, expected the current position", hold)
	}

	// Exit arc: keep the goal.
	tr = NewTransit(20, 0.35)
	tr.Phase = PhaseExitArc
	if hold = tr.HoldFrom(target, k, t0); !hold.SameTarget(target) {
		t.Errorf("hold %s on the exit arc, expected the goal", hold)
	}
}

func TestWaypointSense(t *testing.T) {
	for _, test := range []struct {
		r, sense float32
	}{{5, 1}, {-5, -1}, {0, 1}} {
		if s := (Waypoint{Radius: test.r}).Sense(); s != test.sense {
			t.Errorf("radius %f: sense %f, expected %f", test.r, s, test.sense)
		}
	}
}
