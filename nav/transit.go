// nav/transit.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mavcore/autopilot/math"
)

type TransitPhase int

const (
	PhaseInit TransitPhase = iota
	PhaseEntryArc
	PhaseStraight
	PhaseExitArc
)

func (p TransitPhase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseEntryArc:
		return "ENTRY_ARC"
	case PhaseStraight:
		return "STRAIGHT"
	case PhaseExitArc:
		return "EXIT_ARC"
	default:
		return fmt.Sprintf("TransitPhase(%d)", int(p))
	}
}

// Kinematics is the vehicle state estimate sampled at the start of a
// cycle; Yaw is in radians with 0 north and positive clockwise.
type Kinematics struct {
	Position [3]float32
	Velocity [3]float32
	Yaw      float32
}

// GroundTrack returns the direction of horizontal motion, falling back to
// the yaw when the vehicle isn't moving.
func (k Kinematics) GroundTrack() float32 {
	if v := math.XY(k.Velocity); math.LengthSqr2f(v) > 1e-6 {
		return math.Angle2f(v)
	}
	return k.Yaw
}

// Squared horizontal distance below which the vehicle is considered to
// already be at the target.
const atTargetDistanceSqr = 0.1

// Transit tracks which segment of the transit curve to the current goal
// the vehicle is flying. It is re-evaluated once per cycle; each call to
// Update advances at most one phase.
type Transit struct {
	Phase TransitPhase
	Curve TransitCurve

	MinimalRadius     float32
	HeadingAcceptance float32 // radians
}

func NewTransit(minimalRadius, headingAcceptance float32) *Transit {
	return &Transit{
		MinimalRadius:     minimalRadius,
		HeadingAcceptance: headingAcceptance,
	}
}

// Reset returns to INIT so that the curve is recomputed from the vehicle's
// state on the next Update.
func (t *Transit) Reset() {
	t.Phase = PhaseInit
	t.Curve = TransitCurve{}
}

// Update evaluates the transit state machine for the given target.
// missionRadius is the turn radius of the active mission goal, or zero if
// no mission is active; it sets the entry circle radius. The target is
// returned with the current curve attached.
func (t *Transit) Update(target Waypoint, k Kinematics, missionRadius float32, now time.Time) Waypoint {
	pos := math.XY(k.Position)

	switch t.Phase {
	case PhaseInit:
		var atTarget bool
		t.Curve, atTarget = t.solve(target, k, missionRadius)
		if atTarget {
			t.Phase = PhaseExitArc
		} else {
			t.Phase = PhaseEntryArc
		}
		NavLog(now, NavLogTransit, "INIT -> %s: target %s curve length %.1f", t.Phase, target, t.Curve.Length)

	case PhaseEntryArc:
		bearing := math.Angle2f(math.Sub2f(t.Curve.ExitTangent, pos))
		if math.AngleDifference(k.GroundTrack(), bearing) < t.HeadingAcceptance {
			t.Phase = PhaseStraight
			NavLog(now, NavLogTransit, "ENTRY_ARC -> STRAIGHT: track %.2f bearing %.2f",
				k.GroundTrack(), bearing)
		}

	case PhaseStraight:
		if math.Dot(math.Sub2f(t.Curve.ExitTangent, pos), t.Curve.LineDirection) < 0 {
			t.Phase = PhaseExitArc
			NavLog(now, NavLogTransit, "STRAIGHT -> EXIT_ARC at (%.1f, %.1f)", pos[0], pos[1])
		}

	case PhaseExitArc:
		// Terminal until a new goal resets us.
	}

	return target.WithCurve(t.Curve)
}

func (t *Transit) solve(target Waypoint, k Kinematics, missionRadius float32) (TransitCurve, bool) {
	pos := math.XY(k.Position)

	entryRadius := math.Max(math.Abs(missionRadius), t.MinimalRadius)
	entryDir := math.Rotate2f([2]float32{entryRadius, 0}, k.Yaw)

	exitRadius := math.Max(math.Abs(target.Radius), t.MinimalRadius)
	sense := target.Sense()

	disp := math.Sub2f(target.XY(), pos)
	if math.LengthSqr2f(disp) <= atTargetDistanceSqr {
		// Already there: circle around the current position.
		return TransitCurve{
			EntryCenter:   pos,
			EntryTangent:  pos,
			ExitCenter:    pos,
			ExitTangent:   pos,
			LineDirection: math.Unit2f(k.Yaw),
			EntryRadius:   entryRadius,
			ExitRadius:    exitRadius,
			EntrySense:    sense,
			ExitSense:     sense,
		}, true
	}

	// Arrive on the far side of the target moving perpendicular to the
	// approach so that the exit circle is centered on the target itself.
	n := math.Normalize2f(disp)
	goal := math.Add2f(target.XY(), math.Scale2f(n, exitRadius))
	exitDir := math.Scale2f(math.Right(n), sense*exitRadius)

	return SolveTransit(pos, entryDir, goal, exitDir, sense), false
}

// Course returns the course the vehicle should be flying for the current
// phase: the tangent of the circle being flown or the line direction.
func (t *Transit) Course(k Kinematics) float32 {
	pos := math.XY(k.Position)
	tangent := func(center [2]float32, sense float32) float32 {
		if pos == center {
			return k.Yaw
		}
		return math.NormalizeAngle(math.Angle2f(math.Sub2f(pos, center)) + sense*math.Pi()/2)
	}

	switch t.Phase {
	case PhaseEntryArc:
		return tangent(t.Curve.EntryCenter, t.Curve.EntrySense)
	case PhaseStraight:
		return math.Angle2f(t.Curve.LineDirection)
	case PhaseExitArc:
		return tangent(t.Curve.ExitCenter, t.Curve.ExitSense)
	default:
		return k.Yaw
	}
}

// HoldFrom returns a loiter target that keeps the vehicle as close as
// possible to what it is doing now, given the current phase, and updates
// the phase to match:
//   - on the entry arc, keep circling the entry circle;
//   - with no curve yet or on the line, loiter at the current position (the
//     curve is recomputed);
//   - on the exit circle, keep the current goal.
func (t *Transit) HoldFrom(goal Waypoint, k Kinematics, now time.Time) Waypoint {
	pos := k.Position

	var hold Waypoint
	switch t.Phase {
	case PhaseEntryArc:
		c := t.Curve
		hold = HoldWaypoint(math.XYZ(c.EntryCenter, pos[2]), k.Yaw, c.EntrySense*c.EntryRadius)
		t.Curve = TransitCurve{
			ExitCenter:    c.EntryCenter,
			ExitTangent:   math.XY(pos),
			EntryCenter:   c.EntryCenter,
			EntryTangent:  math.XY(pos),
			LineDirection: c.LineDirection,
			EntryRadius:   c.EntryRadius,
			ExitRadius:    c.EntryRadius,
			EntrySense:    c.EntrySense,
			ExitSense:     c.EntrySense,
		}
		t.Phase = PhaseExitArc

	case PhaseExitArc:
		hold = goal

	default:
		hold = HoldWaypoint(pos, k.Yaw, t.MinimalRadius)
		t.Reset()
	}

	NavLog(now, NavLogTransit, "hold from %s: %s", t.Phase, hold)
	return hold.WithCurve(t.Curve)
}

func (t *Transit) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("phase", t.Phase.String()),
		slog.Any("curve", t.Curve))
}
