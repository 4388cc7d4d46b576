// planner/failsafe.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mavcore/autopilot/math"
	"github.com/mavcore/autopilot/nav"
)

type FailsafeState int

const (
	FailsafeClimb FailsafeState = iota
	FailsafeFlyHome
	FailsafeHomeLand
	FailsafeCriticalLand
)

func (s FailsafeState) String() string {
	switch s {
	case FailsafeClimb:
		return "CLIMB_TO_SAFE_ALTITUDE"
	case FailsafeFlyHome:
		return "FLY_TO_HOME_WAYPOINT"
	case FailsafeHomeLand:
		return "HOME_LAND"
	case FailsafeCriticalLand:
		return "CRITICAL_LAND"
	default:
		return fmt.Sprintf("FailsafeState(%d)", int(s))
	}
}

// Failsafe is the return-home sequence run while the vehicle status is
// critical: climb to a safe altitude over the current position, fly to
// the origin, land there. A critically low battery lands in place
// instead. The target for a state is computed once, on the first cycle in
// that state.
type Failsafe struct {
	State          FailsafeState
	Target         nav.Waypoint
	TargetComputed bool

	// Engaged is set while the sequence is running. Only entry starts
	// over with a climb; later triggers never move the state back.
	Engaged bool
}

// FailsafeResult tells the planner what the failsafe needs from it this
// cycle beyond the target.
type FailsafeResult struct {
	Target nav.Waypoint
	// Landed: the vehicle is down; disarm and declare an emergency.
	Landed bool
	// FenceHold: the soft fence was breached on the way home; stop at the
	// target and go back to normal operation.
	FenceHold bool
}

// Reset clears the sequence; the next critical cycle starts over with a
// climb.
func (f *Failsafe) Reset() {
	*f = Failsafe{}
}

func (f *Failsafe) enter(s FailsafeState, now time.Time) {
	if s != f.State {
		nav.NavLog(now, nav.NavLogFailsafe, "%s -> %s", f.State, s)
	}
	f.State = s
	f.TargetComputed = false
}

// Update runs one cycle of the sequence. lpf is the filtered altitude used
// to detect touchdown; it is reset when a landing target is computed.
func (f *Failsafe) Update(cfg *Config, in Inputs, lpf *float32, now time.Time) FailsafeResult {
	pos := in.State.Position

	if in.Health.BatteryCritical {
		if f.State != FailsafeCriticalLand {
			f.enter(FailsafeCriticalLand, now)
		}
	} else if !f.Engaged {
		f.enter(FailsafeClimb, now)
	}
	f.Engaged = true

	if !f.TargetComputed {
		f.Target = f.computeTarget(cfg, in, lpf)
		f.TargetComputed = true
		nav.NavLog(now, nav.NavLogFailsafe, "%s target %s", f.State, f.Target)
	}

	result := FailsafeResult{Target: f.Target}

	switch f.State {
	case FailsafeClimb:
		if math.DistanceSqr3f(f.Target.Position, pos) < cfg.FailsafeAcceptanceSq {
			f.enter(FailsafeFlyHome, now)
		}

	case FailsafeFlyHome:
		if math.DistanceSqr3f(f.Target.Position, pos) < cfg.FailsafeAcceptanceSq {
			if in.Health.SoftFenceBreach {
				result.FenceHold = true
				f.enter(FailsafeClimb, now)
				f.Engaged = false
			} else {
				f.enter(FailsafeHomeLand, now)
			}
		}

	case FailsafeHomeLand, FailsafeCriticalLand:
		if updateLanding(cfg, pos[2], lpf) {
			nav.NavLog(now, nav.NavLogFailsafe, "%s: landed at z %.2f", f.State, pos[2])
			result.Landed = true
			f.Reset()
		}
	}

	return result
}

func (f *Failsafe) computeTarget(cfg *Config, in Inputs, lpf *float32) nav.Waypoint {
	pos := in.State.Position
	var target [3]float32

	switch f.State {
	case FailsafeClimb:
		target = [3]float32{pos[0], pos[1], -cfg.SafeAltitude}
	case FailsafeFlyHome:
		target = [3]float32{0, 0, -cfg.SafeAltitude}
	case FailsafeHomeLand:
		target = [3]float32{0, 0, cfg.LandingTargetZ}
		*lpf = pos[2]
	case FailsafeCriticalLand:
		target = [3]float32{pos[0], pos[1], cfg.LandingTargetZ}
		*lpf = pos[2]
	}

	return nav.Waypoint{
		Position: target,
		Heading:  in.State.Yaw,
		Radius:   cfg.MinimalRadius,
		Command:  nav.CommandLoiter,
	}
}

// updateLanding advances the filtered altitude by one cycle and reports
// whether the vehicle has touched down: it is at ground level and no
// longer descending.
func updateLanding(cfg *Config, z float32, lpf *float32) bool {
	*lpf = cfg.AltitudeLPFGain*(*lpf) + (1-cfg.AltitudeLPFGain)*z
	return z > cfg.LandedAltitude && math.Abs(z-*lpf) <= cfg.LandedDeviation
}

func (f *Failsafe) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("state", f.State.String()),
		slog.Bool("target_computed", f.TargetComputed),
		slog.Any("target", f.Target))
}
