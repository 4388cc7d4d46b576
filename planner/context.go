// planner/context.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mavcore/autopilot/nav"

	"github.com/brunoga/deep"
)

type FlightMode int

const (
	ModeOnGround FlightMode = iota
	ModeTakeoff
	ModeManualControl
	ModeNavigating
	ModeHoldPosition
	ModeStopOnPosition
	ModeStopThere
	ModeLanding
	NumFlightModes
)

func (m FlightMode) String() string {
	switch m {
	case ModeOnGround:
		return "ON_GROUND"
	case ModeTakeoff:
		return "TAKEOFF"
	case ModeManualControl:
		return "MANUAL_CONTROL"
	case ModeNavigating:
		return "NAVIGATING"
	case ModeHoldPosition:
		return "HOLD_POSITION"
	case ModeStopOnPosition:
		return "STOP_ON_POSITION"
	case ModeStopThere:
		return "STOP_THERE"
	case ModeLanding:
		return "LANDING"
	default:
		return fmt.Sprintf("FlightMode(%d)", int(m))
	}
}

// TargetSource identifies where the current goal came from.
type TargetSource int

const (
	SourceNone TargetSource = iota
	SourceMission
	SourceFailsafe
	SourceHold
)

func (s TargetSource) String() string {
	return []string{"none", "mission", "failsafe", "hold"}[s]
}

type LandingState int

const (
	LandingDescentToSmallAltitude LandingState = iota
	LandingDescentToGround
)

func (l LandingState) String() string {
	return []string{"DESCENT_TO_SMALL_ALTITUDE", "DESCENT_TO_GROUND"}[l]
}

// NavigationContext is the live navigation state. It is owned by the
// Planner and only modified while its mutex is held.
type NavigationContext struct {
	Mode FlightMode

	// The goal being flown, with the transit curve to it attached, and
	// where it came from. HasGoal is false on the ground and under manual
	// control.
	Goal    nav.Waypoint
	Source  TargetSource
	HasGoal bool
	Transit nav.Transit

	// Filtered altitude used to detect touchdown.
	AltitudeLPF float32

	Failsafe Failsafe

	Landing      LandingState
	LandingPoint [2]float32

	// Hold is the loiter target for TAKEOFF, HOLD_POSITION and
	// STOP_ON_POSITION.
	Hold    nav.Waypoint
	HoldSet bool

	MissionActive bool
	Dwelling      bool
	DwellStart    time.Time

	// Control mode seen on the previous cycle.
	LastControl ControlMode
}

func newNavigationContext(cfg *Config) NavigationContext {
	return NavigationContext{
		Mode:    ModeOnGround,
		Transit: *nav.NewTransit(cfg.MinimalRadius, cfg.HeadingAcceptance),
	}
}

// Snapshot returns a deep copy of the context that may be inspected
// without holding the planner's lock.
func (c *NavigationContext) Snapshot() NavigationContext {
	return deep.MustCopy(*c)
}

func (c *NavigationContext) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("mode", c.Mode.String()),
		slog.String("source", c.Source.String()),
		slog.Bool("mission_active", c.MissionActive),
	}
	if c.HasGoal {
		attrs = append(attrs, slog.Any("goal", c.Goal), slog.Any("transit", &c.Transit))
	}
	if c.Mode == ModeLanding {
		attrs = append(attrs, slog.String("landing", c.Landing.String()),
			slog.Float64("altitude_lpf", float64(c.AltitudeLPF)))
	}
	if c.Dwelling {
		attrs = append(attrs, slog.Time("dwell_start", c.DwellStart))
	}
	return slog.GroupValue(attrs...)
}
