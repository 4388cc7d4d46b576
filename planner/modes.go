// planner/modes.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"time"

	"github.com/mavcore/autopilot/math"
	"github.com/mavcore/autopilot/nav"
)

// modeHandler runs one cycle of a flight mode and returns the mode for the
// next cycle. The goal left in the cycle is the one that is tracked.
type modeHandler func(p *Planner, c *cycle) FlightMode

var modeHandlers = [NumFlightModes]modeHandler{
	ModeOnGround:       onGround,
	ModeTakeoff:        takeoff,
	ModeManualControl:  manualControl,
	ModeNavigating:     navigating,
	ModeHoldPosition:   holdPosition,
	ModeStopOnPosition: stopOnPosition,
	ModeStopThere:      stopThere,
	ModeLanding:        landing,
}

// airborne handles the transitions shared by the guided airborne modes.
func airborne(c *cycle) (FlightMode, bool) {
	if !c.in.Health.Armed {
		c.clearGoal()
		return ModeOnGround, true
	}
	if !c.in.Mode.IsGuided() {
		c.clearGoal()
		return ModeManualControl, true
	}
	return 0, false
}

func onGround(p *Planner, c *cycle) FlightMode {
	c.clearGoal()

	if !c.in.Health.Armed {
		return ModeOnGround
	}
	if !c.in.Mode.IsGuided() {
		return ModeManualControl
	}

	pos := c.in.State.Position
	climb := [3]float32{pos[0], pos[1], pos[2] - p.cfg.TakeoffAltitude}
	p.setHold(c, nav.HoldWaypoint(climb, c.in.State.Yaw, p.cfg.MinimalRadius))
	return ModeTakeoff
}

func takeoff(p *Planner, c *cycle) FlightMode {
	if m, ok := airborne(c); ok {
		return m
	}

	c.setGoal(p.ctx.Hold, SourceHold)

	if math.Abs(c.in.State.Position[2]-p.ctx.Hold.Position[2]) < p.cfg.TakeoffAcceptance {
		if c.in.Mode.IsAuto() && p.store.Count() > 0 {
			return ModeNavigating
		}
		return ModeHoldPosition
	}
	return ModeTakeoff
}

func manualControl(p *Planner, c *cycle) FlightMode {
	c.clearGoal()

	if !c.in.Health.Armed {
		return ModeOnGround
	}
	if !c.in.Mode.IsGuided() {
		return ModeManualControl
	}
	if c.in.Mode.IsAuto() && p.store.Count() > 0 {
		return ModeNavigating
	}

	p.holdHere(c)
	return ModeHoldPosition
}

func navigating(p *Planner, c *cycle) FlightMode {
	if m, ok := airborne(c); ok {
		return m
	}
	if !c.in.Mode.IsAuto() {
		return ModeStopThere
	}

	wp, ok := p.store.Current()
	if !ok {
		p.holdHere(c)
		return ModeHoldPosition
	}

	ctx := &p.ctx
	arrived := ctx.HasGoal && ctx.Source == SourceMission && ctx.Goal.SameTarget(wp) &&
		ctx.Transit.Phase == nav.PhaseExitArc
	c.setGoal(wp, SourceMission)
	if !arrived {
		return ModeNavigating
	}

	if !ctx.Dwelling {
		nav.NavLog(c.now, nav.NavLogMission, "arrived at waypoint %d: %s", p.store.CurrentIndex(), wp)
		ctx.Dwelling, ctx.DwellStart = true, c.now

		if wp.Command == nav.CommandLand {
			ctx.Landing = LandingDescentToSmallAltitude
			ctx.LandingPoint = wp.XY()
			descent := math.XYZ(ctx.LandingPoint, -p.cfg.LandingSmallAltitude)
			p.setHold(c, nav.HoldWaypoint(descent, wp.Heading, p.cfg.MinimalRadius))
			return ModeLanding
		}
		if !wp.Autocontinue && ctx.MissionActive {
			// Wait here for the next advance command.
			ctx.MissionActive = false
			p.events.Post(Event{Type: StatusMessageEvent, Time: c.now, Text: "waiting at waypoint"})
		}
	}

	if wp.Autocontinue && c.now.Sub(ctx.DwellStart) >= loiterDuration(wp) {
		idx := p.store.Advance()
		ctx.Dwelling = false
		ctx.MissionActive = true
		p.postMissionCurrent(c.now, idx)

		if next, ok := p.store.Current(); ok {
			c.setGoal(next, SourceMission)
		}
	}
	return ModeNavigating
}

func loiterDuration(wp nav.Waypoint) time.Duration {
	return time.Duration(wp.LoiterTime * float32(time.Second))
}

func holdPosition(p *Planner, c *cycle) FlightMode {
	if m, ok := airborne(c); ok {
		return m
	}

	if !p.ctx.HoldSet {
		p.holdHere(c)
	}
	c.setGoal(p.ctx.Hold, SourceHold)

	if c.in.Mode.IsAuto() && p.ctx.MissionActive && p.store.Count() > 0 {
		return ModeNavigating
	}
	return ModeHoldPosition
}

func stopOnPosition(p *Planner, c *cycle) FlightMode {
	if m, ok := airborne(c); ok {
		return m
	}

	if !p.ctx.HoldSet {
		p.holdHere(c)
	}
	c.setGoal(p.ctx.Hold, SourceHold)

	// Only a fresh selection of auto resumes the mission.
	if c.in.Mode.IsAuto() && !p.ctx.LastControl.IsAuto() {
		return ModeNavigating
	}
	return ModeStopOnPosition
}

func stopThere(p *Planner, c *cycle) FlightMode {
	if m, ok := airborne(c); ok {
		return m
	}

	p.stop(c)
	return ModeStopOnPosition
}

func landing(p *Planner, c *cycle) FlightMode {
	if m, ok := airborne(c); ok {
		return m
	}

	ctx := &p.ctx
	pos := c.in.State.Position
	c.setGoal(ctx.Hold, SourceHold)

	switch ctx.Landing {
	case LandingDescentToSmallAltitude:
		if math.DistanceSqr3f(pos, ctx.Hold.Position) < p.cfg.LandingAcceptanceSq {
			nav.NavLog(c.now, nav.NavLogMode, "landing: descending to ground from z %.2f", pos[2])
			ctx.Landing = LandingDescentToGround
			ctx.AltitudeLPF = pos[2]
			ground := math.XYZ(ctx.LandingPoint, p.cfg.LandingTargetZ)
			p.setHold(c, nav.HoldWaypoint(ground, ctx.Hold.Heading, p.cfg.MinimalRadius))
		}

	case LandingDescentToGround:
		if updateLanding(&p.cfg, pos[2], &ctx.AltitudeLPF) {
			nav.NavLog(c.now, nav.NavLogMode, "landed at z %.2f", pos[2])
			c.clearGoal()
			c.out.Disarm = true
			ctx.MissionActive = false
			ctx.Landing = LandingDescentToSmallAltitude
			p.events.Post(Event{Type: DisarmRequestedEvent, Time: c.now, Text: "landed"})
			return ModeOnGround
		}
	}
	return ModeLanding
}
