// planner/commands.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"fmt"
	"log/slog"
	gomath "math"
	"time"

	"github.com/mavcore/autopilot/command"
	"github.com/mavcore/autopilot/nav"
)

// MAVLink IDs of the requests the planner handles.
const (
	CmdConditionDistance  = 114 // MAV_CMD_CONDITION_DISTANCE: confirm arrival
	CmdMissionStart       = 300 // MAV_CMD_MISSION_START: advance to the next waypoint
	MsgSetGPSGlobalOrigin = 48  // SET_GPS_GLOBAL_ORIGIN
)

// Origin is the global position of the local frame's origin.
type Origin struct {
	Latitude  float64 // degrees
	Longitude float64 // degrees
	Altitude  float32 // meters
}

func (o Origin) String() string {
	return fmt.Sprintf("(%.7f, %.7f) %.1fm", o.Latitude, o.Longitude, o.Altitude)
}

func (o Origin) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("latitude", o.Latitude),
		slog.Float64("longitude", o.Longitude),
		slog.Float64("altitude", float64(o.Altitude)))
}

// CommandRoutes returns the routing table for the planner's command
// handlers, to be registered with the command router.
func (p *Planner) CommandRoutes() []command.Route {
	return []command.Route{
		{ID: CmdMissionStart, TargetComponent: p.cfg.ComponentID, Handle: p.AdvanceToNextWaypoint},
		{ID: CmdConditionDistance, TargetComponent: p.cfg.ComponentID, Handle: p.ConfirmArrival},
		{ID: MsgSetGPSGlobalOrigin, SourceSystem: p.cfg.GroundStationID, Handle: p.SetReferenceOrigin},
	}
}

// AdvanceToNextWaypoint starts the mission or moves it on to the next
// waypoint. While a mission is active, the request is only honored with
// the force flag (param 3 == 1), and then only once per advance window.
// Repeats within the window are acknowledged without effect since links
// may deliver a command more than once, whatever has changed in between.
func (p *Planner) AdvanceToNextWaypoint(req command.Request, now time.Time) command.Result {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	ctx := &p.ctx
	mission := p.store.MissionID()
	inWindow := !p.lastAdvance.IsZero() && now.Sub(p.lastAdvance) <= p.cfg.AdvanceWindow()
	force := req.Params[2] == 1 && !inWindow

	if p.store.Count() > 0 && (!ctx.MissionActive || force) {
		idx := p.store.Advance()
		p.lastAdvance = now

		ctx.Transit.Reset()
		ctx.Dwelling = false
		ctx.MissionActive = true

		nav.NavLog(now, nav.NavLogCommand, "advance accepted (force %v): waypoint %d", force, idx)
		p.lg.Info("advanced to waypoint", slog.Int("mission", int(mission)), slog.Int("waypoint", idx),
			slog.Bool("force", force))
		p.postMissionCurrent(now, idx)
		return command.ResultAccepted
	}

	if inWindow {
		nav.NavLog(now, nav.NavLogCommand, "advance repeated within window")
		return command.ResultAccepted
	}

	nav.NavLog(now, nav.NavLogCommand, "advance rejected: %d waypoints, mission active %v",
		p.store.Count(), ctx.MissionActive)
	return command.ResultTemporarilyRejected
}

// ConfirmArrival reports whether the vehicle is waiting at a waypoint. The
// confirmation code is carried in param 2.
func (p *Planner) ConfirmArrival(req command.Request, now time.Time) command.Result {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	if float32(req.Params[1]) != p.cfg.ConfirmationCode {
		nav.NavLog(now, nav.NavLogCommand, "confirm: bad code %g", req.Params[1])
		return command.ResultDenied
	}
	if p.ctx.Mode == ModeNavigating && p.ctx.Dwelling {
		return command.ResultAccepted
	}
	return command.ResultTemporarilyRejected
}

// SetReferenceOrigin updates the global origin of the local frame. Params
// holds latitude and longitude in degrees and altitude in meters. The
// origin can't be moved while armed.
func (p *Planner) SetReferenceOrigin(req command.Request, now time.Time) command.Result {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	if req.TargetSystem != p.cfg.SystemID {
		return command.ResultDenied
	}

	o := Origin{Latitude: req.Params[0], Longitude: req.Params[1], Altitude: float32(req.Params[2])}
	if gomath.IsNaN(o.Latitude) || gomath.Abs(o.Latitude) > 90 ||
		gomath.IsNaN(o.Longitude) || gomath.Abs(o.Longitude) > 180 ||
		gomath.IsNaN(req.Params[2]) || gomath.IsInf(req.Params[2], 0) {
		p.lg.Warn("invalid origin", slog.Any("request", req))
		return command.ResultDenied
	}

	if p.health.Armed {
		return command.ResultTemporarilyRejected
	}

	p.origin = o
	p.lg.Info("reference origin set", slog.Any("origin", o))
	p.events.Post(Event{Type: OriginChangedEvent, Time: now, Origin: &o})
	return command.ResultAccepted
}
