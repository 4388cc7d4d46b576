// nav/waypoint.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"log/slog"

	"github.com/mavcore/autopilot/math"
)

type WaypointCommand int

const (
	CommandNavigate WaypointCommand = iota
	CommandTakeoff
	CommandLand
	CommandLoiter
)

func (c WaypointCommand) String() string {
	switch c {
	case CommandNavigate:
		return "navigate"
	case CommandTakeoff:
		return "takeoff"
	case CommandLand:
		return "land"
	case CommandLoiter:
		return "loiter"
	default:
		return fmt.Sprintf("WaypointCommand(%d)", int(c))
	}
}

// Waypoint is a navigation target in the local NED frame. The magnitude of
// Radius is the radius of the circle flown around the waypoint on arrival
// and its sign gives the turn sense: positive is clockwise seen from above
// (right turns), negative counter-clockwise.
//
// Waypoints are values; once issued they are not modified but replaced
// wholesale. The transit curve computed for a waypoint is attached with
// WithCurve, which returns a new value.
type Waypoint struct {
	Position     [3]float32      `msgpack:"position" json:"position"`
	Heading      float32         `msgpack:"heading" json:"heading"` // radians
	Radius       float32         `msgpack:"radius" json:"radius"`
	LoiterTime   float32         `msgpack:"loiter_time" json:"loiter_time"` // seconds
	Command      WaypointCommand `msgpack:"command" json:"command"`
	Autocontinue bool            `msgpack:"autocontinue" json:"autocontinue"`

	Curve TransitCurve `msgpack:"-" json:"-"`
}

// HoldWaypoint returns a synthetic loiter target at the given position.
func HoldWaypoint(pos [3]float32, heading, radius float32) Waypoint {
	return Waypoint{
		Position:   pos,
		Heading:    heading,
		Radius:     radius,
		Command:    CommandLoiter,
		LoiterTime: 0,
	}
}

// Sense returns +1 for clockwise and -1 for counter-clockwise; a zero
// radius is treated as clockwise.
func (w Waypoint) Sense() float32 {
	if w.Radius < 0 {
		return -1
	}
	return 1
}

func (w Waypoint) WithCurve(c TransitCurve) Waypoint {
	w.Curve = c
	return w
}

// SameTarget reports whether the two waypoints describe the same target,
// ignoring any attached transit curve.
func (w Waypoint) SameTarget(o Waypoint) bool {
	w.Curve, o.Curve = TransitCurve{}, TransitCurve{}
	return w == o
}

func (w Waypoint) XY() [2]float32 {
	return math.XY(w.Position)
}

func (w Waypoint) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("position", w.Position),
		slog.Float64("heading", float64(w.Heading)),
		slog.Float64("radius", float64(w.Radius)),
		slog.Float64("loiter_time", float64(w.LoiterTime)),
		slog.String("command", w.Command.String()),
		slog.Bool("autocontinue", w.Autocontinue))
}

func (w Waypoint) String() string {
	return fmt.Sprintf("%s (%.1f, %.1f, %.1f) r=%.1f", w.Command, w.Position[0], w.Position[1],
		w.Position[2], w.Radius)
}

///////////////////////////////////////////////////////////////////////////
// TransitCurve

// TransitCurve is the circle-line-circle path from the vehicle's state at
// the time the goal was set to the goal's exit circle. The vehicle flies
// the entry circle with EntrySense until EntryTangent, follows the line
// along LineDirection for LineLength to ExitTangent, and then stays on the
// exit circle. Curves are only ever produced whole by SolveTransit.
type TransitCurve struct {
	EntryCenter   [2]float32
	EntryTangent  [2]float32
	ExitCenter    [2]float32
	ExitTangent   [2]float32
	LineDirection [2]float32

	EntryRadius float32
	ExitRadius  float32
	EntrySense  float32
	ExitSense   float32

	// EntryArc is the length flown on the entry circle; Length is EntryArc
	// plus LineLength.
	EntryArc   float32
	LineLength float32
	Length     float32
}

func (c TransitCurve) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("entry_center", c.EntryCenter),
		slog.Any("entry_tangent", c.EntryTangent),
		slog.Any("exit_center", c.ExitCenter),
		slog.Any("exit_tangent", c.ExitTangent),
		slog.Any("line_direction", c.LineDirection),
		slog.Float64("entry_radius", float64(c.EntryRadius)),
		slog.Float64("exit_radius", float64(c.ExitRadius)),
		slog.Float64("entry_sense", float64(c.EntrySense)),
		slog.Float64("exit_sense", float64(c.ExitSense)),
		slog.Float64("length", float64(c.Length)))
}
