// mission/plan.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mission

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/mavcore/autopilot/math"
	"github.com/mavcore/autopilot/nav"
	"github.com/mavcore/autopilot/util"

	"github.com/brunoga/deep"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrEmptyPlan          = errors.New("Mission has no waypoints")
	ErrInvalidPlan        = errors.New("Invalid mission")
	ErrUnsupportedVersion = errors.New("Unsupported mission file version")
)

// Version 1: msgpack-encoded planFile compressed with zstd.
const fileVersion = 1

// Plan is an ordered list of waypoints and a cursor to the current one.
// Waypoint 0 is where the vehicle goes when it first starts navigating; an
// accepted mission start moves on to the next one. Plan does no locking of
// its own; the planner serializes access.
type Plan struct {
	ID        uint32
	waypoints []nav.Waypoint
	current   int
}

type planFile struct {
	Version   int            `msgpack:"version"`
	ID        uint32         `msgpack:"id"`
	Current   int            `msgpack:"current"`
	Waypoints []nav.Waypoint `msgpack:"waypoints"`
}

// NewPlan returns a plan holding a copy of the given waypoints with the
// cursor at the first one.
func NewPlan(id uint32, waypoints []nav.Waypoint) *Plan {
	return &Plan{ID: id, waypoints: deep.MustCopy(waypoints)}
}

func (p *Plan) MissionID() uint32 {
	if p == nil {
		return 0
	}
	return p.ID
}

func (p *Plan) Count() int {
	if p == nil {
		return 0
	}
	return len(p.waypoints)
}

func (p *Plan) CurrentIndex() int {
	if p == nil {
		return 0
	}
	return p.current
}

// Current returns the waypoint under the cursor; false is returned if the
// plan is empty.
func (p *Plan) Current() (nav.Waypoint, bool) {
	if p.Count() == 0 {
		return nav.Waypoint{}, false
	}
	return p.waypoints[p.current], true
}

// Advance moves the cursor to the next waypoint, wrapping around to the
// first after the last, and returns the new index.
func (p *Plan) Advance() int {
	if p.Count() == 0 {
		return 0
	}
	p.current = (p.current + 1) % len(p.waypoints)
	return p.current
}

// Waypoints returns a copy of the plan's waypoints.
func (p *Plan) Waypoints() []nav.Waypoint {
	if p.Count() == 0 {
		return nil
	}
	return deep.MustCopy(p.waypoints)
}

// Validate checks that the plan is non-empty and that its waypoints are
// usable, logging every problem found.
func (p *Plan) Validate(e *util.ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	e.Push("mission " + strconv.FormatUint(uint64(p.ID), 10))
	defer e.Pop()

	if len(p.waypoints) == 0 {
		e.Error(ErrEmptyPlan)
		return
	}
	if p.current < 0 || p.current >= len(p.waypoints) {
		e.ErrorString("current waypoint %d out of range", p.current)
	}

	for i, wp := range p.waypoints {
		e.Push("waypoint " + strconv.Itoa(i))

		for _, v := range wp.Position {
			if !math.IsFinite(v) {
				e.ErrorString("non-finite position %v", wp.Position)
				break
			}
		}
		if !math.IsFinite(wp.Heading) || !math.IsFinite(wp.Radius) {
			e.ErrorString("non-finite heading %f or radius %f", wp.Heading, wp.Radius)
		}
		if wp.LoiterTime < 0 || !math.IsFinite(wp.LoiterTime) {
			e.ErrorString("invalid loiter time %f", wp.LoiterTime)
		}
		if wp.Command < nav.CommandNavigate || wp.Command > nav.CommandLoiter {
			e.ErrorString("unknown command %d", int(wp.Command))
		}

		e.Pop()
	}
}

// Load reads a plan saved by Save and validates it.
func Load(r io.Reader) (*Plan, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var f planFile
	if err := msgpack.NewDecoder(zr).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode mission: %w", err)
	}
	if f.Version != fileVersion {
		return nil, fmt.Errorf("%d: %w", f.Version, ErrUnsupportedVersion)
	}

	p := &Plan{ID: f.ID, waypoints: f.Waypoints, current: f.Current}

	var e util.ErrorLogger
	p.Validate(&e)
	if err := e.Err(ErrInvalidPlan); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes the plan as msgpack compressed with zstd.
func (p *Plan) Save(w io.Writer) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	f := planFile{
		Version:   fileVersion,
		ID:        p.ID,
		Current:   p.current,
		Waypoints: p.waypoints,
	}
	if err := msgpack.NewEncoder(zw).Encode(f); err != nil {
		return fmt.Errorf("failed to encode mission: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

func (p *Plan) LogValue() slog.Value {
	if p == nil {
		return slog.StringValue("(none)")
	}
	return slog.GroupValue(
		slog.Any("id", p.ID),
		slog.Int("count", len(p.waypoints)),
		slog.Int("current", p.current))
}
