// planner/planner.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"log/slog"
	"time"

	"github.com/mavcore/autopilot/log"
	"github.com/mavcore/autopilot/math"
	"github.com/mavcore/autopilot/nav"
	"github.com/mavcore/autopilot/util"
)

// Planner is the navigation decision core. Update is called once per
// control cycle; the command handlers may be called from other goroutines
// and are serialized with the cycle.
type Planner struct {
	mu     util.LoggingMutex
	cfg    Config
	store  MissionStore
	events *EventStream
	lg     *log.Logger

	ctx    NavigationContext
	health Health // as of the last cycle
	origin Origin

	lastAdvance time.Time
}

// Setpoint is the navigation target handed to the trajectory tracker.
type Setpoint struct {
	Position [3]float32
	Heading  float32
	Course   float32 // for the current transit phase
	Phase    nav.TransitPhase
	Curve    nav.TransitCurve
	Source   TargetSource
}

// Output is the result of one cycle. Setpoint is nil when there is
// nothing to track; Status is non-nil when the vehicle status should be
// changed.
type Output struct {
	Mode            FlightMode
	Failsafe        FailsafeState
	FailsafeEngaged bool
	Setpoint        *Setpoint
	MissionActive   bool
	WaypointIndex   int

	Disarm         bool
	Status         *Status
	ClearSoftFence bool
}

func (o Output) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("mode", o.Mode.String()),
		slog.Bool("mission_active", o.MissionActive),
		slog.Int("waypoint", o.WaypointIndex),
	}
	if o.FailsafeEngaged {
		attrs = append(attrs, slog.String("failsafe", o.Failsafe.String()))
	}
	if o.Setpoint != nil {
		attrs = append(attrs, slog.Group("setpoint",
			slog.Any("position", o.Setpoint.Position),
			slog.String("phase", o.Setpoint.Phase.String()),
			slog.String("source", o.Setpoint.Source.String())))
	}
	if o.Disarm {
		attrs = append(attrs, slog.Bool("disarm", true))
	}
	if o.Status != nil {
		attrs = append(attrs, slog.String("status", o.Status.String()))
	}
	if o.ClearSoftFence {
		attrs = append(attrs, slog.Bool("clear_soft_fence", true))
	}
	return slog.GroupValue(attrs...)
}

// cycle holds the inputs and pending results of a single Update.
type cycle struct {
	in     Inputs
	now    time.Time
	goal   nav.Waypoint
	source TargetSource
	out    Output
}

func (c *cycle) setGoal(wp nav.Waypoint, src TargetSource) {
	c.goal, c.source = wp, src
}

func (c *cycle) clearGoal() {
	c.goal, c.source = nav.Waypoint{}, SourceNone
}

func (c *cycle) requestStatus(s Status) {
	c.out.Status = &s
}

func New(cfg Config, store MissionStore, events *EventStream, lg *log.Logger) (*Planner, error) {
	var e util.ErrorLogger
	cfg.Validate(&e)
	if err := e.Err(ErrInvalidConfig); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrNoMission
	}

	return &Planner{
		cfg:    cfg,
		store:  store,
		events: events,
		lg:     lg,
		ctx:    newNavigationContext(&cfg),
	}, nil
}

// Update runs one control cycle. The inputs are sampled by the caller and
// are not modified.
func (p *Planner) Update(in Inputs, now time.Time) Output {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	ctx := &p.ctx
	p.health = in.Health

	c := &cycle{in: in, now: now}
	if ctx.HasGoal {
		c.setGoal(ctx.Goal, ctx.Source)
	}

	switch in.Status {
	case StatusStandby:
		p.setMode(c, ModeOnGround)
		ctx.Failsafe.Reset()
		ctx.MissionActive = false
		ctx.Landing = LandingDescentToSmallAltitude
		ctx.HoldSet = false
		c.clearGoal()

	case StatusActive:
		ctx.Failsafe.Reset()
		next := ModeOnGround
		if ctx.Mode >= 0 && ctx.Mode < NumFlightModes {
			next = modeHandlers[ctx.Mode](p, c)
		} else {
			c.clearGoal()
		}
		p.setMode(c, next)

	case StatusCritical:
		// On the ground or under manual control there is nothing better to
		// do than stay put.
		if in.Mode.IsGuided() && (ctx.Mode == ModeNavigating || ctx.Mode == ModeLanding) {
			p.runFailsafe(c)
		}

	default:
		p.setMode(c, ModeOnGround)
		c.clearGoal()
	}

	p.advanceWatchdog(now)
	ctx.LastControl = in.Mode

	p.track(c)

	return p.output(c)
}

func (p *Planner) setMode(c *cycle, m FlightMode) {
	ctx := &p.ctx
	if m == ctx.Mode {
		return
	}

	nav.NavLog(c.now, nav.NavLogMode, "%s -> %s", ctx.Mode, m)
	p.lg.Info("flight mode change", slog.String("from", ctx.Mode.String()), slog.String("to", m.String()))

	ctx.Mode = m
	ctx.Dwelling = false
	p.events.Post(Event{Type: ModeChangedEvent, Time: c.now, Mode: m})
}

// setHold makes wp the loiter target for the hold modes.
func (p *Planner) setHold(c *cycle, wp nav.Waypoint) {
	p.ctx.Hold, p.ctx.HoldSet = wp, true
	c.setGoal(wp, SourceHold)
}

func (p *Planner) holdHere(c *cycle) {
	p.setHold(c, nav.HoldWaypoint(c.in.State.Position, c.in.State.Yaw, p.cfg.MinimalRadius))
}

// stop replaces the goal with a hold that keeps the vehicle close to what
// it is doing now; the transit phase is carried over to the hold.
func (p *Planner) stop(c *cycle) {
	ctx := &p.ctx

	var hold nav.Waypoint
	if ctx.HasGoal {
		hold = ctx.Transit.HoldFrom(ctx.Goal, c.in.State, c.now)
	} else {
		ctx.Transit.Reset()
		hold = nav.HoldWaypoint(c.in.State.Position, c.in.State.Yaw, p.cfg.MinimalRadius)
	}
	p.setHold(c, hold)

	ctx.Goal, ctx.Source, ctx.HasGoal = hold, SourceHold, true
}

func (p *Planner) runFailsafe(c *cycle) {
	ctx := &p.ctx
	prev, engaged := ctx.Failsafe.State, ctx.Failsafe.Engaged

	r := ctx.Failsafe.Update(&p.cfg, c.in, &ctx.AltitudeLPF, c.now)
	if !engaged {
		p.lg.Warn("failsafe engaged", slog.Any("health", c.in.Health), slog.Any("failsafe", &ctx.Failsafe))
	}
	c.setGoal(r.Target, SourceFailsafe)

	switch {
	case r.Landed:
		p.lg.Warn("failsafe landing complete", slog.Any("position", c.in.State.Position))
		c.clearGoal()
		c.out.Disarm = true
		c.requestStatus(StatusEmergency)
		ctx.MissionActive = false
		p.setMode(c, ModeOnGround)
		p.events.Post(Event{Type: DisarmRequestedEvent, Time: c.now, Text: "failsafe landing complete"})

	case r.FenceHold:
		p.lg.Warn("soft fence breached returning home; holding", slog.Any("position", c.in.State.Position))
		p.stop(c)
		p.setMode(c, ModeStopOnPosition)
		c.out.ClearSoftFence = true
		c.requestStatus(StatusActive)
		p.events.Post(Event{Type: StatusMessageEvent, Time: c.now, Text: "soft fence breach: holding position"})

	default:
		if !engaged || ctx.Failsafe.State != prev {
			p.events.Post(Event{Type: FailsafeChangedEvent, Time: c.now, Failsafe: ctx.Failsafe.State})
		}
	}
}

// advanceWatchdog forgets the last accepted advance command once its
// duplicate-suppression window has passed.
func (p *Planner) advanceWatchdog(now time.Time) {
	if !p.lastAdvance.IsZero() && now.Sub(p.lastAdvance) > p.cfg.AdvanceWindow() {
		nav.NavLog(now, nav.NavLogCommand, "advance window expired")
		p.lastAdvance = time.Time{}
	}
}

// track resolves the cycle's goal into the navigation context and runs
// the transit state machine on it. A new goal, or the same one from a
// different source, restarts the transit.
func (p *Planner) track(c *cycle) {
	ctx := &p.ctx

	if c.source == SourceNone {
		if ctx.HasGoal {
			ctx.Transit.Reset()
		}
		ctx.Goal, ctx.Source, ctx.HasGoal = nav.Waypoint{}, SourceNone, false
		return
	}

	if !ctx.HasGoal || c.source != ctx.Source || !c.goal.SameTarget(ctx.Goal) {
		nav.NavLog(c.now, nav.NavLogMission, "new %s goal %s", c.source, c.goal)
		ctx.Transit.Reset()
	}

	var missionRadius float32
	if ctx.MissionActive {
		if wp, ok := p.store.Current(); ok {
			missionRadius = wp.Radius
		}
	}

	initializing := ctx.Transit.Phase == nav.PhaseInit
	ctx.Goal = ctx.Transit.Update(c.goal, c.in.State, missionRadius, c.now)
	ctx.Source, ctx.HasGoal = c.source, true

	if initializing {
		nav.LogCurve(c.now, ctx.Goal)
	}
}

func (p *Planner) output(c *cycle) Output {
	ctx := &p.ctx

	out := c.out
	out.Mode = ctx.Mode
	out.Failsafe = ctx.Failsafe.State
	out.FailsafeEngaged = ctx.Failsafe.Engaged
	out.MissionActive = ctx.MissionActive
	out.WaypointIndex = p.store.CurrentIndex()

	if ctx.HasGoal {
		out.Setpoint = &Setpoint{
			Position: ctx.Goal.Position,
			Heading:  ctx.Goal.Heading,
			Course:   math.NormalizeAngle(ctx.Transit.Course(c.in.State)),
			Phase:    ctx.Transit.Phase,
			Curve:    ctx.Goal.Curve,
			Source:   ctx.Source,
		}
	}

	return out
}

func (p *Planner) postMissionCurrent(now time.Time, idx int) {
	nav.NavLog(now, nav.NavLogMission, "mission %d current waypoint %d", p.store.MissionID(), idx)
	p.events.Post(Event{
		Type:          MissionCurrentEvent,
		Time:          now,
		MissionID:     p.store.MissionID(),
		WaypointIndex: idx,
	})
}

// Snapshot returns a copy of the navigation context.
func (p *Planner) Snapshot() NavigationContext {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	return p.ctx.Snapshot()
}

func (p *Planner) Origin() Origin {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	return p.origin
}

func (p *Planner) Config() Config {
	return p.cfg
}
