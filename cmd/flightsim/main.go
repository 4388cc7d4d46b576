// cmd/flightsim/main.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// flightsim flies a mission with the navigation planner in the loop: a
// point-mass vehicle follows the planner's setpoints while a simulated
// ground station sends it commands and a fault may be injected along the
// way.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/mavcore/autopilot/command"
	"github.com/mavcore/autopilot/log"
	"github.com/mavcore/autopilot/mission"
	"github.com/mavcore/autopilot/nav"
	"github.com/mavcore/autopilot/planner"

	"github.com/goforj/godump"
	"golang.org/x/sync/errgroup"
)

var (
	configFile       = flag.String("config", "", "JSON file with the planner configuration")
	missionFile      = flag.String("mission", "", "mission file (.msgpack.zst); a built-in square pattern is flown if not given")
	writeMission     = flag.String("write-mission", "", "save the built-in mission to this file and exit")
	logLevel         = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir           = flag.String("logdir", "", "log file directory")
	duration         = flag.Duration("duration", 10*time.Minute, "simulated flight time")
	rate             = flag.Int("rate", 20, "control cycles per second")
	seed             = flag.Int64("seed", 0, "random seed for the wind (0: time-based)")
	faultName        = flag.String("fault", "", "fault to inject: battery, link, fence, softfence, localization, critical")
	faultAt          = flag.Duration("fault-at", 90*time.Second, "simulated time at which the fault is injected")
	recordFile       = flag.String("record", "", "write telemetry to this file (.msgpack.zst)")
	replayFile       = flag.String("replay", "", "print the mode changes in a telemetry recording and exit")
	dump             = flag.Bool("dump", false, "dump the final navigation context and the last telemetry frames")
	navLog           = flag.Bool("navlog", false, "enable navigation logging (requires the navlog build tag)")
	navLogCategories = flag.String("navlog-categories", "all", "navigation log categories (comma-separated: transit,failsafe,mode,command,mission)")
)

// Where the built-in mission is flown.
var defaultOrigin = planner.Origin{Latitude: 47.3977419, Longitude: 8.5455938, Altitude: 488}

func fatal(lg *log.Logger, format string, args ...any) {
	lg.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	flag.Parse()

	lg := log.New(false, *logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	nav.InitNavLog(*navLog, *navLogCategories)

	if *replayFile != "" {
		if err := replay(*replayFile); err != nil {
			fatal(lg, "%s: %v", *replayFile, err)
		}
		return
	}
	if *writeMission != "" {
		if err := saveMission(*writeMission, defaultMission()); err != nil {
			fatal(lg, "%s: %v", *writeMission, err)
		}
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fatal(lg, "%s: %v", *configFile, err)
	}
	plan := defaultMission()
	if *missionFile != "" {
		if plan, err = loadMission(*missionFile); err != nil {
			fatal(lg, "%s: %v", *missionFile, err)
		}
	}
	flt, err := parseFault(*faultName)
	if err != nil {
		fatal(lg, "%v", err)
	}
	if *rate <= 0 {
		fatal(lg, "%d: rate must be positive", *rate)
	}

	s, err := newSimulation(cfg, plan, lg)
	if err != nil {
		fatal(lg, "%v", err)
	}
	defer s.events.Destroy()

	rec, err := newRecorder(*recordFile, 100)
	if err != nil {
		fatal(lg, "%s: %v", *recordFile, err)
	}
	s.rec = rec
	s.fault, s.faultAt = flt, *faultAt

	sd := *seed
	if sd == 0 {
		sd = time.Now().UnixNano()
	}
	s.v = newVehicle(sd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	runErr := s.run(ctx, *duration, time.Second/time.Duration(*rate))
	if err := rec.Close(); err != nil {
		lg.Errorf("%s: %v", *recordFile, err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fatal(lg, "%v", runErr)
	}

	snap := s.p.Snapshot()
	fmt.Printf("%d cycles, final mode %s, vehicle at (%.1f, %.1f, %.1f), battery %.0f%%\n", rec.n,
		snap.Mode, s.v.state.Position[0], s.v.state.Position[1], s.v.state.Position[2], s.v.battery)

	if *dump {
		godump.Dump(snap)
		godump.Dump(rec.recent.Slice())
	}
}

func loadConfig(path string) (planner.Config, error) {
	if path == "" {
		return planner.DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return planner.Config{}, err
	}
	defer f.Close()
	return planner.LoadConfig(f)
}

func loadMission(path string) (*mission.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return mission.Load(f)
}

func saveMission(path string, p *mission.Plan) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// defaultMission is a square with the vehicle waiting at the first and
// last corners before landing back where it started.
func defaultMission() *mission.Plan {
	return mission.NewPlan(1, []nav.Waypoint{
		{Position: [3]float32{0, 0, -15}, Radius: 20},
		{Position: [3]float32{150, 0, -20}, Radius: 20, LoiterTime: 5, Autocontinue: true},
		{Position: [3]float32{150, 150, -20}, Radius: -25, Autocontinue: true},
		{Position: [3]float32{0, 150, -15}, Radius: 20},
		{Position: [3]float32{0, 0, -15}, Radius: 20, Command: nav.CommandLand},
	})
}

func replay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	frames, err := readFrames(f)
	for _, line := range summarize(frames) {
		fmt.Println(line)
	}
	return err
}

// summarize returns a line for each change of mode, failsafe state or
// waypoint in the recording.
func summarize(frames []frame) []string {
	var lines []string
	var prev frame
	for i, fr := range frames {
		if i == 0 || fr.Mode != prev.Mode || fr.Failsafe != prev.Failsafe || fr.Waypoint != prev.Waypoint {
			s := fmt.Sprintf("%8.2fs %-16s waypoint %d", fr.T, fr.Mode, fr.Waypoint)
			if fr.Failsafe != "" {
				s += " failsafe " + fr.Failsafe
			}
			lines = append(lines, s)
		}
		prev = fr
	}
	return lines
}

///////////////////////////////////////////////////////////////////////////
// simulation

type simulation struct {
	p      *planner.Planner
	router *command.Router
	events *planner.EventStream
	cfg    planner.Config
	v      *vehicle
	rec    *recorder
	lg     *log.Logger

	fault   fault
	faultAt time.Duration
}

func newSimulation(cfg planner.Config, plan *mission.Plan, lg *log.Logger) (*simulation, error) {
	events := planner.NewEventStream(lg)
	p, err := planner.New(cfg, plan, events, lg)
	if err != nil {
		events.Destroy()
		return nil, err
	}

	router := command.NewRouter(lg)
	if err := router.Register(p.CommandRoutes()...); err != nil {
		events.Destroy()
		return nil, err
	}

	return &simulation{p: p, router: router, events: events, cfg: cfg, lg: lg}, nil
}

// tick is handed from the flight loop to the ground station after each
// cycle; the flight loop waits for the ground station before moving on.
type tick struct {
	now     time.Time
	elapsed time.Duration
	out     planner.Output
}

// run flies until the duration has elapsed or the vehicle has landed and
// disarmed. Simulated time runs as fast as the host allows.
func (s *simulation) run(ctx context.Context, d, dt time.Duration) error {
	ticks := make(chan tick)
	ack := make(chan struct{})

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return s.fly(ctx, d, dt, ticks, ack) })
	eg.Go(func() error { return s.groundStation(ctx, ticks, ack) })
	return eg.Wait()
}

func (s *simulation) fly(ctx context.Context, d, dt time.Duration, ticks chan<- tick, ack <-chan struct{}) error {
	defer close(ticks)

	start := time.Now()
	wasArmed := false
	injected := false

	for elapsed := time.Duration(0); elapsed <= d; elapsed += dt {
		now := start.Add(elapsed)

		// The pilot arms and selects auto after a second on the ground.
		if !wasArmed && elapsed >= time.Second {
			s.v.armed = true
			s.v.status = planner.StatusActive
			s.v.control = planner.ControlGPSNavigation
			s.lg.Info("armed", slog.String("control", s.v.control.String()))
		}
		wasArmed = wasArmed || s.v.armed

		if s.fault != faultNone && !injected && elapsed >= s.faultAt {
			s.v.inject(s.fault)
			injected = true
			s.lg.Warn("fault injected", slog.String("fault", s.fault.String()), slog.Any("health", s.v.health))
			fmt.Printf("%8.2fs fault injected: %s\n", elapsed.Seconds(), s.fault)
		}

		out := s.p.Update(s.v.inputs(), now)
		s.v.apply(out)
		if err := s.rec.add(makeFrame(elapsed.Seconds(), s.v, out)); err != nil {
			return err
		}

		select {
		case ticks <- tick{now: now, elapsed: elapsed, out: out}:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case <-ack:
		case <-ctx.Done():
			return ctx.Err()
		}

		s.v.step(out.Setpoint, float32(dt.Seconds()))

		if wasArmed && !s.v.armed && s.v.onGround() {
			s.lg.Info("landed and disarmed", slog.Duration("elapsed", elapsed))
			return nil
		}
	}
	return nil
}

// groundStation reports the planner's events and sends the commands a
// ground station operator would: the reference origin before flight and
// an advance whenever the vehicle is waiting at a waypoint.
func (s *simulation) groundStation(ctx context.Context, ticks <-chan tick, ack chan<- struct{}) error {
	sub := s.events.Subscribe()
	defer sub.Unsubscribe()

	originSent := false
	var lastTry time.Time

	for tk := range ticks {
		for _, e := range sub.Get() {
			fmt.Printf("%8.2fs %s\n", tk.elapsed.Seconds(), e.String())
			s.lg.Info("event", slog.Any("event", e))
		}

		if !originSent {
			req := command.Request{
				ID:           planner.MsgSetGPSGlobalOrigin,
				SourceSystem: s.cfg.GroundStationID,
				TargetSystem: s.cfg.SystemID,
				Params:       [7]float64{defaultOrigin.Latitude, defaultOrigin.Longitude, float64(defaultOrigin.Altitude)},
			}
			if r := s.router.Dispatch(req, tk.now); r != command.ResultAccepted {
				return fmt.Errorf("set origin: %s", r)
			}
			originSent = true
		}

		if tk.out.Mode == planner.ModeNavigating && !tk.out.MissionActive && tk.now.Sub(lastTry) >= time.Second {
			lastTry = tk.now
			s.advanceIfWaiting(tk)
		}

		select {
		case ack <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *simulation) advanceIfWaiting(tk tick) {
	confirm := command.Request{
		ID:              planner.CmdConditionDistance,
		SourceSystem:    s.cfg.GroundStationID,
		TargetSystem:    s.cfg.SystemID,
		TargetComponent: s.cfg.ComponentID,
		Params:          [7]float64{0, float64(s.cfg.ConfirmationCode)},
	}
	if r := s.router.Dispatch(confirm, tk.now); r != command.ResultAccepted {
		return
	}

	advance := confirm
	advance.ID = planner.CmdMissionStart
	advance.Params = [7]float64{}
	r := s.router.Dispatch(advance, tk.now)
	s.lg.Info("advance sent", slog.String("result", r.String()))
}
