// planner/failsafe_test.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"slices"
	"testing"
	"time"

	"github.com/mavcore/autopilot/math"
	"github.com/mavcore/autopilot/nav"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func criticalInputs(h Health, pos [3]float32) Inputs {
	return Inputs{
		Status: StatusCritical,
		Mode:   ControlGPSNavigation,
		Health: h,
		State:  nav.Kinematics{Position: pos},
	}
}

// flyFailsafe runs the failsafe with a vehicle that reaches each target by
// the next cycle, though never below ground. It returns the states visited
// in order and the cycle on which the vehicle landed, or -1.
func flyFailsafe(t *testing.T, h Health, pos [3]float32) ([]FailsafeState, int) {
	t.Helper()

	cfg := DefaultConfig()
	var f Failsafe
	var lpf float32
	var visited []FailsafeState

	for i := range 500 {
		r := f.Update(&cfg, criticalInputs(h, pos), &lpf, t0.Add(time.Duration(i)*time.Second))
		if r.Landed {
			if pos[2] <= cfg.LandedAltitude {
				t.Errorf("landed at z %f", pos[2])
			}
			if f.State != FailsafeClimb || f.Engaged {
				t.Errorf("failsafe not reset after landing: %+v", f)
			}
			return visited, i
		}
		if r.FenceHold {
			visited = append(visited, f.State)
			return visited, -1
		}
		if len(visited) == 0 || visited[len(visited)-1] != f.State {
			visited = append(visited, f.State)
		}

		pos = r.Target.Position
		pos[2] = min(pos[2], 0)
	}
	return visited, -1
}

func TestFailsafeSequence(t *testing.T) {
	expected := []FailsafeState{FailsafeClimb, FailsafeFlyHome, FailsafeHomeLand}

	for _, test := range []struct {
		name   string
		health Health
	}{
		{"battery low", Health{Armed: true, BatteryLow: true, LocalizationHealthy: true}},
		{"link lost", Health{Armed: true, LinkLost: true, LocalizationHealthy: true}},
		{"hard fence", Health{Armed: true, HardFenceBreach: true, LocalizationHealthy: true}},
		{"localization", Health{Armed: true}},
		{"everything", Health{Armed: true, BatteryLow: true, LinkLost: true, HardFenceBreach: true}},
	} {
		t.Run(test.name, func(t *testing.T) {
			visited, landed := flyFailsafe(t, test.health, [3]float32{40, -25, -12})
			if !slices.Equal(visited, expected) {
				t.Errorf("visited %v, expected %v", visited, expected)
			}
			if landed < 0 {
				t.Errorf("never landed")
			}
		})
	}
}

func TestFailsafeTargets(t *testing.T) {
	cfg := DefaultConfig()
	var f Failsafe
	var lpf float32
	h := Health{Armed: true, LinkLost: true, LocalizationHealthy: true}
	pos := [3]float32{40, -25, -12}

	r := f.Update(&cfg, criticalInputs(h, pos), &lpf, t0)
	if r.Target.Position != [3]float32{40, -25, -30} {
		t.Errorf("climb target %v", r.Target.Position)
	}
	if !f.TargetComputed {
		t.Errorf("target latch not set")
	}

	// The target is latched while the vehicle moves.
	r = f.Update(&cfg, criticalInputs(h, [3]float32{30, -20, -20}), &lpf, t0)
	if r.Target.Position != [3]float32{40, -25, -30} {
		t.Errorf("climb target recomputed: %v", r.Target.Position)
	}

	f.Update(&cfg, criticalInputs(h, [3]float32{40, -25, -30}), &lpf, t0)
	if f.State != FailsafeFlyHome || f.TargetComputed {
		t.Errorf("state %s latch %v, expected FLY_TO_HOME_WAYPOINT with the latch cleared", f.State, f.TargetComputed)
	}
	r = f.Update(&cfg, criticalInputs(h, [3]float32{40, -25, -30}), &lpf, t0)
	if r.Target.Position != [3]float32{0, 0, -30} {
		t.Errorf("home target %v", r.Target.Position)
	}

	f.Update(&cfg, criticalInputs(h, [3]float32{0.5, 0.5, -30}), &lpf, t0)
	r = f.Update(&cfg, criticalInputs(h, [3]float32{0.5, 0.5, -29}), &lpf, t0)
	if f.State != FailsafeHomeLand || r.Target.Position != [3]float32{0, 0, 5} {
		t.Errorf("state %s target %v, expected HOME_LAND to (0, 0, 5)", f.State, r.Target.Position)
	}
}

func TestFailsafeCriticalBattery(t *testing.T) {
	cfg := DefaultConfig()
	var f Failsafe
	var lpf float32
	h := Health{Armed: true, BatteryLow: true, LocalizationHealthy: true}

	f.Update(&cfg, criticalInputs(h, [3]float32{10, 10, -20}), &lpf, t0)
	f.Update(&cfg, criticalInputs(h, [3]float32{10, 10, -30}), &lpf, t0)
	if f.State != FailsafeFlyHome {
		t.Fatalf("state %s, expected FLY_TO_HOME_WAYPOINT", f.State)
	}

	h.BatteryCritical = true
	r := f.Update(&cfg, criticalInputs(h, [3]float32{8, 8, -30}), &lpf, t0)
	if f.State != FailsafeCriticalLand {
		t.Fatalf("state %s, expected CRITICAL_LAND", f.State)
	}
	if r.Target.Position != [3]float32{8, 8, 5} {
		t.Errorf("critical land target %v, expected current position at ground", r.Target.Position)
	}
	if math.Abs(lpf+30) > 1e-4 {
		t.Errorf("altitude filter %f, expected reset to current altitude", lpf)
	}

	// New triggers don't pull it back out.
	h.LinkLost = true
	f.Update(&cfg, criticalInputs(h, [3]float32{8, 8, -25}), &lpf, t0)
	if f.State != FailsafeCriticalLand {
		t.Errorf("state %s after new trigger, expected CRITICAL_LAND", f.State)
	}
}

func TestFailsafeRetrigger(t *testing.T) {
	cfg := DefaultConfig()
	var f Failsafe
	var lpf float32
	h := Health{Armed: true, BatteryLow: true, LocalizationHealthy: true}

	update := func(pos [3]float32) FailsafeResult {
		return f.Update(&cfg, criticalInputs(h, pos), &lpf, t0)
	}
	check := func(what string, r FailsafeResult, state FailsafeState, target [3]float32) {
		t.Helper()
		if f.State != state || r.Target.Position != target {
			t.Errorf("%s: state %s target %v, expected %s target %v", what, f.State, r.Target.Position, state, target)
		}
	}

	update([3]float32{0, 50, -30})
	update([3]float32{0, 50, -30})
	if f.State != FailsafeFlyHome {
		t.Fatalf("state %s, expected FLY_TO_HOME_WAYPOINT", f.State)
	}

	home := [3]float32{0, 0, -cfg.SafeAltitude}
	check("continuing trigger", update([3]float32{0, 40, -30}), FailsafeFlyHome, home)

	// One flag clears and another sets: the way home goes on.
	h.BatteryLow = false
	check("trigger cleared", update([3]float32{0, 30, -30}), FailsafeFlyHome, home)
	h.LinkLost = true
	check("new trigger", update([3]float32{0, 20, -25}), FailsafeFlyHome, home)

	update(home)
	if f.State != FailsafeHomeLand {
		t.Fatalf("state %s at home, expected HOME_LAND", f.State)
	}
	land := [3]float32{0, 0, cfg.LandingTargetZ}
	check("descending", update([3]float32{0, 0, -2}), FailsafeHomeLand, land)

	// A link flap on the way down keeps descending.
	h.LinkLost = false
	check("link restored", update([3]float32{0, 0, -2}), FailsafeHomeLand, land)
	h.LinkLost = true
	check("link lost again", update([3]float32{0, 0, -2}), FailsafeHomeLand, land)

	// Escalation is still allowed.
	h.BatteryCritical = true
	check("critical battery", update([3]float32{0, 0, -1.5}), FailsafeCriticalLand, land)
	h.BatteryCritical, h.LinkLost = false, false
	update([3]float32{0, 0, -1.5})
	h.LinkLost = true
	check("trigger after landing in place", update([3]float32{0, 0, -1.5}), FailsafeCriticalLand, land)
}

func TestFailsafeSoftFence(t *testing.T) {
	h := Health{Armed: true, BatteryLow: true, SoftFenceBreach: true, LocalizationHealthy: true}
	visited, landed := flyFailsafe(t, h, [3]float32{60, 0, -10})

	// Detour back to the start of the sequence on reaching home.
	expected := []FailsafeState{FailsafeClimb, FailsafeFlyHome, FailsafeClimb}
	if !slices.Equal(visited, expected) {
		t.Errorf("visited %v, expected %v", visited, expected)
	}
	if landed >= 0 {
		t.Errorf("landed with the soft fence breached")
	}
}

func TestLandingCriterion(t *testing.T) {
	cfg := DefaultConfig()

	for _, test := range []struct {
		z, lpf float32
		landed bool
	}{
		{z: -0.05, lpf: -0.05, landed: true},
		{z: 0, lpf: -0.15, landed: true},
		{z: -0.5, lpf: -0.5},
		{z: -0.1, lpf: -0.1},
		{z: 0, lpf: -3},
		{z: 0.3, lpf: -2.5},
	} {
		lpf := test.lpf
		if landed := updateLanding(&cfg, test.z, &lpf); landed != test.landed {
			t.Errorf("z %f lpf %f: landed %v, expected %v", test.z, test.lpf, landed, test.landed)
		}
		if expected := 0.9*test.lpf + 0.1*test.z; math.Abs(lpf-expected) > 1e-5 {
			t.Errorf("z %f lpf %f: filtered %f, expected %f", test.z, test.lpf, lpf, expected)
		}
	}
}
