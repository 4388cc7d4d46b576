// cmd/flightsim/vehicle.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"fmt"
	"strings"

	"github.com/mavcore/autopilot/math"
	"github.com/mavcore/autopilot/nav"
	"github.com/mavcore/autopilot/planner"
	"github.com/mavcore/autopilot/rand"
)

const (
	cruiseSpeed    = 8    // m/s
	maxClimbRate   = 3    // m/s
	altitudeGain   = 0.8  // 1/s
	nearTarget     = 5    // m
	windStddev     = 0.15 // m/s
	batteryDrain   = 0.08 // percent per second
	batteryLowPct  = 20
	batteryCritPct = 8
)

// vehicle is a point mass that flies toward the planner's setpoint along
// the commanded course. It stands in for the vehicle state manager too:
// arming, control mode, status and health.
type vehicle struct {
	state   nav.Kinematics
	armed   bool
	control planner.ControlMode
	status  planner.Status
	health  planner.Health
	battery float32 // percent

	r rand.Rand
}

func newVehicle(seed int64) *vehicle {
	return &vehicle{
		control: planner.ControlManual,
		status:  planner.StatusStandby,
		health:  planner.Health{LocalizationHealthy: true},
		battery: 100,
		r:       rand.Make(seed),
	}
}

func (v *vehicle) inputs() planner.Inputs {
	h := v.health
	h.Armed = v.armed
	return planner.Inputs{Status: v.status, Mode: v.control, Health: h, State: v.state}
}

func (v *vehicle) onGround() bool {
	return v.state.Position[2] >= 0
}

// apply carries out the requests in the planner's output.
func (v *vehicle) apply(out planner.Output) {
	if out.Disarm {
		v.armed = false
	}
	if out.Status != nil {
		v.status = *out.Status
	}
	if out.ClearSoftFence {
		v.health.SoftFenceBreach = false
	}
}

// step advances the vehicle by dt seconds.
func (v *vehicle) step(sp *planner.Setpoint, dt float32) {
	v.battery = max(0, v.battery-batteryDrain*dt)
	v.health.BatteryLow = v.health.BatteryLow || v.battery < batteryLowPct
	v.health.BatteryCritical = v.health.BatteryCritical || v.battery < batteryCritPct

	// The status manager escalates; the planner asks for the way back.
	if v.status == planner.StatusActive && (v.health.Degraded() || v.health.BatteryCritical) {
		v.status = planner.StatusCritical
	}

	if !v.armed || sp == nil {
		v.state.Velocity = [3]float32{}
		return
	}

	pos := v.state.Position
	var hvel [2]float32
	switch {
	case sp.Source != planner.SourceMission && math.Distance2f(math.XY(sp.Position), math.XY(pos)) < nearTarget:
		// The position controller takes over close to hold and failsafe
		// targets.
		hvel = v.approach(sp.Position)
	case sp.Phase == nav.PhaseEntryArc || sp.Phase == nav.PhaseStraight:
		hvel = math.Scale2f(math.Unit2f(sp.Course), cruiseSpeed)
	default:
		// Multicopter loiter: hover over the target.
		hvel = v.approach(sp.Position)
	}
	hvel[0] += v.r.Normal(0, windStddev)
	hvel[1] += v.r.Normal(0, windStddev)

	vz := math.Clamp((sp.Position[2]-pos[2])*altitudeGain, -maxClimbRate, maxClimbRate)
	vel := math.XYZ(hvel, vz)

	pos = math.Add3f(pos, math.Scale3f(vel, dt))
	if pos[2] > 0 {
		// The ground.
		pos[2], vel[2] = 0, 0
		vel[0], vel[1] = 0, 0
	}

	v.state.Position = pos
	v.state.Velocity = vel
	if math.LengthSqr2f(math.XY(vel)) > 0.25 {
		v.state.Yaw = math.Angle2f(math.XY(vel))
	}
}

// approach returns the horizontal velocity that takes the vehicle to
// target, slowing down over the last few meters.
func (v *vehicle) approach(target [3]float32) [2]float32 {
	d := math.Sub2f(math.XY(target), math.XY(v.state.Position))
	dist := math.Length2f(d)
	if dist < 0.2 {
		return [2]float32{}
	}
	return math.Scale2f(math.Normalize2f(d), min(cruiseSpeed, dist))
}

type fault int

const (
	faultNone fault = iota
	faultBattery
	faultLink
	faultFence
	faultSoftFence
	faultLocalization
	faultCritical
)

var faultNames = map[string]fault{
	"":             faultNone,
	"none":         faultNone,
	"battery":      faultBattery,
	"link":         faultLink,
	"fence":        faultFence,
	"softfence":    faultSoftFence,
	"localization": faultLocalization,
	"critical":     faultCritical,
}

func (f fault) String() string {
	for name, ff := range faultNames {
		if ff == f && name != "" {
			return name
		}
	}
	return fmt.Sprintf("fault(%d)", int(f))
}

func parseFault(s string) (fault, error) {
	if f, ok := faultNames[strings.ToLower(s)]; ok {
		return f, nil
	}
	return faultNone, fmt.Errorf("%s: unknown fault", s)
}

// inject applies the fault to the vehicle's health.
func (v *vehicle) inject(f fault) {
	switch f {
	case faultBattery:
		v.battery = min(v.battery, batteryLowPct-1)
		v.health.BatteryLow = true
	case faultLink:
		v.health.LinkLost = true
	case faultFence:
		v.health.HardFenceBreach = true
	case faultSoftFence:
		// Only matters once the return home has started.
		v.health.LinkLost = true
		v.health.SoftFenceBreach = true
	case faultLocalization:
		v.health.LocalizationHealthy = false
	case faultCritical:
		v.battery = min(v.battery, batteryCritPct-1)
		v.health.BatteryCritical = true
	}
}
