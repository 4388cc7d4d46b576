// planner/vehicle.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"fmt"
	"log/slog"

	"github.com/mavcore/autopilot/nav"
)

// Status is the overall vehicle status, owned by the vehicle state
// manager. The values follow the MAVLink MAV_STATE enumeration.
type Status int

const (
	StatusUninit Status = iota
	StatusBoot
	StatusCalibrating
	StatusStandby
	StatusActive
	StatusCritical
	StatusEmergency
	StatusPoweroff
)

func (s Status) String() string {
	switch s {
	case StatusUninit:
		return "UNINIT"
	case StatusBoot:
		return "BOOT"
	case StatusCalibrating:
		return "CALIBRATING"
	case StatusStandby:
		return "STANDBY"
	case StatusActive:
		return "ACTIVE"
	case StatusCritical:
		return "CRITICAL"
	case StatusEmergency:
		return "EMERGENCY"
	case StatusPoweroff:
		return "POWEROFF"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ControlMode is the pilot-selected control mode.
type ControlMode int

const (
	ControlManual ControlMode = iota
	ControlAttitude
	ControlVelocity
	ControlPositionHold
	ControlGPSNavigation
)

func (m ControlMode) String() string {
	switch m {
	case ControlManual:
		return "manual"
	case ControlAttitude:
		return "attitude"
	case ControlVelocity:
		return "velocity"
	case ControlPositionHold:
		return "position-hold"
	case ControlGPSNavigation:
		return "gps-navigation"
	default:
		return fmt.Sprintf("ControlMode(%d)", int(m))
	}
}

// IsGuided reports whether the planner's setpoints are being followed.
func (m ControlMode) IsGuided() bool {
	return m == ControlVelocity || m == ControlPositionHold || m == ControlGPSNavigation
}

// IsAuto reports whether the vehicle should fly the mission.
func (m ControlMode) IsAuto() bool {
	return m == ControlGPSNavigation
}

// Health is the vehicle health snapshot sampled at the start of a cycle.
type Health struct {
	Armed               bool
	BatteryLow          bool
	BatteryCritical     bool
	LinkLost            bool
	SoftFenceBreach     bool
	HardFenceBreach     bool
	LocalizationHealthy bool
}

// Degraded reports whether any of the conditions that start the return
// home sequence hold.
func (h Health) Degraded() bool {
	return h.BatteryLow || h.LinkLost || h.HardFenceBreach || !h.LocalizationHealthy
}

func (h Health) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("armed", h.Armed),
		slog.Bool("battery_low", h.BatteryLow),
		slog.Bool("battery_critical", h.BatteryCritical),
		slog.Bool("link_lost", h.LinkLost),
		slog.Bool("soft_fence_breach", h.SoftFenceBreach),
		slog.Bool("hard_fence_breach", h.HardFenceBreach),
		slog.Bool("localization_healthy", h.LocalizationHealthy))
}

// Inputs are sampled once at the start of a cycle and are not modified
// during it.
type Inputs struct {
	Status Status
	Mode   ControlMode
	Health Health
	State  nav.Kinematics
}

// MissionStore is the mission waypoint list and cursor.
type MissionStore interface {
	MissionID() uint32
	Count() int
	CurrentIndex() int
	Current() (nav.Waypoint, bool)
	Advance() int
}
