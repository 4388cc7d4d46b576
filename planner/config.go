// planner/config.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/mavcore/autopilot/util"
)

// Config holds the vehicle constraints and tuning used by the planner.
// Distances are meters in the local NED frame; z grows downward.
type Config struct {
	MinimalRadius     float32 `json:"minimal_radius"`
	HeadingAcceptance float32 `json:"heading_acceptance"` // radians

	SafeAltitude         float32 `json:"safe_altitude"` // height above origin, positive
	FailsafeAcceptanceSq float32 `json:"failsafe_acceptance_sq"`
	LandingTargetZ       float32 `json:"landing_target_z"` // below ground, so the vehicle keeps descending
	LandedAltitude       float32 `json:"landed_altitude"`
	LandedDeviation      float32 `json:"landed_deviation"`
	AltitudeLPFGain      float32 `json:"altitude_lpf_gain"`

	TakeoffAltitude      float32 `json:"takeoff_altitude"`
	TakeoffAcceptance    float32 `json:"takeoff_acceptance"`
	LandingSmallAltitude float32 `json:"landing_small_altitude"`
	LandingAcceptanceSq  float32 `json:"landing_acceptance_sq"`

	AdvanceWindowMs  int     `json:"advance_window_ms"`
	ConfirmationCode float32 `json:"confirmation_code"`

	SystemID        uint8 `json:"system_id"`
	ComponentID     uint8 `json:"component_id"`
	GroundStationID uint8 `json:"ground_station_id"`
}

func DefaultConfig() Config {
	return Config{
		MinimalRadius:        20,
		HeadingAcceptance:    0.35,
		SafeAltitude:         30,
		FailsafeAcceptanceSq: 3,
		LandingTargetZ:       5,
		LandedAltitude:       -0.1,
		LandedDeviation:      0.2,
		AltitudeLPFGain:      0.9,
		TakeoffAltitude:      10,
		TakeoffAcceptance:    1,
		LandingSmallAltitude: 5,
		LandingAcceptanceSq:  3,
		AdvanceWindowMs:      5000,
		ConfirmationCode:     32,
		SystemID:             1,
		ComponentID:          190,
		GroundStationID:      255,
	}
}

func (c *Config) AdvanceWindow() time.Duration {
	return time.Duration(c.AdvanceWindowMs) * time.Millisecond
}

// Validate logs all problems with the configuration to e.
func (c *Config) Validate(e *util.ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	e.Push("config")
	defer e.Pop()

	positive := func(name string, v float32) {
		if !(v > 0) {
			e.ErrorString("%s must be positive, got %g", name, v)
		}
	}
	positive("minimal_radius", c.MinimalRadius)
	positive("heading_acceptance", c.HeadingAcceptance)
	positive("safe_altitude", c.SafeAltitude)
	positive("failsafe_acceptance_sq", c.FailsafeAcceptanceSq)
	positive("landed_deviation", c.LandedDeviation)
	positive("takeoff_altitude", c.TakeoffAltitude)
	positive("takeoff_acceptance", c.TakeoffAcceptance)
	positive("landing_small_altitude", c.LandingSmallAltitude)
	positive("landing_acceptance_sq", c.LandingAcceptanceSq)

	if c.HeadingAcceptance > 3.1416 {
		e.ErrorString("heading_acceptance %g is more than pi radians", c.HeadingAcceptance)
	}
	if c.LandingTargetZ <= c.LandedAltitude {
		e.ErrorString("landing_target_z %g must be below landed_altitude %g", c.LandingTargetZ, c.LandedAltitude)
	}
	if c.AltitudeLPFGain < 0 || c.AltitudeLPFGain >= 1 {
		e.ErrorString("altitude_lpf_gain must be in [0, 1), got %g", c.AltitudeLPFGain)
	}
	if c.AdvanceWindowMs < 0 {
		e.ErrorString("advance_window_ms must not be negative, got %d", c.AdvanceWindowMs)
	}
	if c.SystemID == 0 {
		e.ErrorString("system_id must be non-zero")
	}
}

// LoadConfig reads a JSON configuration. Settings not given keep their
// default values; unknown keys and type mismatches are reported as errors.
func LoadConfig(r io.Reader) (Config, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}

	var e util.ErrorLogger
	util.CheckJSON[Config](contents, &e)
	if e.HaveErrors() {
		return Config{}, e.Err(ErrInvalidConfig)
	}

	c := DefaultConfig()
	if err := util.UnmarshalJSON(bytes.NewReader(contents), &c); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c.Validate(&e)
	if err := e.Err(ErrInvalidConfig); err != nil {
		return Config{}, err
	}
	return c, nil
}
