// planner/errors.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import "errors"

var (
	ErrInvalidConfig = errors.New("Invalid planner configuration")
	ErrNoMission     = errors.New("No mission store")
)
