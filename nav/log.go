// nav/log.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

// Available logging categories
const (
	NavLogTransit  = "transit"
	NavLogFailsafe = "failsafe"
	NavLogMode     = "mode"
	NavLogCommand  = "command"
	NavLogMission  = "mission"
)

var navLogCategories = []string{NavLogTransit, NavLogFailsafe, NavLogMode, NavLogCommand, NavLogMission}
