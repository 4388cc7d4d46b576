// log/race.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build race

package log

// RaceEnabled is set when built with the race detector, which slows
// everything down enough that timing-based warnings need more slack.
const RaceEnabled = true
