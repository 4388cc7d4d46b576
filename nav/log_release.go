//go:build !navlog

// nav/log_release.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"time"
)

// InitNavLog is a no-op in release builds
func InitNavLog(enabled bool, categories string) {}

// NavLog is a no-op in release builds
func NavLog(now time.Time, category string, format string, args ...any) {}

// NavLogEnabled always returns false in release builds
func NavLogEnabled(category string) bool { return false }

// LogCurve is a no-op in release builds
func LogCurve(now time.Time, wp Waypoint) {}
