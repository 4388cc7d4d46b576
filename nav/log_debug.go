//go:build navlog

// nav/log_debug.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Navigation trace configuration. The command handlers may log from
// other goroutines than the control cycle, hence the mutex.
var (
	navlogMu         sync.Mutex
	navlogEnabled    bool
	navlogCategories map[string]bool
	navlogStart      time.Time
)

// InitNavLog initializes the navigation trace. categories is a comma
// separated list; empty or "all" enables everything.
func InitNavLog(enabled bool, categories string) {
	navlogMu.Lock()
	defer navlogMu.Unlock()

	navlogEnabled = enabled
	navlogCategories = make(map[string]bool)
	navlogStart = time.Time{}

	if !enabled {
		return
	}

	if categories == "" || categories == "all" {
		for _, cat := range navLogCategories {
			navlogCategories[cat] = true
		}
	} else {
		for _, cat := range strings.Split(categories, ",") {
			navlogCategories[strings.TrimSpace(cat)] = true
		}
	}
}

// NavLog prints a message with the elapsed time since the first logged
// message and the category.
func NavLog(now time.Time, category string, format string, args ...any) {
	navlogMu.Lock()
	defer navlogMu.Unlock()

	if !navlogEnabled || !navlogCategories[category] {
		return
	}
	if navlogStart.IsZero() {
		navlogStart = now
	}

	// Format: [+SSSS.sss] [category] message
	elapsed := now.Sub(navlogStart).Seconds()
	fmt.Printf("[+%9.3f] [%s] %s\n", elapsed, category, fmt.Sprintf(format, args...))
}

// NavLogEnabled returns whether navigation logging is enabled for a given category
func NavLogEnabled(category string) bool {
	navlogMu.Lock()
	defer navlogMu.Unlock()
	return navlogEnabled && navlogCategories[category]
}

// LogCurve logs the geometry of the curve attached to a waypoint.
func LogCurve(now time.Time, wp Waypoint) {
	if !NavLogEnabled(NavLogTransit) {
		return
	}
	c := wp.Curve
	NavLog(now, NavLogTransit, "curve to %s: entry c=(%.1f,%.1f) r=%.1f s=%+.0f t=(%.1f,%.1f) "+
		"line %.1f -> exit t=(%.1f,%.1f) c=(%.1f,%.1f) r=%.1f s=%+.0f", wp,
		c.EntryCenter[0], c.EntryCenter[1], c.EntryRadius, c.EntrySense, c.EntryTangent[0], c.EntryTangent[1],
		c.LineLength, c.ExitTangent[0], c.ExitTangent[1], c.ExitCenter[0], c.ExitCenter[1], c.ExitRadius, c.ExitSense)
}
