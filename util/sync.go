// util/sync.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"log/slog"
	gomath "math"
	"runtime"
	"sync"
	"time"

	"github.com/mavcore/autopilot/log"

	"github.com/shirou/gopsutil/cpu"
)

///////////////////////////////////////////////////////////////////////////
// LoggingMutex

// LoggingMutex is a sync.Mutex that records where it was acquired and
// logs when it is contended or held for too long. The control cycle and
// the command handlers share one; either one stalling the other for long
// is a problem worth knowing about.
type LoggingMutex struct {
	sync.Mutex
	acq      time.Time
	acqStack []log.StackFrame

	// Thresholds for warnings; zero values select the defaults.
	WaitWarning time.Duration
	HoldWarning time.Duration
}

const (
	defaultWaitWarning = 100 * time.Millisecond
	defaultHoldWarning = 100 * time.Millisecond
	lockReportTimeout  = 5 * time.Second
)

func (l *LoggingMutex) Lock(lg *log.Logger) {
	tryTime := time.Now()

	if !l.Mutex.TryLock() {
		locked := make(chan struct{}, 1)

		go func() {
			l.Mutex.Lock()
			locked <- struct{}{}
		}()

		select {
		case <-locked:

		case <-time.After(lockReportTimeout):
			lg.Error("unable to acquire mutex", slog.Duration("timeout", lockReportTimeout),
				slog.Any("mutex", l))

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			cpuPct := 0
			if usage, err := cpu.Percent(time.Second, false); err == nil && len(usage) > 0 {
				cpuPct = int(gomath.Round(usage[0]))
			}

			lg.Errorf("CPU: %d%% alloc: %dMB sys mem: %dMB goroutines: %d",
				cpuPct, m.Alloc/(1024*1024), m.Sys/(1024*1024), runtime.NumGoroutine())

			// Keep waiting; there's nothing else sensible to do.
			<-locked
		}
	}

	l.acq = time.Now()
	l.acqStack = log.Callstack(l.acqStack)

	if w := l.acq.Sub(tryTime); w > l.waitWarning() {
		lg.Warn("long wait to acquire mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	}
}

func (l *LoggingMutex) Unlock(lg *log.Logger) {
	if d := time.Since(l.acq); !l.acq.IsZero() && d > l.holdWarning() {
		lg.Warn("mutex held too long", slog.Any("mutex", l), slog.Duration("held", d))
	}

	l.acq = time.Time{}
	l.acqStack = l.acqStack[:0]
	l.Mutex.Unlock()
}

func (l *LoggingMutex) waitWarning() time.Duration {
	return raceScaled(l.WaitWarning, defaultWaitWarning)
}

func (l *LoggingMutex) holdWarning() time.Duration {
	return raceScaled(l.HoldWarning, defaultHoldWarning)
}

func raceScaled(d, def time.Duration) time.Duration {
	if d == 0 {
		d = def
	}
	if log.RaceEnabled {
		d *= 10
	}
	return d
}

func (l *LoggingMutex) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("acq", l.acq),
		slog.Any("acq_stack", l.acqStack))
}
