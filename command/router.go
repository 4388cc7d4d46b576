// command/router.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package command routes incoming command requests to their handlers.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mavcore/autopilot/log"
)

var (
	ErrDuplicateRoute = errors.New("A route for that command is already registered")
	ErrInvalidRoute   = errors.New("Route has no handler")
)

// Result is the outcome reported back to the sender; the values match
// MAVLink's MAV_RESULT.
type Result int

const (
	ResultAccepted Result = iota
	ResultTemporarilyRejected
	ResultDenied
)

func (r Result) String() string {
	switch r {
	case ResultAccepted:
		return "ACCEPTED"
	case ResultTemporarilyRejected:
		return "TEMPORARILY_REJECTED"
	case ResultDenied:
		return "DENIED"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Request is a decoded command or message addressed to the vehicle. Params
// carries the command parameters in order; for messages that aren't
// commands it carries the message fields as documented by each handler.
type Request struct {
	ID              uint16
	SourceSystem    uint8
	SourceComponent uint8
	TargetSystem    uint8
	TargetComponent uint8
	Params          [7]float64
}

func (r Request) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", int(r.ID)),
		slog.Int("source_system", int(r.SourceSystem)),
		slog.Int("source_component", int(r.SourceComponent)),
		slog.Int("target_system", int(r.TargetSystem)),
		slog.Int("target_component", int(r.TargetComponent)),
		slog.Any("params", r.Params))
}

type Handler func(req Request, now time.Time) Result

// Route binds a command ID to its handler. Zero-valued filters match any
// request.
type Route struct {
	ID              uint16
	SourceSystem    uint8
	TargetComponent uint8
	Handle          Handler
}

func (r Route) matches(req Request) bool {
	return (r.SourceSystem == 0 || r.SourceSystem == req.SourceSystem) &&
		(r.TargetComponent == 0 || r.TargetComponent == req.TargetComponent)
}

type Router struct {
	mu     sync.Mutex
	routes map[uint16]Route
	lg     *log.Logger
}

func NewRouter(lg *log.Logger) *Router {
	return &Router{routes: make(map[uint16]Route), lg: lg}
}

// Register adds the given routes. Either all of them are added or, if
// there is an error, none are.
func (r *Router) Register(routes ...Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uint16]bool)
	for _, rt := range routes {
		if rt.Handle == nil {
			return fmt.Errorf("command %d: %w", rt.ID, ErrInvalidRoute)
		}
		if _, ok := r.routes[rt.ID]; ok || seen[rt.ID] {
			return fmt.Errorf("command %d: %w", rt.ID, ErrDuplicateRoute)
		}
		seen[rt.ID] = true
	}

	for _, rt := range routes {
		r.routes[rt.ID] = rt
	}
	return nil
}

// Dispatch runs the handler for the request. Requests with no route or
// that don't pass the route's filters are denied, as are requests whose
// handler panics.
func (r *Router) Dispatch(req Request, now time.Time) (result Result) {
	result = ResultDenied
	defer r.lg.CatchAndReportCrash()

	r.mu.Lock()
	rt, ok := r.routes[req.ID]
	r.mu.Unlock()

	if !ok {
		r.lg.Debug("no route for command", slog.Any("request", req))
		return ResultDenied
	}
	if !rt.matches(req) {
		r.lg.Info("command filtered", slog.Any("request", req),
			slog.Int("required_source", int(rt.SourceSystem)),
			slog.Int("required_target_component", int(rt.TargetComponent)))
		return ResultDenied
	}

	result = rt.Handle(req, now)
	r.lg.Debug("command handled", slog.Any("request", req), slog.String("result", result.String()))
	return result
}
