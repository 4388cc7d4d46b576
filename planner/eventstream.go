// planner/eventstream.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/mavcore/autopilot/log"
)

// EventStream is a basic pub/sub stream: the planner posts events and the
// telemetry side (and tests) subscribe and drain them at their own pace.
// Events posted while no one is subscribed are dropped.
type EventStream struct {
	mu            sync.Mutex
	events        []Event
	subscriptions map[*EventsSubscription]any
	lastPost      time.Time
	warnedLong    bool
	done          chan struct{}
	lg            *log.Logger
}

type EventsSubscription struct {
	stream *EventStream
	// offset is offset in the EventStream stream array up to which the
	// subscriber has consumed events so far.
	offset      int
	source      string
	lastGet     time.Time
	warnedNoGet bool
}

func (e *EventsSubscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("offset", e.offset),
		slog.String("source", e.source),
		slog.Time("last_get", e.lastGet))
}

func NewEventStream(lg *log.Logger) *EventStream {
	es := &EventStream{
		subscriptions: make(map[*EventsSubscription]any),
		lastPost:      time.Now(),
		done:          make(chan struct{}),
		lg:            lg,
	}
	go es.monitor()
	return es
}

// Subscribe registers a new subscriber; it sees only events posted after
// this call.
func (e *EventStream) Subscribe() *EventsSubscription {
	// Record the subscriber's callsite to help track down subscribers
	// that don't consume their events.
	_, fn, line, _ := runtime.Caller(1)

	e.mu.Lock()
	defer e.mu.Unlock()

	sub := &EventsSubscription{
		stream:  e,
		offset:  len(e.events),
		source:  fmt.Sprintf("%s:%d", fn, line),
		lastGet: time.Now(),
	}
	e.subscriptions[sub] = nil
	return sub
}

func (e *EventStream) monitor() {
	tick := time.NewTicker(5 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-tick.C:
		}

		e.mu.Lock()

		e.compact()

		if len(e.events) > 1000 && !e.warnedLong {
			// Most likely a subscriber has stopped calling Get.
			e.lg.Warn("Long EventStream", slog.Int("length", len(e.events)),
				slog.Int("subscriptions", len(e.subscriptions)))
			e.warnedLong = true
		}

		if time.Since(e.lastPost) < 5*time.Second {
			for sub := range e.subscriptions {
				if d := time.Since(sub.lastGet); d > 10*time.Second && !sub.warnedNoGet {
					e.lg.Warn("Subscriber has not called Get() recently",
						slog.Duration("duration", d), slog.Any("subscriber", sub))
					sub.warnedNoGet = true
				}
			}
		}

		e.mu.Unlock()
	}
}

func (e *EventsSubscription) Unsubscribe() {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to unsubscribe invalid subscription: %+v", e)
	}
	delete(e.stream.subscriptions, e)
}

// Post adds an event to the stream. A nil stream discards the event.
func (e *EventStream) Post(event Event) {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lg.Debug("posted event", slog.Any("event", event))

	if len(e.subscriptions) > 0 {
		e.lastPost = time.Now()
		e.events = append(e.events, event)
	}
}

// Get returns all of the events posted since the subscriber's last call
// to Get.
func (e *EventsSubscription) Get() []Event {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to get with unregistered subscription: %+v", e)
		return nil
	}

	events := slices.Clone(e.stream.events[e.offset:])
	e.offset = len(e.stream.events)
	e.lastGet = time.Now()
	e.warnedNoGet = false

	return events
}

func (e *EventStream) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
	default:
		close(e.done)
	}
	clear(e.subscriptions)
}

// compact reclaims storage for events that all subscribers have seen.
func (e *EventStream) compact() {
	minOffset := len(e.events)
	for sub := range e.subscriptions {
		minOffset = min(minOffset, sub.offset)
	}

	if minOffset > cap(e.events)/2 {
		n := len(e.events) - minOffset

		copy(e.events, e.events[minOffset:])
		e.events = e.events[:n]

		for sub := range e.subscriptions {
			sub.offset -= minOffset
		}

		e.warnedLong = false
	}
}

func (e *EventStream) LogValue() slog.Value {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := []slog.Attr{slog.Int("len", len(e.events)), slog.Int("cap", cap(e.events)),
		slog.Int("subscriptions", len(e.subscriptions))}
	if len(e.events) > 0 {
		items = append(items, slog.Any("last_element", e.events[len(e.events)-1]))
	}
	return slog.GroupValue(items...)
}

///////////////////////////////////////////////////////////////////////////

type EventType int

const (
	ModeChangedEvent EventType = iota
	FailsafeChangedEvent
	MissionCurrentEvent
	OriginChangedEvent
	DisarmRequestedEvent
	StatusMessageEvent
	NumEventTypes
)

func (t EventType) String() string {
	return []string{"ModeChanged", "FailsafeChanged", "MissionCurrent", "OriginChanged",
		"DisarmRequested", "StatusMessage"}[t]
}

type Event struct {
	Type          EventType
	Time          time.Time
	Mode          FlightMode    // ModeChangedEvent
	Failsafe      FailsafeState // FailsafeChangedEvent
	MissionID     uint32        // MissionCurrentEvent
	WaypointIndex int           // MissionCurrentEvent
	Origin        *Origin       // OriginChangedEvent
	Text          string
}

func (e *Event) String() string {
	switch e.Type {
	case ModeChangedEvent:
		return fmt.Sprintf("%s: %s", e.Type, e.Mode)
	case FailsafeChangedEvent:
		return fmt.Sprintf("%s: %s", e.Type, e.Failsafe)
	case MissionCurrentEvent:
		return fmt.Sprintf("%s: mission %d waypoint %d", e.Type, e.MissionID, e.WaypointIndex)
	case OriginChangedEvent:
		return fmt.Sprintf("%s: %s", e.Type, e.Origin)
	default:
		return fmt.Sprintf("%s: %q", e.Type, e.Text)
	}
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", e.Type.String()), slog.Time("time", e.Time)}
	switch e.Type {
	case ModeChangedEvent:
		attrs = append(attrs, slog.String("mode", e.Mode.String()))
	case FailsafeChangedEvent:
		attrs = append(attrs, slog.String("failsafe", e.Failsafe.String()))
	case MissionCurrentEvent:
		attrs = append(attrs, slog.Int("mission", int(e.MissionID)), slog.Int("waypoint", e.WaypointIndex))
	}
	if e.Origin != nil {
		attrs = append(attrs, slog.Any("origin", *e.Origin))
	}
	if e.Text != "" {
		attrs = append(attrs, slog.String("text", e.Text))
	}
	return slog.GroupValue(attrs...)
}
