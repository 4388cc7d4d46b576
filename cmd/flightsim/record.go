// cmd/flightsim/record.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mavcore/autopilot/planner"
	"github.com/mavcore/autopilot/util"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// frame is one cycle's worth of telemetry.
type frame struct {
	T             float64    `msgpack:"t"` // seconds since the start
	Position      [3]float32 `msgpack:"pos"`
	Velocity      [3]float32 `msgpack:"vel"`
	Battery       float32    `msgpack:"battery"`
	Status        string     `msgpack:"status"`
	Mode          string     `msgpack:"mode"`
	Failsafe      string     `msgpack:"failsafe,omitempty"`
	Phase         string     `msgpack:"phase,omitempty"`
	Setpoint      [3]float32 `msgpack:"setpoint"`
	MissionActive bool       `msgpack:"mission_active"`
	Waypoint      int        `msgpack:"waypoint"`
}

func makeFrame(t float64, v *vehicle, out planner.Output) frame {
	f := frame{
		T:             t,
		Position:      v.state.Position,
		Velocity:      v.state.Velocity,
		Battery:       v.battery,
		Status:        v.status.String(),
		Mode:          out.Mode.String(),
		MissionActive: out.MissionActive,
		Waypoint:      out.WaypointIndex,
	}
	if out.FailsafeEngaged {
		f.Failsafe = out.Failsafe.String()
	}
	if out.Setpoint != nil {
		f.Phase = out.Setpoint.Phase.String()
		f.Setpoint = out.Setpoint.Position
	}
	return f
}

// recorder keeps the most recent frames in memory and, if a file was
// given, streams every frame to it as msgpack compressed with zstd.
type recorder struct {
	recent *util.RingBuffer[frame]

	f   *os.File
	zw  *zstd.Encoder
	enc *msgpack.Encoder
	n   int
}

func newRecorder(path string, keep int) (*recorder, error) {
	r := &recorder{recent: util.NewRingBuffer[frame](keep)}
	if path == "" {
		return r, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	r.f, r.zw, r.enc = f, zw, msgpack.NewEncoder(zw)
	return r, nil
}

func (r *recorder) add(fr frame) error {
	r.recent.Add(fr)
	r.n++
	if r.enc == nil {
		return nil
	}
	if err := r.enc.Encode(fr); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}

func (r *recorder) Close() error {
	if r.f == nil {
		return nil
	}
	return errors.Join(r.zw.Close(), r.f.Close())
}

// readFrames decodes a recording written by recorder.
func readFrames(rd io.Reader) ([]frame, error) {
	zr, err := zstd.NewReader(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var frames []frame
	dec := msgpack.NewDecoder(zr)
	for {
		var fr frame
		if err := dec.Decode(&fr); errors.Is(err, io.EOF) {
			return frames, nil
		} else if err != nil {
			return frames, fmt.Errorf("failed to decode frame %d: %w", len(frames), err)
		}
		frames = append(frames, fr)
	}
}
