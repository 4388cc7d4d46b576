// util/generic.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"github.com/mavcore/autopilot/math"
)

///////////////////////////////////////////////////////////////////////////
// RingBuffer

// RingBuffer holds the most recent values added to it, up to a fixed
// capacity.
type RingBuffer[V any] struct {
	entries []V
	max     int
	index   int
}

func NewRingBuffer[V any](capacity int) *RingBuffer[V] {
	return &RingBuffer[V]{max: capacity}
}

// Add adds all of the provided values to the ring buffer.
func (r *RingBuffer[V]) Add(values ...V) {
	for _, v := range values {
		if len(r.entries) < r.max {
			r.entries = append(r.entries, v)
		} else {
			// r.index%r.max is the oldest entry.
			r.entries[r.index%r.max] = v
		}
		r.index++
	}
}

// Size returns the total number of items stored in the ring buffer.
func (r *RingBuffer[V]) Size() int {
	return math.Min(len(r.entries), r.max)
}

// Get returns the specified element of the ring buffer where the index i
// is between 0 and Size()-1 and 0 is the oldest element in the buffer.
func (r *RingBuffer[V]) Get(i int) V {
	if len(r.entries) < r.max {
		return r.entries[i]
	}
	return r.entries[(r.index+i)%r.max]
}

// Slice returns the buffer's contents, oldest first.
func (r *RingBuffer[V]) Slice() []V {
	s := make([]V, r.Size())
	for i := range s {
		s[i] = r.Get(i)
	}
	return s
}

///////////////////////////////////////////////////////////////////////////

// Select returns a if sel is true and b otherwise.
func Select[T any](sel bool, a, b T) T {
	if sel {
		return a
	}
	return b
}

// MapSlice returns the slice that is the result of applying the provided
// xform function to all the elements of the given slice.
func MapSlice[F, T any](from []F, xform func(F) T) []T {
	var to []T
	for _, item := range from {
		to = append(to, xform(item))
	}
	return to
}
