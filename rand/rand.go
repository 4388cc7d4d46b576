// rand/rand.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rand

import (
	gomath "math"

	"github.com/MichaelTJones/pcg"
)

///////////////////////////////////////////////////////////////////////////
// Random numbers.

// Rand is a seedable PCG generator. The flight simulator uses it for
// sensor noise and fault timing so that a run can be reproduced from its
// seed.
type Rand struct {
	r *pcg.PCG32
}

func New() Rand {
	return Rand{r: pcg.NewPCG32()}
}

// Make returns a generator seeded with the given value.
func Make(seed int64) Rand {
	r := New()
	r.Seed(seed)
	return r
}

func (r *Rand) Seed(s int64) {
	r.r.Seed(uint64(s), 0xda3e39cb94b95bdb)
}

func (r *Rand) Uint32() uint32 {
	return r.r.Random()
}

// Float32 returns a value in [0, 1].
func (r *Rand) Float32() float32 {
	return float32(r.r.Random()) / (1<<32 - 1)
}

// Uniform returns a value in [lo, hi].
func (r *Rand) Uniform(lo, hi float32) float32 {
	return lo + (hi-lo)*r.Float32()
}

// Normal returns a normally-distributed value with the given mean and
// standard deviation, via the Box-Muller transform.
func (r *Rand) Normal(mean, stddev float32) float32 {
	u1 := float64(r.r.Random()) + 1 // avoid log(0)
	u1 /= 1 << 32
	u2 := float64(r.r.Random()) / (1 << 32)
	z := gomath.Sqrt(-2*gomath.Log(u1)) * gomath.Cos(2*gomath.Pi*u2)
	return mean + stddev*float32(z)
}

// SampleWeighted randomly samples an index from the given slice with the
// probability of choosing each element proportional to the value returned
// by the provided callback. -1 is returned if all weights are zero.
func SampleWeighted[T any](r *Rand, slice []T, weight func(T) int) int {
	// Weighted reservoir sampling...
	idx := -1
	sumWt := 0
	for i, v := range slice {
		w := weight(v)
		if w == 0 {
			continue
		}

		sumWt += w
		p := float32(w) / float32(sumWt)
		if r.Float32() < p {
			idx = i
		}
	}
	return idx
}
