// nav/curve_test.go
// Copyright(c) 2022-2025 autopilot contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"testing"

	"github.com/mavcore/autopilot/math"
	"github.com/mavcore/autopilot/rand"
)

func near(a, b, eps float32) bool {
	return math.Abs(a-b) <= eps
}

func near2(a, b [2]float32, eps float32) bool {
	return near(a[0], b[0], eps) && near(a[1], b[1], eps)
}

// checkCurve verifies the geometric invariants that any solution must
// satisfy.
func checkCurve(t *testing.T, name string, start, goal [2]float32, c TransitCurve) {
	t.Helper()

	if c.LineLength < 0 || c.EntryArc < 0 || c.Length < 0 {
		t.Errorf("%s: negative length in %+v", name, c)
	}
	if !near(c.Length, c.EntryArc+c.LineLength, 1e-3) {
		t.Errorf("%s: length %f != arc %f + line %f", name, c.Length, c.EntryArc, c.LineLength)
	}
	if d := math.Distance2f(start, c.EntryCenter); !near(d, c.EntryRadius, 1e-3*math.Max(1, c.EntryRadius)) {
		t.Errorf("%s: start is %f from entry center, radius %f", name, d, c.EntryRadius)
	}
	if d := math.Distance2f(goal, c.ExitCenter); !near(d, c.ExitRadius, 1e-3*math.Max(1, c.ExitRadius)) {
		t.Errorf("%s: goal is %f from exit center, radius %f", name, d, c.ExitRadius)
	}
	if d := math.Distance2f(c.EntryTangent, c.EntryCenter); !near(d, c.EntryRadius, 1e-2) {
		t.Errorf("%s: entry tangent is %f from entry center, radius %f", name, d, c.EntryRadius)
	}
	if d := math.Distance2f(c.ExitTangent, c.ExitCenter); !near(d, c.ExitRadius, 1e-2) {
		t.Errorf("%s: exit tangent is %f from exit center, radius %f", name, d, c.ExitRadius)
	}
	if l := math.Length2f(c.LineDirection); !near(l, 1, 1e-3) {
		t.Errorf("%s: line direction length %f", name, l)
	}

	if c.LineLength > 1 {
		// The line is tangent to both circles and runs from one tangent
		// point to the other.
		seg := math.Sub2f(c.ExitTangent, c.EntryTangent)
		if !near2(seg, math.Scale2f(c.LineDirection, c.LineLength), 1e-2*math.Max(1, c.LineLength/100)) {
			t.Errorf("%s: tangent points %v -> %v don't match line %v * %f", name, c.EntryTangent,
				c.ExitTangent, c.LineDirection, c.LineLength)
		}
		if d := math.Dot(math.Sub2f(c.EntryTangent, c.EntryCenter), c.LineDirection); !near(d, 0, 1e-2) {
			t.Errorf("%s: line not tangent to entry circle (dot %f)", name, d)
		}
		if d := math.Dot(math.Sub2f(c.ExitTangent, c.ExitCenter), c.LineDirection); !near(d, 0, 1e-2) {
			t.Errorf("%s: line not tangent to exit circle (dot %f)", name, d)
		}
	}
}

func TestSolveTransitScenario(t *testing.T) {
	// Heading north at the origin toward a clockwise circle of radius 20
	// centered at (100, 0); the goal point is on its far side.
	start := [2]float32{0, 0}
	goal := [2]float32{120, 0}
	c := SolveTransit(start, [2]float32{20, 0}, goal, [2]float32{0, 20}, 1)

	checkCurve(t, "scenario", start, goal, c)

	if c.EntrySense != -1 {
		t.Errorf("entry sense %f, expected the short left turn", c.EntrySense)
	}
	if !near2(c.EntryCenter, [2]float32{0, -20}, 1e-4) {
		t.Errorf("entry center %v, expected (0, -20)", c.EntryCenter)
	}
	if !near2(c.ExitCenter, [2]float32{100, 0}, 1e-4) {
		t.Errorf("exit center %v, expected (100, 0)", c.ExitCenter)
	}
	if !near(c.LineLength, 93.808, 1e-2) {
		t.Errorf("line length %f, expected 93.808", c.LineLength)
	}
	if !near2(c.LineDirection, [2]float32{0.97892, -0.20421}, 1e-4) {
		t.Errorf("line direction %v", c.LineDirection)
	}
	if !near2(c.EntryTangent, [2]float32{4.084, -0.4216}, 1e-2) {
		t.Errorf("entry tangent %v", c.EntryTangent)
	}
	if !near2(c.ExitTangent, [2]float32{95.916, -19.578}, 1e-2) {
		t.Errorf("exit tangent %v", c.ExitTangent)
	}
	if !near(c.EntryArc, 4.116, 1e-2) {
		t.Errorf("entry arc %f, expected 4.116", c.EntryArc)
	}
}

func TestSolveTransitAntiParallel(t *testing.T) {
	// Entry and exit directions anti-parallel to the displacement: the
	// line length is never negative and the radii are exactly the input
	// magnitudes.
	for _, test := range []struct {
		name       string
		goal       [2]float32
		r1, r2     float32
		exitSense  float32
		expectLine bool
	}{
		{name: "far", goal: [2]float32{100, 0}, r1: 20, r2: 30, exitSense: 1, expectLine: true},
		{name: "far ccw", goal: [2]float32{100, 0}, r1: 20, r2: 30, exitSense: -1, expectLine: true},
		{name: "close", goal: [2]float32{5, 0}, r1: 20, r2: 20, exitSense: 1},
		{name: "close ccw", goal: [2]float32{5, 0}, r1: 20, r2: 25, exitSense: -1},
		{name: "tiny radii", goal: [2]float32{40, 0}, r1: 0.5, r2: 0.25, exitSense: 1, expectLine: true},
	} {
		t.Run(test.name, func(t *testing.T) {
			dir := math.Normalize2f(test.goal)
			entry := math.Scale2f(dir, -test.r1)
			exit := math.Scale2f(dir, -test.r2)

			c := SolveTransit([2]float32{0, 0}, entry, test.goal, exit, test.exitSense)
			if c.LineLength < 0 {
				t.Errorf("negative line length %f", c.LineLength)
			}
			if c.EntryRadius != test.r1 || c.ExitRadius != test.r2 {
				t.Errorf("radii %f/%f, expected %f/%f", c.EntryRadius, c.ExitRadius, test.r1, test.r2)
			}
			if test.expectLine && c.LineLength == 0 {
				t.Errorf("expected a straight segment")
			}
			checkCurve(t, test.name, [2]float32{0, 0}, test.goal, c)
		})
	}
}

func TestSolveTransitRandom(t *testing.T) {
	r := rand.Make(1234)
	for i := 0; i < 2000; i++ {
		start := [2]float32{r.Uniform(-500, 500), r.Uniform(-500, 500)}
		goal := [2]float32{r.Uniform(-500, 500), r.Uniform(-500, 500)}
		entry := math.Scale2f(math.Unit2f(r.Uniform(-3.14, 3.14)), r.Uniform(5, 60))
		exit := math.Scale2f(math.Unit2f(r.Uniform(-3.14, 3.14)), r.Uniform(5, 60))
		sense := float32(1)
		if r.Uint32()&1 == 0 {
			sense = -1
		}

		c := SolveTransit(start, entry, goal, exit, sense)
		checkCurve(t, "random", start, goal, c)

		if c.ExitSense != sense {
			t.Errorf("exit sense %f, expected %f", c.ExitSense, sense)
		}
		if again := SolveTransit(start, entry, goal, exit, sense); again != c {
			t.Errorf("solver not deterministic: %+v vs %+v", c, again)
		}
		if t.Failed() {
			t.Fatalf("failed at iteration %d: start %v entry %v goal %v exit %v sense %f",
				i, start, entry, goal, exit, sense)
		}
	}
}

func TestSolveTransitPicksShorterEntry(t *testing.T) {
	// Target behind and to the right: a right (clockwise) turn is shorter.
	c := SolveTransit([2]float32{0, 0}, [2]float32{20, 0}, [2]float32{-100, 100},
		[2]float32{-20, 0}, 1)
	if c.EntrySense != 1 {
		t.Errorf("entry sense %f, expected right turn", c.EntrySense)
	}

	// And mirrored, a left turn.
	c = SolveTransit([2]float32{0, 0}, [2]float32{20, 0}, [2]float32{-100, -100},
		[2]float32{-20, 0}, -1)
	if c.EntrySense != -1 {
		t.Errorf("entry sense %f, expected left turn", c.EntrySense)
	}
}
