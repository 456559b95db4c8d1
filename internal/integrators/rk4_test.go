package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/springsim/internal/dynamo"
)

// drivenSpring is a unit mass on spring k with damping c whose anchor moves
// as amp·sin(2π·freq·t).
type drivenSpring struct {
	k, c      float64
	amp, freq float64
}

func (d drivenSpring) Acceleration(p dynamo.Phase, t float64) float64 {
	w := d.amp * math.Sin(2*math.Pi*d.freq*t)
	return d.k*(w-p.Position) - d.c*p.Velocity
}

func integrate(integ dynamo.Integrator, o dynamo.Oscillator, steps int, dt float64) dynamo.Phase {
	x := dynamo.Phase{Position: 1}
	for i := 0; i < steps; i++ {
		x = integ.Step(o, x, float64(i)*dt, dt)
	}
	return x
}

func TestRK4Accuracy(t *testing.T) {
	steps, dt := 100, 0.01
	x := integrate(NewRK4(), drivenSpring{k: 1}, steps, dt)

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x.Position-expectedX) > 1e-8 {
		t.Errorf("expected position %.9f, got %.9f", expectedX, x.Position)
	}
	if math.Abs(x.Velocity-expectedV) > 1e-8 {
		t.Errorf("expected velocity %.9f, got %.9f", expectedV, x.Velocity)
	}
}

func TestIntegratorsTrackHarmonicOscillator(t *testing.T) {
	tests := []struct {
		name string
		tol  float64
	}{
		{"euler", 5e-2},
		{"rk4", 1e-6},
		{"verlet", 1e-3},
		{"leapfrog", 1e-3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			integ, err := New(tt.name)
			if err != nil {
				t.Fatalf("new %s: %v", tt.name, err)
			}
			steps, dt := 200, 0.005
			x := integrate(integ, drivenSpring{k: 1}, steps, dt)
			expected := math.Cos(float64(steps) * dt)
			if math.Abs(x.Position-expected) > tt.tol {
				t.Errorf("expected %.6f, got %.6f", expected, x.Position)
			}
		})
	}
}

func TestDampedDecay(t *testing.T) {
	// Underdamped unit mass: amplitude falls as e^(-c/2·t).
	o := drivenSpring{k: 4, c: 0.4}
	dt := 0.001
	steps := 5000
	x := integrate(NewRK4(), o, steps, dt)

	tt := float64(steps) * dt
	wd := math.Sqrt(4 - 0.04)
	expected := math.Exp(-0.2*tt) * (math.Cos(wd*tt) + 0.2/wd*math.Sin(wd*tt))
	if math.Abs(x.Position-expected) > 1e-6 {
		t.Errorf("expected %.8f, got %.8f", expected, x.Position)
	}
}

func TestRK4Deterministic(t *testing.T) {
	o := drivenSpring{k: 1, c: 0.2, amp: 0.5, freq: 0.3}
	a := integrate(NewRK4(), o, 500, 0.005)
	b := integrate(NewRK4(), o, 500, 0.005)
	if a != b {
		t.Errorf("expected identical runs, got %v and %v", a, b)
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("rk45"); err == nil {
		t.Error("expected error for unknown integrator")
	}
	integ, err := New("")
	if err != nil {
		t.Fatalf("default integrator: %v", err)
	}
	if _, ok := integ.(RK4); !ok {
		t.Errorf("expected RK4 default, got %T", integ)
	}
	if got := Names(); len(got) != 4 || got[0] != "euler" {
		t.Errorf("expected 4 sorted names, got %v", got)
	}
}
