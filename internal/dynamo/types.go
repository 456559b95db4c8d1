package dynamo

import "math"

// Phase is the state of one degree of freedom along the spring axis.
type Phase struct {
	Position float64
	Velocity float64
}

// Valid reports whether both components are finite.
func (p Phase) Valid() bool {
	return finite(p.Position) && finite(p.Velocity)
}

// Advance returns p moved along d for h seconds: p + h·d, where d holds
// the time derivatives (velocity, acceleration).
func (p Phase) Advance(d Phase, h float64) Phase {
	return Phase{Position: p.Position + h*d.Position, Velocity: p.Velocity + h*d.Velocity}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Oscillator gives the acceleration of the mass at a phase point and time.
type Oscillator interface {
	Acceleration(p Phase, t float64) float64
}

// Slope is the time derivative of p under o.
func Slope(o Oscillator, p Phase, t float64) Phase {
	return Phase{Position: p.Velocity, Velocity: o.Acceleration(p, t)}
}

// Integrator advances a phase point by one fixed tick of dt seconds
// starting at time t.
type Integrator interface {
	Step(o Oscillator, p Phase, t, dt float64) Phase
}
