package integrators

import "github.com/san-kum/springsim/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta method. The drive is sampled
// at the start, middle and end of the tick.
type RK4 struct{}

func NewRK4() RK4 { return RK4{} }

func (RK4) Step(o dynamo.Oscillator, p dynamo.Phase, t, dt float64) dynamo.Phase {
	half := dt / 2

	k1 := dynamo.Slope(o, p, t)
	k2 := dynamo.Slope(o, p.Advance(k1, half), t+half)
	k3 := dynamo.Slope(o, p.Advance(k2, half), t+half)
	k4 := dynamo.Slope(o, p.Advance(k3, dt), t+dt)

	sixth := dt / 6
	return dynamo.Phase{
		Position: p.Position + sixth*(k1.Position+2*k2.Position+2*k3.Position+k4.Position),
		Velocity: p.Velocity + sixth*(k1.Velocity+2*k2.Velocity+2*k3.Velocity+k4.Velocity),
	}
}
