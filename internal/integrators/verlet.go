package integrators

import "github.com/san-kum/springsim/internal/dynamo"

// Verlet is velocity Verlet. The second force evaluation uses the old
// velocity, which is exact for the spring term and first order in the
// damping term.
type Verlet struct{}

func NewVerlet() Verlet { return Verlet{} }

func (Verlet) Step(o dynamo.Oscillator, p dynamo.Phase, t, dt float64) dynamo.Phase {
	a0 := o.Acceleration(p, t)
	pos := p.Position + p.Velocity*dt + 0.5*a0*dt*dt
	a1 := o.Acceleration(dynamo.Phase{Position: pos, Velocity: p.Velocity}, t+dt)
	return dynamo.Phase{Position: pos, Velocity: p.Velocity + 0.5*(a0+a1)*dt}
}

// Leapfrog is kick-drift-kick: half a velocity kick, a full position drift,
// then the closing half kick at the new position.
type Leapfrog struct{}

func NewLeapfrog() Leapfrog { return Leapfrog{} }

func (Leapfrog) Step(o dynamo.Oscillator, p dynamo.Phase, t, dt float64) dynamo.Phase {
	half := dt / 2
	v := p.Velocity + o.Acceleration(p, t)*half
	pos := p.Position + v*dt
	v += o.Acceleration(dynamo.Phase{Position: pos, Velocity: v}, t+dt) * half
	return dynamo.Phase{Position: pos, Velocity: v}
}
