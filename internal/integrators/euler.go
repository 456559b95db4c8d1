package integrators

import "github.com/san-kum/springsim/internal/dynamo"

// Euler is the explicit first-order method. It gains energy on an undamped
// spring and is kept for comparison.
type Euler struct{}

func NewEuler() Euler { return Euler{} }

func (Euler) Step(o dynamo.Oscillator, p dynamo.Phase, t, dt float64) dynamo.Phase {
	return p.Advance(dynamo.Slope(o, p, t), dt)
}
