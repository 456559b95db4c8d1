package physics

import (
	"math"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/integrators"
)

const (
	DefaultMass       = 1.0
	DefaultStiffness  = 1.0
	DefaultDamping    = 1.0
	DefaultFrequency  = 0.1
	DefaultPhaseShift = 0.1

	// NegligibleEnvelope is the envelope value below which the anchor drive
	// is treated as fully decayed.
	NegligibleEnvelope = 1e-12

	minNormal = 0x1p-1022
)

// SpringParameters are the tunable constants of the spring and its drive.
type SpringParameters struct {
	DampingFactor float64 `json:"damping_factor" yaml:"damping_factor"`
	SpringFactor  float64 `json:"spring_factor" yaml:"spring_factor"`
	Amplitude     float64 `json:"amplitude" yaml:"amplitude"`
	Frequency     float64 `json:"frequency" yaml:"frequency"`
	PhaseShift    float64 `json:"phase_shift" yaml:"phase_shift"`
}

func DefaultSpringParameters() SpringParameters {
	return SpringParameters{
		DampingFactor: DefaultDamping,
		SpringFactor:  DefaultStiffness,
		Frequency:     DefaultFrequency,
		PhaseShift:    DefaultPhaseShift,
	}
}

// MassState is the point mass's displacement along the spring axis.
type MassState struct {
	Position float64 `json:"position" yaml:"position"`
	Velocity float64 `json:"velocity" yaml:"velocity"`
	Mass     float64 `json:"mass" yaml:"mass"`
}

// Sample is one tick of simulated output.
type Sample struct {
	Tick         uint64    `json:"tick"`
	Time         float64   `json:"time"`
	Displacement float64   `json:"displacement"`
	Elongation   float64   `json:"elongation"`
	Anchor       float64   `json:"anchor"`
	Mass         MassState `json:"mass"`
}

// DecayRate is ζ·ω₀, the exponential rate shared by the drive envelope and
// the free response.
func DecayRate(p SpringParameters, mass float64) float64 {
	omega0 := math.Sqrt(p.SpringFactor / mass)
	zeta := p.DampingFactor / (2 * math.Sqrt(p.SpringFactor*mass))
	return zeta * omega0
}

// Envelope returns e^(-λt), clamped to zero once negligible.
func Envelope(t float64, p SpringParameters, mass float64) float64 {
	env := math.Exp(-DecayRate(p, mass) * t)
	if env < NegligibleEnvelope {
		return 0
	}
	return env
}

// Anchor returns the drive position of the spring's upper end at time t.
func Anchor(t float64, p SpringParameters, mass float64) float64 {
	if p.Amplitude == 0 {
		return 0
	}
	env := Envelope(t, p, mass)
	if env == 0 {
		return 0
	}
	return p.Amplitude * env * math.Sin(2*math.Pi*p.Frequency*t+p.PhaseShift)
}

// oscillator is m·a = SpringFactor·(w − x) − DampingFactor·v with the
// parameters of one tick.
type oscillator struct {
	p    SpringParameters
	mass float64
}

func (o oscillator) Acceleration(x dynamo.Phase, t float64) float64 {
	w := Anchor(t, o.p, o.mass)
	force := o.p.SpringFactor*(w-x.Position) - o.p.DampingFactor*x.Velocity
	return force / o.mass
}

// Spring1D advances a MassState in fixed ticks of Dt seconds.
type Spring1D struct {
	Dt    float64
	integ dynamo.Integrator
}

func NewSpring1D(dt float64, integ dynamo.Integrator) *Spring1D {
	if integ == nil {
		integ = integrators.RK4{}
	}
	return &Spring1D{Dt: dt, integ: integ}
}

// Evaluate steps the mass from elapsed-Dt to elapsed and returns the new
// displacement, the spring elongation at elapsed and the new state.
func (s *Spring1D) Evaluate(elapsed float64, p SpringParameters, m MassState) (float64, float64, MassState) {
	sys := oscillator{p: p, mass: m.Mass}
	x := s.integ.Step(sys, dynamo.Phase{Position: m.Position, Velocity: m.Velocity}, elapsed-s.Dt, s.Dt)

	next := MassState{
		Position: flush(x.Position),
		Velocity: flush(x.Velocity),
		Mass:     m.Mass,
	}
	w := Anchor(elapsed, p, m.Mass)
	return next.Position, next.Position - w, next
}

// Energy is the kinetic energy of the mass plus the potential stored in the
// spring at time t.
func Energy(t float64, p SpringParameters, m MassState) float64 {
	stretch := m.Position - Anchor(t, p, m.Mass)
	return 0.5*m.Mass*m.Velocity*m.Velocity + 0.5*p.SpringFactor*stretch*stretch
}

func flush(v float64) float64 {
	if math.Abs(v) < minNormal {
		return 0
	}
	return v
}
