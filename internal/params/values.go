package params

import (
	"fmt"
	"math"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/physics"
)

// Values is the full set of GUI-tunable numbers.
type Values struct {
	physics.SpringParameters `yaml:",inline"`
	Mass                     float64 `json:"mass" yaml:"mass"`
	InitialPosition          float64 `json:"initial_position" yaml:"initial_position"`
	InitialVelocity          float64 `json:"initial_velocity" yaml:"initial_velocity"`
}

// FromInitial builds Values from construction-time state.
func FromInitial(spring physics.SpringParameters, mass physics.MassState) Values {
	return Values{
		SpringParameters: spring,
		Mass:             mass.Mass,
		InitialPosition:  mass.Position,
		InitialVelocity:  mass.Velocity,
	}
}

// InitialMass is the MassState a reset starts from.
func (v Values) InitialMass() physics.MassState {
	return physics.MassState{Position: v.InitialPosition, Velocity: v.InitialVelocity, Mass: v.Mass}
}

func (v Values) Get(f Field) float64 {
	switch f {
	case FieldMass:
		return v.Mass
	case FieldDampingFactor:
		return v.DampingFactor
	case FieldSpringFactor:
		return v.SpringFactor
	case FieldAmplitude:
		return v.Amplitude
	case FieldFrequency:
		return v.Frequency
	case FieldPhaseShift:
		return v.PhaseShift
	case FieldInitialPosition:
		return v.InitialPosition
	case FieldInitialVelocity:
		return v.InitialVelocity
	}
	return math.NaN()
}

// Set writes a field without validation.
func (v *Values) Set(f Field, value float64) error {
	switch f {
	case FieldMass:
		v.Mass = value
	case FieldDampingFactor:
		v.DampingFactor = value
	case FieldSpringFactor:
		v.SpringFactor = value
	case FieldAmplitude:
		v.Amplitude = value
	case FieldFrequency:
		v.Frequency = value
	case FieldPhaseShift:
		v.PhaseShift = value
	case FieldInitialPosition:
		v.InitialPosition = value
	case FieldInitialVelocity:
		v.InitialVelocity = value
	default:
		return &dynamo.ParameterError{Field: f.String(), Value: value, Reason: "unknown field"}
	}
	return nil
}

// Validate checks every invariant and reports the first violation.
func (v Values) Validate() error {
	for _, f := range Fields() {
		if err := check(f, v.Get(f)); err != nil {
			return err
		}
	}
	return nil
}

func check(f Field, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return &dynamo.ParameterError{Field: f.String(), Value: value, Reason: "must be finite"}
	}
	switch f {
	case FieldMass, FieldSpringFactor, FieldFrequency:
		if value <= 0 {
			return &dynamo.ParameterError{Field: f.String(), Value: value, Reason: "must be > 0"}
		}
	case FieldDampingFactor, FieldAmplitude:
		if value < 0 {
			return &dynamo.ParameterError{Field: f.String(), Value: value, Reason: "must be >= 0"}
		}
	}
	return nil
}

// MaxStepRatio bounds ω₀·dt and (DampingFactor/Mass)·dt. RK4 is stable up to
// about 2.8 on both the real and the imaginary axis.
const MaxStepRatio = 2.0

// StepRatios returns ω₀·dt and (DampingFactor/Mass)·dt for a tick of dt
// seconds.
func (v Values) StepRatios(dt float64) (oscillation, damping float64) {
	return math.Sqrt(v.SpringFactor/v.Mass) * dt, v.DampingFactor / v.Mass * dt
}

// CheckStep reports whether a fixed tick of dt seconds can integrate v
// without diverging. A dt of zero disables the check.
func (v Values) CheckStep(dt float64) error {
	if dt <= 0 {
		return nil
	}
	osc, damp := v.StepRatios(dt)
	switch {
	case osc > MaxStepRatio:
		return &dynamo.ParameterError{
			Field:  FieldSpringFactor.String(),
			Value:  v.SpringFactor,
			Reason: fmt.Sprintf("sqrt(spring_factor/mass)·dt = %.3g exceeds %g", osc, MaxStepRatio),
		}
	case damp > MaxStepRatio:
		return &dynamo.ParameterError{
			Field:  FieldDampingFactor.String(),
			Value:  v.DampingFactor,
			Reason: fmt.Sprintf("damping_factor/mass·dt = %.3g exceeds %g", damp, MaxStepRatio),
		}
	}
	return nil
}
