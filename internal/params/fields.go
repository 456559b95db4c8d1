package params

import (
	"fmt"
	"strings"
)

// Field names one GUI-writable control.
type Field int

const (
	FieldMass Field = iota
	FieldDampingFactor
	FieldSpringFactor
	FieldAmplitude
	FieldFrequency
	FieldPhaseShift
	FieldInitialPosition
	FieldInitialVelocity
)

var fieldNames = [...]string{
	FieldMass:            "mass",
	FieldDampingFactor:   "damping_factor",
	FieldSpringFactor:    "spring_factor",
	FieldAmplitude:       "amplitude",
	FieldFrequency:       "frequency",
	FieldPhaseShift:      "phase_shift",
	FieldInitialPosition: "initial_position",
	FieldInitialVelocity: "initial_velocity",
}

var fieldLabels = [...]string{
	FieldMass:            "mass",
	FieldDampingFactor:   "damping",
	FieldSpringFactor:    "spring",
	FieldAmplitude:       "amplitude",
	FieldFrequency:       "frequency",
	FieldPhaseShift:      "phase",
	FieldInitialPosition: "x0",
	FieldInitialVelocity: "v0",
}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Label is the short name shown next to a GUI control.
func (f Field) Label() string {
	if f < 0 || int(f) >= len(fieldLabels) {
		return f.String()
	}
	return fieldLabels[f]
}

// Live reports whether a change takes effect on the next tick. Initial
// position and velocity only apply on reset or restart.
func (f Field) Live() bool {
	return f != FieldInitialPosition && f != FieldInitialVelocity
}

// Fields lists every control in display order.
func Fields() []Field {
	out := make([]Field, len(fieldNames))
	for i := range fieldNames {
		out[i] = Field(i)
	}
	return out
}

// ParseField accepts the snake_case name, the short label, or the name with
// dashes.
func ParseField(name string) (Field, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i := range fieldNames {
		if fieldNames[i] == key || fieldLabels[i] == key {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown parameter %q", name)
}
