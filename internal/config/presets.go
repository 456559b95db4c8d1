package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/springsim/internal/physics"
)

// Preset is a named starting point for the spring and mass. A zero
// TimeDelta keeps whatever the config already has.
type Preset struct {
	Description string
	Spring      physics.SpringParameters
	Mass        physics.MassState
	TimeDelta   float64
}

var Presets = map[string]*Preset{
	"reference": {
		Description: "undriven reference setup, the mass stays at rest",
		Spring:      physics.SpringParameters{DampingFactor: 1, SpringFactor: 1, Amplitude: 0, Frequency: 0.1, PhaseShift: 0.1},
		Mass:        physics.MassState{Mass: 1},
		TimeDelta:   0.005,
	},
	"driven": {
		Description: "lightly damped spring shaken by a decaying anchor",
		Spring:      physics.SpringParameters{DampingFactor: 0.2, SpringFactor: 4, Amplitude: 0.5, Frequency: 0.5, PhaseShift: 0},
		Mass:        physics.MassState{Mass: 1},
	},
	"resonance": {
		Description: "anchor driven near the natural frequency",
		Spring:      physics.SpringParameters{DampingFactor: 0.1, SpringFactor: 4, Amplitude: 0.3, Frequency: 0.318, PhaseShift: 0},
		Mass:        physics.MassState{Mass: 1},
	},
	"pluck": {
		Description: "mass released from an offset with a still anchor",
		Spring:      physics.SpringParameters{DampingFactor: 0.3, SpringFactor: 2, Amplitude: 0, Frequency: 0.1, PhaseShift: 0},
		Mass:        physics.MassState{Position: 0.8, Mass: 1},
	},
	"heavy": {
		Description: "heavy mass, slow swing",
		Spring:      physics.SpringParameters{DampingFactor: 0.5, SpringFactor: 1, Amplitude: 0.2, Frequency: 0.05, PhaseShift: 0},
		Mass:        physics.MassState{Position: 0.5, Mass: 5},
	},
	"overdamped": {
		Description: "creeps back to rest without overshoot",
		Spring:      physics.SpringParameters{DampingFactor: 5, SpringFactor: 1, Amplitude: 0, Frequency: 0.1, PhaseShift: 0},
		Mass:        physics.MassState{Position: 1, Mass: 1},
	},
}

func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset overwrites the initial spring and mass with the named preset.
func (c *Config) ApplyPreset(name string) error {
	p := GetPreset(name)
	if p == nil {
		return fmt.Errorf("unknown preset %q (available: %v)", name, ListPresets())
	}
	c.InitialSpring = p.Spring
	c.InitialMass = p.Mass
	if p.TimeDelta > 0 {
		c.TimeDelta = p.TimeDelta
	}
	return nil
}
