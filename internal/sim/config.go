package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/springsim/internal/integrators"
)

const (
	DefaultTimeDelta     = 5 * time.Millisecond
	DefaultMaxCatchUp    = 50
	DefaultMaxFrameDelta = time.Second
)

// Config holds the structural settings of a simulation. Unlike the values on
// the parameter surface, none of these change while a driver runs.
type Config struct {
	TimeDelta     time.Duration
	MaxCatchUp    int
	MaxFrameDelta time.Duration
	Integrator    string
}

func DefaultConfig() Config {
	return Config{
		TimeDelta:     DefaultTimeDelta,
		MaxCatchUp:    DefaultMaxCatchUp,
		MaxFrameDelta: DefaultMaxFrameDelta,
		Integrator:    integrators.Default,
	}
}

func (c Config) Validate() error {
	if c.TimeDelta <= 0 {
		return fmt.Errorf("time delta must be positive, got %v", c.TimeDelta)
	}
	if c.MaxCatchUp <= 0 {
		return fmt.Errorf("max catch-up must be positive, got %d", c.MaxCatchUp)
	}
	if c.MaxFrameDelta < c.TimeDelta {
		return fmt.Errorf("max frame delta %v is shorter than one tick (%v)", c.MaxFrameDelta, c.TimeDelta)
	}
	if _, err := integrators.New(c.Integrator); err != nil {
		return err
	}
	return nil
}
