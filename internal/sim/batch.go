package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/integrators"
	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/physics"
)

// Result is a recorded headless run. Samples[0] is the initial state.
type Result struct {
	Samples     []physics.Sample
	Ticks       uint64
	Duration    float64
	EnergyDrift float64
}

// Run simulates duration seconds of simulated time with fixed values and no
// render loop. Ticks are counted, never summed, so Samples[i].Time is i·dt.
func Run(ctx context.Context, cfg Config, v params.Values, duration float64, observers ...Observer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim config: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := v.CheckStep(cfg.TimeDelta.Seconds()); err != nil {
		return nil, err
	}
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("duration must be positive, got %f", duration)
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	dt := cfg.TimeDelta.Seconds()
	steps := uint64(math.Round(duration / dt))
	model := physics.NewSpring1D(dt, integ)

	result := &Result{Samples: make([]physics.Sample, 0, steps+1)}
	state := v.InitialMass()
	result.Samples = append(result.Samples, initialSample(v.SpringParameters, state))

	for _, o := range observers {
		if r, ok := o.(Resetter); ok {
			r.OnReset()
		}
	}

	initialEnergy := physics.Energy(0, v.SpringParameters, state)

	for n := uint64(1); n <= steps; n++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		t := float64(n) * dt
		s := advance(model, v.SpringParameters, state, n, t)
		if !(dynamo.Phase{Position: s.Mass.Position, Velocity: s.Mass.Velocity}).Valid() {
			return result, fmt.Errorf("tick %d (t=%.4f): %w", n, t, dynamo.ErrInvalidState)
		}
		state = s.Mass
		for _, o := range observers {
			o.OnTick(s)
		}
		result.Samples = append(result.Samples, s)
		result.Ticks = n
		result.Duration = t
	}

	if initialEnergy != 0 {
		final := physics.Energy(result.Duration, v.SpringParameters, state)
		result.EnergyDrift = math.Abs(final-initialEnergy) / math.Abs(initialEnergy)
	}
	return result, nil
}
