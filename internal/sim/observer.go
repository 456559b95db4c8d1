package sim

import "github.com/san-kum/springsim/internal/physics"

// Observer receives every tick's sample on the driver goroutine.
type Observer interface {
	OnTick(s physics.Sample)
}

// Resetter is implemented by observers that keep per-run state.
type Resetter interface {
	OnReset()
}

type ObserverFunc func(s physics.Sample)

func (f ObserverFunc) OnTick(s physics.Sample) { f(s) }

// initialSample describes the state before the first tick.
func initialSample(p physics.SpringParameters, m physics.MassState) physics.Sample {
	w := physics.Anchor(0, p, m.Mass)
	return physics.Sample{
		Displacement: m.Position,
		Elongation:   m.Position - w,
		Anchor:       w,
		Mass:         m,
	}
}

// advance runs one tick of the model and returns its sample.
func advance(model *physics.Spring1D, p physics.SpringParameters, m physics.MassState, tick uint64, t float64) physics.Sample {
	disp, elong, next := model.Evaluate(t, p, m)
	return physics.Sample{
		Tick:         tick,
		Time:         t,
		Displacement: disp,
		Elongation:   elong,
		Anchor:       disp - elong,
		Mass:         next,
	}
}
