package sim

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/integrators"
	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/transform"
)

// Frame is the driver state published after every host frame.
type Frame struct {
	physics.Sample
	FrameTicks int           `json:"frame_ticks"`
	Dropped    time.Duration `json:"dropped"`
	Discarded  time.Duration `json:"discarded"`
	Anomalies  uint64        `json:"anomalies"`
	Version    uint64        `json:"version"`
	Epoch      uint64        `json:"epoch"`
	// Diverged counts ticks rejected for a non-finite result. Stalled is
	// true while the latest tick was one of them.
	Diverged uint64 `json:"diverged"`
	Stalled  bool   `json:"stalled"`
}

type Option func(*Driver)

func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

// Driver is the host-loop callback that owns one spring simulation. Update
// must be called from a single goroutine; Latest and the parameter surface
// may be used from any.
type Driver struct {
	cfg     Config
	surface *params.Surface
	mapper  *transform.Mapper
	mass    transform.Handle
	spring  transform.Handle

	model   *physics.Spring1D
	stepper *Stepper
	state   physics.MassState
	last    physics.Sample
	epoch   uint64
	version uint64

	dropped   time.Duration
	discarded time.Duration
	anomalies uint64
	diverged  uint64
	stalled   bool

	observers []Observer
	logger    *slog.Logger
	latest    atomic.Pointer[Frame]
}

// NewDriver binds a simulation to its parameter surface and render handles
// and places the handles at the initial state.
func NewDriver(cfg Config, surface *params.Surface, mapper *transform.Mapper, mass, spring transform.Handle, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim config: %w", err)
	}
	if surface == nil || mapper == nil {
		return nil, errors.New("sim: driver needs a parameter surface and a mapper")
	}
	if mass == nil {
		return nil, &dynamo.HandleError{Handle: "mass", Op: "bind"}
	}
	if spring == nil {
		return nil, &dynamo.HandleError{Handle: "spring", Op: "bind"}
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	if err := surface.Read().CheckStep(cfg.TimeDelta.Seconds()); err != nil {
		return nil, fmt.Errorf("sim: time delta %v: %w", cfg.TimeDelta, err)
	}

	d := &Driver{
		cfg:     cfg,
		surface: surface,
		mapper:  mapper,
		mass:    mass,
		spring:  spring,
		model:   physics.NewSpring1D(cfg.TimeDelta.Seconds(), integ),
		stepper: NewStepper(cfg.TimeDelta, cfg.MaxCatchUp, cfg.MaxFrameDelta),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.reset(surface.Read())
	if err := d.apply(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) Parameters() *params.Surface { return d.surface }
func (d *Driver) Config() Config              { return d.cfg }

// AddObserver must not be called concurrently with Update.
func (d *Driver) AddObserver(o Observer) { d.observers = append(d.observers, o) }

// Latest returns the most recently published frame.
func (d *Driver) Latest() Frame { return *d.latest.Load() }

// Update advances the simulation by one host frame. A new surface epoch
// restarts from t=0 before any ticks run; an epoch that changes while the
// frame is ticking ends the frame and is picked up by the next Update. A
// tick whose result is not finite is rejected and the last finite state is
// kept. The only error is a render handle failure, which ends the
// simulation.
func (d *Driver) Update(delta time.Duration) error {
	if snap := d.surface.Read(); snap.Epoch != d.epoch {
		d.reset(snap)
	}

	report := d.stepper.Advance(delta, d.tick)
	d.record(report)
	return d.apply()
}

// UpdateSeconds is Update for float-clocked hosts.
func (d *Driver) UpdateSeconds(delta float64) error {
	if snap := d.surface.Read(); snap.Epoch != d.epoch {
		d.reset(snap)
	}

	report := d.stepper.AdvanceSeconds(delta, d.tick)
	d.record(report)
	return d.apply()
}

func (d *Driver) tick(n uint64, t float64) {
	snap := d.surface.Read()
	if snap.Epoch != d.epoch {
		d.stepper.Halt()
		return
	}
	d.version = snap.Version

	from := d.state
	from.Mass = snap.Mass
	s := advance(d.model, snap.SpringParameters, from, n, t)
	if !(dynamo.Phase{Position: s.Mass.Position, Velocity: s.Mass.Velocity}).Valid() {
		d.diverge(snap, n, t)
		return
	}

	d.stalled = false
	d.state = s.Mass
	d.last = s
	for _, o := range d.observers {
		o.OnTick(s)
	}
}

// diverge drops a non-finite tick and ends the frame. Time does not advance
// until the parameters allow a finite step again.
func (d *Driver) diverge(snap params.Snapshot, n uint64, t float64) {
	d.stepper.Halt()
	d.diverged++
	if d.stalled {
		return
	}
	d.stalled = true
	attrs := []any{"tick", n, "time", t, "version", snap.Version}
	if err := snap.CheckStep(d.cfg.TimeDelta.Seconds()); err != nil {
		attrs = append(attrs, "cause", err)
	}
	d.logger.Warn(dynamo.ErrInvalidState.Error(), attrs...)
}

func (d *Driver) reset(snap params.Snapshot) {
	d.stepper.Rewind()
	d.state = snap.InitialMass()
	d.last = initialSample(snap.SpringParameters, d.state)
	d.epoch = snap.Epoch
	d.version = snap.Version
	d.stalled = false
	for _, o := range d.observers {
		if r, ok := o.(Resetter); ok {
			r.OnReset()
		}
	}
	d.logger.Info("simulation reset",
		"epoch", snap.Epoch,
		"x0", d.state.Position,
		"v0", d.state.Velocity,
		"mass", d.state.Mass,
	)
	d.publish(0)
}

func (d *Driver) record(r FrameReport) {
	if r.Anomaly != nil {
		d.anomalies++
		d.discarded += r.Discarded
		d.logger.Warn("frame delta discarded", "err", r.Anomaly)
	}
	if r.Dropped > 0 {
		d.dropped += r.Dropped
		d.logger.Warn(dynamo.ErrCatchUpDropped.Error(),
			"dropped", r.Dropped,
			"ticks", r.Ticks,
			"max_catch_up", d.cfg.MaxCatchUp,
		)
	}
	d.publish(r.Ticks)
}

func (d *Driver) publish(frameTicks int) {
	d.latest.Store(&Frame{
		Sample:     d.last,
		FrameTicks: frameTicks,
		Dropped:    d.dropped,
		Discarded:  d.discarded,
		Anomalies:  d.anomalies,
		Version:    d.version,
		Epoch:      d.epoch,
		Diverged:   d.diverged,
		Stalled:    d.stalled,
	})
}

func (d *Driver) apply() error {
	if err := d.mapper.Apply(d.last.Displacement, d.last.Elongation, d.mass, d.spring); err != nil {
		d.logger.Error("render handle rejected transform", "err", err)
		return err
	}
	return nil
}
