package params

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/san-kum/springsim/internal/dynamo"
)

// Snapshot is one consistent version of the surface.
type Snapshot struct {
	Values
	Version uint64 `json:"version"`
	Epoch   uint64 `json:"epoch"`
}

// Surface is the only shared, externally writable simulation state.
//
// Readers load an immutable snapshot through an atomic pointer and never
// wait. Writers copy the current snapshot, modify the copy, validate it and
// publish it with compare-and-swap, retrying if another writer won.
type Surface struct {
	cur     atomic.Pointer[Snapshot]
	initial Values
	dt      float64
}

type Option func(*Surface)

// WithTickSize makes the surface reject values that a fixed tick of dt
// cannot integrate stably. See Values.CheckStep.
func WithTickSize(dt time.Duration) Option {
	return func(s *Surface) { s.dt = dt.Seconds() }
}

// New validates the construction values and publishes them as version 1.
func New(initial Values, opts ...Option) (*Surface, error) {
	s := &Surface{initial: initial}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.validate(initial); err != nil {
		return nil, err
	}
	s.cur.Store(&Snapshot{Values: initial, Version: 1})
	return s, nil
}

// TickSize is the tick in seconds the surface validates against, or 0.
func (s *Surface) TickSize() float64 {
	return s.dt
}

func (s *Surface) validate(v Values) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return v.CheckStep(s.dt)
}

// Read returns the current snapshot.
func (s *Surface) Read() Snapshot {
	return *s.cur.Load()
}

func (s *Surface) Version() uint64 {
	return s.cur.Load().Version
}

// Initial returns the construction values that Reset restores.
func (s *Surface) Initial() Values {
	return s.initial
}

// Write sets one field. An invalid value leaves the surface untouched and
// returns an error matching dynamo.ErrInvalidParameter.
func (s *Surface) Write(f Field, value float64) error {
	if err := check(f, value); err != nil {
		return err
	}
	_, err := s.swap(func(next *Snapshot) error {
		if err := next.Set(f, value); err != nil {
			return err
		}
		if err := next.CheckStep(s.dt); err != nil {
			// Name the field the caller wrote, not the one the bound is stated in.
			var pe *dynamo.ParameterError
			if errors.As(err, &pe) {
				pe.Field, pe.Value = f.String(), value
			}
			return err
		}
		return nil
	})
	return err
}

// Update applies fn to a private copy of the values and publishes the result
// as one version. Nothing is published if fn fails or the result is invalid.
func (s *Surface) Update(fn func(v *Values) error) (Snapshot, error) {
	return s.swap(func(next *Snapshot) error {
		if err := fn(&next.Values); err != nil {
			return err
		}
		return s.validate(next.Values)
	})
}

// Reset restores the construction values and starts a new epoch, which the
// driver answers by restarting from t=0.
func (s *Surface) Reset() Snapshot {
	snap, _ := s.swap(func(next *Snapshot) error {
		next.Values = s.initial
		next.Epoch++
		return nil
	})
	return snap
}

// Restart keeps the current values and starts a new epoch.
func (s *Surface) Restart() Snapshot {
	snap, _ := s.swap(func(next *Snapshot) error {
		next.Epoch++
		return nil
	})
	return snap
}

func (s *Surface) swap(mutate func(next *Snapshot) error) (Snapshot, error) {
	for {
		old := s.cur.Load()
		next := *old
		if err := mutate(&next); err != nil {
			return *old, err
		}
		next.Version = old.Version + 1
		if s.cur.CompareAndSwap(old, &next) {
			return next, nil
		}
	}
}
