// Package metrics summarises a running simulation tick by tick.
//
// Every metric is a sim observer. A [Set] fans samples out to its metrics on
// the loop goroutine and hands consistent snapshots to readers on others.
package metrics

import (
	"sort"
	"sync"

	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/physics"
)

type Metric interface {
	Name() string
	OnTick(s physics.Sample)
	OnReset()
	Value() float64
}

// Parameters is the read side of the parameter surface.
type Parameters interface {
	Read() params.Snapshot
}

// Set is safe for one writer and any number of readers.
type Set struct {
	mu      sync.RWMutex
	metrics []Metric
	last    physics.Sample
}

func NewSet(ms ...Metric) *Set {
	return &Set{metrics: ms}
}

// Standard returns the metrics shown by the front ends.
func Standard(p Parameters) *Set {
	return NewSet(
		NewEnergy(p),
		NewPeakDisplacement(),
		NewEnvelope(p),
		NewStability(0.01),
		NewDriveEffort(),
	)
}

func (s *Set) OnTick(sample physics.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.OnTick(sample)
	}
	s.last = sample
}

func (s *Set) OnReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.OnReset()
	}
	s.last = physics.Sample{}
}

// Values returns every metric by name.
func (s *Set) Values() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.metrics))
	for i, m := range s.metrics {
		names[i] = m.Name()
	}
	sort.Strings(names)
	return names
}

// Last is the most recent sample the set has seen.
func (s *Set) Last() physics.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
