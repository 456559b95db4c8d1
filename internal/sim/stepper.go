package sim

import (
	"math"
	"time"

	"github.com/san-kum/springsim/internal/dynamo"
)

// Phase is the stepper's position in its frame cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAccumulating
	PhaseStepping
)

func (p Phase) String() string {
	switch p {
	case PhaseAccumulating:
		return "accumulating"
	case PhaseStepping:
		return "stepping"
	default:
		return "idle"
	}
}

// TickFunc runs one fixed step. tick counts from 1 and t is tick·dt.
type TickFunc func(tick uint64, t float64)

// FrameReport describes what one host frame did to simulated time.
type FrameReport struct {
	Ticks     int
	Dropped   time.Duration
	Discarded time.Duration
	Anomaly   error
	// Halted is set when the tick callback stopped the frame early.
	Halted bool
}

// Degraded reports whether simulated time fell behind wall time this frame.
func (r FrameReport) Degraded() bool {
	return r.Dropped > 0 || r.Anomaly != nil
}

// Stepper turns variable host frame deltas into a whole number of fixed
// ticks. Time is accumulated as an integer duration so the tick count for a
// given total wall time does not depend on how it was split into frames.
type Stepper struct {
	dt            time.Duration
	maxCatchUp    int
	maxFrameDelta time.Duration

	acc    time.Duration
	ticks  uint64
	phase  Phase
	halted bool
}

func NewStepper(dt time.Duration, maxCatchUp int, maxFrameDelta time.Duration) *Stepper {
	return &Stepper{dt: dt, maxCatchUp: maxCatchUp, maxFrameDelta: maxFrameDelta}
}

func (s *Stepper) Dt() time.Duration      { return s.dt }
func (s *Stepper) Ticks() uint64          { return s.ticks }
func (s *Stepper) Phase() Phase           { return s.phase }
func (s *Stepper) Pending() time.Duration { return s.acc }

// Elapsed is the simulated time in seconds, ticks·dt.
func (s *Stepper) Elapsed() float64 { return s.timeAt(s.ticks) }

func (s *Stepper) timeAt(tick uint64) float64 {
	return float64(tick) * s.dt.Seconds()
}

// Advance adds one frame's wall-clock delta and runs as many ticks as fit,
// up to the catch-up cap. Whole ticks beyond the cap are dropped and the
// sub-tick remainder is kept. Negative deltas and deltas above the frame
// bound are discarded.
func (s *Stepper) Advance(delta time.Duration, tick TickFunc) FrameReport {
	var report FrameReport

	switch {
	case delta < 0:
		report.Anomaly = &dynamo.TimeAnomalyError{Delta: delta, Reason: "negative frame delta"}
		return report
	case s.maxFrameDelta > 0 && delta > s.maxFrameDelta:
		report.Discarded = delta
		report.Anomaly = &dynamo.TimeAnomalyError{Delta: delta, Reason: "frame delta exceeds " + s.maxFrameDelta.String()}
		return report
	}

	s.acc += delta
	s.phase = PhaseStepping
	s.halted = false
	for s.acc >= s.dt && (s.maxCatchUp <= 0 || report.Ticks < s.maxCatchUp) {
		next := s.ticks + 1
		tick(next, s.timeAt(next))
		if s.halted {
			break
		}
		s.acc -= s.dt
		s.ticks = next
		report.Ticks++
	}

	switch {
	case s.halted:
		// Whole ticks left over by a halted frame are not caught up later.
		report.Halted = true
		s.acc %= s.dt
		s.halted = false
	case s.acc >= s.dt:
		whole := s.acc / s.dt
		report.Dropped = whole * s.dt
		s.acc -= report.Dropped
	}
	s.phase = PhaseAccumulating
	return report
}

// Halt is called from inside a tick callback. The running tick is not
// counted and no further ticks run this frame.
func (s *Stepper) Halt() {
	s.halted = true
}

// AdvanceSeconds is Advance for hosts whose clock is a float64 in seconds.
func (s *Stepper) AdvanceSeconds(delta float64, tick TickFunc) FrameReport {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return FrameReport{Anomaly: &dynamo.TimeAnomalyError{Reason: "non-finite frame delta"}}
	}
	if delta*float64(time.Second) > math.MaxInt64 {
		return FrameReport{Anomaly: &dynamo.TimeAnomalyError{Delta: math.MaxInt64, Reason: "frame delta overflows"}}
	}
	return s.Advance(time.Duration(delta*float64(time.Second)), tick)
}

// Rewind returns to t=0 with an empty accumulator.
func (s *Stepper) Rewind() {
	s.acc = 0
	s.ticks = 0
	s.phase = PhaseIdle
	s.halted = false
}
