package sim

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/springsim/internal/dynamo"
)

type tickLog struct {
	ticks []uint64
	times []float64
}

func (l *tickLog) record(n uint64, t float64) {
	l.ticks = append(l.ticks, n)
	l.times = append(l.times, t)
}

func TestStepper_FrameRateIndependence(t *testing.T) {
	const ms5 = 5 * time.Millisecond
	tests := []struct {
		name   string
		frames []time.Duration
	}{
		{"10ms x3", []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}},
		{"5ms x6", []time.Duration{ms5, ms5, ms5, ms5, ms5, ms5}},
		{"uneven", []time.Duration{7 * time.Millisecond, 3 * time.Millisecond, 11 * time.Millisecond, 9 * time.Millisecond}},
		{"single", []time.Duration{30 * time.Millisecond}},
	}

	var want []float64
	for i, tt := range tests {
		s := NewStepper(5*time.Millisecond, 100, time.Second)
		var log tickLog
		for _, d := range tt.frames {
			s.Advance(d, log.record)
		}
		if len(log.ticks) != 6 {
			t.Errorf("%s: expected 6 ticks, got %d", tt.name, len(log.ticks))
			continue
		}
		if i == 0 {
			want = log.times
			continue
		}
		for j := range want {
			if log.times[j] != want[j] {
				t.Errorf("%s: tick %d at %v, want %v", tt.name, j+1, log.times[j], want[j])
			}
		}
	}
}

func TestStepper_AccumulatesPartialTicks(t *testing.T) {
	s := NewStepper(5*time.Millisecond, 10, time.Second)
	var log tickLog

	r := s.Advance(3*time.Millisecond, log.record)
	if r.Ticks != 0 || s.Pending() != 3*time.Millisecond {
		t.Fatalf("expected no ticks and 3ms pending, got %d ticks, %v pending", r.Ticks, s.Pending())
	}
	if s.Phase() != PhaseAccumulating {
		t.Errorf("expected accumulating phase, got %v", s.Phase())
	}

	r = s.Advance(2*time.Millisecond, log.record)
	if r.Ticks != 1 || s.Pending() != 0 {
		t.Errorf("expected 1 tick and nothing pending, got %d ticks, %v pending", r.Ticks, s.Pending())
	}
}

func TestStepper_CatchUpCap(t *testing.T) {
	s := NewStepper(5*time.Millisecond, 4, time.Second)
	var log tickLog

	r := s.Advance(33*time.Millisecond, log.record)
	if r.Ticks != 4 {
		t.Errorf("expected 4 ticks, got %d", r.Ticks)
	}
	if r.Dropped != 10*time.Millisecond {
		t.Errorf("expected 10ms dropped, got %v", r.Dropped)
	}
	if s.Pending() != 3*time.Millisecond {
		t.Errorf("expected 3ms remainder kept, got %v", s.Pending())
	}
	if !r.Degraded() {
		t.Error("expected degraded frame")
	}

	r = s.Advance(2*time.Millisecond, log.record)
	if r.Ticks != 1 || r.Dropped != 0 {
		t.Errorf("expected clean tick after drop, got %+v", r)
	}
	if s.Ticks() != 5 {
		t.Errorf("expected 5 ticks total, got %d", s.Ticks())
	}
}

func TestStepper_Anomalies(t *testing.T) {
	tests := []struct {
		name      string
		advance   func(s *Stepper, fn TickFunc) FrameReport
		discarded time.Duration
	}{
		{"negative", func(s *Stepper, fn TickFunc) FrameReport { return s.Advance(-time.Millisecond, fn) }, 0},
		{"too large", func(s *Stepper, fn TickFunc) FrameReport { return s.Advance(2*time.Second, fn) }, 2 * time.Second},
		{"nan", func(s *Stepper, fn TickFunc) FrameReport { return s.AdvanceSeconds(math.NaN(), fn) }, 0},
		{"inf", func(s *Stepper, fn TickFunc) FrameReport { return s.AdvanceSeconds(math.Inf(1), fn) }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStepper(5*time.Millisecond, 10, time.Second)
			var log tickLog
			s.Advance(4*time.Millisecond, log.record)

			r := tt.advance(s, log.record)
			if !errors.Is(r.Anomaly, dynamo.ErrTimeAnomaly) {
				t.Errorf("expected ErrTimeAnomaly, got %v", r.Anomaly)
			}
			if r.Ticks != 0 || len(log.ticks) != 0 {
				t.Errorf("expected no ticks, got %d", len(log.ticks))
			}
			if r.Discarded != tt.discarded {
				t.Errorf("expected %v discarded, got %v", tt.discarded, r.Discarded)
			}
			if s.Pending() != 4*time.Millisecond {
				t.Errorf("expected accumulator untouched, got %v", s.Pending())
			}
		})
	}
}

func TestStepper_TimeIsTickCountTimesDt(t *testing.T) {
	dt := 5 * time.Millisecond
	s := NewStepper(dt, 100, time.Second)

	var last float64
	var lastTick uint64
	for i := 0; i < 100000; i++ {
		s.Advance(16667*time.Microsecond, func(n uint64, t float64) {
			lastTick, last = n, t
		})
	}
	if want := float64(lastTick) * dt.Seconds(); last != want {
		t.Errorf("expected t=%v for tick %d, got %v", want, lastTick, last)
	}
	if s.Elapsed() != last {
		t.Errorf("expected Elapsed %v, got %v", last, s.Elapsed())
	}
}

func TestStepper_Rewind(t *testing.T) {
	s := NewStepper(5*time.Millisecond, 10, time.Second)
	s.Advance(23*time.Millisecond, func(uint64, float64) {})
	s.Rewind()

	if s.Ticks() != 0 || s.Pending() != 0 || s.Phase() != PhaseIdle {
		t.Errorf("expected idle stepper at t=0, got ticks=%d pending=%v phase=%v", s.Ticks(), s.Pending(), s.Phase())
	}

	var first uint64
	s.Advance(5*time.Millisecond, func(n uint64, _ float64) { first = n })
	if first != 1 {
		t.Errorf("expected ticks to restart at 1, got %d", first)
	}
}

func TestStepper_Halt(t *testing.T) {
	s := NewStepper(5*time.Millisecond, 100, time.Second)

	var seen []uint64
	r := s.Advance(32*time.Millisecond, func(n uint64, _ float64) {
		seen = append(seen, n)
		if n == 3 {
			s.Halt()
		}
	})

	if !r.Halted || r.Ticks != 2 {
		t.Errorf("expected a halted frame with 2 ticks, got halted=%v ticks=%d", r.Halted, r.Ticks)
	}
	if len(seen) != 3 {
		t.Errorf("expected the callback to run 3 times, got %v", seen)
	}
	if s.Ticks() != 2 {
		t.Errorf("expected the halted tick not to count, got %d ticks", s.Ticks())
	}
	if r.Dropped != 0 || s.Pending() != 2*time.Millisecond {
		t.Errorf("expected only the 2ms remainder kept, got dropped=%v pending=%v", r.Dropped, s.Pending())
	}

	r = s.Advance(5*time.Millisecond, func(n uint64, _ float64) { seen = append(seen, n) })
	if r.Halted || r.Ticks != 1 || seen[len(seen)-1] != 3 {
		t.Errorf("expected the next frame to run tick 3, got %+v after %v", r, seen)
	}
}
