package metrics

import (
	"math"

	"github.com/san-kum/springsim/internal/physics"
)

// Stability is the fraction of ticks whose displacement stayed within
// threshold of rest.
type Stability struct {
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "settled" }

func (s *Stability) OnTick(sample physics.Sample) {
	s.samples++
	if math.Abs(sample.Displacement) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) OnReset() {
	s.violations = 0
	s.samples = 0
}

// PeakDisplacement is the largest |x| since the last reset.
type PeakDisplacement struct {
	peak float64
}

func NewPeakDisplacement() *PeakDisplacement { return &PeakDisplacement{} }

func (p *PeakDisplacement) Name() string { return "peak_displacement" }

func (p *PeakDisplacement) OnTick(s physics.Sample) {
	p.peak = math.Max(p.peak, math.Abs(s.Displacement))
}

func (p *PeakDisplacement) Value() float64 { return p.peak }
func (p *PeakDisplacement) OnReset()       { p.peak = 0 }
