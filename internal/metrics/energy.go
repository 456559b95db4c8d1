package metrics

import (
	"github.com/san-kum/springsim/internal/physics"
)

// Energy tracks the mechanical energy of the mass and spring. Value is the
// current energy; Dissipated is how much has left the system since the first
// tick after a reset.
type Energy struct {
	params  Parameters
	initial float64
	current float64
	peak    float64
	samples int
}

func NewEnergy(p Parameters) *Energy {
	return &Energy{params: p}
}

func (e *Energy) Name() string { return "energy" }

func (e *Energy) OnTick(s physics.Sample) {
	snap := e.params.Read()
	k := snap.SpringFactor
	energy := 0.5*s.Mass.Mass*s.Mass.Velocity*s.Mass.Velocity + 0.5*k*s.Elongation*s.Elongation

	if e.samples == 0 {
		e.initial = energy
	}
	e.current = energy
	e.peak = max(e.peak, energy)
	e.samples++
}

func (e *Energy) Value() float64 { return e.current }
func (e *Energy) Peak() float64  { return e.peak }

func (e *Energy) Dissipated() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.initial - e.current
}

func (e *Energy) OnReset() {
	e.initial = 0
	e.current = 0
	e.peak = 0
	e.samples = 0
}

// DriveEffort is the mean absolute anchor displacement, a measure of how hard
// the drive is pushing.
type DriveEffort struct {
	sum     float64
	samples int
}

func NewDriveEffort() *DriveEffort { return &DriveEffort{} }

func (d *DriveEffort) Name() string { return "drive_effort" }

func (d *DriveEffort) OnTick(s physics.Sample) {
	if s.Anchor < 0 {
		d.sum -= s.Anchor
	} else {
		d.sum += s.Anchor
	}
	d.samples++
}

func (d *DriveEffort) Value() float64 {
	if d.samples == 0 {
		return 0
	}
	return d.sum / float64(d.samples)
}

func (d *DriveEffort) OnReset() {
	d.sum = 0
	d.samples = 0
}

// Envelope reports the drive envelope e^(-λt) at the latest tick.
type Envelope struct {
	params Parameters
	value  float64
}

func NewEnvelope(p Parameters) *Envelope {
	return &Envelope{params: p, value: 1}
}

func (e *Envelope) Name() string { return "envelope" }

func (e *Envelope) OnTick(s physics.Sample) {
	snap := e.params.Read()
	e.value = physics.Envelope(s.Time, snap.SpringParameters, s.Mass.Mass)
}

func (e *Envelope) Value() float64 { return e.value }
func (e *Envelope) OnReset()       { e.value = 1 }
