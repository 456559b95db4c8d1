package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/springsim/internal/physics"
)

// Bin is one line of a one-sided amplitude spectrum.
type Bin struct {
	Frequency float64
	Amplitude float64
}

// Spectrum returns the one-sided amplitude spectrum of the displacement.
// The mean is removed first so the DC bin does not swamp the oscillation.
// Any sample count works; it need not be a power of two.
func Spectrum(samples []physics.Sample, dt float64) []Bin {
	n := len(samples)
	if n < 2 || !(dt > 0) {
		return nil
	}

	data := make([]float64, n)
	mean := 0.0
	for i, s := range samples {
		data[i] = s.Displacement
		mean += s.Displacement
	}
	mean /= float64(n)
	for i := range data {
		data[i] -= mean
	}

	coeffs := fft.FFTReal(data)
	bins := make([]Bin, n/2+1)
	for k := range bins {
		amp := cmplx.Abs(coeffs[k]) / float64(n)
		if k > 0 && k < n-k {
			amp *= 2
		}
		bins[k] = Bin{Frequency: float64(k) / (float64(n) * dt), Amplitude: amp}
	}
	return bins
}

// DominantFrequency is the frequency of the strongest non-DC bin, or 0 when
// the displacement never moves.
func DominantFrequency(samples []physics.Sample, dt float64) float64 {
	bins := Spectrum(samples, dt)
	best := 0
	for k := 1; k < len(bins); k++ {
		if bins[k].Amplitude > bins[best].Amplitude || best == 0 {
			best = k
		}
	}
	if best == 0 || bins[best].Amplitude == 0 {
		return 0
	}
	return bins[best].Frequency
}

// Peaks returns the samples where |displacement| has a strict local maximum.
func Peaks(samples []physics.Sample) []physics.Sample {
	var peaks []physics.Sample
	for i := 1; i+1 < len(samples); i++ {
		prev := math.Abs(samples[i-1].Displacement)
		cur := math.Abs(samples[i].Displacement)
		next := math.Abs(samples[i+1].Displacement)
		if cur > prev && cur >= next {
			peaks = append(peaks, samples[i])
		}
	}
	return peaks
}

// MeasuredDecayRate fits ln|x| of the peaks against time by least squares
// and returns the negated slope. ok is false with fewer than three usable
// peaks.
func MeasuredDecayRate(samples []physics.Sample) (rate float64, ok bool) {
	var ts, ys []float64
	for _, p := range Peaks(samples) {
		a := math.Abs(p.Displacement)
		if a < 1e-9 {
			continue
		}
		ts = append(ts, p.Time)
		ys = append(ys, math.Log(a))
	}
	if len(ts) < 3 {
		return 0, false
	}

	var st, sy, stt, sty float64
	n := float64(len(ts))
	for i := range ts {
		st += ts[i]
		sy += ys[i]
		stt += ts[i] * ts[i]
		sty += ts[i] * ys[i]
	}
	den := n*stt - st*st
	if den == 0 {
		return 0, false
	}
	slope := (n*sty - st*sy) / den
	return -slope, true
}
