// Package analysis inspects recorded spring runs.
//
//   - [Spectrum] and [DominantFrequency]: where the displacement's energy sits
//   - [Peaks] and [MeasuredDecayRate]: how fast the free response dies out
//   - [Portrait] and [PortraitASCII]: position against velocity
//
// A lightly damped, undriven spring should ring near its natural frequency
// and decay at ζω₀:
//
//	f := analysis.DominantFrequency(samples, dt)
//	rate, ok := analysis.MeasuredDecayRate(samples)
package analysis
