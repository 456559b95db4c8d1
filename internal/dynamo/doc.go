// Package dynamo provides the shared primitives of the spring simulator.
//
// The package defines the small vocabulary every other package speaks:
//
//   - [Phase]: position and velocity of the mass
//   - [Oscillator]: acceleration as a function of phase and time
//   - [Integrator]: single fixed-step numerical stepper
//
// It also owns the error taxonomy. Callers match failures with
// [errors.Is] against [ErrInvalidParameter], [ErrTimeAnomaly],
// [ErrHandleInvalid] and [ErrCatchUpDropped], and recover details with
// [errors.As] on the typed wrappers.
//
// # Thread Safety
//
// Phase is a value type and integrators hold no state, so both can be
// shared freely.
package dynamo
