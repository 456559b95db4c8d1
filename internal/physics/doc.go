// Package physics provides the one-dimensional driven spring-mass model.
//
// A point mass hangs from a spring whose upper end (the anchor) follows a
// damped sinusoid. [Spring1D.Evaluate] advances the mass by one fixed tick
// and reports the mass displacement and the spring elongation:
//
//	model := physics.NewSpring1D(0.005, integrators.NewRK4())
//	x, stretch, next := model.Evaluate(0.005, params, mass)
//
// All arithmetic is float64. Inputs are assumed valid; validation belongs to
// the parameter surface that feeds the model.
package physics
