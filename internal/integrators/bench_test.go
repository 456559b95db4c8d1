package integrators

import (
	"testing"

	"github.com/san-kum/springsim/internal/dynamo"
)

func benchmarkStep(b *testing.B, integrator dynamo.Integrator) {
	o := drivenSpring{k: 1, c: 0.1, amp: 0.5, freq: 0.2}
	x := dynamo.Phase{Position: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(o, x, float64(i)*0.005, 0.005)
	}
}

func BenchmarkEuler(b *testing.B)    { benchmarkStep(b, NewEuler()) }
func BenchmarkRK4(b *testing.B)      { benchmarkStep(b, NewRK4()) }
func BenchmarkVerlet(b *testing.B)   { benchmarkStep(b, NewVerlet()) }
func BenchmarkLeapfrog(b *testing.B) { benchmarkStep(b, NewLeapfrog()) }
