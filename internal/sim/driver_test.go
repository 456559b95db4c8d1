package sim_test

import (
	"math"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/scene"
	"github.com/san-kum/springsim/internal/sim"
	"github.com/san-kum/springsim/internal/transform"
)

type recorder struct {
	samples []physics.Sample
	resets  int
}

func (r *recorder) OnTick(s physics.Sample) { r.samples = append(r.samples, s) }
func (r *recorder) OnReset()                { r.resets++; r.samples = r.samples[:0] }

// resetAt resets the surface from inside the tick loop, once.
type resetAt struct {
	surface *params.Surface
	tick    uint64
	fired   bool
}

func (r *resetAt) OnTick(s physics.Sample) {
	if !r.fired && s.Tick == r.tick {
		r.fired = true
		r.surface.Reset()
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

var _ = Describe("Driver", func() {
	var (
		cfg     sim.Config
		values  params.Values
		surface *params.Surface
		mapper  *transform.Mapper
		rig     *scene.SpringRig
		rec     *recorder
		driver  *sim.Driver
	)

	newDriver := func() *sim.Driver {
		d, err := sim.NewDriver(cfg, surface, mapper, rig.Mass, rig.Spring, sim.WithObserver(rec))
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	run := func(d *sim.Driver, frames int, delta time.Duration) {
		for i := 0; i < frames; i++ {
			Expect(d.Update(delta)).To(Succeed())
		}
	}

	BeforeEach(func() {
		cfg = sim.DefaultConfig()
		values = params.FromInitial(physics.DefaultSpringParameters(), physics.MassState{Mass: 1})
		values.Amplitude = 0.5
		values.InitialPosition = 0.2

		var err error
		surface, err = params.New(values)
		Expect(err).NotTo(HaveOccurred())
		mapper, err = transform.NewMapper(transform.DefaultLayout())
		Expect(err).NotTo(HaveOccurred())
		rig = scene.NewSpringRig(transform.DefaultLayout().RestLength, false)
		rec = &recorder{}
		driver = newDriver()
	})

	Describe("construction", func() {
		It("places the render objects at the initial state", func() {
			frame := driver.Latest()
			Expect(frame.Time).To(BeZero())
			Expect(frame.Displacement).To(Equal(0.2))

			pose := mapper.Pose(frame.Displacement, frame.Elongation)
			Expect(rig.Mass.Transform().Position).To(Equal(pose.MassPosition))
			Expect(rig.Spring.Transform().Scale).To(Equal(pose.SpringScale))
		})

		It("rejects missing handles", func() {
			_, err := sim.NewDriver(cfg, surface, mapper, nil, rig.Spring)
			Expect(err).To(MatchError(dynamo.ErrHandleInvalid))
		})

		It("rejects an invalid config", func() {
			cfg.TimeDelta = 0
			_, err := sim.NewDriver(cfg, surface, mapper, rig.Mass, rig.Spring)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("fixed stepping", func() {
		It("produces identical state for the same total wall time", func() {
			run(driver, 3, 10*time.Millisecond)
			coarse := driver.Latest().Sample

			other := newDriver()
			run(other, 6, 5*time.Millisecond)
			Expect(other.Latest().Sample).To(Equal(coarse))
			Expect(coarse.Tick).To(BeEquivalentTo(6))
		})

		It("reports dropped catch-up time without failing", func() {
			cfg.MaxCatchUp = 2
			d := newDriver()
			Expect(d.Update(50 * time.Millisecond)).To(Succeed())

			frame := d.Latest()
			Expect(frame.FrameTicks).To(Equal(2))
			Expect(frame.Dropped).To(Equal(40 * time.Millisecond))
		})

		It("discards anomalous frame deltas", func() {
			Expect(driver.Update(-time.Millisecond)).To(Succeed())
			Expect(driver.UpdateSeconds(10)).To(Succeed())

			frame := driver.Latest()
			Expect(frame.Tick).To(BeZero())
			Expect(frame.Anomalies).To(BeEquivalentTo(2))
			Expect(frame.Discarded).To(Equal(10 * time.Second))
		})
	})

	Describe("parameter changes", func() {
		It("applies a completed write on the next tick", func() {
			run(driver, 4, 5*time.Millisecond)
			Expect(surface.Write(params.FieldAmplitude, 0)).To(Succeed())
			version := surface.Version()

			Expect(driver.Update(5 * time.Millisecond)).To(Succeed())
			frame := driver.Latest()
			Expect(frame.Version).To(Equal(version))
			Expect(frame.Anchor).To(BeZero())
		})

		It("does not reset state on a live write", func() {
			run(driver, 10, 5*time.Millisecond)
			before := driver.Latest().Tick
			Expect(surface.Write(params.FieldSpringFactor, 3)).To(Succeed())
			Expect(driver.Update(5 * time.Millisecond)).To(Succeed())
			Expect(driver.Latest().Tick).To(Equal(before + 1))
		})
	})

	Describe("reset", func() {
		It("restarts from t=0 with the construction values", func() {
			run(driver, 20, 10*time.Millisecond)
			first := append([]physics.Sample(nil), rec.samples...)

			Expect(surface.Write(params.FieldDampingFactor, 4)).To(Succeed())
			surface.Reset()
			Expect(driver.Update(0)).To(Succeed())

			frame := driver.Latest()
			Expect(frame.Time).To(BeZero())
			Expect(frame.Displacement).To(Equal(0.2))
			Expect(rec.resets).To(Equal(2))

			run(driver, 20, 10*time.Millisecond)
			Expect(rec.samples).To(Equal(first))
		})

		It("is idempotent", func() {
			run(driver, 7, 10*time.Millisecond)
			surface.Reset()
			Expect(driver.Update(0)).To(Succeed())
			once := driver.Latest().Sample

			surface.Reset()
			Expect(driver.Update(0)).To(Succeed())
			Expect(driver.Latest().Sample).To(Equal(once))
		})

		It("restarts from the current initial conditions", func() {
			run(driver, 7, 10*time.Millisecond)
			Expect(surface.Write(params.FieldInitialPosition, -0.3)).To(Succeed())
			Expect(driver.Update(0)).To(Succeed())
			Expect(driver.Latest().Time).NotTo(BeZero())

			surface.Restart()
			Expect(driver.Update(0)).To(Succeed())
			Expect(driver.Latest().Displacement).To(Equal(-0.3))
			Expect(driver.Latest().Time).To(BeZero())
		})
	})

	Describe("reset during a frame", func() {
		It("stops the frame instead of mixing epochs", func() {
			trigger := &resetAt{surface: surface, tick: 3}
			d, err := sim.NewDriver(cfg, surface, mapper, rig.Mass, rig.Spring,
				sim.WithObserver(rec),
				sim.WithObserver(trigger),
			)
			Expect(err).NotTo(HaveOccurred())

			Expect(d.Update(40 * time.Millisecond)).To(Succeed())
			frame := d.Latest()
			Expect(frame.FrameTicks).To(Equal(3))
			Expect(frame.Epoch).To(BeZero())
			Expect(rec.samples).To(HaveLen(3))
			Expect(frame.Dropped).To(BeZero())

			Expect(d.Update(0)).To(Succeed())
			frame = d.Latest()
			Expect(frame.Epoch).To(BeEquivalentTo(1))
			Expect(frame.Time).To(BeZero())
			Expect(frame.Displacement).To(Equal(0.2))
			Expect(rec.samples).To(BeEmpty())
		})
	})

	Describe("non-finite results", func() {
		It("keeps the last finite state and reports the divergence", func() {
			Expect(surface.Write(params.FieldSpringFactor, 1e6)).To(Succeed())

			for i := 0; i < 200; i++ {
				Expect(driver.Update(16 * time.Millisecond)).To(Succeed())
				f := driver.Latest()
				Expect(finite(f.Displacement, f.Elongation, f.Mass.Velocity)).To(BeTrue())
			}

			frame := driver.Latest()
			Expect(frame.Stalled).To(BeTrue())
			Expect(frame.Diverged).To(BeNumerically(">", 0))
			pos := rig.Mass.Transform().Position
			scale := rig.Spring.Transform().Scale
			Expect(finite(pos[0], pos[1], pos[2], scale[0], scale[1], scale[2])).To(BeTrue())
			for _, s := range rec.samples {
				Expect(finite(s.Displacement, s.Mass.Velocity)).To(BeTrue())
			}

			stalledAt := frame.Tick
			Expect(driver.Update(16 * time.Millisecond)).To(Succeed())
			Expect(driver.Latest().Tick).To(Equal(stalledAt))

			Expect(surface.Write(params.FieldSpringFactor, 1)).To(Succeed())
			surface.Restart()
			run(driver, 10, 16*time.Millisecond)
			frame = driver.Latest()
			Expect(frame.Stalled).To(BeFalse())
			Expect(frame.Tick).To(BeNumerically(">", 0))
			Expect(finite(frame.Displacement)).To(BeTrue())
		})

		It("rejects a tick size too coarse for the initial values", func() {
			v := values
			v.SpringFactor = 1e6
			stiff, err := params.New(v)
			Expect(err).NotTo(HaveOccurred())
			_, err = sim.NewDriver(cfg, stiff, mapper, rig.Mass, rig.Spring)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})
	})

	Describe("reference scenario", func() {
		It("keeps the mass at rest for 20000 ticks", func() {
			_, err := surface.Update(func(v *params.Values) error {
				v.Amplitude = 0
				v.InitialPosition = 0
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			surface.Restart()

			run(driver, 5000, 20*time.Millisecond)
			Expect(rec.samples).To(HaveLen(20000))
			moved := 0
			for _, s := range rec.samples {
				if s.Displacement != 0 || s.Elongation != 0 {
					moved++
				}
			}
			Expect(moved).To(BeZero())
			Expect(rig.Mass.Transform().Position).To(Equal(mapper.Pose(0, 0).MassPosition))
		})
	})

	Describe("render handles", func() {
		It("fails the frame once a handle is released", func() {
			rig.Spring.Release()
			err := driver.Update(5 * time.Millisecond)
			Expect(err).To(MatchError(dynamo.ErrHandleInvalid))
			Expect(err).To(MatchError(scene.ErrReleased))
		})
	})

	Describe("telemetry", func() {
		It("publishes frames readable from other goroutines", func() {
			var wg sync.WaitGroup
			stop := make(chan struct{})
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
						f := driver.Latest()
						Expect(f.Time).To(BeNumerically(">=", 0))
					}
				}
			}()
			run(driver, 200, 16*time.Millisecond)
			close(stop)
			wg.Wait()
			Expect(driver.Latest().Tick).To(BeNumerically(">", 0))
		})
	})
})
