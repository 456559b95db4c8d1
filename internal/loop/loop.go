// Package loop is the host game loop: it measures wall-clock frame deltas,
// hands them to registered simulations and then runs per-frame hooks such as
// rendering.
package loop

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

const DefaultFPS = 60

// Simulation is called once per frame with the wall time since the previous
// frame. An error stops the loop.
type Simulation interface {
	Update(delta time.Duration) error
}

type SimulationFunc func(delta time.Duration) error

func (f SimulationFunc) Update(delta time.Duration) error { return f(delta) }

// FrameFunc runs after every simulation has been updated for the frame.
type FrameFunc func(frame uint64, delta time.Duration)

type Option func(*GameLoop)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *GameLoop) { g.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *GameLoop) { g.logger = l }
}

type GameLoop struct {
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	sims   []Simulation
	hooks  []FrameFunc
	frames uint64
}

func New(fps int, opts ...Option) *GameLoop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	g := &GameLoop{
		interval: time.Second / time.Duration(fps),
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GameLoop) Interval() time.Duration { return g.interval }

func (g *GameLoop) AddSimulation(s Simulation) {
	g.mu.Lock()
	g.sims = append(g.sims, s)
	g.mu.Unlock()
}

func (g *GameLoop) OnFrame(fn FrameFunc) {
	g.mu.Lock()
	g.hooks = append(g.hooks, fn)
	g.mu.Unlock()
}

func (g *GameLoop) Frames() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frames
}

// Step runs one frame with an explicit delta. Simulations run in
// registration order; hooks are skipped if any simulation fails.
func (g *GameLoop) Step(delta time.Duration) error {
	g.mu.Lock()
	sims := append([]Simulation(nil), g.sims...)
	hooks := append([]FrameFunc(nil), g.hooks...)
	g.frames++
	frame := g.frames
	g.mu.Unlock()

	for i, s := range sims {
		if err := s.Update(delta); err != nil {
			return fmt.Errorf("frame %d: simulation %d: %w", frame, i, err)
		}
	}
	for _, h := range hooks {
		h(frame, delta)
	}
	return nil
}

// Run steps once per interval until ctx is cancelled or a simulation fails.
// Deltas are measured with the loop's clock, so a slow frame is seen by the
// simulations as one long delta.
func (g *GameLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.logger.Info("game loop started", "interval", g.interval)
	last := g.now()
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("game loop stopped", "frames", g.Frames())
			return nil
		case <-ticker.C:
			now := g.now()
			delta := now.Sub(last)
			last = now
			if err := g.Step(delta); err != nil {
				g.logger.Error("game loop aborted", "err", err)
				return err
			}
		}
	}
}
