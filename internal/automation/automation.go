// Package automation replays scripted GUI interaction against a live driver
// without a terminal: timed parameter writes, resets and restarts, fed
// through the game loop at a fixed frame rate.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/springsim/internal/loop"
	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/sim"
)

const (
	ActionReset   = "reset"
	ActionRestart = "restart"
)

// Scenario is a script of steps played over Duration seconds of host time.
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	FPS         int     `yaml:"fps"`
	Duration    float64 `yaml:"duration"`
	Steps       []Step  `yaml:"steps"`
}

// Step fires on the first frame whose host time reaches At. Set is applied
// as one group write before Action.
type Step struct {
	At     float64            `yaml:"at"`
	Set    map[string]float64 `yaml:"set,omitempty"`
	Action string             `yaml:"action,omitempty"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks field names and actions. Values are checked when the
// step fires, so a script can deliberately exercise rejected writes.
func (s *Scenario) Validate() error {
	if !(s.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %f", s.Duration)
	}
	if s.FPS < 0 {
		return fmt.Errorf("fps must not be negative, got %d", s.FPS)
	}
	for i, st := range s.Steps {
		if st.At < 0 || st.At > s.Duration {
			return fmt.Errorf("step %d: at %f outside [0, %f]", i+1, st.At, s.Duration)
		}
		for name := range st.Set {
			if _, err := params.ParseField(name); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		switch st.Action {
		case "", ActionReset, ActionRestart:
		default:
			return fmt.Errorf("step %d: unknown action %q", i+1, st.Action)
		}
		if len(st.Set) == 0 && st.Action == "" {
			return fmt.Errorf("step %d: nothing to do", i+1)
		}
	}
	return nil
}

// Driver is the part of sim.Driver a scenario needs.
type Driver interface {
	loop.Simulation
	Parameters() *params.Surface
	Latest() sim.Frame
}

// Report summarises a played scenario.
type Report struct {
	Frames   uint64
	Applied  int
	Rejected []error
	Final    sim.Frame
}

// Play runs the scenario to completion. Rejected writes are collected in the
// report; a driver failure ends the run with an error. onFrame, if not nil,
// sees the driver's frame after every loop step.
func Play(ctx context.Context, sc *Scenario, d Driver, onFrame func(sim.Frame)) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	steps := append([]Step(nil), sc.Steps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].At < steps[j].At })

	lp := loop.New(sc.FPS)
	lp.AddSimulation(d)
	if onFrame != nil {
		lp.OnFrame(func(uint64, time.Duration) { onFrame(d.Latest()) })
	}

	report := &Report{}
	frame := lp.Interval()
	total := time.Duration(sc.Duration * float64(time.Second))
	next := 0

	for elapsed := time.Duration(0); elapsed < total; elapsed += frame {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		for next < len(steps) && time.Duration(steps[next].At*float64(time.Second)) <= elapsed {
			if err := apply(d.Parameters(), steps[next]); err != nil {
				report.Rejected = append(report.Rejected, fmt.Errorf("step at %.3fs: %w", steps[next].At, err))
			} else {
				report.Applied++
			}
			next++
		}
		if err := lp.Step(frame); err != nil {
			return report, err
		}
	}

	report.Frames = lp.Frames()
	report.Final = d.Latest()
	return report, nil
}

func apply(s *params.Surface, st Step) error {
	if len(st.Set) > 0 {
		_, err := s.Update(func(v *params.Values) error {
			var errs []error
			for name, value := range st.Set {
				f, err := params.ParseField(name)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				errs = append(errs, v.Set(f, value))
			}
			return errors.Join(errs...)
		})
		if err != nil {
			return err
		}
	}
	switch st.Action {
	case ActionReset:
		s.Reset()
	case ActionRestart:
		s.Restart()
	}
	return nil
}
