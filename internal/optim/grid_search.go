package optim

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/sim"
)

// Objective scores a finished run; lower is better.
type Objective func(r *sim.Result) float64

// Trial is one evaluated grid point. Err is set when the point violates a
// parameter invariant or the run failed; such trials never win.
type Trial struct {
	Values params.Values
	Score  float64
	Err    error
}

// GridSearch evaluates every combination of the given field values.
type GridSearch struct {
	fields []params.Field
	ranges [][]float64
}

func NewGridSearch(fields []params.Field, ranges [][]float64) (*GridSearch, error) {
	if len(fields) == 0 || len(fields) != len(ranges) {
		return nil, fmt.Errorf("grid search needs one range per field, got %d fields and %d ranges", len(fields), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("empty range for %s", fields[i])
		}
	}
	return &GridSearch{fields: fields, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// points expands the grid into unscored trials. A field that cannot be set
// leaves its error on the trial.
func (g *GridSearch) points(base params.Values) []Trial {
	out := []Trial{{Values: base, Score: math.Inf(1)}}
	for i, f := range g.fields {
		next := make([]Trial, 0, len(out)*len(g.ranges[i]))
		for _, tr := range out {
			for _, x := range g.ranges[i] {
				c := tr
				if err := c.Values.Set(f, x); err != nil && c.Err == nil {
					c.Err = err
				}
				next = append(next, c)
			}
		}
		out = next
	}
	return out
}

// Search runs every grid point for duration seconds on up to workers
// goroutines and returns the best trial plus all trials sorted by score.
// workers <= 0 uses GOMAXPROCS.
func (g *GridSearch) Search(ctx context.Context, cfg sim.Config, base params.Values, duration float64, objective Objective, workers int) (Trial, []Trial, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	trials := g.points(base)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range trials {
		if trials[i].Err != nil {
			continue
		}
		i := i
		eg.Go(func() error {
			tr := &trials[i]
			res, err := sim.Run(ctx, cfg, tr.Values, duration)
			tr.Err = err
			if err == nil {
				tr.Score = objective(res)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Trial{}, nil, err
	}

	sort.SliceStable(trials, func(i, j int) bool {
		if (trials[i].Err == nil) != (trials[j].Err == nil) {
			return trials[i].Err == nil
		}
		return trials[i].Score < trials[j].Score
	})
	if trials[0].Err != nil {
		return trials[0], trials, fmt.Errorf("no valid grid point: %w", trials[0].Err)
	}
	return trials[0], trials, nil
}

// SettlingTime is the time after which |displacement| stays within
// threshold. Runs that never settle score +Inf.
func SettlingTime(threshold float64) Objective {
	return func(r *sim.Result) float64 {
		n := len(r.Samples)
		if n == 0 {
			return math.Inf(1)
		}
		for i := n - 1; i >= 0; i-- {
			if math.Abs(r.Samples[i].Displacement) > threshold {
				if i == n-1 {
					return math.Inf(1)
				}
				return r.Samples[i+1].Time
			}
		}
		return 0
	}
}

// PeakDisplacement scores by the largest |displacement|.
func PeakDisplacement(r *sim.Result) float64 {
	peak := 0.0
	for _, s := range r.Samples {
		peak = math.Max(peak, math.Abs(s.Displacement))
	}
	return peak
}

// NegPeakDisplacement prefers the largest response, for finding resonance.
func NegPeakDisplacement(r *sim.Result) float64 {
	return -PeakDisplacement(r)
}

// ParseRange reads either a comma list "0.1,0.5,1" or an inclusive
// "start:stop:step" span.
func ParseRange(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if parts := strings.Split(s, ":"); len(parts) == 3 {
		var span [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("range %q: %w", s, err)
			}
			span[i] = v
		}
		start, stop, step := span[0], span[1], span[2]
		if !(step > 0) || stop < start {
			return nil, fmt.Errorf("range %q: need start <= stop and a positive step", s)
		}
		n := int(math.Floor((stop-start)/step+1e-9)) + 1
		out := make([]float64, n)
		for i := range out {
			out[i] = start + float64(i)*step
		}
		return out, nil
	}

	var out []float64
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}
