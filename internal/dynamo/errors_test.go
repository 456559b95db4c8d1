package dynamo

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestParameterError(t *testing.T) {
	err := fmt.Errorf("write: %w", &ParameterError{Field: "mass", Value: -1, Reason: "must be positive"})

	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	var perr *ParameterError
	if !errors.As(err, &perr) || perr.Field != "mass" {
		t.Errorf("expected ParameterError for mass, got %v", err)
	}
}

func TestTimeAnomalyError(t *testing.T) {
	err := &TimeAnomalyError{Delta: -time.Millisecond, Reason: "negative"}
	if !errors.Is(err, ErrTimeAnomaly) {
		t.Errorf("expected ErrTimeAnomaly, got %v", err)
	}
	if errors.Is(err, ErrInvalidParameter) {
		t.Error("time anomaly must not match ErrInvalidParameter")
	}
}

func TestHandleError(t *testing.T) {
	cause := errors.New("released")
	tests := []struct {
		name      string
		err       *HandleError
		wantCause bool
	}{
		{"with cause", &HandleError{Handle: "mass", Op: "position", Err: cause}, true},
		{"without cause", &HandleError{Handle: "spring", Op: "bind"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, ErrHandleInvalid) {
				t.Errorf("expected ErrHandleInvalid, got %v", tt.err)
			}
			if got := errors.Is(tt.err, cause); got != tt.wantCause {
				t.Errorf("errors.Is(cause) = %v, want %v", got, tt.wantCause)
			}
		})
	}
}

func TestPhaseValid(t *testing.T) {
	tests := []struct {
		p    Phase
		want bool
	}{
		{Phase{1, 2}, true},
		{Phase{1, math.NaN()}, false},
		{Phase{math.Inf(-1), 0}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%v: expected %v, got %v", tt.p, tt.want, got)
		}
	}
}

type stiff struct{ k float64 }

func (s stiff) Acceleration(p Phase, t float64) float64 { return -s.k * p.Position }

func TestSlopeAndAdvance(t *testing.T) {
	p := Phase{Position: 2, Velocity: 3}
	d := Slope(stiff{k: 4}, p, 0)
	if d.Position != 3 || d.Velocity != -8 {
		t.Errorf("expected slope {3 -8}, got %v", d)
	}
	next := p.Advance(d, 0.5)
	if next.Position != 3.5 || next.Velocity != -1 {
		t.Errorf("expected {3.5 -1}, got %v", next)
	}
}
