package params

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/physics"
)

func referenceValues() Values {
	return FromInitial(
		physics.SpringParameters{DampingFactor: 1, SpringFactor: 1, Amplitude: 0, Frequency: 0.1, PhaseShift: 0.1},
		physics.MassState{Position: 0, Velocity: 0, Mass: 1},
	)
}

func newSurface(t *testing.T, v Values) *Surface {
	t.Helper()
	s, err := New(v)
	if err != nil {
		t.Fatalf("new surface: %v", err)
	}
	return s
}

func TestWrite_RejectsInvalid(t *testing.T) {
	s := newSurface(t, referenceValues())
	before := s.Read()

	tests := []struct {
		field Field
		value float64
	}{
		{FieldSpringFactor, 0},
		{FieldFrequency, -1},
		{FieldMass, 0},
		{FieldMass, -3},
		{FieldDampingFactor, -0.1},
		{FieldAmplitude, -1},
		{FieldPhaseShift, math.NaN()},
		{FieldInitialVelocity, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			err := s.Write(tt.field, tt.value)
			if !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
			var perr *dynamo.ParameterError
			if !errors.As(err, &perr) || perr.Field != tt.field.String() {
				t.Errorf("expected ParameterError for %s, got %v", tt.field, err)
			}
		})
	}

	after := s.Read()
	if after != before {
		t.Errorf("rejected writes changed the surface: %+v -> %+v", before, after)
	}
}

func TestWrite_PublishesNewVersion(t *testing.T) {
	s := newSurface(t, referenceValues())

	if err := s.Write(FieldAmplitude, 0.25); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap := s.Read()
	if snap.Amplitude != 0.25 {
		t.Errorf("expected amplitude 0.25, got %f", snap.Amplitude)
	}
	if snap.Version != 2 {
		t.Errorf("expected version 2, got %d", snap.Version)
	}
	if snap.Epoch != 0 {
		t.Errorf("expected epoch 0, got %d", snap.Epoch)
	}
}

func TestUpdate_GroupIsAtomic(t *testing.T) {
	v := referenceValues()
	v.Amplitude, v.Frequency = 1, 1
	s := newSurface(t, v)

	const writers, rounds = 4, 500
	var wg sync.WaitGroup
	stop := make(chan struct{})

	readerErr := make(chan string, 1)
	go func() {
		var last uint64
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := s.Read()
			if snap.Amplitude != snap.Frequency {
				select {
				case readerErr <- "torn snapshot":
				default:
				}
				return
			}
			if snap.Version < last {
				select {
				case readerErr <- "version went backwards":
				default:
				}
				return
			}
			last = snap.Version
		}
	}()

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 1; i <= rounds; i++ {
				k := float64(w*rounds + i)
				_, err := s.Update(func(v *Values) error {
					v.Amplitude = k
					v.Frequency = k
					return nil
				})
				if err != nil {
					t.Errorf("update: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(stop)

	select {
	case msg := <-readerErr:
		t.Fatal(msg)
	default:
	}

	if got := s.Version(); got != 1+writers*rounds {
		t.Errorf("expected version %d, got %d", 1+writers*rounds, got)
	}
}

func TestWrite_ConcurrentFieldsNoLostUpdates(t *testing.T) {
	s := newSurface(t, referenceValues())

	const rounds = 1000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= rounds; i++ {
			if err := s.Write(FieldDampingFactor, float64(i)); err != nil {
				t.Errorf("damping write: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 1; i <= rounds; i++ {
			if err := s.Write(FieldAmplitude, float64(i)); err != nil {
				t.Errorf("amplitude write: %v", err)
			}
		}
	}()
	wg.Wait()

	snap := s.Read()
	if snap.DampingFactor != rounds || snap.Amplitude != rounds {
		t.Errorf("expected both fields at %d, got damping %f amplitude %f", rounds, snap.DampingFactor, snap.Amplitude)
	}
	if snap.Version != 1+2*rounds {
		t.Errorf("expected version %d, got %d", 1+2*rounds, snap.Version)
	}
}

func TestUpdate_InvalidGroupLeavesValues(t *testing.T) {
	s := newSurface(t, referenceValues())
	before := s.Read()

	_, err := s.Update(func(v *Values) error {
		v.Amplitude = 3
		v.SpringFactor = 0
		return nil
	})
	if !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if s.Read() != before {
		t.Error("invalid group write was published")
	}
}

func TestReset_RestoresInitial(t *testing.T) {
	initial := referenceValues()
	s := newSurface(t, initial)

	_ = s.Write(FieldAmplitude, 2)
	_ = s.Write(FieldMass, 4)
	snap := s.Reset()

	if snap.Values != initial {
		t.Errorf("expected initial values after reset, got %+v", snap.Values)
	}
	if snap.Epoch != 1 {
		t.Errorf("expected epoch 1, got %d", snap.Epoch)
	}
	if snap.Version != 4 {
		t.Errorf("expected version 4, got %d", snap.Version)
	}
}

func TestRestart_KeepsValues(t *testing.T) {
	s := newSurface(t, referenceValues())
	_ = s.Write(FieldInitialPosition, 0.5)

	snap := s.Restart()
	if snap.InitialPosition != 0.5 {
		t.Errorf("expected initial position 0.5, got %f", snap.InitialPosition)
	}
	if snap.Epoch != 1 {
		t.Errorf("expected epoch 1, got %d", snap.Epoch)
	}
}

func TestNew_RejectsInvalidInitial(t *testing.T) {
	v := referenceValues()
	v.Frequency = 0
	if _, err := New(v); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in   string
		want Field
	}{
		{"mass", FieldMass},
		{"damping", FieldDampingFactor},
		{"Spring-Factor", FieldSpringFactor},
		{"phase", FieldPhaseShift},
		{"x0", FieldInitialPosition},
		{"initial_velocity", FieldInitialVelocity},
	}
	for _, tt := range tests {
		got, err := ParseField(tt.in)
		if err != nil {
			t.Errorf("ParseField(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseField(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseField("gravity"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestFields_RoundTrip(t *testing.T) {
	v := referenceValues()
	for i, f := range Fields() {
		if err := v.Set(f, float64(i+1)); err != nil {
			t.Fatalf("set %s: %v", f, err)
		}
		if got := v.Get(f); got != float64(i+1) {
			t.Errorf("%s: expected %d, got %f", f, i+1, got)
		}
	}
	if len(Fields()) != 8 {
		t.Errorf("expected 8 fields, got %d", len(Fields()))
	}
}

func TestWrite_RejectsUnstableStep(t *testing.T) {
	s, err := New(referenceValues(), WithTickSize(5*time.Millisecond))
	if err != nil {
		t.Fatalf("new surface: %v", err)
	}
	before := s.Read()

	tests := []struct {
		field Field
		value float64
	}{
		{FieldSpringFactor, 1e6},
		{FieldMass, 1e-6},
		{FieldDampingFactor, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			err := s.Write(tt.field, tt.value)
			if !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
			var perr *dynamo.ParameterError
			if !errors.As(err, &perr) || perr.Field != tt.field.String() || perr.Value != tt.value {
				t.Errorf("expected the error to name %s = %g, got %v", tt.field, tt.value, err)
			}
		})
	}

	if s.Read() != before {
		t.Errorf("expected surface unchanged, got %+v", s.Read())
	}

	// ω₀·dt = 1.5 is inside the bound.
	if err := s.Write(FieldSpringFactor, 90000); err != nil {
		t.Errorf("expected a stiff but stable spring to be accepted, got %v", err)
	}
}

func TestUpdate_RejectsUnstableStep(t *testing.T) {
	s, err := New(referenceValues(), WithTickSize(5*time.Millisecond))
	if err != nil {
		t.Fatalf("new surface: %v", err)
	}
	_, err = s.Update(func(v *Values) error {
		v.Mass = 0.001
		v.DampingFactor = 1
		return nil
	})
	var perr *dynamo.ParameterError
	if !errors.As(err, &perr) || perr.Field != FieldDampingFactor.String() {
		t.Errorf("expected a damping_factor ParameterError, got %v", err)
	}
	if s.Version() != 1 {
		t.Errorf("expected nothing published, got version %d", s.Version())
	}
}

func TestNew_RejectsUnstableInitial(t *testing.T) {
	v := referenceValues()
	v.SpringFactor = 1e6
	if _, err := New(v, WithTickSize(5*time.Millisecond)); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
	if _, err := New(v); err != nil {
		t.Errorf("expected no step check without a tick size, got %v", err)
	}
}

func TestCheckStep(t *testing.T) {
	tests := []struct {
		name string
		k, c float64
		m    float64
		dt   float64
		ok   bool
	}{
		{"reference", 1, 1, 1, 0.005, true},
		{"no tick size", 1e9, 1e9, 1, 0, true},
		{"stiff", 1e6, 1, 1, 0.005, false},
		{"light", 1, 1, 1e-6, 0.005, false},
		{"heavy damping", 1, 500, 1, 0.005, false},
		{"near the bound", 150000, 0, 1, 0.005, true},
	}
	for _, tt := range tests {
		v := referenceValues()
		v.SpringFactor, v.DampingFactor, v.Mass = tt.k, tt.c, tt.m
		if err := v.CheckStep(tt.dt); (err == nil) != tt.ok {
			t.Errorf("%s: expected ok=%v, got %v", tt.name, tt.ok, err)
		}
	}
}
