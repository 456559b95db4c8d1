package dynamo

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a parameter write violated an invariant.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrTimeAnomaly indicates a host frame delta was negative, non-finite or too large.
	ErrTimeAnomaly = errors.New("dynamo: time anomaly (frame delta discarded)")

	// ErrHandleInvalid indicates a render handle can no longer accept transform writes.
	ErrHandleInvalid = errors.New("dynamo: render handle invalid")

	// ErrCatchUpDropped indicates accumulated time beyond the catch-up cap was dropped.
	ErrCatchUpDropped = errors.New("dynamo: catch-up limit reached (simulation skipped ahead)")

	// ErrInvalidState indicates a phase with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// ParameterError reports a rejected parameter write.
type ParameterError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: %s = %g: %s", ErrInvalidParameter, e.Field, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// TimeAnomalyError reports a discarded frame delta.
type TimeAnomalyError struct {
	Delta  time.Duration
	Reason string
}

func (e *TimeAnomalyError) Error() string {
	return fmt.Sprintf("%s: delta %v: %s", ErrTimeAnomaly, e.Delta, e.Reason)
}

func (e *TimeAnomalyError) Unwrap() error {
	return ErrTimeAnomaly
}

// HandleError wraps a failed transform write on a render handle.
type HandleError struct {
	Handle string
	Op     string
	Err    error
}

func (e *HandleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s %s", ErrHandleInvalid, e.Handle, e.Op)
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrHandleInvalid, e.Handle, e.Op, e.Err)
}

func (e *HandleError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrHandleInvalid}
	}
	return []error{ErrHandleInvalid, e.Err}
}
