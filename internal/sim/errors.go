package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates NaN or Inf in positions, velocities or results.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrInvalidConfig indicates run parameters that cannot be simulated.
	ErrInvalidConfig = errors.New("sim: invalid run configuration")
)

// SimulationError wraps an error with the step it happened on.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f ps): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
