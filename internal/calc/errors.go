package calc

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedProperty is returned when a caller asks for a quantity
	// the calculator does not implement.
	ErrUnsupportedProperty = errors.New("calc: unsupported property")

	// ErrNoConfiguration indicates a nil configuration with nothing cached.
	ErrNoConfiguration = errors.New("calc: no atomic configuration to evaluate")

	// ErrInvalidResults indicates NaN or Inf in energy, forces or stress.
	ErrInvalidResults = errors.New("calc: results contain NaN or Inf")
)

// InferenceError wraps a failure raised while building the graph or running
// the model.
type InferenceError struct {
	Atoms   int
	Stage   string
	Wrapped error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("calc: %s failed for %d atoms: %v", e.Stage, e.Atoms, e.Wrapped)
}

func (e *InferenceError) Unwrap() error {
	return e.Wrapped
}
