package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrNonFiniteForce indicates a controller returned NaN or Inf.
	ErrNonFiniteForce = errors.New("sim: controller output is not finite")

	// ErrBadConfig indicates an out-of-range loop configuration value.
	ErrBadConfig = errors.New("sim: invalid loop configuration")
)

// SimError carries the tick at which a simulation fault occurred.
type SimError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimError) Unwrap() error {
	return e.Wrapped
}
