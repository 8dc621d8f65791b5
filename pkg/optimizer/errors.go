package optimizer

import (
	"errors"
	"fmt"
)

// ErrInvalidParameterSpace is returned before any search begins when the
// optimizable parameter set is empty or a parameter has degenerate bounds.
var ErrInvalidParameterSpace = errors.New("invalid parameter space")

// ConfigError reports a rejected field in an optimization config.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// OptimizationFailedError wraps an unexpected failure escaping a search
// strategy's control loop. A single failed candidate never produces this; it
// is recorded in the history instead. PartialHistory holds whatever outcomes
// were collected before the failure, and may be nil.
type OptimizationFailedError struct {
	Cause          error
	PartialHistory []Outcome
}

func (e *OptimizationFailedError) Error() string {
	return fmt.Sprintf("optimization failed: %v", e.Cause)
}

func (e *OptimizationFailedError) Unwrap() error {
	return e.Cause
}
