package routefilter

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingOptimizer is returned when a filter selection requires
	// LP/MIP optimizers that were not configured.
	ErrMissingOptimizer = errors.New("optimizer required but not configured")
)

// ErrMissingPropagator indicates a dimension needing a cumul-bounds
// propagator without one configured.
type ErrMissingPropagator struct {
	Dimension string
}

func (e *ErrMissingPropagator) Error() string {
	return fmt.Sprintf("no cumul bounds propagator configured for dimension %q", e.Dimension)
}
