package framegraph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGraphCycle is returned by Compile when the declared reads and writes
// form a dependency cycle. The frame is abandoned before any backend call;
// no partial plan is produced.
var ErrGraphCycle = errors.New("framegraph: dependency cycle")

// CycleError reports the passes involved in a dependency cycle.
// It unwraps to ErrGraphCycle.
type CycleError struct {
	// Passes are the names of the offending passes, in declaration order.
	Passes []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("framegraph: dependency cycle involving passes: %s",
		strings.Join(e.Passes, ", "))
}

// Unwrap makes errors.Is(err, ErrGraphCycle) work.
func (e *CycleError) Unwrap() error {
	return ErrGraphCycle
}
