package attempt

import "errors"

// Sentinel errors for orchestrated runs.
var (
	// ErrTimeout is the basis of the failure recorded for an attempt whose
	// per-attempt budget elapsed before the operation settled. Failures
	// produced by the timeout race wrap it, so errors.Is(err, ErrTimeout)
	// identifies them.
	ErrTimeout = errors.New("attempt: operation timed out")
)
