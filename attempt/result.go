package attempt

// Result is the structured outcome of a run. It is constructed once, after
// the retry loop has fully terminated, and is not modified afterwards.
//
// On success Value holds the operation's resolved value and Err is nil. When
// every attempt fails and the run is not rethrowing, Err holds the final
// transformed error and Value holds Config.DefaultValue — the zero value of T
// unless a default was configured, so a swallowed failure is distinguished
// from a legitimately zero success value only by Err.
type Result[T any] struct {
	// Value is the resolved value, or the configured default after a
	// swallowed failure.
	Value T

	// Err is the final transformed error when every attempt failed, nil on
	// success.
	Err error

	// Attempts is the number of times the operation was actually invoked,
	// not the configured maximum.
	Attempts int

	// Retried reports whether more than one attempt was made.
	Retried bool
}

// Failed reports whether the run exhausted its attempts without success.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}
