package attempt

import (
	"context"
	"fmt"
	"time"
)

// Operation is the function signature for wrapped calls. The orchestrator
// invokes it once per attempt with the caller's context, untouched: an
// expired per-attempt timeout abandons the wait but never signals the
// operation to stop.
type Operation[T any] func(ctx context.Context) (T, error)

// Config configures a Runner. The zero value runs the operation exactly
// once, with no timeout, no delay, and structured-result error handling.
type Config[T any] struct {
	// OnSuccess is invoked once, with the resolved value, on the attempt
	// that ultimately succeeds.
	OnSuccess func(value T)

	// OnError is invoked once per failed attempt, after TransformError.
	OnError func(err error)

	// OnFinally is invoked exactly once per run, after the success or error
	// hooks, regardless of outcome.
	OnFinally func()

	// Rethrow surfaces the final error through Run's error value instead of
	// recording it in the Result.
	// Default: false (failures are swallowed into Result.Err).
	Rethrow bool

	// DefaultValue is placed into Result.Value when every attempt fails and
	// Rethrow is off.
	// Default: the zero value of T.
	DefaultValue T

	// Logger is a diagnostic hook invoked once per failed attempt —
	// including attempts that are later retried — after TransformError.
	Logger func(err error, attempt int)

	// RetryCount is the maximum number of retries after the initial
	// attempt, so the operation is invoked at most RetryCount+1 times.
	// Default: 0 (a single attempt).
	RetryCount int

	// RetryDelay is the fixed wait inserted before each retry attempt.
	// Default: 0 (retry immediately).
	RetryDelay time.Duration

	// Timeout is the per-attempt wall-clock budget. An attempt that exceeds
	// it fails with an error wrapping ErrTimeout while the operation itself
	// keeps running; its eventual result is discarded.
	// Default: 0 (no timeout).
	Timeout time.Duration

	// TransformError maps every caught error before it is stored, logged,
	// or handed to hooks.
	// Default: identity.
	TransformError func(err error) error

	// ShouldRetry decides, after each failed attempt while attempts remain,
	// whether another attempt is permitted. Returning false stops the loop
	// early; returning true never extends it past RetryCount+1 attempts.
	// Default: attempt <= RetryCount.
	ShouldRetry func(err error, attempt int) bool
}

// Runner executes operations under a retry/timeout envelope. Safe for
// concurrent use: the configuration is captured at construction and all
// loop state is per call.
type Runner[T any] struct {
	config Config[T]
}

// New creates a Runner with the given configuration. Negative numeric
// options are clamped to their defaults.
func New[T any](config Config[T]) *Runner[T] {
	if config.RetryCount < 0 {
		config.RetryCount = 0
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}
	if config.Timeout < 0 {
		config.Timeout = 0
	}

	return &Runner[T]{config: config}
}

// Config returns the runner's configuration.
func (r *Runner[T]) Config() Config[T] {
	return r.config
}

// Run executes op under the retry/timeout envelope and produces one
// structured outcome.
//
// Attempts run strictly sequentially. Per attempt, a failure flows through
// TransformError, then Logger, then OnError. On success, OnSuccess and then
// OnFinally run before the result is returned. After the loop terminates in
// failure, OnFinally runs exactly once — even though OnError may have run
// once per attempt — and the final transformed error is either returned
// through the error value (Rethrow) or recorded in Result.Err alongside
// DefaultValue.
//
// Run waits for each hook to return before proceeding, so hook side effects
// observe the documented order.
//
// Context cancellation stops the loop: detected while racing a timed
// attempt it is recorded as that attempt's failure; detected between
// attempts it ends the run with the last attempt's error. Either way
// OnFinally still runs and the normal result path is taken.
func (r *Runner[T]) Run(ctx context.Context, op Operation[T]) (Result[T], error) {
	cfg := r.config

	var lastErr error
	attempt := 0

	for {
		attempt++

		value, err := r.invoke(ctx, op)
		if err == nil {
			if cfg.OnSuccess != nil {
				cfg.OnSuccess(value)
			}
			if cfg.OnFinally != nil {
				cfg.OnFinally()
			}
			return Result[T]{Value: value, Attempts: attempt, Retried: attempt > 1}, nil
		}

		if cfg.TransformError != nil {
			err = cfg.TransformError(err)
		}
		lastErr = err

		if cfg.Logger != nil {
			cfg.Logger(err, attempt)
		}
		if cfg.OnError != nil {
			cfg.OnError(err)
		}

		// The ceiling binds regardless of the predicate: at most
		// RetryCount+1 invocations per run.
		if attempt > cfg.RetryCount {
			break
		}
		if !r.shouldRetry(err, attempt) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if cfg.RetryDelay > 0 {
			if sleep(ctx, cfg.RetryDelay) != nil {
				break
			}
		}
	}

	if cfg.OnFinally != nil {
		cfg.OnFinally()
	}

	if cfg.Rethrow {
		return Result[T]{}, lastErr
	}

	return Result[T]{Value: cfg.DefaultValue, Err: lastErr, Attempts: attempt, Retried: attempt > 1}, nil
}

// Value runs op and projects the outcome to its value, discarding the
// attempt metadata. Failures are reported only on the rethrow path; a
// swallowed failure yields the configured default (or zero) value.
func (r *Runner[T]) Value(ctx context.Context, op Operation[T]) (T, error) {
	res, err := r.Run(ctx, op)
	if err != nil {
		var zero T
		return zero, err
	}
	return res.Value, nil
}

func (r *Runner[T]) shouldRetry(err error, attempt int) bool {
	if r.config.ShouldRetry != nil {
		return r.config.ShouldRetry(err, attempt)
	}
	return attempt <= r.config.RetryCount
}

// invoke runs a single attempt, racing it against the per-attempt timeout
// when one is configured. The operation receives the caller's context
// untouched; on expiry the orchestrator stops waiting and records a timeout
// failure, leaving the operation to finish on its own.
func (r *Runner[T]) invoke(ctx context.Context, op Operation[T]) (T, error) {
	if r.config.Timeout <= 0 {
		return op(ctx)
	}

	type outcome struct {
		value T
		err   error
	}

	// Buffered so the late send from an abandoned attempt never blocks;
	// the result is simply dropped.
	done := make(chan outcome, 1)
	go func() {
		value, err := op(ctx)
		done <- outcome{value: value, err: err}
	}()

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	var zero T
	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		return zero, fmt.Errorf("%w after %s", ErrTimeout, r.config.Timeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes op through a single-use Runner built from config.
func Run[T any](ctx context.Context, op Operation[T], config Config[T]) (Result[T], error) {
	return New(config).Run(ctx, op)
}

// Value executes op through a single-use Runner built from config and
// returns only the resulting value.
func Value[T any](ctx context.Context, op Operation[T], config Config[T]) (T, error) {
	return New(config).Value(ctx, op)
}
