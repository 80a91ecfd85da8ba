// Package attempt wraps a single fallible call with retries, a per-attempt
// timeout, lifecycle hooks, and a structured outcome.
//
// The package exists so callers never hand-roll the same envelope around a
// flaky call: run it, bound each try in time, decide whether to try again,
// fire the right hooks in the right order, and come back with one value that
// says what happened.
//
// # Quick Start
//
// One-off execution with defaults (a single attempt, errors swallowed into
// the result):
//
//	res, _ := attempt.Run(ctx, fetchUser, attempt.Config[*User]{})
//	if res.Failed() {
//	    log.Printf("fetch failed after %d attempt(s): %v", res.Attempts, res.Err)
//	}
//
// A reusable runner with retries and a per-attempt budget:
//
//	runner := attempt.New(attempt.Config[[]byte]{
//	    RetryCount: 3,
//	    RetryDelay: 50 * time.Millisecond,
//	    Timeout:    2 * time.Second,
//	})
//	res, _ := runner.Run(ctx, download)
//
// # Structured Outcomes
//
// By default Run never returns an error: the outcome is a Result carrying
// the value or the final transformed error, the number of attempts actually
// made, and whether any retry happened. Set Rethrow to get the final error
// through the error return instead, with no structured result.
//
// When every attempt fails and Rethrow is off, Result.Value holds
// DefaultValue — the zero value of T unless configured — and Result.Err
// holds the error, so both carry information at once.
//
// # Hooks
//
// Hooks fire in a fixed order. Per failed attempt:
//
//	TransformError -> Logger -> OnError
//
// On the attempt that succeeds:
//
//	OnSuccess -> OnFinally
//
// OnFinally runs exactly once per run, after the loop has fully terminated,
// regardless of outcome — even when OnError ran once per failed attempt.
// Each hook completes before the next step proceeds. Hooks have no error
// returns; a panicking hook propagates and terminates the run.
//
// # Retry Decisions
//
// RetryCount bounds the loop: at most RetryCount+1 invocations. ShouldRetry
// is consulted after each failed attempt while attempts remain and can stop
// the loop early — it never extends it:
//
//	attempt.Config[int]{
//	    RetryCount: 5,
//	    ShouldRetry: func(err error, n int) bool {
//	        return !errors.Is(err, ErrPermanent)
//	    },
//	}
//
// # Timeouts
//
// Timeout bounds each attempt's wall-clock wait. The race only abandons the
// orchestrator's wait: the operation is not cancelled, keeps running, and
// its eventual result is discarded without touching the run's state. Side
// effects the operation produces after its attempt was abandoned are the
// caller's to guard against. Timeout failures wrap ErrTimeout:
//
//	res, _ := runner.Run(ctx, slowCall)
//	if errors.Is(res.Err, attempt.ErrTimeout) {
//	    // the budget elapsed before the call settled
//	}
//
// # Value Projection
//
// Value is the convenience surface for callers that only want the value and
// are content with the default on failure:
//
//	cfg := attempt.Config[string]{DefaultValue: "fallback", RetryCount: 2}
//	s, _ := attempt.Value(ctx, lookup, cfg)
package attempt
