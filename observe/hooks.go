package observe

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/tryops/attempt"
)

// Instrument bundles the telemetry components wired around orchestrated runs.
//
// Contract:
//   - Concurrency: safe for concurrent use; one Instrument serves many runs.
//   - Context: propagates context through run spans.
//   - Errors: errors from the wrapped operation are recorded and passed
//     through unchanged.
type Instrument struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrument creates an Instrument from an Observer.
func NewInstrument(obs Observer) (*Instrument, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return &Instrument{
		tracer:  newTracer(obs.Tracer()),
		metrics: metrics,
		logger:  obs.Logger(),
	}, nil
}

// Run executes op through the attempt orchestrator with one span per run,
// an attempt.failed event per failed attempt, run metrics, and structured
// logs. It is the convenience form of RunWith for one-off calls.
func Run[T any](ctx context.Context, obs Observer, meta CallMeta, op attempt.Operation[T], cfg attempt.Config[T]) (attempt.Result[T], error) {
	ins, err := NewInstrument(obs)
	if err != nil {
		var zero attempt.Result[T]
		return zero, err
	}
	return RunWith(ctx, ins, meta, op, cfg)
}

// RunWith executes op through the attempt orchestrator using a prepared
// Instrument. Each run gets a fresh run_id carried by the span and every
// log line.
//
// The configured hooks are chained, never replaced: telemetry records the
// failure first, then the user's Logger hook runs, preserving the
// orchestrator's per-attempt ordering (TransformError, Logger, OnError).
func RunWith[T any](ctx context.Context, ins *Instrument, meta CallMeta, op attempt.Operation[T], cfg attempt.Config[T]) (attempt.Result[T], error) {
	var zero attempt.Result[T]
	if ins == nil {
		return zero, ErrNilObserver
	}
	if err := meta.Validate(); err != nil {
		return zero, err
	}

	runID := uuid.NewString()
	ctx, span := ins.tracer.StartRun(ctx, meta, runID)
	logger := ins.logger.WithCall(meta).WithRun(runID)

	// Attempts run strictly sequentially, so the hook mutates these
	// without locking. The counter also covers the rethrow path, where
	// the structured result carries no attempt count.
	var attempts, timeouts int
	userLogger := cfg.Logger
	cfg.Logger = func(err error, attemptNum int) {
		attempts = attemptNum
		if errors.Is(err, attempt.ErrTimeout) {
			timeouts++
		}
		ins.tracer.AddAttemptFailure(span, attemptNum, err)
		logger.Warn(ctx, "attempt failed",
			Field{Key: "attempt", Value: attemptNum},
			Field{Key: "error", Value: err.Error()},
		)
		if userLogger != nil {
			userLogger(err, attemptNum)
		}
	}

	start := time.Now()
	res, runErr := attempt.Run(ctx, op, cfg)
	duration := time.Since(start)

	finalErr := runErr
	if finalErr == nil {
		finalErr = res.Err
	}
	if res.Attempts > attempts {
		attempts = res.Attempts
	}

	stats := RunStats{
		Duration: duration,
		Attempts: attempts,
		Timeouts: timeouts,
		Retried:  attempts > 1,
		Err:      finalErr,
	}

	ins.tracer.EndRun(span, stats)
	ins.metrics.RecordRun(ctx, meta, stats)

	fields := []Field{
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		{Key: "attempts", Value: attempts},
	}
	if finalErr != nil {
		fields = append(fields, Field{Key: "error", Value: finalErr.Error()})
		logger.Error(ctx, "run failed", fields...)
	} else {
		logger.Info(ctx, "run completed", fields...)
	}

	return res, runErr
}

// AttemptLogger adapts the observer's structured logger into an
// attempt.Config.Logger hook for callers that drive the orchestrator
// directly.
func AttemptLogger(obs Observer, meta CallMeta) func(err error, attemptNum int) {
	if obs == nil {
		return func(error, int) {}
	}

	logger := obs.Logger().WithCall(meta)
	return func(err error, attemptNum int) {
		logger.Warn(context.Background(), "attempt failed",
			Field{Key: "attempt", Value: attemptNum},
			Field{Key: "error", Value: err.Error()},
		)
	}
}
