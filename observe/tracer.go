package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with run-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartRun must honor cancellation/deadlines and return ctx.Err() when canceled.
// - Errors: EndRun must be best-effort and must not panic.
type Tracer interface {
	// StartRun starts a new span covering one orchestrated run.
	StartRun(ctx context.Context, meta CallMeta, runID string) (context.Context, trace.Span)

	// AddAttemptFailure appends a span event for one failed attempt.
	AddAttemptFailure(span trace.Span, attemptNum int, err error)

	// EndRun ends the span, recording the run totals and the final error.
	EndRun(span trace.Span, stats RunStats)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartRun starts a new span with call metadata as attributes.
func (t *tracerImpl) StartRun(ctx context.Context, meta CallMeta, runID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("call.id", meta.CallID()),
		attribute.String("call.name", meta.Name),
		attribute.Bool("call.error", false), // Updated in EndRun if the run fails
	}
	if meta.Component != "" {
		attrs = append(attrs, attribute.String("call.component", meta.Component))
	}
	if meta.Version != "" {
		attrs = append(attrs, attribute.String("call.version", meta.Version))
	}
	if runID != "" {
		attrs = append(attrs, attribute.String("run_id", runID))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// AddAttemptFailure records a failed attempt as a span event.
func (t *tracerImpl) AddAttemptFailure(span trace.Span, attemptNum int, err error) {
	span.AddEvent("attempt.failed", trace.WithAttributes(
		attribute.Int("call.attempt", attemptNum),
		attribute.String("error", err.Error()),
	))
}

// EndRun ends the span, setting the run totals and the error status.
func (t *tracerImpl) EndRun(span trace.Span, stats RunStats) {
	span.SetAttributes(
		attribute.Int("call.attempts", stats.Attempts),
		attribute.Bool("call.retried", stats.Retried),
		attribute.Int("call.timeouts", stats.Timeouts),
	)

	if stats.Err != nil {
		span.SetStatus(codes.Error, stats.Err.Error())
		span.SetAttributes(attribute.Bool("call.error", true))
		span.RecordError(stats.Err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartRun(ctx context.Context, meta CallMeta, runID string) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) AddAttemptFailure(span trace.Span, attemptNum int, err error) {}

func (t *noopTracer) EndRun(span trace.Span, stats RunStats) {
	span.End()
}
