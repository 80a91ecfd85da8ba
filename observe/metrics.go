package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RunStats summarizes one orchestrated run for telemetry.
type RunStats struct {
	Duration time.Duration // Wall-clock time for the whole run
	Attempts int           // Operation invocations actually made
	Timeouts int           // Attempts that failed on the per-attempt budget
	Retried  bool          // Whether more than one attempt was made
	Err      error         // Final transformed error, nil on success
}

// Metrics records run-level metrics for wrapped calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRun records one orchestrated run with its attempt and error counts.
	RecordRun(ctx context.Context, meta CallMeta, stats RunStats)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	timeoutCount metric.Int64Counter
	attemptsHist metric.Int64Histogram
	durationHist metric.Float64Histogram
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"call.run.total",
		metric.WithDescription("Total number of orchestrated runs"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"call.run.errors",
		metric.WithDescription("Total number of runs that exhausted all attempts"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	timeoutCount, err := meter.Int64Counter(
		"call.run.timeouts",
		metric.WithDescription("Total number of attempts abandoned on the per-attempt budget"),
		metric.WithUnit("{timeout}"),
	)
	if err != nil {
		return nil, err
	}

	attemptsHist, err := meter.Int64Histogram(
		"call.run.attempts",
		metric.WithDescription("Operation invocations per run"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"call.run.duration_ms",
		metric.WithDescription("Run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		timeoutCount: timeoutCount,
		attemptsHist: attemptsHist,
		durationHist: durationHist,
	}, nil
}

// RecordRun records metrics for one orchestrated run.
func (m *metricsImpl) RecordRun(ctx context.Context, meta CallMeta, stats RunStats) {
	attrs := []attribute.KeyValue{
		attribute.String("call.id", meta.CallID()),
		attribute.String("call.name", meta.Name),
	}
	if meta.Component != "" {
		attrs = append(attrs, attribute.String("call.component", meta.Component))
	}

	opt := metric.WithAttributes(attrs...)

	// Always increment total counter
	m.totalCount.Add(ctx, 1, opt)

	// Increment error counter when the run exhausted its attempts
	if stats.Err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	// Count abandoned attempts across the run
	if stats.Timeouts > 0 {
		m.timeoutCount.Add(ctx, int64(stats.Timeouts), opt)
	}

	m.attemptsHist.Record(ctx, int64(stats.Attempts), opt)
	m.durationHist.Record(ctx, float64(stats.Duration.Milliseconds()), opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordRun(ctx context.Context, meta CallMeta, stats RunStats) {}
