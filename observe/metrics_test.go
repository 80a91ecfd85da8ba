package observe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*metricsImpl, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

// TestMetrics_TotalCounterIncrements verifies call.run.total is incremented.
func TestMetrics_TotalCounterIncrements(t *testing.T) {
	m, reader := newTestMetrics(t)

	meta := CallMeta{
		Component: "test",
		Name:      "my_call",
	}

	m.RecordRun(context.Background(), meta, RunStats{
		Duration: 100 * time.Millisecond,
		Attempts: 1,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "call.run.total")
	if found == nil {
		t.Fatal("call.run.total metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("expected count 1, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_ErrorCounterOnSuccess verifies errors counter NOT incremented on success.
func TestMetrics_ErrorCounterOnSuccess(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRun(context.Background(), CallMeta{Name: "success_call"}, RunStats{
		Duration: 50 * time.Millisecond,
		Attempts: 1,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "call.run.errors")
	if found == nil {
		// Metric not yet recorded at all; acceptable
		return
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		return
	}
	if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 0 {
		t.Errorf("expected errors count 0, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_ErrorCounterOnFailure verifies errors counter incremented on failure.
func TestMetrics_ErrorCounterOnFailure(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRun(context.Background(), CallMeta{Name: "failing_call"}, RunStats{
		Duration: 50 * time.Millisecond,
		Attempts: 3,
		Retried:  true,
		Err:      errors.New("exhausted"),
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "call.run.errors")
	if found == nil {
		t.Fatal("call.run.errors metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("expected errors count 1, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_TimeoutCounter verifies abandoned attempts are counted.
func TestMetrics_TimeoutCounter(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRun(context.Background(), CallMeta{Name: "slow_call"}, RunStats{
		Duration: 80 * time.Millisecond,
		Attempts: 3,
		Timeouts: 2,
		Retried:  true,
		Err:      errors.New("timed out"),
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "call.run.timeouts")
	if found == nil {
		t.Fatal("call.run.timeouts metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if sum.DataPoints[0].Value != 2 {
		t.Errorf("expected timeouts count 2, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_AttemptsHistogramRecords verifies attempt counts are recorded.
func TestMetrics_AttemptsHistogramRecords(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRun(context.Background(), CallMeta{Name: "retried_call"}, RunStats{
		Duration: 10 * time.Millisecond,
		Attempts: 4,
		Retried:  true,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "call.run.attempts")
	if found == nil {
		t.Fatal("call.run.attempts metric not found")
	}

	hist, ok := found.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("expected Histogram[int64], got %T", found.Data)
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if hist.DataPoints[0].Sum != 4 {
		t.Errorf("expected attempts sum 4, got %d", hist.DataPoints[0].Sum)
	}
}

// TestMetrics_DurationHistogramRecords verifies duration is recorded.
func TestMetrics_DurationHistogramRecords(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRun(context.Background(), CallMeta{Name: "timed_call"}, RunStats{
		Duration: 50 * time.Millisecond,
		Attempts: 1,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "call.run.duration_ms")
	if found == nil {
		t.Fatal("call.run.duration_ms metric not found")
	}

	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}

	dp := hist.DataPoints[0]
	if dp.Sum != 50 {
		t.Errorf("expected duration 50ms, got %f", dp.Sum)
	}
}

// TestMetrics_LabelsApplied verifies labels include call metadata.
func TestMetrics_LabelsApplied(t *testing.T) {
	m, reader := newTestMetrics(t)

	meta := CallMeta{
		Component: "billing",
		Name:      "charge",
	}
	m.RecordRun(context.Background(), meta, RunStats{
		Duration: 10 * time.Millisecond,
		Attempts: 1,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "call.run.total")
	if found == nil {
		t.Fatal("call.run.total metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}

	attrs := sum.DataPoints[0].Attributes
	var foundID, foundComponent, foundName bool
	for iter := attrs.Iter(); iter.Next(); {
		kv := iter.Attribute()
		switch string(kv.Key) {
		case "call.id":
			foundID = true
			if kv.Value.AsString() != "billing.charge" {
				t.Errorf("expected call.id='billing.charge', got %q", kv.Value.AsString())
			}
		case "call.component":
			foundComponent = true
			if kv.Value.AsString() != "billing" {
				t.Errorf("expected call.component='billing', got %q", kv.Value.AsString())
			}
		case "call.name":
			foundName = true
			if kv.Value.AsString() != "charge" {
				t.Errorf("expected call.name='charge', got %q", kv.Value.AsString())
			}
		}
	}

	if !foundID {
		t.Error("call.id attribute not found")
	}
	if !foundComponent {
		t.Error("call.component attribute not found")
	}
	if !foundName {
		t.Error("call.name attribute not found")
	}
}

// TestMetrics_ConcurrentRecording verifies thread safety.
func TestMetrics_ConcurrentRecording(t *testing.T) {
	m, reader := newTestMetrics(t)

	meta := CallMeta{Name: "concurrent_call"}
	const numGoroutines = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			m.RecordRun(context.Background(), meta, RunStats{
				Duration: time.Millisecond,
				Attempts: 1,
			})
		}()
	}

	wg.Wait()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "call.run.total")
	if found == nil {
		t.Fatal("call.run.total metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if sum.DataPoints[0].Value != numGoroutines {
		t.Errorf("expected count %d, got %d", numGoroutines, sum.DataPoints[0].Value)
	}
}

// findMetric searches for a metric by name in ResourceMetrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}
