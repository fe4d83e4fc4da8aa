package prometheus

import (
	"context"
	"errors"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/Swind/go-async-demo/core"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("asyncdemo", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskDuration(core.ComponentBlocking, "Task 1", 250*time.Millisecond)
	exporter.RecordCallbackFailure(core.ComponentScheduler, "Task 2")
	exporter.RecordQueueDepth(core.ComponentEventLoop, 7)
	exporter.RecordTaskRejected(core.ComponentScheduler, "stopped")
	exporter.RecordCancellation(core.ComponentScheduler)

	failures := testutil.ToFloat64(exporter.callbackFailureTotal.WithLabelValues("scheduler", "Task 2"))
	if failures != 1 {
		t.Fatalf("callback failure total = %v, want 1", failures)
	}

	queueDepth := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("event_loop"))
	if queueDepth != 7 {
		t.Fatalf("queue depth = %v, want 7", queueDepth)
	}

	rejected := testutil.ToFloat64(exporter.taskRejectedTotal.WithLabelValues("scheduler", "stopped"))
	if rejected != 1 {
		t.Fatalf("rejected total = %v, want 1", rejected)
	}

	cancelled := testutil.ToFloat64(exporter.cancellationTotal.WithLabelValues("scheduler"))
	if cancelled != 1 {
		t.Fatalf("cancellation total = %v, want 1", cancelled)
	}

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("blocking", "Task 1"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("asyncdemo", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("asyncdemo", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordCallbackFailure("scheduler", "Task 1")
	second.RecordCallbackFailure("scheduler", "Task 1")

	got := testutil.ToFloat64(first.callbackFailureTotal.WithLabelValues("scheduler", "Task 1"))
	if got != 2 {
		t.Fatalf("shared failure counter = %v, want 2", got)
	}
}

func TestMetricsExporter_NilReceiver(t *testing.T) {
	var exporter *MetricsExporter
	exporter.RecordTaskDuration("blocking", "x", time.Second)
	exporter.RecordCallbackFailure("scheduler", "x")
	exporter.RecordQueueDepth("event_loop", 1)
	exporter.RecordTaskRejected("scheduler", "stopped")
	exporter.RecordCancellation("scheduler")
}

// TestMetricsExporter_WiredIntoScheduler tests the exporter behind a live scheduler
// Main test items:
// 1. A successful callback is observed in the duration histogram
// 2. A failing callback increments the failure counter
// 3. A cancelled callback increments the cancellation counter
func TestMetricsExporter_WiredIntoScheduler(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	s := core.NewScheduler(core.SchedulerConfig{Metrics: exporter})
	defer s.Stop()

	ok, _ := s.Schedule("ok", time.Millisecond, func(ctx context.Context) error { return nil })
	bad, _ := s.Schedule("bad", time.Millisecond, func(ctx context.Context) error { return errors.New("boom") })
	cancelled, _ := s.Schedule("cancelled", time.Hour, func(ctx context.Context) error { return nil })
	cancelled.Cancel()

	for _, h := range []*core.Handle{ok, bad} {
		select {
		case <-h.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("handle %s did not finish", h.Name())
		}
	}

	assertEventually(t, 2*time.Second, func() bool {
		return testutil.ToFloat64(exporter.callbackFailureTotal.WithLabelValues("scheduler", "bad")) == 1
	})
	if got := testutil.ToFloat64(exporter.cancellationTotal.WithLabelValues("scheduler")); got != 1 {
		t.Fatalf("cancellation total = %v, want 1", got)
	}
	assertEventually(t, 2*time.Second, func() bool {
		n, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("scheduler", "ok"))
		return err == nil && n == 1
	})
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
