package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-async-demo/core"
)

const defaultNamespace = "asyncdemo"

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds  *prom.HistogramVec
	callbackFailureTotal *prom.CounterVec
	taskRejectedTotal    *prom.CounterVec
	cancellationTotal    *prom.CounterVec
	queueDepth           *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Blocking task and callback execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"component", "task"})
	failureVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "callback_failure_total",
		Help:      "Total number of deferred callbacks that returned an error or panicked.",
	}, []string{"component", "task"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected schedules and tasks.",
	}, []string{"component", "reason"})
	cancelVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "cancellation_total",
		Help:      "Total number of cancelled deferred callbacks.",
	}, []string{"component"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current queue depth.",
	}, []string{"component"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if failureVec, err = registerCollector(reg, failureVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if cancelVec, err = registerCollector(reg, cancelVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds:  durationVec,
		callbackFailureTotal: failureVec,
		taskRejectedTotal:    rejectedVec,
		cancellationTotal:    cancelVec,
		queueDepth:           queueDepthVec,
	}, nil
}

// RecordTaskDuration records task execution duration.
func (m *MetricsExporter) RecordTaskDuration(component, name string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(component, "unknown"), normalizeLabel(name, "unnamed")).Observe(duration.Seconds())
}

// RecordCallbackFailure records a failed or panicking callback.
func (m *MetricsExporter) RecordCallbackFailure(component, name string) {
	if m == nil {
		return
	}
	m.callbackFailureTotal.WithLabelValues(normalizeLabel(component, "unknown"), normalizeLabel(name, "unnamed")).Inc()
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(component string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(component, "unknown")).Set(float64(depth))
}

// RecordTaskRejected records task rejection events.
func (m *MetricsExporter) RecordTaskRejected(component, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(component, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordCancellation records a cancelled callback.
func (m *MetricsExporter) RecordCancellation(component string) {
	if m == nil {
		return
	}
	m.cancellationTotal.WithLabelValues(normalizeLabel(component, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
