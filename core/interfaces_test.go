package core

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test Metrics
// =============================================================================

// TestMetrics is a recording metrics collector for testing
type TestMetrics struct {
	mu            sync.Mutex
	taskDurations []TaskDurationRecord
	failures      []string
	queueDepths   []int
	rejections    []string
	cancellations int
}

type TaskDurationRecord struct {
	Component string
	Name      string
	Duration  time.Duration
}

func NewTestMetrics() *TestMetrics {
	return &TestMetrics{}
}

func (m *TestMetrics) RecordTaskDuration(component, name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskDurations = append(m.taskDurations, TaskDurationRecord{Component: component, Name: name, Duration: duration})
}

func (m *TestMetrics) RecordCallbackFailure(component, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, component+"/"+name)
}

func (m *TestMetrics) RecordQueueDepth(component string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueDepths = append(m.queueDepths, depth)
}

func (m *TestMetrics) RecordTaskRejected(component, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, component+"/"+reason)
}

func (m *TestMetrics) RecordCancellation(component string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancellations++
}

func (m *TestMetrics) GetTaskDurations() []TaskDurationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TaskDurationRecord(nil), m.taskDurations...)
}

func (m *TestMetrics) GetFailures() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.failures...)
}

func (m *TestMetrics) GetRejections() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.rejections...)
}

func (m *TestMetrics) GetCancellations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancellations
}

func TestNilMetrics(t *testing.T) {
	// Given: A NilMetrics
	metrics := &NilMetrics{}

	// When: All methods are called
	metrics.RecordTaskDuration("scheduler", "x", time.Second)
	metrics.RecordCallbackFailure("scheduler", "x")
	metrics.RecordQueueDepth("event_loop", 10)
	metrics.RecordTaskRejected("scheduler", "stopped")
	metrics.RecordCancellation("scheduler")

	// Then: No panic should occur (all methods are no-ops)
}

// TestScheduler_WithTestMetrics verifies every metric the scheduler reports
// Given: A scheduler with a recording metrics collector
// When: Callbacks succeed, fail, get cancelled and get rejected after Stop
// Then: Each outcome is reported once, under the scheduler component
func TestScheduler_WithTestMetrics(t *testing.T) {
	metrics := NewTestMetrics()
	s := NewScheduler(SchedulerConfig{Metrics: metrics})

	ok, _ := s.Schedule("ok", time.Millisecond, func(ctx context.Context) error { return nil })
	bad, _ := s.Schedule("bad", 2*time.Millisecond, func(ctx context.Context) error { panic("boom") })
	c, _ := s.Schedule("cancelled", time.Hour, func(ctx context.Context) error { return nil })
	c.Cancel()

	for _, h := range []*Handle{ok, bad} {
		select {
		case <-h.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("handle %s did not finish", h.Name())
		}
	}

	s.Stop()
	if _, err := s.Schedule("late", 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("Schedule after Stop should fail")
	}

	durations := metrics.GetTaskDurations()
	if len(durations) != 2 {
		t.Fatalf("Expected 2 task durations, got %d", len(durations))
	}
	for _, d := range durations {
		if d.Component != ComponentScheduler {
			t.Errorf("Unexpected component %q", d.Component)
		}
	}

	if got := metrics.GetFailures(); len(got) != 1 || got[0] != "scheduler/bad" {
		t.Errorf("Unexpected failures: %v", got)
	}
	if got := metrics.GetCancellations(); got != 1 {
		t.Errorf("Expected 1 cancellation, got %d", got)
	}
	if got := metrics.GetRejections(); len(got) != 1 || got[0] != "scheduler/stopped" {
		t.Errorf("Unexpected rejections: %v", got)
	}
}

func TestWriterCallbackErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := &WriterCallbackErrorHandler{Out: &buf}

	handler.HandleCallbackError(context.Background(), &CallbackError{Name: "Task 1", Panic: "boom", Stack: []byte("goroutine 1")})
	handler.HandleCallbackError(context.Background(), &CallbackError{Name: "Task 2", Err: context.Canceled})

	out := buf.String()
	if !strings.Contains(out, "[Callback Task 1]") || !strings.Contains(out, "Stack trace:\ngoroutine 1") {
		t.Errorf("Unexpected panic output: %q", out)
	}
	if !strings.Contains(out, `[Callback Task 2] callback "Task 2" failed: context canceled`) {
		t.Errorf("Unexpected failure output: %q", out)
	}
}

func TestSchedulerConfig_Defaults(t *testing.T) {
	// Given: An empty config
	cfg := SchedulerConfig{}

	// When: Defaults are applied
	cfg.defaults()

	// Then: Every optional field is set
	if cfg.Name != "scheduler" {
		t.Errorf("Name = %q, want scheduler", cfg.Name)
	}
	if cfg.Logger == nil || cfg.Metrics == nil || cfg.ErrorHandler == nil {
		t.Error("Logger, Metrics and ErrorHandler should be set")
	}
	if cfg.HistoryCapacity != defaultFiringHistoryCapacity {
		t.Errorf("HistoryCapacity = %d, want %d", cfg.HistoryCapacity, defaultFiringHistoryCapacity)
	}
	if cfg.Loop != nil {
		t.Error("Loop should stay nil so the scheduler owns its loop")
	}
}

func TestEventLoopConfig_Defaults(t *testing.T) {
	cfg := EventLoopConfig{Name: "custom"}
	cfg.defaults()

	if cfg.Name != "custom" {
		t.Errorf("Name = %q, want custom", cfg.Name)
	}
	if cfg.Logger == nil || cfg.Metrics == nil {
		t.Error("Logger and Metrics should be set")
	}
}
