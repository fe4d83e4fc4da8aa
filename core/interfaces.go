package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Component labels used for metrics and logs.
const (
	ComponentBlocking  = "blocking"
	ComponentScheduler = "scheduler"
	ComponentEventLoop = "event_loop"
	ComponentSequence  = "sequence"
)

// =============================================================================
// CallbackErrorHandler: Interface for handling failed deferred callbacks
// =============================================================================

// CallbackErrorHandler is called when a deferred callback returns an error or panics.
// The failure never reaches sibling callbacks or the scheduler itself.
//
// Implementations should be thread-safe as they may be called concurrently.
type CallbackErrorHandler interface {
	// HandleCallbackError is called once per failed callback.
	//
	// Parameters:
	// - ctx: The context the callback ran with (carries the current EventLoop)
	// - err: The failure, with Panic and Stack set when the callback panicked
	HandleCallbackError(ctx context.Context, err *CallbackError)
}

// WriterCallbackErrorHandler writes failures to an io.Writer (stderr by default).
type WriterCallbackErrorHandler struct {
	Out io.Writer
}

// HandleCallbackError prints the failure and, for panics, the stack trace.
func (h *WriterCallbackErrorHandler) HandleCallbackError(ctx context.Context, err *CallbackError) {
	out := h.Out
	if out == nil {
		out = os.Stderr
	}
	if err.Panic != nil {
		fmt.Fprintf(out, "[Callback %s] %v\nStack trace:\n%s", err.Name, err, err.Stack)
		return
	}
	fmt.Fprintf(out, "[Callback %s] %v\n", err.Name, err)
}

// NopCallbackErrorHandler ignores failures; they are still logged and counted.
type NopCallbackErrorHandler struct{}

// HandleCallbackError is a no-op.
func (NopCallbackErrorHandler) HandleCallbackError(ctx context.Context, err *CallbackError) {}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting execution metrics.
// Implementations can send metrics to monitoring systems (see observability/prometheus).
//
// Methods should be non-blocking and fast to avoid impacting callback timing.
type Metrics interface {
	// RecordTaskDuration records how long a blocking task or a callback ran.
	RecordTaskDuration(component string, name string, duration time.Duration)

	// RecordCallbackFailure records a callback that returned an error or panicked.
	RecordCallbackFailure(component string, name string)

	// RecordQueueDepth records the number of pending timers or queued tasks.
	RecordQueueDepth(component string, depth int)

	// RecordTaskRejected records that work was rejected (e.g., after Stop).
	RecordTaskRejected(component string, reason string)

	// RecordCancellation records a successful Handle.Cancel.
	RecordCancellation(component string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(component string, name string, duration time.Duration) {}
func (m *NilMetrics) RecordCallbackFailure(component string, name string)                      {}
func (m *NilMetrics) RecordQueueDepth(component string, depth int)                             {}
func (m *NilMetrics) RecordTaskRejected(component string, reason string)                       {}
func (m *NilMetrics) RecordCancellation(component string)                                      {}

// =============================================================================
// Configuration
// =============================================================================

// EventLoopConfig holds configuration options for EventLoop.
// All fields are optional.
type EventLoopConfig struct {
	Name    string
	Logger  Logger
	Metrics Metrics
}

func (c *EventLoopConfig) defaults() {
	if c.Name == "" {
		c.Name = "event-loop"
	}
	if c.Logger == nil {
		c.Logger = NewNoOpLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
}

// SchedulerConfig holds configuration options for Scheduler.
// All fields are optional; Loop defaults to a dedicated EventLoop owned by the scheduler.
type SchedulerConfig struct {
	Name         string
	Loop         *EventLoop
	Logger       Logger
	Metrics      Metrics
	ErrorHandler CallbackErrorHandler

	// HistoryCapacity bounds RecentFirings. Defaults to 100.
	HistoryCapacity int
}

func (c *SchedulerConfig) defaults() {
	if c.Name == "" {
		c.Name = "scheduler"
	}
	if c.Logger == nil {
		c.Logger = NewNoOpLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = NopCallbackErrorHandler{}
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = defaultFiringHistoryCapacity
	}
}
