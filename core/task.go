package core

import (
	"context"
	"time"
)

// Task is a function posted to an EventLoop. Its ctx carries the running loop.
type Task func(ctx context.Context)

// Callback is a deferred unit of work. A returned error is isolated by the Scheduler.
type Callback func(ctx context.Context) error

// =============================================================================
// Demo data: blocking tasks and async stages
// =============================================================================

// BlockingTask is a named unit of work that monopolizes the calling goroutine
// for Duration before reporting completion.
type BlockingTask struct {
	Name     string
	Duration time.Duration
}

// Stage is one step of a Sequence. The last stage of a sequence is terminal
// and its Wait is ignored.
type Stage struct {
	Message string
	Wait    time.Duration
}

// Entry is one submission of a batch posted with ScheduleBatch.
type Entry struct {
	Name     string
	Delay    time.Duration
	Callback Callback
}

// =============================================================================
// TimerFacility: delay based suspension and callback scheduling
// =============================================================================

// Waiter suspends the calling goroutine for at least delay.
type Waiter interface {
	After(ctx context.Context, delay time.Duration) error
}

// TimerFacility is the collaborator every async component consumes.
type TimerFacility interface {
	Waiter
	Schedule(name string, delay time.Duration, cb Callback) (*Handle, error)
}

// =============================================================================
// Context Helper
// =============================================================================
type eventLoopKeyType struct{}

var eventLoopKey eventLoopKeyType

// GetCurrentEventLoop returns the EventLoop running the task that owns ctx.
func GetCurrentEventLoop(ctx context.Context) *EventLoop {
	if v := ctx.Value(eventLoopKey); v != nil {
		return v.(*EventLoop)
	}
	return nil
}
