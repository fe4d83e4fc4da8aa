package asyncdemo

import (
	"time"

	"github.com/Swind/go-async-demo/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the asyncdemo package for most use cases.

// BlockingTask is a named unit of work that occupies its runner for Duration
type BlockingTask = core.BlockingTask

// Stage is one step of a Sequence
type Stage = core.Stage

// Callback is a deferred callback. Returned errors are isolated per callback.
type Callback = core.Callback

// Entry is one callback of a batch submission
type Entry = core.Entry

// Handle is the cancellation token of a scheduled callback
type Handle = core.Handle

// Scheduler is the deferred-callback timer queue
type Scheduler = core.Scheduler

// SchedulerConfig configures a Scheduler
type SchedulerConfig = core.SchedulerConfig

// Sequence is the staged async routine
type Sequence = core.Sequence

// SequenceConfig configures a Sequence
type SequenceConfig = core.SequenceConfig

// BlockingRunner runs tasks back to back on the calling goroutine
type BlockingRunner = core.BlockingRunner

// BlockingRunnerConfig configures a BlockingRunner
type BlockingRunnerConfig = core.BlockingRunnerConfig

// Sink receives demo output lines
type Sink = core.Sink

// Waiter suspends the caller for a delay
type Waiter = core.Waiter

// TimerFacilityError and CallbackError are the two error kinds of the package
type (
	TimerFacilityError = core.TimerFacilityError
	CallbackError      = core.CallbackError
)

// Constructors
var (
	NewScheduler      = core.NewScheduler
	NewSequence       = core.NewSequence
	NewBlockingRunner = core.NewBlockingRunner
	NewWriterSink     = core.NewWriterSink
)

// Sentinel errors
var (
	ErrSchedulerStopped = core.ErrSchedulerStopped
	ErrInvalidDelay     = core.ErrInvalidDelay
	ErrNilCallback      = core.ErrNilCallback
	ErrAlreadyStarted   = core.ErrAlreadyStarted
	ErrNotValid         = core.ErrNotValid
)

// DefaultTasks returns the tasks of both demonstrations, in program order.
func DefaultTasks() []BlockingTask {
	return []BlockingTask{
		{Name: "Task 1", Duration: 1000 * time.Millisecond},
		{Name: "Task 2", Duration: 2000 * time.Millisecond},
		{Name: "Task 3", Duration: 500 * time.Millisecond},
	}
}

// DefaultStages returns the stages of the staged async routine. The last stage is terminal.
func DefaultStages() []Stage {
	return []Stage{
		{Message: "Step 1: Start", Wait: 1000 * time.Millisecond},
		{Message: "Step 2: Loading...", Wait: 2000 * time.Millisecond},
		{Message: "Step 3: Done!"},
	}
}
