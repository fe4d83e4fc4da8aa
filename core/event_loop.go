package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// EventLoop binds a dedicated goroutine that executes tasks one at a time, in
// the order they were posted. It is the single logical thread of control on
// which deferred callbacks run.
//
// Tasks posted to an EventLoop never run concurrently with each other, so state
// owned by the loop needs no locking.
type EventLoop struct {
	queue  *TaskQueue
	signal chan struct{}

	// Lifecycle control
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
	closed  atomic.Bool

	name    string
	logger  Logger
	metrics Metrics

	goroutine atomic.Uint64

	running  atomic.Bool
	executed atomic.Int64
	rejected atomic.Int64

	mu           sync.Mutex
	lastTaskAt   time.Time
	lastDuration time.Duration
}

// NewEventLoop creates and starts a new EventLoop.
// It immediately spawns the dedicated goroutine.
func NewEventLoop(cfg EventLoopConfig) *EventLoop {
	cfg.defaults()

	ctx, cancel := context.WithCancel(context.Background())
	l := &EventLoop{
		queue:   NewTaskQueue(),
		signal:  make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		name:    cfg.Name,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}

	go l.runLoop()

	return l
}

// Name returns the name of the loop
func (l *EventLoop) Name() string {
	return l.name
}

// PostTask queues task for execution. It returns false when the loop is closed
// and the task was dropped.
func (l *EventLoop) PostTask(task Task) bool {
	if l.closed.Load() {
		l.rejected.Add(1)
		l.metrics.RecordTaskRejected(ComponentEventLoop, "closed")
		l.logger.Warn("Task rejected, event loop closed", F("loop", l.name))
		return false
	}

	l.queue.Push(task)
	l.metrics.RecordQueueDepth(ComponentEventLoop, l.queue.Len())

	select {
	case l.signal <- struct{}{}:
	default:
		// A wakeup is already pending; the loop drains the whole queue.
	}
	return true
}

// IsClosed returns true if the loop has been stopped
func (l *EventLoop) IsClosed() bool {
	return l.closed.Load()
}

// Shutdown closes the loop and drops queued tasks without waiting for the
// running task. It is safe to call from a task running on the loop.
func (l *EventLoop) Shutdown() {
	l.once.Do(func() {
		l.closed.Store(true)
		l.cancel()
		if !l.queue.IsEmpty() {
			l.logger.Debug("Dropping queued tasks", F("loop", l.name), F("count", l.queue.Len()))
		}
		l.queue.Clear()
	})
}

// Stop shuts the loop down and waits for the current task to finish. Called
// from a task running on the loop, it does not wait.
func (l *EventLoop) Stop() {
	l.Shutdown()
	if l.onLoop() {
		return
	}
	<-l.stopped
}

// onLoop reports whether the caller runs on the loop goroutine.
func (l *EventLoop) onLoop() bool {
	id := l.goroutine.Load()
	return id != 0 && id == currentGoroutineID()
}

// WaitIdle blocks until all tasks posted before the call have completed.
// This is implemented by posting a barrier task and waiting for it to execute.
func (l *EventLoop) WaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	if !l.PostTask(func(context.Context) { close(done) }) {
		return fmt.Errorf("event loop %s is closed", l.name)
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		return fmt.Errorf("event loop %s stopped", l.name)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the loop state.
func (l *EventLoop) Stats() LoopStats {
	l.mu.Lock()
	lastAt, lastDur := l.lastTaskAt, l.lastDuration
	l.mu.Unlock()

	return LoopStats{
		Name:         l.name,
		Queued:       l.queue.Len(),
		Running:      l.running.Load(),
		Executed:     l.executed.Load(),
		Rejected:     l.rejected.Load(),
		Closed:       l.closed.Load(),
		LastTaskAt:   lastAt,
		LastDuration: lastDur,
	}
}

// runLoop is the core of this loop, it occupies a dedicated goroutine
func (l *EventLoop) runLoop() {
	defer close(l.stopped)

	l.goroutine.Store(currentGoroutineID())
	runCtx := context.WithValue(l.ctx, eventLoopKey, l)

	for {
		for {
			if l.ctx.Err() != nil {
				return
			}
			task, ok := l.queue.Pop()
			if !ok {
				break
			}
			l.runTask(runCtx, task)
		}

		select {
		case <-l.signal:
		case <-l.ctx.Done():
			return
		}
	}
}

func (l *EventLoop) runTask(ctx context.Context, task Task) {
	start := time.Now()
	l.running.Store(true)

	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error("Task panicked",
				F("loop", l.name),
				F("panic", rec),
				F("stack", string(debug.Stack())),
			)
		}

		d := time.Since(start)
		l.running.Store(false)
		l.executed.Add(1)
		l.mu.Lock()
		l.lastTaskAt = start
		l.lastDuration = d
		l.mu.Unlock()
	}()

	task(ctx)
}
