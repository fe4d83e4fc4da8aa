package core

import (
	"fmt"
	"time"
)

// Occupy monopolizes the calling goroutine until d has elapsed on clock.
//
// It polls clock.Now in a tight loop and never sleeps or yields: nothing else
// scheduled on the caller makes progress meanwhile. This is the deliberate
// opposite of Waiter.After and must not be used as a substitute for it.
func Occupy(clock Clock, d time.Duration) {
	if d <= 0 {
		return
	}
	start := clock.Now()
	for clock.Now().Sub(start) < d {
	}
}

// BlockingRunnerConfig configures a BlockingRunner. Sink is required.
type BlockingRunnerConfig struct {
	Sink    Sink
	Clock   Clock
	Logger  Logger
	Metrics Metrics
}

func (c *BlockingRunnerConfig) defaults() error {
	if c.Sink == nil {
		return fmt.Errorf("sink is required: %w", ErrNotValid)
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.Logger == nil {
		c.Logger = NewNoOpLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	return nil
}

// BlockingRunner runs tasks strictly one after the other on the calling
// goroutine, occupying it for each task's duration.
type BlockingRunner struct {
	sink    Sink
	clock   Clock
	logger  Logger
	metrics Metrics
}

// NewBlockingRunner creates a BlockingRunner.
func NewBlockingRunner(cfg BlockingRunnerConfig) (*BlockingRunner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, err
	}
	return &BlockingRunner{
		sink:    cfg.Sink,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// Run executes tasks in order and emits "<name> completed" after each one.
// It returns the total elapsed time. Run is not cancellable.
func (r *BlockingRunner) Run(tasks []BlockingTask) time.Duration {
	start := r.clock.Now()

	for _, t := range tasks {
		taskStart := r.clock.Now()
		Occupy(r.clock, t.Duration)
		r.metrics.RecordTaskDuration(ComponentBlocking, t.Name, r.clock.Now().Sub(taskStart))

		if err := r.sink.Emit(t.Name + " completed"); err != nil {
			r.logger.Warn("Could not emit completion", F("task", t.Name), F("error", err.Error()))
		}
	}

	elapsed := r.clock.Now().Sub(start)
	r.logger.Debug("Blocking tasks finished", F("tasks", len(tasks)), F("elapsed", elapsed))
	return elapsed
}
