// Package demo runs the blocking and deferred demonstrations and compares them.
package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/Swind/go-async-demo/core"
	"github.com/Swind/go-async-demo/internal/config"
)

// ServiceConfig is the configuration for the demo service.
type ServiceConfig struct {
	// Demo is the content to run. Zero value uses config.Default().
	Demo config.Demo
	// Sink receives every demo line. Required.
	Sink core.Sink
	// Scheduler is used by the deferred demo. When nil, each run creates and
	// stops its own scheduler.
	Scheduler *core.Scheduler
	// Tolerance is the slack allowed above the expected deferred elapsed time
	// before Compare reports it as unexpected.
	Tolerance time.Duration

	Logger       core.Logger
	Metrics      core.Metrics
	ErrorHandler core.CallbackErrorHandler
}

func (c *ServiceConfig) defaults() error {
	if c.Sink == nil {
		return fmt.Errorf("sink is required")
	}

	def := config.Default()
	if len(c.Demo.Tasks) == 0 {
		c.Demo.Tasks = def.Tasks
	}
	if len(c.Demo.Stages) == 0 {
		c.Demo.Stages = def.Stages
	}
	if c.Demo.TimeScale <= 0 {
		c.Demo.TimeScale = def.TimeScale
	}

	if c.Tolerance <= 0 {
		c.Tolerance = 250 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = core.NewNoOpLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &core.NilMetrics{}
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = core.NopCallbackErrorHandler{}
	}

	return nil
}

// Service runs the demonstrations.
type Service struct {
	tasks        []core.BlockingTask
	stages       []core.Stage
	sink         core.Sink
	scheduler    *core.Scheduler
	tolerance    time.Duration
	logger       core.Logger
	metrics      core.Metrics
	errorHandler core.CallbackErrorHandler
}

// NewService creates a new demo service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		tasks:        ScaleTasks(cfg.Demo.Tasks, cfg.Demo.TimeScale),
		stages:       ScaleStages(cfg.Demo.Stages, cfg.Demo.TimeScale),
		sink:         cfg.Sink,
		scheduler:    cfg.Scheduler,
		tolerance:    cfg.Tolerance,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		errorHandler: cfg.ErrorHandler,
	}, nil
}

// Tasks returns the (already scaled) tasks the service runs.
func (s *Service) Tasks() []core.BlockingTask {
	out := make([]core.BlockingTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Stages returns the (already scaled) stages the service runs.
func (s *Service) Stages() []core.Stage {
	out := make([]core.Stage, len(s.stages))
	copy(out, s.stages)
	return out
}

// RunBlocking runs the tasks one after the other on the calling goroutine and
// returns the elapsed time. The context is only checked before starting.
func (s *Service) RunBlocking(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	runner, err := core.NewBlockingRunner(core.BlockingRunnerConfig{
		Sink:    s.sink,
		Logger:  s.logger,
		Metrics: s.metrics,
	})
	if err != nil {
		return 0, fmt.Errorf("could not create blocking runner: %w", err)
	}

	s.logger.Debug("Running blocking demo", core.F("tasks", len(s.tasks)))
	elapsed := runner.Run(s.tasks)
	s.logger.Info("Blocking demo finished", core.F("elapsed", elapsed))

	return elapsed, nil
}

// RunDeferred schedules one callback per task, using the task duration as its
// delay, then runs the staged sequence on the calling goroutine. It returns
// once the sequence has completed and every callback has fired.
//
// A propagated error is written to the sink as "error: <message>" and returned.
func (s *Service) RunDeferred(ctx context.Context) (elapsed time.Duration, err error) {
	start := time.Now()
	defer func() {
		elapsed = time.Since(start)
		if err != nil {
			if emitErr := s.sink.Emit("error: " + err.Error()); emitErr != nil {
				s.logger.Warn("Could not emit error line", core.F("error", emitErr.Error()))
			}
		}
	}()

	scheduler := s.scheduler
	if scheduler == nil {
		scheduler = core.NewScheduler(core.SchedulerConfig{
			Name:         "deferred-demo",
			Logger:       s.logger,
			Metrics:      s.metrics,
			ErrorHandler: s.errorHandler,
		})
		defer scheduler.Stop()
	}

	entries := make([]core.Entry, 0, len(s.tasks))
	for _, t := range s.tasks {
		line := t.Name + " completed"
		entries = append(entries, core.Entry{
			Name:  t.Name,
			Delay: t.Duration,
			Callback: func(ctx context.Context) error {
				return s.sink.Emit(line)
			},
		})
	}

	handles, err := scheduler.ScheduleBatch(entries)
	if err != nil {
		return 0, fmt.Errorf("could not schedule callbacks: %w", err)
	}

	seq, err := core.NewSequence(core.SequenceConfig{
		Name:   "deferred-demo",
		Stages: s.stages,
		Waiter: scheduler,
		Sink:   s.sink,
		Logger: s.logger,
	})
	if err != nil {
		cancelAll(handles)
		return 0, fmt.Errorf("could not create sequence: %w", err)
	}

	if err := seq.Run(ctx); err != nil {
		cancelAll(handles)
		return 0, fmt.Errorf("sequence failed: %w", err)
	}

	if err := waitAll(ctx, handles); err != nil {
		cancelAll(handles)
		return 0, err
	}

	s.logger.Info("Deferred demo finished", core.F("elapsed", time.Since(start)))
	return 0, nil
}

// waitAll blocks until every handle is done. A handle that ended without
// firing reports the scheduler as stopped.
func waitAll(ctx context.Context, handles []*core.Handle) error {
	for _, h := range handles {
		select {
		case <-h.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		if st := h.State(); st == core.HandleDropped {
			return &core.TimerFacilityError{Op: "fire", Err: core.ErrSchedulerStopped}
		}
	}
	return nil
}

func cancelAll(handles []*core.Handle) {
	for _, h := range handles {
		h.Cancel()
	}
}

// Comparison reports the elapsed time of both demonstrations against what
// their structure predicts. It is informational: Compare never fails because
// of timing.
type Comparison struct {
	Blocking time.Duration
	Deferred time.Duration

	// BlockingFloor is the sum of task durations.
	BlockingFloor time.Duration
	// DeferredExpected is the larger of the longest callback delay and the
	// total sequence wait.
	DeferredExpected time.Duration
	Tolerance        time.Duration
}

// BlockingAsExpected reports whether the blocking run took at least the sum of its durations.
func (c Comparison) BlockingAsExpected() bool {
	return c.Blocking >= c.BlockingFloor
}

// DeferredAsExpected reports whether the deferred run took about as long as its longest path.
func (c Comparison) DeferredAsExpected() bool {
	return c.Deferred >= c.DeferredExpected && c.Deferred <= c.DeferredExpected+c.Tolerance
}

// Report returns a human readable summary, one line per entry.
func (c Comparison) Report() []string {
	return []string{
		fmt.Sprintf("blocking: %s (expected >= %s, ok=%t)", round(c.Blocking), c.BlockingFloor, c.BlockingAsExpected()),
		fmt.Sprintf("deferred: %s (expected ~ %s, ok=%t)", round(c.Deferred), c.DeferredExpected, c.DeferredAsExpected()),
	}
}

// Compare runs the blocking demo and then the deferred demo and reports both timings.
func (s *Service) Compare(ctx context.Context) (Comparison, error) {
	cmp := Comparison{
		BlockingFloor:    SumDurations(s.tasks),
		DeferredExpected: max(MaxDuration(s.tasks), SequenceWait(s.stages)),
		Tolerance:        s.tolerance,
	}

	var err error
	if cmp.Blocking, err = s.RunBlocking(ctx); err != nil {
		return cmp, fmt.Errorf("blocking demo failed: %w", err)
	}
	if cmp.Deferred, err = s.RunDeferred(ctx); err != nil {
		return cmp, fmt.Errorf("deferred demo failed: %w", err)
	}

	if !cmp.BlockingAsExpected() || !cmp.DeferredAsExpected() {
		s.logger.Warn("Timings outside the expected range",
			core.F("blocking", cmp.Blocking),
			core.F("deferred", cmp.Deferred),
		)
	}

	return cmp, nil
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}
