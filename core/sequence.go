package core

import (
	"context"
	"fmt"
	"sync"
)

// SequenceState is the state of a Sequence.
type SequenceState int

const (
	SequenceNotStarted SequenceState = iota
	SequenceRunning
	SequenceSuspended
	SequenceCompleted
	SequenceFailed
)

func (s SequenceState) String() string {
	switch s {
	case SequenceNotStarted:
		return "not_started"
	case SequenceRunning:
		return "running"
	case SequenceSuspended:
		return "suspended"
	case SequenceCompleted:
		return "completed"
	case SequenceFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen.
func (s SequenceState) IsTerminal() bool {
	return s == SequenceCompleted || s == SequenceFailed
}

// Transition describes one state change of a Sequence.
type Transition struct {
	From  SequenceState
	To    SequenceState
	Stage int
}

// SequenceConfig configures a Sequence. Stages, Waiter and Sink are required.
type SequenceConfig struct {
	Name   string
	Stages []Stage
	Waiter Waiter
	Sink   Sink
	Logger Logger

	// OnTransition, when set, observes every state change synchronously.
	OnTransition func(Transition)
}

func (c *SequenceConfig) defaults() error {
	if len(c.Stages) == 0 {
		return fmt.Errorf("at least one stage is required: %w", ErrNotValid)
	}
	for i, st := range c.Stages {
		if st.Wait < 0 {
			return fmt.Errorf("stage %d wait %v: %w", i, st.Wait, ErrNotValid)
		}
	}
	if c.Waiter == nil {
		return fmt.Errorf("waiter is required: %w", ErrNotValid)
	}
	if c.Sink == nil {
		return fmt.Errorf("sink is required: %w", ErrNotValid)
	}
	if c.Name == "" {
		c.Name = "sequence"
	}
	if c.Logger == nil {
		c.Logger = NewNoOpLogger()
	}
	return nil
}

// Sequence runs an ordered list of stages. Each stage emits its message and then
// suspends the calling goroutine for its wait, leaving every other goroutine
// free to run. The last stage emits its message and completes without waiting.
//
//	NotStarted -> Running(0)
//	Running(i) -> Suspended(i)   message i emitted, i not terminal
//	Suspended(i) -> Running(i+1) wait elapsed
//	Running(last) -> Completed
//	any -> Failed                propagated error
type Sequence struct {
	name         string
	stages       []Stage
	waiter       Waiter
	sink         Sink
	logger       Logger
	onTransition func(Transition)

	mu    sync.Mutex
	state SequenceState
	stage int
	err   error
}

// NewSequence creates a Sequence in the NotStarted state.
func NewSequence(cfg SequenceConfig) (*Sequence, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid sequence config: %w", err)
	}

	stages := make([]Stage, len(cfg.Stages))
	copy(stages, cfg.Stages)

	return &Sequence{
		name:         cfg.Name,
		stages:       stages,
		waiter:       cfg.Waiter,
		sink:         cfg.Sink,
		logger:       cfg.Logger,
		onTransition: cfg.OnTransition,
		state:        SequenceNotStarted,
	}, nil
}

// State returns the current state and stage index.
func (s *Sequence) State() (SequenceState, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.stage
}

// Err returns the error that moved the sequence to Failed, if any.
func (s *Sequence) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Run drives the sequence to a terminal state on the calling goroutine.
// A wait failure stops the remaining stages and is returned to the caller.
func (s *Sequence) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != SequenceNotStarted {
		s.mu.Unlock()
		return fmt.Errorf("sequence %s: %w", s.name, ErrAlreadyStarted)
	}
	s.state = SequenceRunning
	s.mu.Unlock()
	s.notify(Transition{From: SequenceNotStarted, To: SequenceRunning, Stage: 0})

	last := len(s.stages) - 1
	for i, st := range s.stages {
		if i > 0 {
			s.transition(SequenceRunning, i, nil)
		}

		if err := s.sink.Emit(st.Message); err != nil {
			return s.fail(i, fmt.Errorf("emitting stage %d: %w", i, err))
		}

		if i == last {
			break
		}

		s.transition(SequenceSuspended, i, nil)
		if err := s.waiter.After(ctx, st.Wait); err != nil {
			return s.fail(i, fmt.Errorf("waiting after stage %d: %w", i, err))
		}
	}

	s.transition(SequenceCompleted, last, nil)
	return nil
}

func (s *Sequence) fail(stage int, err error) error {
	s.transition(SequenceFailed, stage, err)
	s.logger.Error("Sequence failed", F("sequence", s.name), F("stage", stage), F("error", err.Error()))
	return err
}

func (s *Sequence) transition(to SequenceState, stage int, err error) {
	s.mu.Lock()
	t := Transition{From: s.state, To: to, Stage: stage}
	s.state = to
	s.stage = stage
	if err != nil {
		s.err = err
	}
	s.mu.Unlock()

	s.notify(t)
}

func (s *Sequence) notify(t Transition) {
	s.logger.Debug("Sequence transition",
		F("sequence", s.name),
		F("from", t.From.String()),
		F("to", t.To.String()),
		F("stage", t.Stage),
	)
	if s.onTransition != nil {
		s.onTransition(t)
	}
}
