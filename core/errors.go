package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSchedulerStopped is returned when the scheduler no longer accepts or fires timers.
	ErrSchedulerStopped = errors.New("scheduler stopped")
	// ErrInvalidDelay is returned for negative delays.
	ErrInvalidDelay = errors.New("invalid delay")
	// ErrNilCallback is returned when scheduling a nil callback.
	ErrNilCallback = errors.New("nil callback")
	// ErrAlreadyStarted is returned when a Sequence is run twice.
	ErrAlreadyStarted = errors.New("already started")
	// ErrNotValid is returned when a configuration is not valid.
	ErrNotValid = errors.New("not valid")
)

// TimerFacilityError reports that the timer facility could not schedule or fire an event.
type TimerFacilityError struct {
	Op  string
	Err error
}

func (e *TimerFacilityError) Error() string {
	return fmt.Sprintf("timer facility %s: %v", e.Op, e.Err)
}

func (e *TimerFacilityError) Unwrap() error { return e.Err }

// CallbackError reports a deferred callback that returned an error or panicked.
type CallbackError struct {
	Name     string
	HandleID string
	Err      error
	Panic    any
	Stack    []byte
}

func (e *CallbackError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("callback %q panicked: %v", e.Name, e.Panic)
	}
	return fmt.Sprintf("callback %q failed: %v", e.Name, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }
