package core

import "time"

// Clock is read by the busy-wait primitive and by the Scheduler to stamp due times.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock (with its monotonic reading).
var SystemClock Clock = systemClock{}
