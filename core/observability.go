package core

import "time"

// FiringRecord captures one executed deferred callback.
type FiringRecord struct {
	HandleID    string
	Name        string
	ScheduledAt time.Time
	DueAt       time.Time
	FiredAt     time.Time
	Duration    time.Duration
	Err         error
}

// Late returns how far past its due time the callback started.
func (r FiringRecord) Late() time.Duration {
	return r.FiredAt.Sub(r.DueAt)
}

// SchedulerStats represents runtime observability state for a Scheduler.
type SchedulerStats struct {
	Name      string
	Pending   int
	Scheduled int64
	Fired     int64
	Cancelled int64
	Failed    int64
	Stopped   bool

	// Most recent fired callback, zero until one fires.
	LastFiredAt time.Time
	LastLate    time.Duration
}

// LoopStats represents runtime observability state for an EventLoop.
type LoopStats struct {
	Name         string
	Queued       int
	Running      bool
	Executed     int64
	Rejected     int64
	Closed       bool
	LastTaskAt   time.Time
	LastDuration time.Duration
}
