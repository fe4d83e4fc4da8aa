package core

import (
	"container/heap"
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

const idleWait = 1000 * time.Hour

// HandleState is the lifecycle state of a scheduled callback.
type HandleState int32

const (
	HandlePending HandleState = iota
	HandleFired
	HandleCancelled
	// HandleDropped means the scheduler stopped before the callback could fire.
	HandleDropped
)

func (s HandleState) String() string {
	switch s {
	case HandlePending:
		return "pending"
	case HandleFired:
		return "fired"
	case HandleCancelled:
		return "cancelled"
	case HandleDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Handle is the cancellation token returned by Schedule.
type Handle struct {
	id          string
	name        string
	scheduledAt time.Time
	dueAt       time.Time

	cb     Callback
	inline bool // fired on the timer goroutine instead of the event loop

	state    atomic.Int32
	done     chan struct{}
	doneOnce sync.Once

	s     *Scheduler
	seq   uint64
	index int // heap index, -1 when not in the heap
}

// ID returns the unique (ULID) identifier of the handle.
func (h *Handle) ID() string { return h.id }

// Name returns the name given at scheduling time.
func (h *Handle) Name() string { return h.name }

// DueAt returns the earliest time the callback may fire.
func (h *Handle) DueAt() time.Time { return h.dueAt }

// State returns the current state of the handle.
func (h *Handle) State() HandleState { return HandleState(h.state.Load()) }

// Done is closed once the callback ran, was cancelled or was dropped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel suppresses the callback if it has not started yet.
// It returns false when the callback already ran or the handle is no longer pending.
func (h *Handle) Cancel() bool {
	if !h.state.CompareAndSwap(int32(HandlePending), int32(HandleCancelled)) {
		return false
	}
	h.s.forget(h)
	h.finish()
	if h.inline {
		return true
	}

	h.s.cancelled.Add(1)
	h.s.metrics.RecordCancellation(ComponentScheduler)
	h.s.logger.Debug("Callback cancelled", F("scheduler", h.s.name), F("name", h.name), F("id", h.id))
	return true
}

func (h *Handle) finish() {
	h.doneOnce.Do(func() { close(h.done) })
}

// timerHeap implements heap.Interface ordered by due time, then submission order.
type timerHeap []*Handle

func (q timerHeap) Len() int { return len(q) }
func (q timerHeap) Less(i, j int) bool {
	if !q[i].dueAt.Equal(q[j].dueAt) {
		return q[i].dueAt.Before(q[j].dueAt)
	}
	return q[i].seq < q[j].seq
}
func (q timerHeap) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerHeap) Push(x any) {
	h := x.(*Handle)
	h.index = len(*q)
	*q = append(*q, h)
}

func (q *timerHeap) Pop() any {
	old := *q
	n := len(old)
	h := old[n-1]
	old[n-1] = nil // avoid memory leak
	h.index = -1
	*q = old[0 : n-1]
	return h
}

// Scheduler is the timer facility: a priority queue of deferred callbacks keyed
// by due time with stable submission order tie-breaking.
//
// A dedicated timer goroutine pops expired entries in heap order and posts them
// to a single EventLoop, so callbacks fire one at a time in ascending due time.
// Schedule never blocks the caller.
type Scheduler struct {
	name string

	mu       sync.Mutex
	pq       timerHeap
	inflight map[*Handle]struct{} // posted to the loop, not yet executed
	nextSeq  uint64
	stopped  bool

	wakeup    chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	timerDone chan struct{}
	stopOnce  sync.Once

	loop     *EventLoop
	ownsLoop bool

	logger       Logger
	metrics      Metrics
	errorHandler CallbackErrorHandler
	history      *firingHistory

	scheduled atomic.Int64
	fired     atomic.Int64
	cancelled atomic.Int64
	failed    atomic.Int64
}

var _ TimerFacility = (*Scheduler)(nil)

// NewScheduler creates a scheduler and starts its timer goroutine.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	cfg.defaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		name:         cfg.Name,
		pq:           make(timerHeap, 0),
		inflight:     make(map[*Handle]struct{}),
		wakeup:       make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
		timerDone:    make(chan struct{}),
		loop:         cfg.Loop,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		errorHandler: cfg.ErrorHandler,
		history:      newFiringHistory(cfg.HistoryCapacity),
	}
	if s.loop == nil {
		s.loop = NewEventLoop(EventLoopConfig{
			Name:    cfg.Name + "-loop",
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		})
		s.ownsLoop = true
	}
	heap.Init(&s.pq)

	go s.timerLoop()
	return s
}

// Name returns the scheduler name.
func (s *Scheduler) Name() string { return s.name }

// Loop returns the EventLoop callbacks run on.
func (s *Scheduler) Loop() *EventLoop { return s.loop }

// Schedule registers cb to fire at or after now+delay and returns immediately.
func (s *Scheduler) Schedule(name string, delay time.Duration, cb Callback) (*Handle, error) {
	if err := validateEntry(Entry{Name: name, Delay: delay, Callback: cb}); err != nil {
		return nil, err
	}

	h := s.newHandle(name, delay, cb, time.Now(), false)
	if err := s.push(h); err != nil {
		return nil, err
	}
	return h, nil
}

// ScheduleBatch registers every entry against one shared submission time, so
// firing order is ascending delay with submission order breaking ties.
// Either every entry is scheduled or none is.
func (s *Scheduler) ScheduleBatch(entries []Entry) ([]*Handle, error) {
	for i, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Name, err)
		}
	}

	t0 := time.Now()
	handles := make([]*Handle, 0, len(entries))
	for _, e := range entries {
		handles = append(handles, s.newHandle(e.Name, e.Delay, e.Callback, t0, false))
	}
	if err := s.push(handles...); err != nil {
		return nil, err
	}
	return handles, nil
}

// After suspends the calling goroutine for at least delay. Other goroutines,
// including the event loop, keep running meanwhile.
//
// It returns ctx.Err() when ctx ends first and a *TimerFacilityError when the
// scheduler stops before the delay elapses.
func (s *Scheduler) After(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay < 0 {
		return fmt.Errorf("after %v: %w", delay, ErrInvalidDelay)
	}

	h := s.newHandle("after", delay, nil, time.Now(), true)
	if err := s.push(h); err != nil {
		return err
	}

	select {
	case <-h.Done():
		if h.State() == HandleFired {
			return nil
		}
		return &TimerFacilityError{Op: "after", Err: ErrSchedulerStopped}
	case <-ctx.Done():
		h.Cancel()
		return ctx.Err()
	}
}

// Stop stops the timer goroutine and drops every pending callback. When the
// scheduler created its own EventLoop, the loop is stopped too.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		s.cancel()
		<-s.timerDone

		if s.ownsLoop {
			s.loop.Stop()
		}

		s.mu.Lock()
		pending := make([]*Handle, 0, len(s.pq)+len(s.inflight))
		for _, h := range s.pq {
			h.index = -1
			pending = append(pending, h)
		}
		for h := range s.inflight {
			pending = append(pending, h)
		}
		s.pq = make(timerHeap, 0)
		s.inflight = make(map[*Handle]struct{})
		s.mu.Unlock()

		dropped := 0
		for _, h := range pending {
			if h.state.CompareAndSwap(int32(HandlePending), int32(HandleDropped)) {
				h.finish()
				dropped++
			}
		}
		s.metrics.RecordQueueDepth(ComponentScheduler, 0)
		s.logger.Debug("Scheduler stopped", F("scheduler", s.name), F("dropped", dropped))
	})
}

// Pending returns the number of callbacks and After waits that have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pq) + len(s.inflight)
}

// Stats returns a snapshot of the scheduler counters. The counters cover
// scheduled callbacks only; After waits are not counted.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	pending := len(s.pq) + len(s.inflight)
	stopped := s.stopped
	s.mu.Unlock()

	stats := SchedulerStats{
		Name:      s.name,
		Pending:   pending,
		Scheduled: s.scheduled.Load(),
		Fired:     s.fired.Load(),
		Cancelled: s.cancelled.Load(),
		Failed:    s.failed.Load(),
		Stopped:   stopped,
	}
	if last, ok := s.history.Last(); ok {
		stats.LastFiredAt = last.FiredAt
		stats.LastLate = last.Late()
	}
	return stats
}

// RecentFirings returns up to limit executed callbacks, oldest first.
func (s *Scheduler) RecentFirings(limit int) []FiringRecord {
	return s.history.Recent(limit)
}

func validateEntry(e Entry) error {
	if e.Delay < 0 {
		return fmt.Errorf("delay %v: %w", e.Delay, ErrInvalidDelay)
	}
	if e.Callback == nil {
		return ErrNilCallback
	}
	return nil
}

func (s *Scheduler) newHandle(name string, delay time.Duration, cb Callback, at time.Time, inline bool) *Handle {
	return &Handle{
		id:          ulid.Make().String(),
		name:        name,
		scheduledAt: at,
		dueAt:       at.Add(delay),
		cb:          cb,
		inline:      inline,
		done:        make(chan struct{}),
		s:           s,
		index:       -1,
	}
}

func (s *Scheduler) push(handles ...*Handle) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.metrics.RecordTaskRejected(ComponentScheduler, "stopped")
		return &TimerFacilityError{Op: "schedule", Err: ErrSchedulerStopped}
	}

	newTop := false
	for _, h := range handles {
		h.seq = s.nextSeq
		s.nextSeq++
		heap.Push(&s.pq, h)
		if h.index == 0 {
			newTop = true
		}
	}
	depth := len(s.pq)
	s.mu.Unlock()

	s.metrics.RecordQueueDepth(ComponentScheduler, depth)
	for _, h := range handles {
		if !h.inline {
			s.scheduled.Add(1)
			s.logger.Debug("Callback scheduled",
				F("scheduler", s.name),
				F("name", h.name),
				F("id", h.id),
				F("delay", h.dueAt.Sub(h.scheduledAt)),
			)
		}
	}

	if newTop {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}
	return nil
}

// forget removes h from the heap or the in-flight set.
func (s *Scheduler) forget(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.index >= 0 {
		heap.Remove(&s.pq, h.index)
	}
	delete(s.inflight, h)
}

func (s *Scheduler) timerLoop() {
	defer close(s.timerDone)

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		wait, ok := s.nextWait()
		if !ok {
			wait = idleWait
		}
		if wait <= 0 {
			s.dispatchExpired()
			continue
		}

		timer.Reset(wait)

		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.dispatchExpired()
		case <-s.wakeup:
			// New earliest entry, need to recalculate
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// nextWait returns how long until the earliest entry is due; false when the heap is empty.
func (s *Scheduler) nextWait() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pq) == 0 {
		return 0, false
	}
	return time.Until(s.pq[0].dueAt), true
}

// dispatchExpired pops every expired entry, in heap order, and hands it over.
func (s *Scheduler) dispatchExpired() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}

	now := time.Now()
	var expired []*Handle
	for len(s.pq) > 0 {
		if s.pq[0].dueAt.After(now) {
			break
		}
		h := heap.Pop(&s.pq).(*Handle)
		if !h.inline {
			s.inflight[h] = struct{}{}
		}
		expired = append(expired, h)
	}
	depth := len(s.pq)
	s.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	s.metrics.RecordQueueDepth(ComponentScheduler, depth)

	// Hand over outside the lock
	for _, h := range expired {
		if h.inline {
			if h.state.CompareAndSwap(int32(HandlePending), int32(HandleFired)) {
				h.finish()
			}
			continue
		}

		if !s.loop.PostTask(func(ctx context.Context) { s.execute(ctx, h) }) {
			s.forget(h)
			if h.state.CompareAndSwap(int32(HandlePending), int32(HandleDropped)) {
				h.finish()
			}
		}
	}
}

// execute runs on the event loop.
func (s *Scheduler) execute(ctx context.Context, h *Handle) {
	s.mu.Lock()
	delete(s.inflight, h)
	s.mu.Unlock()

	if !h.state.CompareAndSwap(int32(HandlePending), int32(HandleFired)) {
		return
	}
	defer h.finish()

	firedAt := time.Now()
	err := s.invoke(ctx, h)
	d := time.Since(firedAt)

	s.fired.Add(1)
	s.metrics.RecordTaskDuration(ComponentScheduler, h.name, d)

	record := FiringRecord{
		HandleID:    h.id,
		Name:        h.name,
		ScheduledAt: h.scheduledAt,
		DueAt:       h.dueAt,
		FiredAt:     firedAt,
		Duration:    d,
	}
	if err != nil {
		record.Err = err
		s.failed.Add(1)
		s.metrics.RecordCallbackFailure(ComponentScheduler, h.name)
		s.logger.Error("Callback failed",
			F("scheduler", s.name),
			F("name", h.name),
			F("id", h.id),
			F("error", err.Error()),
		)
		s.errorHandler.HandleCallbackError(ctx, err)
	} else {
		s.logger.Debug("Callback fired",
			F("scheduler", s.name),
			F("name", h.name),
			F("id", h.id),
			F("late", record.Late()),
		)
	}
	s.history.Add(record)
}

// invoke calls the callback, turning a returned error or a panic into a CallbackError.
func (s *Scheduler) invoke(ctx context.Context, h *Handle) (cbErr *CallbackError) {
	defer func() {
		if rec := recover(); rec != nil {
			cbErr = &CallbackError{
				Name:     h.name,
				HandleID: h.id,
				Panic:    rec,
				Stack:    debug.Stack(),
			}
		}
	}()

	if err := h.cb(ctx); err != nil {
		return &CallbackError{Name: h.name, HandleID: h.id, Err: err}
	}
	return nil
}
