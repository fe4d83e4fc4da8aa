package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-async-demo/core"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// LoopSnapshotProvider provides current event loop stats snapshots.
type LoopSnapshotProvider interface {
	Stats() core.LoopStats
}

// SnapshotPoller periodically exports scheduler/event loop Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	loopsMu sync.RWMutex
	loops   map[string]LoopSnapshotProvider

	schedulerPending   *prom.GaugeVec
	schedulerCallbacks *prom.GaugeVec
	schedulerStopped   *prom.GaugeVec

	loopQueued   *prom.GaugeVec
	loopExecuted *prom.GaugeVec
	loopRejected *prom.GaugeVec
	loopClosed   *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	schedulerPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: defaultNamespace,
		Name:      "scheduler_pending",
		Help:      "Number of pending timers per scheduler.",
	}, []string{"scheduler"})
	schedulerCallbacks := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: defaultNamespace,
		Name:      "scheduler_callbacks",
		Help:      "Scheduler callback counters snapshot by outcome.",
	}, []string{"scheduler", "outcome"})
	schedulerStopped := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: defaultNamespace,
		Name:      "scheduler_stopped",
		Help:      "Scheduler stopped state (1=stopped, 0=running).",
	}, []string{"scheduler"})

	loopQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: defaultNamespace,
		Name:      "event_loop_queued",
		Help:      "Queued tasks per event loop.",
	}, []string{"loop"})
	loopExecuted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: defaultNamespace,
		Name:      "event_loop_executed",
		Help:      "Executed task count snapshot per event loop.",
	}, []string{"loop"})
	loopRejected := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: defaultNamespace,
		Name:      "event_loop_rejected",
		Help:      "Rejected task count snapshot per event loop.",
	}, []string{"loop"})
	loopClosed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: defaultNamespace,
		Name:      "event_loop_closed",
		Help:      "Event loop closed state (1=closed, 0=open).",
	}, []string{"loop"})

	var err error
	if schedulerPending, err = registerCollector(reg, schedulerPending); err != nil {
		return nil, err
	}
	if schedulerCallbacks, err = registerCollector(reg, schedulerCallbacks); err != nil {
		return nil, err
	}
	if schedulerStopped, err = registerCollector(reg, schedulerStopped); err != nil {
		return nil, err
	}
	if loopQueued, err = registerCollector(reg, loopQueued); err != nil {
		return nil, err
	}
	if loopExecuted, err = registerCollector(reg, loopExecuted); err != nil {
		return nil, err
	}
	if loopRejected, err = registerCollector(reg, loopRejected); err != nil {
		return nil, err
	}
	if loopClosed, err = registerCollector(reg, loopClosed); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:           interval,
		schedulers:         make(map[string]SchedulerSnapshotProvider),
		loops:              make(map[string]LoopSnapshotProvider),
		schedulerPending:   schedulerPending,
		schedulerCallbacks: schedulerCallbacks,
		schedulerStopped:   schedulerStopped,
		loopQueued:         loopQueued,
		loopExecuted:       loopExecuted,
		loopRejected:       loopRejected,
		loopClosed:         loopClosed,
	}, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// AddLoop adds or replaces an event loop snapshot provider by name.
func (p *SnapshotPoller) AddLoop(name string, provider LoopSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "event-loop")
	p.loopsMu.Lock()
	p.loops[name] = provider
	p.loopsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling and takes a final snapshot; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	p.collectOnce()

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	for name, provider := range p.schedulers {
		stats := provider.Stats()
		p.schedulerPending.WithLabelValues(name).Set(float64(stats.Pending))
		p.schedulerCallbacks.WithLabelValues(name, "scheduled").Set(float64(stats.Scheduled))
		p.schedulerCallbacks.WithLabelValues(name, "fired").Set(float64(stats.Fired))
		p.schedulerCallbacks.WithLabelValues(name, "cancelled").Set(float64(stats.Cancelled))
		p.schedulerCallbacks.WithLabelValues(name, "failed").Set(float64(stats.Failed))
		p.schedulerStopped.WithLabelValues(name).Set(boolGauge(stats.Stopped))
	}
	p.schedulersMu.RUnlock()

	p.loopsMu.RLock()
	for name, provider := range p.loops {
		stats := provider.Stats()
		p.loopQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.loopExecuted.WithLabelValues(name).Set(float64(stats.Executed))
		p.loopRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.loopClosed.WithLabelValues(name).Set(boolGauge(stats.Closed))
	}
	p.loopsMu.RUnlock()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
