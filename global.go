package asyncdemo

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-async-demo/core"
)

// =============================================================================
// Global Scheduler Helper (Singleton)
// =============================================================================

var (
	globalScheduler *core.Scheduler
	globalMu        sync.Mutex
)

// InitGlobalScheduler initializes the global scheduler and its event loop.
// Repeated calls are no-ops until ShutdownGlobalScheduler.
func InitGlobalScheduler() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler != nil {
		return // Already initialized
	}

	globalScheduler = core.NewScheduler(core.SchedulerConfig{Name: "global-scheduler"})
}

// GetGlobalScheduler returns the global scheduler instance.
// It panics if InitGlobalScheduler has not been called.
func GetGlobalScheduler() *core.Scheduler {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler == nil {
		panic("GlobalScheduler not initialized. Call InitGlobalScheduler() first.")
	}
	return globalScheduler
}

// ShutdownGlobalScheduler stops the global scheduler, dropping pending callbacks.
func ShutdownGlobalScheduler() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler != nil {
		globalScheduler.Stop()
		globalScheduler = nil
	}
}

// AfterFunc schedules cb on the global scheduler.
func AfterFunc(name string, delay time.Duration, cb Callback) (*Handle, error) {
	return GetGlobalScheduler().Schedule(name, delay, cb)
}

// Sleep suspends the caller for d using the global scheduler.
func Sleep(ctx context.Context, d time.Duration) error {
	return GetGlobalScheduler().After(ctx, d)
}
