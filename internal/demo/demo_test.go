package demo_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/go-async-demo/core"
	"github.com/Swind/go-async-demo/internal/config"
	"github.com/Swind/go-async-demo/internal/demo"
)

// fastDemo runs the default content twenty times faster.
func fastDemo() config.Demo {
	d := config.Default()
	d.TimeScale = 20
	return d
}

func indexOf(lines []string, text string) int {
	for i, l := range lines {
		if l == text {
			return i
		}
	}
	return -1
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		cfg    demo.ServiceConfig
		expErr bool
	}{
		"Missing sink should fail": {
			cfg:    demo.ServiceConfig{},
			expErr: true,
		},
		"Zero demo should use defaults": {
			cfg: demo.ServiceConfig{Sink: &core.RecordingSink{}},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := demo.NewService(test.cfg)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, config.Default().Tasks, svc.Tasks())
			assert.Equal(t, config.Default().Stages, svc.Stages())
		})
	}
}

func TestService_RunBlocking(t *testing.T) {
	sink := &core.RecordingSink{}
	svc, err := demo.NewService(demo.ServiceConfig{Demo: fastDemo(), Sink: sink})
	require.NoError(t, err)

	elapsed, err := svc.RunBlocking(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Task 1 completed", "Task 2 completed", "Task 3 completed"}, sink.Texts())
	assert.GreaterOrEqual(t, elapsed, 175*time.Millisecond)
}

// TestService_RunDeferred tests the deferred demonstration
// Main test items:
// 1. The sequence starts before any callback fires
// 2. Callbacks fire in ascending delay order, interleaved with the sequence
// 3. The whole run takes about the longest path, not the sum
func TestService_RunDeferred(t *testing.T) {
	require := require.New(t)

	sink := &core.RecordingSink{}
	svc, err := demo.NewService(demo.ServiceConfig{Demo: fastDemo(), Sink: sink})
	require.NoError(err)

	elapsed, err := svc.RunDeferred(context.Background())
	require.NoError(err)

	lines := sink.Texts()
	require.Len(lines, 6)
	require.Equal("Step 1: Start", lines[0])
	require.Equal("Step 3: Done!", lines[5])

	task1 := indexOf(lines, "Task 1 completed")
	task2 := indexOf(lines, "Task 2 completed")
	task3 := indexOf(lines, "Task 3 completed")
	step2 := indexOf(lines, "Step 2: Loading...")
	require.Less(task3, task1)
	require.Less(task1, task2)
	require.Less(task3, step2)
	require.Less(task2, 5)

	require.GreaterOrEqual(elapsed, 150*time.Millisecond)
	require.Less(elapsed, 175*time.Millisecond+250*time.Millisecond)
}

func TestService_RunDeferred_StoppedScheduler(t *testing.T) {
	s := core.NewScheduler(core.SchedulerConfig{})
	s.Stop()

	sink := &core.RecordingSink{}
	svc, err := demo.NewService(demo.ServiceConfig{Demo: fastDemo(), Sink: sink, Scheduler: s})
	require.NoError(t, err)

	_, err = svc.RunDeferred(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSchedulerStopped)

	lines := sink.Texts()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "error: "), "got %q", lines[0])
}

// TestService_RunDeferred_SchedulerStopsMidSequence tests failure propagation
// Main test items:
// 1. Stopping the scheduler during a wait fails the sequence
// 2. The last stage message is never emitted
// 3. The error is written to the sink as an error line
func TestService_RunDeferred_SchedulerStopsMidSequence(t *testing.T) {
	s := core.NewScheduler(core.SchedulerConfig{})
	defer s.Stop()

	sink := &core.RecordingSink{}
	svc, err := demo.NewService(demo.ServiceConfig{Demo: fastDemo(), Sink: sink, Scheduler: s})
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Stop()
	}()

	_, err = svc.RunDeferred(context.Background())
	require.Error(t, err)

	var tfErr *core.TimerFacilityError
	assert.ErrorAs(t, err, &tfErr)

	lines := sink.Texts()
	assert.Equal(t, "Step 1: Start", lines[0])
	assert.NotContains(t, lines, "Step 3: Done!")
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "error: sequence failed"), "got %q", lines[len(lines)-1])
}

func TestService_RunDeferred_ContextCancelled(t *testing.T) {
	sink := &core.RecordingSink{}
	svc, err := demo.NewService(demo.ServiceConfig{Demo: fastDemo(), Sink: sink})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = svc.RunDeferred(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, sink.Texts(), "Task 2 completed")
}

func TestService_Compare(t *testing.T) {
	sink := &core.RecordingSink{}
	svc, err := demo.NewService(demo.ServiceConfig{Demo: fastDemo(), Sink: sink})
	require.NoError(t, err)

	cmp, err := svc.Compare(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 175*time.Millisecond, cmp.BlockingFloor)
	assert.Equal(t, 150*time.Millisecond, cmp.DeferredExpected)
	assert.True(t, cmp.BlockingAsExpected())
	assert.GreaterOrEqual(t, cmp.Deferred, cmp.DeferredExpected)
	assert.Less(t, cmp.Deferred, cmp.Blocking+cmp.DeferredExpected)
	assert.Len(t, cmp.Report(), 2)
	assert.Len(t, sink.Texts(), 9)
}

func TestComparison_Report(t *testing.T) {
	cmp := demo.Comparison{
		Blocking:         3502 * time.Millisecond,
		Deferred:         3001 * time.Millisecond,
		BlockingFloor:    3500 * time.Millisecond,
		DeferredExpected: 3000 * time.Millisecond,
		Tolerance:        250 * time.Millisecond,
	}

	assert.Equal(t, []string{
		"blocking: 3.502s (expected >= 3.5s, ok=true)",
		"deferred: 3.001s (expected ~ 3s, ok=true)",
	}, cmp.Report())

	cmp.Deferred = 4 * time.Second
	assert.False(t, cmp.DeferredAsExpected())
}

// TestService_FullLength runs both demonstrations with their real durations.
func TestService_FullLength(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full length demo in short mode")
	}

	sink := &core.RecordingSink{}
	svc, err := demo.NewService(demo.ServiceConfig{Sink: sink})
	require.NoError(t, err)

	cmp, err := svc.Compare(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, cmp.Blocking, 3500*time.Millisecond)
	assert.GreaterOrEqual(t, cmp.Deferred, 3000*time.Millisecond)
	assert.True(t, cmp.DeferredAsExpected(), "deferred took %s", cmp.Deferred)
}
