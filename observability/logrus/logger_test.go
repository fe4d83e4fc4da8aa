package logrus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/go-async-demo/core"
	asynclogrus "github.com/Swind/go-async-demo/observability/logrus"
)

func TestLogger_Levels(t *testing.T) {
	tests := map[string]struct {
		log      func(l core.Logger)
		expLevel logrus.Level
		expMsg   string
	}{
		"Debug should log at debug level": {
			log:      func(l core.Logger) { l.Debug("debug msg") },
			expLevel: logrus.DebugLevel,
			expMsg:   "debug msg",
		},
		"Info should log at info level": {
			log:      func(l core.Logger) { l.Info("info msg") },
			expLevel: logrus.InfoLevel,
			expMsg:   "info msg",
		},
		"Warn should log at warning level": {
			log:      func(l core.Logger) { l.Warn("warn msg") },
			expLevel: logrus.WarnLevel,
			expMsg:   "warn msg",
		},
		"Error should log at error level": {
			log:      func(l core.Logger) { l.Error("error msg") },
			expLevel: logrus.ErrorLevel,
			expMsg:   "error msg",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			logger, hook := newTestLogger()

			test.log(asynclogrus.NewLogger(logrus.NewEntry(logger)))

			require.Len(t, hook.AllEntries(), 1)
			assert.Equal(t, test.expLevel, hook.LastEntry().Level)
			assert.Equal(t, test.expMsg, hook.LastEntry().Message)
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	logger, hook := newTestLogger()

	l := asynclogrus.NewLogger(logrus.NewEntry(logger)).WithFields(core.F("app", "asyncdemo"))
	l.Info("Callback fired", core.F("name", "Task 1"), core.F("late", 2*time.Millisecond))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "asyncdemo", entry.Data["app"])
	assert.Equal(t, "Task 1", entry.Data["name"])
	assert.Equal(t, 2*time.Millisecond, entry.Data["late"])
}

// TestLogger_SchedulerFailures tests the adapter behind a scheduler
// Main test items:
// 1. A failing callback is logged at error level with its name
func TestLogger_SchedulerFailures(t *testing.T) {
	logger, hook := newTestLogger()

	s := core.NewScheduler(core.SchedulerConfig{Logger: asynclogrus.NewLogger(logrus.NewEntry(logger))})
	defer s.Stop()

	h, err := s.Schedule("Task 2", time.Millisecond, func(ctx context.Context) error {
		return errors.New("boom")
	})
	require.NoError(t, err)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not finish")
	}

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == "Callback failed" {
			assert.Equal(t, "Task 2", e.Data["name"])
			found = true
		}
	}
	assert.True(t, found, "expected a callback failure entry")
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}
