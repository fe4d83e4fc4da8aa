package demo

import (
	"time"

	"github.com/Swind/go-async-demo/core"
)

// Scale divides d by factor. A factor <= 0 leaves d unchanged.
func Scale(d time.Duration, factor float64) time.Duration {
	if factor <= 0 || factor == 1 {
		return d
	}
	return time.Duration(float64(d) / factor)
}

// ScaleTasks returns a copy of tasks with every duration scaled.
func ScaleTasks(tasks []core.BlockingTask, factor float64) []core.BlockingTask {
	out := make([]core.BlockingTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, core.BlockingTask{Name: t.Name, Duration: Scale(t.Duration, factor)})
	}
	return out
}

// ScaleStages returns a copy of stages with every wait scaled.
func ScaleStages(stages []core.Stage, factor float64) []core.Stage {
	out := make([]core.Stage, 0, len(stages))
	for _, s := range stages {
		out = append(out, core.Stage{Message: s.Message, Wait: Scale(s.Wait, factor)})
	}
	return out
}

// SumDurations returns the total duration of tasks.
func SumDurations(tasks []core.BlockingTask) time.Duration {
	var total time.Duration
	for _, t := range tasks {
		total += t.Duration
	}
	return total
}

// MaxDuration returns the longest task duration.
func MaxDuration(tasks []core.BlockingTask) time.Duration {
	var longest time.Duration
	for _, t := range tasks {
		longest = max(longest, t.Duration)
	}
	return longest
}

// SequenceWait returns the total wait of stages. The terminal wait is ignored.
func SequenceWait(stages []core.Stage) time.Duration {
	var total time.Duration
	for i, s := range stages {
		if i == len(stages)-1 {
			break
		}
		total += s.Wait
	}
	return total
}
