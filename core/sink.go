package core

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Sink is the append-only output stream components report events to, one line per event.
type Sink interface {
	Emit(line string) error
}

// WriterSink writes each line atomically to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Emit(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, line)
	return err
}

// RecordedLine is a line captured by RecordingSink with its emission time.
type RecordedLine struct {
	Text string
	At   time.Time
}

// RecordingSink keeps every emitted line in memory, optionally forwarding to Next.
type RecordingSink struct {
	Next Sink

	mu    sync.Mutex
	lines []RecordedLine
}

func (s *RecordingSink) Emit(line string) error {
	s.mu.Lock()
	s.lines = append(s.lines, RecordedLine{Text: line, At: time.Now()})
	s.mu.Unlock()

	if s.Next != nil {
		return s.Next.Emit(line)
	}
	return nil
}

// Lines returns a copy of the captured lines in emission order.
func (s *RecordingSink) Lines() []RecordedLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Texts returns the captured line texts in emission order.
func (s *RecordingSink) Texts() []string {
	lines := s.Lines()
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

// Reset drops every captured line.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}
