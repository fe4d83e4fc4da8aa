// Package logrus adapts a logrus logger to core.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/Swind/go-async-demo/core"
)

// Logger writes core log entries through a logrus entry.
type Logger struct {
	entry *logrus.Entry
}

var _ core.Logger = (*Logger)(nil)

// NewLogger returns a core.Logger backed by entry. A nil entry uses the logrus standard logger.
func NewLogger(entry *logrus.Entry) *Logger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Logger{entry: entry}
}

// WithFields returns a logger that adds fields to every entry.
func (l *Logger) WithFields(fields ...core.Field) *Logger {
	return &Logger{entry: l.entry.WithFields(toLogrusFields(fields))}
}

func (l *Logger) Debug(msg string, fields ...core.Field) {
	l.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

func (l *Logger) Info(msg string, fields ...core.Field) {
	l.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

func (l *Logger) Warn(msg string, fields ...core.Field) {
	l.entry.WithFields(toLogrusFields(fields)).Warning(msg)
}

func (l *Logger) Error(msg string, fields ...core.Field) {
	l.entry.WithFields(toLogrusFields(fields)).Error(msg)
}

func toLogrusFields(fields []core.Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}
