// Package report holds the two output sinks the simulation core writes to:
// a human-readable event log and an optional numeric telemetry sink.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Log accumulates human-readable event lines. The simulator flushes it to a
// writer between ticks; components only ever append.
type Log struct {
	mu    sync.Mutex
	buf   strings.Builder
	lines int
}

// NewLog returns an empty log.
func NewLog() *Log { return &Log{} }

// Line appends a single line.
func (l *Log) Line(s string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.buf.WriteString(s)
	l.buf.WriteByte('\n')
	l.lines++
	l.mu.Unlock()
}

// Linef appends a formatted line.
func (l *Log) Linef(format string, args ...any) {
	if l == nil {
		return
	}
	l.Line(fmt.Sprintf(format, args...))
}

// String returns everything accumulated since the last flush.
func (l *Log) String() string {
	if l == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// Lines returns the number of lines appended over the log's lifetime.
func (l *Log) Lines() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lines
}

// Contains reports whether the unflushed buffer contains substr.
func (l *Log) Contains(substr string) bool {
	return strings.Contains(l.String(), substr)
}

// FlushTo writes the buffered text to w and clears the buffer. A nil writer
// keeps the buffer intact.
func (l *Log) FlushTo(w io.Writer) error {
	if l == nil || w == nil {
		return nil
	}
	l.mu.Lock()
	text := l.buf.String()
	l.buf.Reset()
	l.mu.Unlock()

	if text == "" {
		return nil
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}
