package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogFlushClearsBuffer(t *testing.T) {
	l := NewLog()
	l.Line("Launched interceptor")
	l.Linef("Distance to target : %.0f", 1234.4)

	var out bytes.Buffer
	if err := l.FlushTo(&out); err != nil {
		t.Fatalf("FlushTo: %v", err)
	}
	want := "Launched interceptor\nDistance to target : 1234\n"
	if out.String() != want {
		t.Fatalf("flushed %q, want %q", out.String(), want)
	}
	if l.String() != "" {
		t.Fatalf("buffer not cleared after flush: %q", l.String())
	}
	if l.Lines() != 2 {
		t.Fatalf("Lines() = %d, want 2", l.Lines())
	}
}

func TestNilLogIsSafe(t *testing.T) {
	var l *Log
	l.Line("ignored")
	l.Linef("ignored %d", 1)
	if l.String() != "" || l.Lines() != 0 {
		t.Fatalf("nil log should be empty")
	}
	if err := l.FlushTo(&bytes.Buffer{}); err != nil {
		t.Fatalf("FlushTo on nil log: %v", err)
	}
}

func TestRecorderWriteCSV(t *testing.T) {
	r := NewRecorder()
	r.Sample("b/speed", 0.01, 30)
	r.Sample("a/alt", 0.01, 1)
	r.Sample("a/alt", 0.02, 2.5)

	var out bytes.Buffer
	if err := r.WriteCSV(&out, true); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{"series,x,y", "a/alt,0.01,1", "a/alt,0.02,2.5", "b/speed,0.01,30"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %q, want %d", len(lines), lines, len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopTelemetry); !ok {
		t.Fatalf("OrNoop(nil) should return NoopTelemetry")
	}
	r := NewRecorder()
	if OrNoop(r) != Telemetry(r) {
		t.Fatalf("OrNoop should pass through non-nil sinks")
	}
}
