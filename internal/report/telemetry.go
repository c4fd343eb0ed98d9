package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
)

// Telemetry receives (x, y) sample pairs grouped by series name, typically
// (time, value) or (downrange, altitude). Implementations must not feed back
// into the simulation.
type Telemetry interface {
	Sample(series string, x, y float64)
}

// NoopTelemetry discards every sample.
type NoopTelemetry struct{}

// Sample implements Telemetry.
func (NoopTelemetry) Sample(string, float64, float64) {}

// OrNoop returns t, or a NoopTelemetry when t is nil.
func OrNoop(t Telemetry) Telemetry {
	if t == nil {
		return NoopTelemetry{}
	}
	return t
}

// Point is one telemetry sample.
type Point struct {
	X, Y float64
}

// Recorder is an in-memory Telemetry that keeps every sample.
type Recorder struct {
	mu     sync.RWMutex
	series map[string][]Point
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{series: make(map[string][]Point)}
}

// Sample implements Telemetry.
func (r *Recorder) Sample(series string, x, y float64) {
	r.mu.Lock()
	r.series[series] = append(r.series[series], Point{X: x, Y: y})
	r.mu.Unlock()
}

// Series returns a copy of the samples recorded for name.
func (r *Recorder) Series(name string) []Point {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Point(nil), r.series[name]...)
}

// Names returns the recorded series names in sorted order.
func (r *Recorder) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.series))
	for name := range r.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteCSV writes every sample as "series,x,y" rows, series in sorted order.
func (r *Recorder) WriteCSV(w io.Writer, writeHeader bool) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	if writeHeader {
		if err := cw.Write([]string{"series", "x", "y"}); err != nil {
			return fmt.Errorf("csv write header: %w", err)
		}
	}

	for _, name := range r.Names() {
		for _, p := range r.Series(name) {
			row := []string{
				name,
				strconv.FormatFloat(p.X, 'g', -1, 64),
				strconv.FormatFloat(p.Y, 'g', -1, 64),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("csv write row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	return bw.Flush()
}
