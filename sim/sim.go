// Package sim owns the simulation loop: the clock, the live-target registry
// and the detectors, stepped in a fixed order every tick.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/detector"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/internal/observability"
	"github.com/signalsfoundry/intercept-simulator/internal/report"
	"github.com/signalsfoundry/intercept-simulator/kb"
	"github.com/signalsfoundry/intercept-simulator/timectrl"
)

// ErrAlreadyRan is returned when Run is called a second time.
var ErrAlreadyRan = errors.New("simulation already ran")

// DefaultDuration is the simulation-time budget used when none is given.
const DefaultDuration = 20_000 * time.Second

// Config holds the loop parameters.
type Config struct {
	// Duration is the simulation-time budget.
	Duration time.Duration
	// Tick is the integration step; zero means timectrl.DefaultTick.
	Tick time.Duration
	// Verbose writes every live body's state to the report each tick.
	Verbose bool
}

// Recorder receives per-tick loop metrics.
type Recorder interface {
	ObserveTick(now, wall time.Duration, alive int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveTick(time.Duration, time.Duration, int) {}

// Option customises a Simulator.
type Option func(*Simulator)

// WithReportWriter flushes the report to w at the end of every tick instead
// of accumulating it in memory.
func WithReportWriter(w io.Writer) Option {
	return func(s *Simulator) { s.out = w }
}

// WithTelemetry attaches a telemetry sink.
func WithTelemetry(t report.Telemetry) Option {
	return func(s *Simulator) { s.tel = t }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Simulator) {
		if r != nil {
			s.metrics = r
		}
	}
}

// Outcome is the end state of one body.
type Outcome struct {
	ID    string
	Alive bool
	Fate  string
}

// Result summarises a finished run.
type Result struct {
	// Ended is true when every body died before the budget ran out.
	Ended        bool
	Elapsed      time.Duration
	Ticks        int
	Targets      []Outcome
	Interceptors []Outcome
}

// Simulator steps every registered body and then every detector, once per
// tick, until all bodies are dead or the budget runs out.
type Simulator struct {
	cfg       Config
	clock     *timectrl.TimeController
	registry  *kb.KnowledgeBase
	detectors []*detector.Detector

	log     *report.Log
	tel     report.Telemetry
	out     io.Writer
	metrics Recorder

	pending []kb.Event
	ticks   int
	ran     bool
}

// New returns an empty simulator.
func New(cfg Config, opts ...Option) *Simulator {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Tick <= 0 {
		cfg.Tick = timectrl.DefaultTick
	}
	s := &Simulator{
		cfg:      cfg,
		clock:    timectrl.NewTimeController(cfg.Tick),
		registry: kb.NewKnowledgeBase(),
		log:      report.NewLog(),
		metrics:  noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry.Subscribe(func(ev kb.Event) {
		if ev.Type == kb.EventTargetDown {
			s.pending = append(s.pending, ev)
		}
	})
	return s
}

// AddTarget registers a flying body.
func (s *Simulator) AddTarget(t core.Target) error {
	return s.registry.Add(t)
}

// AddDetector registers a detector. Detectors step in registration order.
func (s *Simulator) AddDetector(d *detector.Detector) {
	s.detectors = append(s.detectors, d)
}

// Registry returns the live-target registry detectors should scan.
func (s *Simulator) Registry() *kb.KnowledgeBase { return s.registry }

// Report returns the report buffer. With a report writer attached it only
// holds what has not been flushed yet.
func (s *Simulator) Report() *report.Log { return s.log }

// Clock returns the simulation clock.
func (s *Simulator) Clock() timectrl.SimClock { return s.clock }

// Run executes the simulation. Configuration and programming errors stop
// the run and are returned wrapped with the simulation time.
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	if s.ran {
		return Result{}, ErrAlreadyRan
	}
	s.ran = true

	ctx, span := observability.Tracer().Start(ctx, "sim.run", trace.WithAttributes(
		attribute.Int("targets", s.registry.Len()),
		attribute.Int("detectors", len(s.detectors)),
		attribute.Float64("budget_s", s.cfg.Duration.Seconds()),
	))
	defer span.End()

	log := logging.FromContext(ctx)
	log.Info(ctx, "simulation started",
		logging.Int("targets", s.registry.Len()),
		logging.Int("detectors", len(s.detectors)),
		logging.Duration("budget", s.cfg.Duration),
		logging.Duration("tick", s.cfg.Tick),
	)

	s.clock.AddListener(func(t timectrl.Tick) error {
		return s.step(ctx, t)
	})

	ended := s.allDead()
	if !ended {
		var err error
		ended, err = s.clock.Run(s.cfg.Duration, s.allDead)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			_ = s.flush()
			return Result{}, err
		}
	}

	res := s.finish(ctx, ended)
	span.SetAttributes(
		attribute.Bool("ended", res.Ended),
		attribute.Int("ticks", res.Ticks),
		attribute.Float64("sim_time_s", res.Elapsed.Seconds()),
	)
	log.Info(ctx, "simulation finished",
		logging.Any("ended", res.Ended),
		logging.Int("ticks", res.Ticks),
		logging.Duration("elapsed", res.Elapsed),
	)
	return res, s.flush()
}

func (s *Simulator) allDead() bool {
	return s.registry.AliveCount() == 0
}

// step is the clock listener: bodies first, then detectors.
func (s *Simulator) step(ctx context.Context, tick timectrl.Tick) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("at t=%.2fs: %w", tick.Seconds(), err)
	}
	started := time.Now()
	env := core.NewEnv(tick, s.log, s.tel)

	for _, t := range s.registry.List() {
		if !t.Alive() {
			continue
		}
		if err := t.Move(ctx, env); err != nil {
			return fmt.Errorf("at t=%.2fs: %w", tick.Seconds(), err)
		}
	}
	if s.cfg.Verbose {
		for _, t := range s.registry.List() {
			if t.Alive() {
				s.log.Line(strings.TrimSuffix(t.ReportState(env), "\n"))
			}
		}
	}
	for _, d := range s.detectors {
		if err := d.Step(ctx, env); err != nil {
			return fmt.Errorf("at t=%.2fs: %w", tick.Seconds(), err)
		}
	}

	s.sweep(ctx, tick)
	s.ticks++
	s.metrics.ObserveTick(tick.Now, time.Since(started), s.registry.AliveCount())
	return s.flush()
}

func (s *Simulator) sweep(ctx context.Context, tick timectrl.Tick) {
	s.pending = s.pending[:0]
	if s.registry.Sweep() == 0 {
		return
	}
	log := logging.FromContext(ctx)
	span := trace.SpanFromContext(ctx)
	for _, ev := range s.pending {
		log.Info(ctx, "target down",
			logging.String("target", ev.ID),
			logging.String("fate", ev.Fate),
			logging.Float("t", tick.Seconds()),
		)
		span.AddEvent("target.down", trace.WithAttributes(
			attribute.String("target", ev.ID),
			attribute.String("fate", ev.Fate),
			attribute.Float64("sim_time_s", tick.Seconds()),
		))
	}
}

// finish times out whatever is still flying and writes the end-of-run
// summary.
func (s *Simulator) finish(ctx context.Context, ended bool) Result {
	now := s.clock.Now()
	env := core.NewEnv(now, s.log, s.tel)

	res := Result{Ended: ended, Elapsed: now.Now, Ticks: s.ticks}
	for _, t := range s.registry.List() {
		res.Targets = append(res.Targets, outcome(t))
		core.Timeout(t, env)
	}
	for _, d := range s.detectors {
		for _, i := range d.Interceptors() {
			res.Interceptors = append(res.Interceptors, Outcome{ID: i.ID(), Alive: i.Alive(), Fate: i.Outcome().String()})
		}
	}
	s.sweep(ctx, now)

	if ended {
		s.log.Line("Simulation ended")
		s.log.Linef("Time : %.2f", now.Seconds())
	} else {
		s.log.Line("Time out")
	}

	s.log.Line("Summary")
	for _, o := range res.Targets {
		state := "dead"
		if o.Alive {
			state = "alive"
		}
		if o.Fate != "" {
			s.log.Linef("  %s : %s (%s)", o.ID, state, o.Fate)
		} else {
			s.log.Linef("  %s : %s", o.ID, state)
		}
	}
	for _, o := range res.Interceptors {
		s.log.Linef("  %s : %s", o.ID, o.Fate)
	}
	return res
}

func outcome(t core.Target) Outcome {
	o := Outcome{ID: t.ID(), Alive: t.Alive()}
	if f, ok := t.(core.Fate); ok {
		o.Fate = f.Fate()
	}
	return o
}

func (s *Simulator) flush() error {
	return s.log.FlushTo(s.out)
}
