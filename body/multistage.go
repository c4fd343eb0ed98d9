package body

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
)

// Phase is the flight phase of a multi-stage rocket.
type Phase int

const (
	Stage1Burning Phase = iota
	Stage1Separation
	Stage2Burning
	Stage2Separation
	WarheadFlying
	Terminated
)

func (p Phase) String() string {
	switch p {
	case Stage1Burning:
		return "stage 1 burning"
	case Stage1Separation:
		return "stage 1 separation"
	case Stage2Burning:
		return "stage 2 burning"
	case Stage2Separation:
		return "stage 2 separation"
	case WarheadFlying:
		return "warhead flying"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MultiStageConfig describes a two-stage rocket with a separating warhead.
// Stage headings are relative to the local frame at ignition; the warhead's
// heading is ignored and follows its velocity.
type MultiStageConfig struct {
	Start      core.Cartesian
	LaunchTime time.Duration

	Stage1  Stage
	Stage2  Stage
	Warhead Stage
}

// Separation records a stage hand-over.
type Separation struct {
	At       time.Duration
	From     Phase
	To       Phase
	Position core.Cartesian
	Velocity core.Vector
}

// MultiStage sequences two powered stages and an unpowered warhead. Each
// stage is created exactly once, at the tick its predecessor burns out, and
// inherits the predecessor's position and velocity.
type MultiStage struct {
	core.Kinematics

	id     string
	cfg    MultiStageConfig
	origin core.Spherical

	phase       Phase
	active      *Ballistic
	separations []Separation
	finalized   bool
	// last is the most recent tick, used to report a kill that happens
	// outside Move.
	last *core.Env

	maxAltitude float64
	maxSpeed    float64
	prevSpeed   float64
}

// NewMultiStage builds the rocket with stage 1 on the pad.
func NewMultiStage(id string, cfg MultiStageConfig) *MultiStage {
	m := &MultiStage{
		Kinematics: core.Kinematics{Pos: cfg.Start.Mutable()},
		id:         id,
		cfg:        cfg,
		origin:     cfg.Start.Spherical(),
	}

	s1 := cfg.Stage1
	s1.Heading = m.origin.ConvertRelative(cfg.Stage1.Heading)
	// Stage 1 carries everything above it as dead weight.
	s1.EmptyMass = cfg.Stage1.EmptyMass + cfg.Stage2.EmptyMass + cfg.Stage2.FuelMass + cfg.Warhead.EmptyMass
	m.active = NewBallistic(id+"/stage1", cfg.Start, s1, cfg.LaunchTime)
	return m
}

// ID implements core.Target.
func (m *MultiStage) ID() string { return m.id }

// Phase returns the current flight phase.
func (m *MultiStage) Phase() Phase { return m.phase }

// Separations returns the hand-overs so far.
func (m *MultiStage) Separations() []Separation {
	return append([]Separation(nil), m.separations...)
}

// Move implements core.Target.
func (m *MultiStage) Move(ctx context.Context, env *core.Env) error {
	if m.phase != Terminated {
		m.last = env
	}
	for {
		switch m.phase {
		case Terminated:
			return nil

		case Stage1Separation, Stage2Separation:
			m.phase, m.active = m.transition(ctx, env)

		default:
			if m.phase != WarheadFlying && m.active.BurnedOut(env.Now()) {
				m.phase++
				continue
			}
			if err := m.active.Move(ctx, env); err != nil {
				return fmt.Errorf("%s: %w", m.id, err)
			}
			m.mirror(env)
			if !m.active.Alive() {
				m.phase = Terminated
				m.Dead = true
				m.Cause = m.active.Fate()
				m.finalize(ctx, env)
			}
			return nil
		}
	}
}

// transition leaves a separation phase: it builds the next stage from the
// current kinematic state and returns the phase that flies it.
func (m *MultiStage) transition(ctx context.Context, env *core.Env) (Phase, *Ballistic) {
	pos, vel := m.Pos.Fix(), m.Vel
	now := env.Now()

	var (
		next  Phase
		stage Stage
		name  string
	)
	switch m.phase {
	case Stage1Separation:
		next, name = Stage2Burning, "stage2"
		stage = m.cfg.Stage2
		stage.Heading = pos.Spherical().ConvertRelative(m.cfg.Stage2.Heading)
		stage.EmptyMass = m.cfg.Stage2.EmptyMass + m.cfg.Warhead.EmptyMass
	default:
		next, name = WarheadFlying, "warhead"
		stage = m.cfg.Warhead
		stage.Heading = vel
		stage.Thrust = 0
		stage.BurnTime = 0
		stage.FuelMass = 0
	}

	child := NewBallistic(m.id+"/"+name, pos, stage, now)
	child.SetVelocity(vel)

	m.separations = append(m.separations, Separation{At: now, From: m.phase, To: next, Position: pos, Velocity: vel})

	env.Linef("%s: %s at t=%.2fs, altitude %.1f km, speed Mach %.2f", m.id, m.phase, env.Seconds(), pos.Altitude()/1000.0, vel.Mach())
	logging.FromContext(ctx).Info(ctx, "stage separation",
		logging.String("body", m.id),
		logging.String("phase", next.String()),
		logging.Float("t", env.Seconds()),
	)
	trace.SpanFromContext(ctx).AddEvent("separation", trace.WithAttributes(
		attribute.String("body", m.id),
		attribute.String("next_phase", next.String()),
		attribute.Float64("sim_time_s", env.Seconds()),
	))
	return next, child
}

func (m *MultiStage) mirror(env *core.Env) {
	m.Pos.Set(m.active.Position())
	m.Vel = m.active.Velocity()

	pos := m.Pos.Fix()
	speed := m.Vel.Magnitude()
	m.maxAltitude = math.Max(m.maxAltitude, pos.Altitude())
	m.maxSpeed = math.Max(m.maxSpeed, speed)

	env.Sample(m.id+"/path", pos.SurfaceDistanceTo(m.origin)/1000.0, pos.Altitude())
	env.SampleNow(m.id+"/speed", m.Vel.Mach())
	env.SampleNow(m.id+"/altitude", pos.Altitude())
	if dt := env.DT(); dt > 0 {
		env.SampleNow(m.id+"/g", math.Abs(speed-m.prevSpeed)/(dt*core.G0))
	}
	m.prevSpeed = speed
}

// finalize runs once, the first time the rocket stops flying.
func (m *MultiStage) finalize(ctx context.Context, env *core.Env) {
	if m.finalized {
		return
	}
	m.finalized = true

	env.Linef("%s flight ended (%s) after %.2f s: downrange %.0f km, apogee %.1f km, top speed Mach %.2f",
		m.id, m.Cause, env.Seconds(),
		m.Pos.Fix().SurfaceDistanceTo(m.origin)/1000.0,
		m.maxAltitude/1000.0,
		m.maxSpeed/core.SpeedOfSound,
	)
	logging.FromContext(ctx).Debug(ctx, "multi-stage flight ended",
		logging.String("body", m.id),
		logging.Int("separations", len(m.separations)),
	)
}

// Kill implements core.Target.
func (m *MultiStage) Kill() {
	if m.Dead {
		return
	}
	m.active.Kill()
	m.phase = Terminated
	m.KillBecause("destroyed")
	if m.last == nil {
		// Killed on the pad before the first tick; there is no flight to report.
		m.finalized = true
		return
	}
	m.finalize(context.Background(), m.last)
}

// OnTimeout implements core.TimeoutHandler.
func (m *MultiStage) OnTimeout(env *core.Env) {
	if m.Dead {
		return
	}
	m.active.OnTimeout(env)
	m.phase = Terminated
	m.KillBecause("timed out")
	m.finalize(context.Background(), env)
}

// ReportState implements core.Target.
func (m *MultiStage) ReportState(env *core.Env) string {
	return fmt.Sprintf("Phase: %v\n", m.phase) + stateReport(m.Pos.Fix(), m.Vel, m.Pos.Fix().SurfaceDistanceTo(m.origin), env)
}
