// Package interceptor implements the guided interceptor: launch, guidance
// updates under a G limit, and hit, miss, crash and timeout detection.
package interceptor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
)

// ErrAlreadyLaunched is returned when launching an interceptor twice.
var ErrAlreadyLaunched = errors.New("interceptor already launched")

// ErrNotAlive is returned when launching an interceptor that has already
// been terminated.
var ErrNotAlive = errors.New("interceptor is not alive")

// Outcome is the interceptor's flight state. Everything after Flying is
// terminal.
type Outcome int

const (
	NotLaunched Outcome = iota
	Flying
	Hit
	Missed
	Crashed
	TimedOut
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case NotLaunched:
		return "not launched"
	case Flying:
		return "flying"
	case Hit:
		return "hit"
	case Missed:
		return "missed"
	case Crashed:
		return "crashed"
	case TimedOut:
		return "timed out"
	case Dropped:
		return "dropped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Terminal reports whether o ends the flight.
func (o Outcome) Terminal() bool { return o > Flying }

// MissPolicy tunes the miss heuristic. After boost, the interceptor gives
// up when it is slower than StallSpeed and still slowing, or, with
// RangeIncrease, when the range to the target grows between ticks.
type MissPolicy struct {
	StallSpeed    float64
	RangeIncrease bool
}

// DefaultMissPolicy is the stock heuristic.
var DefaultMissPolicy = MissPolicy{StallSpeed: 40, RangeIncrease: true}

// Defaults for zero Config fields.
const (
	DefaultTimeout       = 500 * time.Second
	DefaultMaxG          = 75.0
	DefaultTerminalRange = 2000.0

	railSpeed = 10.0
)

// Config holds an interceptor's physical and control parameters.
type Config struct {
	Thrust          float64 // N
	BurnTime        time.Duration
	EmptyMass       float64 // kg
	FuelMass        float64 // kg
	DragCoefficient float64
	Area            float64 // m²
	KillRadius      float64 // m

	// TrackUpdatePeriod is the time between guidance updates; zero means
	// every tick.
	TrackUpdatePeriod time.Duration
	Timeout           time.Duration
	// InitialVelocity is the absolute velocity on the rail. Zero means
	// 10 m/s along the local vertical.
	InitialVelocity core.Vector

	MaxG          float64
	TerminalMaxG  float64
	TerminalRange float64

	// Miss defaults to DefaultMissPolicy when nil.
	Miss *MissPolicy

	// Verbose adds a flight line to the report every tick.
	Verbose bool
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxG <= 0 {
		c.MaxG = DefaultMaxG
	}
	if c.TerminalMaxG <= 0 {
		c.TerminalMaxG = c.MaxG
	}
	if c.TerminalRange <= 0 {
		c.TerminalRange = DefaultTerminalRange
	}
	if c.Miss == nil {
		p := DefaultMissPolicy
		c.Miss = &p
	}
	return c
}

// Recorder receives engagement metrics.
type Recorder interface {
	InterceptorLaunched()
	InterceptorFinished(outcome string)
	ObserveDamping(iterations int)
}

type noopRecorder struct{}

func (noopRecorder) InterceptorLaunched()       {}
func (noopRecorder) InterceptorFinished(string) {}
func (noopRecorder) ObserveDamping(int)         {}

// Option customises an Interceptor.
type Option func(*Interceptor)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(i *Interceptor) {
		if r != nil {
			i.metrics = r
		}
	}
}

// Factory creates an interceptor aimed at track from launcher, at simulation
// time now.
type Factory func(id string, track core.Target, launcher core.Cartesian, now time.Duration) *Interceptor

// Interceptor is a guided missile chasing a single target.
type Interceptor struct {
	core.Kinematics

	id    string
	cfg   Config
	law   guidance.Law
	track core.Target
	start core.Cartesian

	launched   bool
	launchTime time.Duration
	burn       core.Burn
	outcome    Outcome

	cmd          core.Vector
	cooldown     time.Duration
	prevSpeed    float64
	prevDistance float64
	minDistance  float64
	topSpeed     float64
	lastG        float64

	metrics Recorder
}

// New returns an unlaunched interceptor on its rail at start. Until launch
// the timeout runs from created. A nil law means leading pursuit.
func New(id string, track core.Target, start core.Cartesian, law guidance.Law, cfg Config, created time.Duration, opts ...Option) *Interceptor {
	if law == nil {
		law = guidance.LeadingPursuit{}
	}
	cfg = cfg.withDefaults()
	if cfg.InitialVelocity.IsZero() {
		cfg.InitialVelocity = start.Up().Scale(railSpeed)
	}
	i := &Interceptor{
		Kinematics:   core.Kinematics{Pos: start.Mutable(), Vel: cfg.InitialVelocity},
		id:           id,
		cfg:          cfg,
		law:          law,
		track:        track,
		start:        start,
		launchTime:   created,
		burn:         core.Burn{LaunchTime: created, BurnTime: cfg.BurnTime},
		cooldown:     cfg.TrackUpdatePeriod,
		prevSpeed:    cfg.InitialVelocity.Magnitude(),
		prevDistance: math.MaxFloat64,
		minDistance:  math.MaxFloat64,
		metrics:      noopRecorder{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ID implements core.Target.
func (i *Interceptor) ID() string { return i.id }

// Track returns the target currently being chased.
func (i *Interceptor) Track() core.Target { return i.track }

// Law returns the guidance law.
func (i *Interceptor) Law() guidance.Law { return i.law }

// Config returns the effective configuration.
func (i *Interceptor) Config() Config { return i.cfg }

// Launched reports whether Launch has succeeded. It stays true after the
// flight ends.
func (i *Interceptor) Launched() bool { return i.launched }

// Outcome returns the current flight state.
func (i *Interceptor) Outcome() Outcome { return i.outcome }

// LaunchTime returns the launch time, or the creation time before launch.
func (i *Interceptor) LaunchTime() time.Duration { return i.launchTime }

// LastG returns the load of the most recent turn.
func (i *Interceptor) LastG() float64 { return i.lastG }

// MinDistance returns the closest approach so far.
func (i *Interceptor) MinDistance() float64 { return i.minDistance }

// TopSpeed returns the highest speed reached so far.
func (i *Interceptor) TopSpeed() float64 { return i.topSpeed }

// Burning reports whether the interceptor is in its boost phase.
func (i *Interceptor) Burning(now time.Duration) bool {
	return i.launched && now < i.launchTime+i.cfg.BurnTime
}

// Mass returns the current mass, burning fuel linearly over the boost.
func (i *Interceptor) Mass(now time.Duration) float64 {
	if !i.launched {
		return i.cfg.EmptyMass + i.cfg.FuelMass
	}
	return i.cfg.EmptyMass + i.cfg.FuelMass*i.burn.RemainingFraction(now)
}

// Launch fires the interceptor: it arms the guidance law and starts the
// flight clock.
func (i *Interceptor) Launch(ctx context.Context, env *core.Env) error {
	if i.launched {
		return fmt.Errorf("%s: %w", i.id, ErrAlreadyLaunched)
	}
	if i.Dead {
		return fmt.Errorf("%s: %w", i.id, ErrNotAlive)
	}

	now := env.Now()
	i.launched = true
	i.outcome = Flying
	i.launchTime = now
	i.burn = core.Burn{LaunchTime: now, BurnTime: i.cfg.BurnTime}
	guidance.Arm(i.law)

	distance := i.Pos.Fix().DistanceTo(i.track.Position())
	env.Linef("Launched interceptor")
	env.Linef("Distance to target : %.1f", distance)

	i.metrics.InterceptorLaunched()
	logging.FromContext(ctx).Info(ctx, "interceptor launched",
		logging.String("interceptor", i.id),
		logging.String("target", i.track.ID()),
		logging.String("guidance", guidance.Describe(i.law)),
		logging.Float("distance_m", distance),
	)
	trace.SpanFromContext(ctx).AddEvent("interceptor.launch", trace.WithAttributes(
		attribute.String("interceptor", i.id),
		attribute.String("target", i.track.ID()),
		attribute.Float64("sim_time_s", env.Seconds()),
	))
	return nil
}

// UpdateTrack re-points the interceptor at target without touching its
// flight state.
func (i *Interceptor) UpdateTrack(target core.Target) {
	if target != nil {
		i.track = target
	}
}

// Move implements core.Target.
func (i *Interceptor) Move(ctx context.Context, env *core.Env) error {
	return i.Run(ctx, env)
}

// Run advances the interceptor by one tick. The timeout is checked first,
// even before launch; an unlaunched interceptor does nothing else.
func (i *Interceptor) Run(ctx context.Context, env *core.Env) error {
	if i.Dead {
		return nil
	}
	now := env.Now()
	if now >= i.launchTime+i.cfg.Timeout {
		i.OnTimeout(env)
		return nil
	}
	if !i.launched {
		return nil
	}

	dt := env.DT()
	speed := i.Vel.Magnitude()
	boosting := i.Burning(now)
	target := i.track.Position()
	self := i.Pos.Fix()

	raw, err := i.command(env, target, self, boosting)
	if err != nil {
		return fmt.Errorf("%s guidance: %w", i.id, err)
	}
	cmd := raw.ScaleTo(speed)

	distance := self.DistanceTo(target)
	limit := i.cfg.MaxG
	if distance < i.cfg.TerminalRange {
		limit = i.cfg.TerminalMaxG
	}
	cmd, g, iterations := Damp(i.Vel, cmd, limit, dt)
	i.lastG = g
	i.metrics.ObserveDamping(iterations)

	i.minDistance = math.Min(i.minDistance, distance)
	env.SampleNow(i.id+"/g", g)
	env.SampleNow(i.id+"/speed", speed)
	env.SampleNow(i.id+"/range", distance)
	env.SampleNow(i.id+"/altitude", self.Altitude())

	if !boosting && i.missed(speed, distance) {
		env.Linef("   Interception failed (missed)")
		env.Linef("   Minimum distance = %.0f", math.Round(distance))
		i.finish(ctx, env, Missed)
		return nil
	}

	heading := cmd
	if heading.IsZero() {
		// Still on the rail with no speed: thrust along the raw command.
		heading = raw
	}
	model := core.ForceModel{
		Velocity:        cmd,
		Heading:         heading,
		Position:        self,
		Thrust:          i.cfg.Thrust,
		Mass:            i.Mass(now),
		DragCoefficient: i.cfg.DragCoefficient,
		Area:            i.cfg.Area,
		Powered:         boosting,
	}
	i.Vel = core.Integrate(&i.Pos, cmd, model.Acceleration(), dt)
	i.prevSpeed = speed
	i.prevDistance = distance
	i.topSpeed = math.Max(i.topSpeed, i.Vel.Magnitude())

	pos := i.Pos.Fix()
	if i.cfg.Verbose {
		i.describe(env, pos, g)
	}

	if hit := pos.DistanceTo(i.track.Position()); hit <= i.cfg.KillRadius {
		i.minDistance = math.Min(i.minDistance, hit)
		i.track.Kill()
		env.Linef("Intercepted target")
		env.Linef("Intercept distance : %.0f", pos.DistanceTo(i.start))
		env.Linef("Interceptor top speed : %.1f (Mach %.2f)", i.topSpeed, i.topSpeed/core.SpeedOfSound)
		i.finish(ctx, env, Hit)
		return nil
	}
	if pos.HasCrashed() {
		env.Linef("Interceptor crashed")
		i.finish(ctx, env, Crashed)
	}
	return nil
}

// command returns the raw guidance direction for this tick. Between track
// updates the last command is reused.
func (i *Interceptor) command(env *core.Env, target, self core.Cartesian, boosting bool) (core.Vector, error) {
	if i.cooldown > 0 {
		i.cooldown -= env.Tick.DT
		if i.cmd.IsZero() {
			return i.Vel, nil
		}
		return i.cmd, nil
	}

	cmd, err := i.law.Command(guidance.Input{
		TargetPos: target,
		TargetVel: i.track.Velocity(),
		SelfPos:   self,
		SelfVel:   i.Vel,
		Boosting:  boosting,
		DT:        env.DT(),
		Report:    env.Report,
	})
	if err != nil {
		return core.Vector{}, err
	}
	i.cmd = cmd
	i.cooldown = i.cfg.TrackUpdatePeriod
	return cmd, nil
}

func (i *Interceptor) missed(speed, distance float64) bool {
	p := i.cfg.Miss
	if speed < p.StallSpeed && speed < i.prevSpeed {
		return true
	}
	return p.RangeIncrease && i.prevDistance < distance
}

func (i *Interceptor) describe(env *core.Env, pos core.Cartesian, g float64) {
	env.Linef("Interceptor flying.")
	env.Linef("   Time : %.2f", env.Seconds())
	env.Linef("   Time since launch : %.2f", (env.Now() - i.launchTime).Seconds())
	env.Linef("   Interceptor heading : %v", i.Vel)
	env.Linef("   Interceptor speed : %.1f (Mach %.2f)", i.Vel.Magnitude(), i.Vel.Mach())
	env.Linef("   Interceptor location : %v", pos)
	env.Linef("   Distance to target : %.1f", pos.DistanceTo(i.track.Position()))
	env.Linef("   Pulling %.0fGs", math.Round(g))
}

// finish records a terminal outcome. The interceptor stays where it ended.
func (i *Interceptor) finish(ctx context.Context, env *core.Env, outcome Outcome) {
	i.outcome = outcome
	i.Dead = true
	i.Cause = outcome.String()
	i.metrics.InterceptorFinished(outcome.String())

	logging.FromContext(ctx).Info(ctx, "interceptor finished",
		logging.String("interceptor", i.id),
		logging.String("target", i.track.ID()),
		logging.String("outcome", outcome.String()),
		logging.Float("min_distance_m", i.minDistance),
		logging.Float("t", env.Seconds()),
	)
	trace.SpanFromContext(ctx).AddEvent("interceptor."+strings.ReplaceAll(outcome.String(), " ", "_"), trace.WithAttributes(
		attribute.String("interceptor", i.id),
		attribute.Float64("sim_time_s", env.Seconds()),
	))
}

// Kill drops the interceptor, typically because its target was lost by the
// radar. Only the first call has any effect.
func (i *Interceptor) Kill() {
	if i.Dead {
		return
	}
	i.outcome = Dropped
	i.KillBecause(Dropped.String())
	i.metrics.InterceptorFinished(Dropped.String())
}

// OnTimeout implements core.TimeoutHandler.
func (i *Interceptor) OnTimeout(env *core.Env) {
	if i.Dead {
		return
	}
	if i.launched {
		env.Linef("Interceptor %s timed out", i.id)
	}
	i.outcome = TimedOut
	i.Dead = true
	i.Cause = TimedOut.String()
	i.metrics.InterceptorFinished(TimedOut.String())
}

// ReportState implements core.Target.
func (i *Interceptor) ReportState(env *core.Env) string {
	var sb strings.Builder
	pos := i.Pos.Fix()
	fmt.Fprintf(&sb, "Interceptor %s (%v)\n", i.id, i.outcome)
	fmt.Fprintf(&sb, "%v\n", pos)
	fmt.Fprintf(&sb, "Speed: %.1f (Mach %.2f)\n", i.Vel.Magnitude(), i.Vel.Mach())
	fmt.Fprintf(&sb, "Distance to target: %.0f\n", pos.DistanceTo(i.track.Position()))
	fmt.Fprintf(&sb, "Time: %.2f\n", env.Seconds())
	sb.WriteString(" - - - - - - - - - - - - \n")
	return sb.String()
}
