package core

import (
	"context"
	"time"

	"github.com/signalsfoundry/intercept-simulator/internal/report"
	"github.com/signalsfoundry/intercept-simulator/timectrl"
)

// Env is the per-tick view of the simulation handed to every body: the
// current tick plus the report and telemetry sinks. Either sink may be nil.
type Env struct {
	Tick      timectrl.Tick
	Report    *report.Log
	Telemetry report.Telemetry
}

// NewEnv builds an Env for tick.
func NewEnv(tick timectrl.Tick, log *report.Log, tel report.Telemetry) *Env {
	return &Env{Tick: tick, Report: log, Telemetry: tel}
}

// Now returns the simulation time.
func (e *Env) Now() time.Duration { return e.Tick.Now }

// Seconds returns the simulation time in seconds.
func (e *Env) Seconds() float64 { return e.Tick.Seconds() }

// DT returns the tick size in seconds.
func (e *Env) DT() float64 { return e.Tick.Step() }

// Linef appends a line to the report, if any.
func (e *Env) Linef(format string, args ...any) {
	e.Report.Linef(format, args...)
}

// Sample forwards a telemetry sample, if a sink is attached.
func (e *Env) Sample(series string, x, y float64) {
	if e.Telemetry == nil {
		return
	}
	e.Telemetry.Sample(series, x, y)
}

// SampleNow records y against the current simulation time.
func (e *Env) SampleNow(series string, y float64) {
	e.Sample(series, e.Seconds(), y)
}

// Target is the capability set shared by every flying body. Getters return
// copies; callers never alias a body's own state.
type Target interface {
	ID() string
	// Move advances the body by one tick. Errors are configuration or
	// programming defects; physical outcomes are reported through Alive.
	Move(ctx context.Context, env *Env) error
	ReportState(env *Env) string
	Position() Cartesian
	Velocity() Vector
	Alive() bool
	// Kill terminates the body. Calling it again has no further effect.
	Kill()
}

// TimeoutHandler is implemented by targets that react to the end of the
// simulation differently from being killed.
type TimeoutHandler interface {
	OnTimeout(env *Env)
}

// Timeout applies the end-of-simulation behaviour to t: its OnTimeout when
// present, Kill otherwise.
func Timeout(t Target, env *Env) {
	if h, ok := t.(TimeoutHandler); ok {
		h.OnTimeout(env)
		return
	}
	t.Kill()
}

// Fate is implemented by targets that can say why they stopped flying.
type Fate interface {
	Fate() string
}

// Kinematics is the owned state every body advances: position, velocity and
// liveness. Embedding it gives a body the Target getters, an idempotent Kill
// and a default timeout.
type Kinematics struct {
	Pos   MutableCartesian
	Vel   Vector
	Dead  bool
	Cause string
}

// Position returns a snapshot of the current position.
func (k *Kinematics) Position() Cartesian { return k.Pos.Fix() }

// Velocity returns a copy of the current velocity.
func (k *Kinematics) Velocity() Vector { return k.Vel }

// Alive reports whether the body is still flying.
func (k *Kinematics) Alive() bool { return !k.Dead }

// Fate returns the cause of death, or "" while alive.
func (k *Kinematics) Fate() string { return k.Cause }

// Kill zeroes the velocity, drops the body onto the surface and marks it
// dead. Only the first call has any effect.
func (k *Kinematics) Kill() { k.KillBecause("destroyed") }

// KillBecause is Kill with an explicit cause.
func (k *Kinematics) KillBecause(cause string) {
	if k.Dead {
		return
	}
	k.Dead = true
	k.Cause = cause
	k.Vel = Vector{}
	k.Pos.Set(k.Pos.Fix().OnSurface())
}

// OnTimeout implements TimeoutHandler.
func (k *Kinematics) OnTimeout(*Env) { k.KillBecause("timed out") }
