// Package body holds the unguided and self-guided flying bodies: powered
// ballistic stages, multi-stage rockets and cruise missiles.
package body

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
)

// Stage is the physical description of one powered stage.
type Stage struct {
	// Heading is the thrust direction. Whether it is absolute or relative to
	// the local frame depends on the consumer.
	Heading   core.Vector
	Thrust    float64 // N
	BurnTime  time.Duration
	EmptyMass float64 // kg
	FuelMass  float64 // kg
	// DragCoefficient is used when Profile is nil.
	DragCoefficient float64
	Profile         *core.BallisticProfile
	Area            float64 // m²
}

func (s Stage) dragCoefficient(v core.Vector) float64 {
	if s.Profile != nil {
		return s.Profile.DragCoefficient(v)
	}
	return s.DragCoefficient
}

// Ballistic is a single powered stage flying a ballistic trajectory. It
// stays on the pad until its launch time.
type Ballistic struct {
	core.Kinematics

	id     string
	stage  Stage
	burn   core.Burn
	origin core.Spherical
}

// NewBallistic returns a stage at start that fires along the absolute
// heading in stage at launch.
func NewBallistic(id string, start core.Cartesian, stage Stage, launch time.Duration) *Ballistic {
	return &Ballistic{
		Kinematics: core.Kinematics{Pos: start.Mutable()},
		id:         id,
		stage:      stage,
		burn:       core.Burn{LaunchTime: launch, BurnTime: stage.BurnTime},
		origin:     start.Spherical(),
	}
}

// ID implements core.Target.
func (b *Ballistic) ID() string { return b.id }

// SetVelocity overwrites the current velocity. Used to hand over velocity
// between stages.
func (b *Ballistic) SetVelocity(v core.Vector) { b.Vel = v }

// Launched reports whether the launch time has been reached.
func (b *Ballistic) Launched(now time.Duration) bool { return now >= b.burn.LaunchTime }

// Burning reports whether the motor is inside its burn window.
func (b *Ballistic) Burning(now time.Duration) bool { return b.burn.Burning(now) }

// BurnedOut reports whether the burn window has ended.
func (b *Ballistic) BurnedOut(now time.Duration) bool {
	return now >= b.burn.LaunchTime+b.burn.BurnTime
}

// Mass returns the current mass, burning fuel linearly over the burn time.
func (b *Ballistic) Mass(now time.Duration) float64 {
	return b.stage.EmptyMass + b.stage.FuelMass*b.burn.RemainingFraction(now)
}

// Downrange returns the surface distance from the launch point.
func (b *Ballistic) Downrange() float64 {
	return b.Pos.Fix().SurfaceDistanceTo(b.origin)
}

// Move implements core.Target.
func (b *Ballistic) Move(ctx context.Context, env *core.Env) error {
	if b.Dead {
		return nil
	}
	now := env.Now()
	if !b.Launched(now) {
		return nil
	}

	model := core.ForceModel{
		Velocity:        b.Vel,
		Heading:         b.stage.Heading,
		Position:        b.Pos.Fix(),
		Thrust:          b.stage.Thrust,
		Mass:            b.Mass(now),
		DragCoefficient: b.stage.dragCoefficient(b.Vel),
		Area:            b.stage.Area,
		Powered:         b.burn.Burning(now),
	}
	b.Vel = core.Integrate(&b.Pos, b.Vel, model.Acceleration(), env.DT())

	pos := b.Pos.Fix()
	env.Sample(b.id+"/path", b.Downrange()/1000.0, pos.Altitude())
	env.SampleNow(b.id+"/speed", b.Vel.Mach())

	if pos.HasCrashed() {
		b.crash(ctx, env)
	}
	return nil
}

func (b *Ballistic) crash(ctx context.Context, env *core.Env) {
	pos := b.Pos.Fix()
	geo := core.Geodetic(pos)
	mach := b.Vel.Mach()

	env.Linef("%s crashed at %.0f km from launch site after %.2f s", b.id, math.Round(b.Downrange()/1000.0), env.Seconds())
	env.Linef("Crashed at lat %.4f°, lon %.4f° %v", geo.LatDeg, geo.LonDeg, pos.Spherical())
	env.Linef("Terminal velocity : Mach %.2f", mach)

	logging.FromContext(ctx).Info(ctx, "ballistic body crashed",
		logging.String("body", b.id),
		logging.Float("downrange_km", b.Downrange()/1000.0),
		logging.Float("mach", mach),
	)
	b.KillBecause("crashed")
}

// ReportState implements core.Target.
func (b *Ballistic) ReportState(env *core.Env) string {
	return stateReport(b.Pos.Fix(), b.Vel, b.Downrange(), env)
}

func stateReport(pos core.Cartesian, vel core.Vector, downrange float64, env *core.Env) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v\n", pos)
	fmt.Fprintf(&sb, "Speed: %.1f (Mach %.2f)\n", vel.Magnitude(), vel.Mach())
	fmt.Fprintf(&sb, "Distance from launch: %.0f\n", downrange)
	fmt.Fprintf(&sb, "Time: %.2f\n", env.Seconds())
	sb.WriteString(" - - - - - - - - - - - - \n")
	return sb.String()
}
