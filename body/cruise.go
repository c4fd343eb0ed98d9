package body

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
)

// DestinationRadius is how close a cruise missile must get to its
// destination to count as arrived.
const DestinationRadius = 10.0

// CruiseConfig describes an air-breathing missile flying to a fixed point.
type CruiseConfig struct {
	Start       core.Cartesian
	Velocity    core.Vector
	Destination core.Cartesian
	TopSpeed    float64 // m/s
	// TWR scales how quickly the missile regains speed towards TopSpeed.
	TWR float64
	Law guidance.Law
}

// CruiseMissile flies under its own guidance law to a destination. Turns
// bleed speed in proportion to how far the heading changes.
type CruiseMissile struct {
	core.Kinematics

	id  string
	cfg CruiseConfig
}

// NewCruiseMissile returns a missile in flight at cfg.Start.
func NewCruiseMissile(id string, cfg CruiseConfig) *CruiseMissile {
	return &CruiseMissile{
		Kinematics: core.Kinematics{Pos: cfg.Start.Mutable(), Vel: cfg.Velocity},
		id:         id,
		cfg:        cfg,
	}
}

// ID implements core.Target.
func (c *CruiseMissile) ID() string { return c.id }

// Law returns the guidance law flying the missile.
func (c *CruiseMissile) Law() guidance.Law { return c.cfg.Law }

// Move implements core.Target.
func (c *CruiseMissile) Move(ctx context.Context, env *core.Env) error {
	if c.Dead {
		return nil
	}

	cmd, err := c.cfg.Law.Command(guidance.Input{
		TargetPos: c.cfg.Destination,
		SelfPos:   c.Pos.Fix(),
		SelfVel:   c.Vel,
		DT:        env.DT(),
	})
	if err != nil {
		return fmt.Errorf("%s guidance: %w", c.id, err)
	}

	speed := c.Vel.Magnitude()
	bleed := cmd.Similarity(c.Vel)
	if c.cfg.TopSpeed > 0 {
		speed = math.Min(bleed*speed+((c.cfg.TopSpeed-speed)/c.cfg.TopSpeed)*c.cfg.TWR, c.cfg.TopSpeed)
	}
	c.Vel = cmd.ScaleTo(speed)
	c.Pos.Increment(c.Vel, env.DT())

	pos := c.Pos.Fix()
	env.SampleNow(c.id+"/altitude", pos.Altitude())
	env.SampleNow(c.id+"/speed", speed)

	log := logging.FromContext(ctx)
	if pos.DistanceTo(c.cfg.Destination) < DestinationRadius {
		env.Linef("%s reached target.", c.id)
		log.Info(ctx, "cruise missile reached destination", logging.String("body", c.id))
		c.KillBecause("reached target")
		return nil
	}
	if pos.HasCrashed() {
		env.Linef("%s crashed.", c.id)
		log.Info(ctx, "cruise missile crashed", logging.String("body", c.id))
		c.KillBecause("crashed")
	}
	return nil
}

// ReportState implements core.Target.
func (c *CruiseMissile) ReportState(env *core.Env) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Location : %v\n", c.Pos.Fix())
	fmt.Fprintf(&sb, "Speed: %.1f\n", c.Vel.Magnitude())
	fmt.Fprintf(&sb, "Distance to target: %.0f\n", c.Pos.Fix().DistanceTo(c.cfg.Destination))
	fmt.Fprintf(&sb, "Time: %.2f\n", env.Seconds())
	sb.WriteString(" - - - - - - - - - - - - \n")
	return sb.String()
}
