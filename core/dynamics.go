package core

import (
	"math"
	"time"
)

// BallisticProfile holds drag coefficients per Mach regime. Profiles are
// shared by pointer between bodies and must not be modified after use.
type BallisticProfile struct {
	Subsonic   float64 `yaml:"subsonic" json:"subsonic"`     // Mach <= 0.8
	Transonic  float64 `yaml:"transonic" json:"transonic"`   // Mach <= 1.2
	Supersonic float64 `yaml:"supersonic" json:"supersonic"` // Mach <= 5
	Hypersonic float64 `yaml:"hypersonic" json:"hypersonic"` // above
}

// DefaultBallisticProfile is used by stages that don't name their own.
var DefaultBallisticProfile = &BallisticProfile{
	Subsonic:   0.4,
	Transonic:  1.2,
	Supersonic: 0.3,
	Hypersonic: 0.25,
}

// DragCoefficient returns the coefficient for a body moving at velocity.
func (p *BallisticProfile) DragCoefficient(velocity Vector) float64 {
	mach := velocity.Mach()
	switch {
	case mach <= 0.8:
		return p.Subsonic
	case mach <= 1.2:
		return p.Transonic
	case mach <= 5:
		return p.Supersonic
	default:
		return p.Hypersonic
	}
}

// AirDensity returns the exponential-atmosphere density at altitude.
func AirDensity(altitude float64) float64 {
	return SeaLevelDensity * math.Exp(-altitude/ScaleHeight)
}

// GravityAt returns the gravitational acceleration magnitude at altitude,
// falling off with the inverse square of the distance to the centre.
func GravityAt(altitude float64) float64 {
	ratio := EarthRadius / (EarthRadius + altitude)
	return G0 * ratio * ratio
}

// Burn describes a motor's burn window on the simulation clock.
type Burn struct {
	LaunchTime time.Duration
	BurnTime   time.Duration
}

// Burning reports whether now lies within [launch, launch+burn). The end is
// exclusive so the last thrusting tick is the one before BurnedOut.
func (b Burn) Burning(now time.Duration) bool {
	return now >= b.LaunchTime && now < b.LaunchTime+b.BurnTime
}

// RemainingFraction is the share of propellant left at now, assuming a
// linear burn. It is 0 when there is no burn time.
func (b Burn) RemainingFraction(now time.Duration) float64 {
	if b.BurnTime <= 0 {
		return 0
	}
	elapsed := now - b.LaunchTime
	return clamp(float64(b.BurnTime-elapsed)/float64(b.BurnTime), 0, 1)
}

// Seconds converts a float number of seconds to a Duration, rounded to the
// nearest nanosecond.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// ForceModel is the input to the point-mass force computation for one tick.
type ForceModel struct {
	Velocity Vector
	// Heading steers thrust above VacuumSteeringAltitude.
	Heading Vector
	// ThrustDirection steers thrust inside the atmosphere; zero means Heading.
	ThrustDirection Vector
	Position        Cartesian

	Thrust          float64 // N
	Mass            float64 // kg
	DragCoefficient float64
	Area            float64 // m²

	// Powered is true while the motor is inside its burn window.
	Powered bool
}

// Forces is the decomposition of the net force on a body.
type Forces struct {
	Thrust  Vector
	Drag    Vector
	Gravity Vector
}

// Net returns the sum of the applicable forces.
func (f Forces) Net(powered bool) Vector {
	net := f.Drag.Add(f.Gravity)
	if powered {
		net = net.Add(f.Thrust)
	}
	return net
}

// Forces computes thrust, drag and gravity for the current state.
func (m ForceModel) Forces() Forces {
	altitude := m.Position.Altitude()
	speed := m.Velocity.Magnitude()

	dir := m.ThrustDirection
	if altitude > VacuumSteeringAltitude || dir.IsZero() {
		dir = m.Heading
	}

	drag := m.Velocity.ScaleTo(-0.5 * AirDensity(altitude) * m.DragCoefficient * m.Area * speed * speed)
	gravity := m.Position.To(EarthCore).ScaleTo(GravityAt(altitude) * m.Mass)

	return Forces{
		Thrust:  dir.ScaleTo(m.Thrust),
		Drag:    drag,
		Gravity: gravity,
	}
}

// Acceleration returns the net acceleration for the current state.
func (m ForceModel) Acceleration() Vector {
	if m.Mass <= 0 {
		return Vector{}
	}
	return m.Forces().Net(m.Powered).Scale(1 / m.Mass)
}

// Integrate advances one explicit Euler step: velocity first, then position
// with the updated velocity. It returns the new velocity.
func Integrate(pos *MutableCartesian, vel, acc Vector, dt float64) Vector {
	vel = vel.Add(acc.Scale(dt))
	pos.Increment(vel, dt)
	return vel
}
