package core

import (
	"fmt"
	"math"
)

// Cartesian is an immutable point in metres with the Earth's centre at the
// origin.
type Cartesian struct {
	X, Y, Z float64
}

// EarthCore is the centre of the Earth.
var EarthCore = Cartesian{}

// Mutable returns an owned, mutable copy of c.
func (c Cartesian) Mutable() MutableCartesian {
	return MutableCartesian{X: c.X, Y: c.Y, Z: c.Z}
}

func (c Cartesian) vector() Vector { return Vector{DX: c.X, DY: c.Y, DZ: c.Z} }

func (c Cartesian) radiusSquared() float64 { return c.X*c.X + c.Y*c.Y + c.Z*c.Z }

// Radius returns the distance from the Earth's centre.
func (c Cartesian) Radius() float64 { return math.Sqrt(c.radiusSquared()) }

// To returns the vector c -> other.
func (c Cartesian) To(other Cartesian) Vector {
	return other.Sub(c)
}

// Sub returns the vector other -> c.
func (c Cartesian) Sub(other Cartesian) Vector {
	return Vector{DX: c.X - other.X, DY: c.Y - other.Y, DZ: c.Z - other.Z}
}

// Add returns the point displaced from c by v.
func (c Cartesian) Add(v Vector) Cartesian {
	return Cartesian{X: c.X + v.DX, Y: c.Y + v.DY, Z: c.Z + v.DZ}
}

// DistanceTo returns the straight-line distance between two points.
func (c Cartesian) DistanceTo(other Cartesian) float64 {
	return c.Sub(other).Magnitude()
}

// Altitude returns the height above the Earth's surface.
func (c Cartesian) Altitude() float64 {
	return c.Radius() - EarthRadius
}

// HasCrashed reports whether the point lies strictly inside the Earth.
func (c Cartesian) HasCrashed() bool {
	return c.Radius() < EarthRadius
}

// Up returns the local vertical (unit radial vector) at c, or zero at the
// Earth's centre.
func (c Cartesian) Up() Vector {
	return c.vector().Unit()
}

// OnSurface returns c projected radially onto the Earth's surface.
func (c Cartesian) OnSurface() Cartesian {
	up := c.Up()
	if up.IsZero() {
		return c
	}
	return EarthCore.Add(up.Scale(EarthRadius))
}

// Spherical converts c to spherical coordinates. The azimuth of a point on
// the polar axis is 0.
func (c Cartesian) Spherical() Spherical {
	r := c.Radius()
	if r == 0 {
		return Spherical{}
	}
	return Spherical{
		R:           r,
		Inclination: math.Acos(clamp(c.Z/r, -1, 1)),
		Azimuth:     math.Atan2(c.Y, c.X),
	}
}

// SurfaceDistanceTo returns the great-circle distance along the surface
// between the ground projections of c and other.
func (c Cartesian) SurfaceDistanceTo(other Spherical) float64 {
	return c.Spherical().SurfaceDistanceTo(other)
}

func (c Cartesian) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", c.X, c.Y, c.Z)
}

// MutableCartesian is a position owned by exactly one body and advanced in
// place each tick.
type MutableCartesian struct {
	X, Y, Z float64
}

// Fix returns an immutable snapshot.
func (m *MutableCartesian) Fix() Cartesian {
	return Cartesian{X: m.X, Y: m.Y, Z: m.Z}
}

// Increment moves the point by v over dt seconds.
func (m *MutableCartesian) Increment(v Vector, dt float64) {
	m.X += v.DX * dt
	m.Y += v.DY * dt
	m.Z += v.DZ * dt
}

// Set overwrites the point.
func (m *MutableCartesian) Set(c Cartesian) {
	m.X, m.Y, m.Z = c.X, c.Y, c.Z
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
