package core

import (
	"fmt"
	"math"
)

// Spherical is an Earth-centred spherical coordinate: radius R, inclination
// (polar angle from +z) and azimuth, angles in radians.
type Spherical struct {
	R           float64
	Inclination float64
	Azimuth     float64
}

// Direction selects the axis Offset moves along.
type Direction int

const (
	DirInclination Direction = iota
	DirAzimuth
	DirAltitude
)

// Cartesian converts s to a Cartesian point.
func (s Spherical) Cartesian() Cartesian {
	return Cartesian{
		X: s.R * math.Sin(s.Inclination) * math.Cos(s.Azimuth),
		Y: s.R * math.Sin(s.Inclination) * math.Sin(s.Azimuth),
		Z: s.R * math.Cos(s.Inclination),
	}
}

// HasCrashed reports whether the point is below the Earth's surface.
func (s Spherical) HasCrashed() bool { return s.R < EarthRadius }

// To returns the straight-line vector s -> other.
func (s Spherical) To(other Spherical) Vector {
	return s.Cartesian().To(other.Cartesian())
}

// SurfaceDistanceTo returns the haversine great-circle distance on the
// Earth's surface between the two points, ignoring altitude.
func (s Spherical) SurfaceDistanceTo(other Spherical) float64 {
	dInc := math.Abs(s.Inclination - other.Inclination)
	dAz := math.Abs(s.Azimuth - other.Azimuth)

	// hav(d/R) = hav(Δθ) + sinθ1·sinθ2·hav(Δψ), with a = 2·hav(d/R).
	a := 1.0 - math.Cos(dInc) +
		math.Cos(math.Pi/2-other.Inclination)*math.Cos(math.Pi/2-s.Inclination)*(1.0-math.Cos(dAz))

	return EarthRadius * 2 * math.Asin(math.Sqrt(clamp(a/2.0, 0, 1)))
}

// Offset returns the point moved by distance along dir. Angular moves treat
// distance as an arc length at the current radius.
func (s Spherical) Offset(dir Direction, distance float64) Spherical {
	switch dir {
	case DirInclination:
		return Spherical{R: s.R, Inclination: math.Mod(s.Inclination+distance/s.R, 2*math.Pi), Azimuth: s.Azimuth}
	case DirAzimuth:
		return Spherical{R: s.R, Inclination: s.Inclination, Azimuth: math.Mod(s.Azimuth+distance/s.R, 2*math.Pi)}
	default:
		return Spherical{R: s.R + distance, Inclination: s.Inclination, Azimuth: s.Azimuth}
	}
}

// Normal returns the unit vector pointing straight up at s.
func (s Spherical) Normal() Vector {
	return s.To(s.Offset(DirAltitude, 1.0)).Unit()
}

// ConvertRelative turns a body-local heading, whose components are read as
// (inclination, azimuth, altitude) rates, into an absolute unit vector at s.
// This lets launch headings be written independently of the launch site.
func (s Spherical) ConvertRelative(v Vector) Vector {
	const probe = 1000.0
	return s.To(
		s.Offset(DirInclination, v.DX*probe).
			Offset(DirAzimuth, v.DY*probe).
			Offset(DirAltitude, v.DZ*probe),
	).Unit()
}

func (s Spherical) String() string {
	return fmt.Sprintf("(r = %.1f, θ = %.6f, Ψ = %.6f)", s.R, s.Inclination, s.Azimuth)
}
