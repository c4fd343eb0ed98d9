package core

import (
	"fmt"
	"math"
)

// Physical constants shared by every component. Lengths are metres, times
// seconds, masses kilograms.
const (
	// EarthRadius is the spherical Earth radius; the origin is the Earth's centre.
	EarthRadius = 6378.0 * 1000.0
	// G0 is standard gravity at the surface (m/s²).
	G0 = 9.81
	// SeaLevelDensity is the air density at altitude 0 (kg/m³).
	SeaLevelDensity = 1.2250123632
	// ScaleHeight is the exponential atmosphere's scale height (m).
	ScaleHeight = 10.4 * 1000.0
	// VacuumSteeringAltitude is the altitude above which thrust follows the
	// heading vector instead of the aerodynamic thrust direction.
	VacuumSteeringAltitude = 100.0 * 1000.0
	// SpeedOfSound is the reference speed for Mach numbers (m/s).
	SpeedOfSound = 340.0
)

// Vector is a velocity, force or acceleration with value semantics: every
// operation returns a new Vector and never touches its receiver.
type Vector struct {
	DX, DY, DZ float64
}

// V is shorthand for Vector{dx, dy, dz}.
func V(dx, dy, dz float64) Vector { return Vector{DX: dx, DY: dy, DZ: dz} }

// Magnitude returns the Euclidean norm of the vector.
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.DX*v.DX + v.DY*v.DY + v.DZ*v.DZ)
}

// IsZero reports whether all components are zero.
func (v Vector) IsZero() bool { return v.DX == 0 && v.DY == 0 && v.DZ == 0 }

// ScaleTo returns v rescaled to magnitude m. The zero vector stays zero.
func (v Vector) ScaleTo(m float64) Vector {
	mag := v.Magnitude()
	if mag == 0 {
		return Vector{}
	}
	return v.Scale(m / mag)
}

// Unit returns v scaled to magnitude 1, or the zero vector.
func (v Vector) Unit() Vector { return v.ScaleTo(1) }

// Scale returns v multiplied by k.
func (v Vector) Scale(k float64) Vector {
	return Vector{DX: v.DX * k, DY: v.DY * k, DZ: v.DZ * k}
}

// Add returns v + other.
func (v Vector) Add(other Vector) Vector {
	return Vector{DX: v.DX + other.DX, DY: v.DY + other.DY, DZ: v.DZ + other.DZ}
}

// Sub returns v - other.
func (v Vector) Sub(other Vector) Vector {
	return Vector{DX: v.DX - other.DX, DY: v.DY - other.DY, DZ: v.DZ - other.DZ}
}

// Dot returns the dot product of two vectors.
func (v Vector) Dot(other Vector) float64 {
	return v.DX*other.DX + v.DY*other.DY + v.DZ*other.DZ
}

// cosine returns the clamped cosine of the angle between v and other, and
// false when either vector is zero.
func (v Vector) cosine(other Vector) (float64, bool) {
	denom := v.Magnitude() * other.Magnitude()
	if denom == 0 {
		return 0, false
	}
	c := v.Dot(other) / denom
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return c, true
}

// Similarity maps the angle between v and other onto [0, 1]: 1 for the same
// direction, 0.5 for perpendicular, 0 for opposite. A zero vector counts as
// no change of direction.
func (v Vector) Similarity(other Vector) float64 {
	c, ok := v.cosine(other)
	if !ok {
		return 1
	}
	return (c + 1) / 2
}

// AngleTo returns the absolute angle between v and other in [0, π]. It is 0
// when either vector is zero.
func (v Vector) AngleTo(other Vector) float64 {
	c, ok := v.cosine(other)
	if !ok {
		return 0
	}
	return math.Acos(c)
}

// Mach returns the vector's magnitude as a Mach number.
func (v Vector) Mach() float64 { return v.Magnitude() / SpeedOfSound }

func (v Vector) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.DX, v.DY, v.DZ)
}

// HasLineOfSight checks whether the straight segment between p1 and p2
// clears the Earth sphere.
func HasLineOfSight(p1, p2 Cartesian) bool {
	v := p1.To(p2)
	a := v.Dot(v)
	if a == 0 {
		// Degenerate case: same point. If it's outside Earth, treat as LoS;
		// if inside, treat as blocked.
		return p1.radiusSquared() > EarthRadius*EarthRadius
	}

	// Closest point on the segment to the Earth's centre.
	// t* minimises |p1 + t v|^2 over t ∈ ℝ.
	o := p1.vector()
	t := -o.Dot(v) / a
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := p1.Add(v.Scale(t))

	// Touching the sphere counts as blocked.
	return closest.radiusSquared() > EarthRadius*EarthRadius
}

// ElevationDegrees returns the elevation angle of the target as seen from
// the observer, in degrees. 0° = geometric horizon, 90° = overhead.
func ElevationDegrees(observer, target Cartesian) float64 {
	v := observer.To(target)
	if v.Magnitude() == 0 {
		return 90
	}

	zenith := observer.Up()
	if zenith.IsZero() {
		return 90
	}

	gammaDeg := v.AngleTo(zenith) * 180.0 / math.Pi

	// Elevation is measured from local horizon (90° − zenith angle).
	return 90.0 - gammaDeg
}
