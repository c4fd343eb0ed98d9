package core

import (
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/intercept-simulator/timectrl"
)

// Site gives a sensor's position for a simulation tick.
type Site interface {
	Position(at timectrl.Tick) Cartesian
}

// StaticSite is a ground or sea sensor that never moves.
type StaticSite struct {
	Location Cartesian
}

// Position for a static site is always its location.
func (s StaticSite) Position(timectrl.Tick) Cartesian { return s.Location }

// OrbitalSite is a space-based sensor propagated with SGP4 from a TLE. The
// simulation clock is anchored at Epoch.
type OrbitalSite struct {
	sat   satellite.Satellite
	Epoch time.Time
}

// NewOrbitalSiteFromTLE constructs an orbital site from TLE lines.
func NewOrbitalSiteFromTLE(line1, line2 string, epoch time.Time) *OrbitalSite {
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalSite{sat: sat, Epoch: epoch.UTC()}
}

// Position propagates the satellite to Epoch+at.Now and returns its
// Earth-fixed position. go-satellite works in kilometres; we use metres.
func (o *OrbitalSite) Position(at timectrl.Tick) Cartesian {
	simTime := o.Epoch.Add(at.Now)
	year, month, day := simTime.Date()
	hour, min, sec := simTime.Clock()

	posECI, _ := satellite.Propagate(o.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	const kmToM = 1000.0
	return Cartesian{
		X: posECEF.X * kmToM,
		Y: posECEF.Y * kmToM,
		Z: posECEF.Z * kmToM,
	}
}

// NewSite chooses an orbital site when both TLE lines are present and a
// static one at location otherwise.
func NewSite(location Cartesian, tle1, tle2 string, epoch time.Time) Site {
	if tle1 != "" && tle2 != "" {
		return NewOrbitalSiteFromTLE(tle1, tle2, epoch)
	}
	return StaticSite{Location: location}
}

// GeoPoint is a geodetic position used in human-readable reports.
type GeoPoint struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// Geodetic converts an Earth-fixed point to latitude, longitude and altitude
// over go-satellite's reference ellipsoid. Passing a zero sidereal angle makes
// the ECI conversion act on Earth-fixed coordinates directly.
func Geodetic(p Cartesian) GeoPoint {
	const mToKm = 1.0 / 1000.0
	alt, _, ll := satellite.ECIToLLA(satellite.Vector3{X: p.X * mToKm, Y: p.Y * mToKm, Z: p.Z * mToKm}, 0)
	deg := satellite.LatLongDeg(ll)
	return GeoPoint{LatDeg: deg.Latitude, LonDeg: deg.Longitude, AltM: alt * 1000.0}
}
