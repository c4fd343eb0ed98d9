package core

import (
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/intercept-simulator/timectrl"
)

// ISS sample TLE.
const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

var issEpoch = time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)

func TestStaticSite_NoChange(t *testing.T) {
	s := StaticSite{Location: Cartesian{X: 1, Y: 2, Z: 3}}

	if got := s.Position(timectrl.At(0, timectrl.DefaultTick)); got != (Cartesian{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("static site should not move, got %v", got)
	}
	if got := s.Position(timectrl.At(time.Hour, timectrl.DefaultTick)); got != (Cartesian{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("static site should not move after an hour, got %v", got)
	}
}

// We don't assert exact orbital values (those belong to go-satellite);
// we just ensure that positions differ at distinct times and stay in LEO.
func TestOrbitalSite_ChangesOverTime(t *testing.T) {
	s := NewOrbitalSiteFromTLE(issTLE1, issTLE2, issEpoch)

	first := s.Position(timectrl.At(0, timectrl.DefaultTick))
	second := s.Position(timectrl.At(5*time.Minute, timectrl.DefaultTick))

	if first == second {
		t.Fatalf("expected orbital position to change over time, got %v at both times", first)
	}
	for _, p := range []Cartesian{first, second} {
		if alt := p.Altitude(); alt < 300e3 || alt > 500e3 {
			t.Fatalf("ISS altitude %v m outside LEO band", alt)
		}
	}
}

func TestNewSiteChoosesModel(t *testing.T) {
	loc := Cartesian{X: EarthRadius}
	if _, ok := NewSite(loc, "", "", issEpoch).(StaticSite); !ok {
		t.Fatalf("expected static site without TLE")
	}
	if _, ok := NewSite(loc, issTLE1, issTLE2, issEpoch).(*OrbitalSite); !ok {
		t.Fatalf("expected orbital site with TLE")
	}
}

func TestGeodeticEquator(t *testing.T) {
	g := Geodetic(Cartesian{Y: EarthRadius})
	if math.Abs(g.LatDeg) > 1e-6 {
		t.Fatalf("latitude = %v, want 0", g.LatDeg)
	}
	if math.Abs(g.LonDeg-90) > 1e-6 {
		t.Fatalf("longitude = %v, want 90", g.LonDeg)
	}
	// The reference ellipsoid is slightly larger than the sphere at the equator.
	if math.Abs(g.AltM) > 1000 {
		t.Fatalf("altitude = %v, want near 0", g.AltM)
	}
}
