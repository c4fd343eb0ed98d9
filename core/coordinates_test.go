package core

import (
	"math"
	"testing"
)

func TestAltitudeRoundTrip(t *testing.T) {
	points := []Cartesian{
		{X: EarthRadius + 1000},
		{X: 1e6, Y: 2e6, Z: EarthRadius},
		{X: -3e6, Y: -4e6, Z: -4.5e6},
		{Z: EarthRadius + 250e3},
	}
	for _, p := range points {
		s := p.Spherical()
		if !approx(s.R-EarthRadius, p.Altitude(), 1e-6) {
			t.Fatalf("%v: spherical altitude %v != altitude %v", p, s.R-EarthRadius, p.Altitude())
		}
		back := s.Cartesian()
		if p.DistanceTo(back) > 1e-6 {
			t.Fatalf("%v -> %v -> %v not identity", p, s, back)
		}
	}
}

func TestHasCrashedBoundary(t *testing.T) {
	if (Cartesian{Z: EarthRadius}).HasCrashed() {
		t.Fatalf("point exactly on the surface must not count as crashed")
	}
	if !(Cartesian{Z: EarthRadius - 1}).HasCrashed() {
		t.Fatalf("point 1 m below the surface must count as crashed")
	}
	if (Spherical{R: EarthRadius}).HasCrashed() {
		t.Fatalf("spherical point on the surface must not count as crashed")
	}
}

func TestPointVectorArithmetic(t *testing.T) {
	a := Cartesian{X: 1, Y: 2, Z: 3}
	b := Cartesian{X: 4, Y: 6, Z: 3}
	if got := a.To(b); got != V(3, 4, 0) {
		t.Fatalf("a.To(b) = %v", got)
	}
	if got := a.Sub(b); got != V(-3, -4, 0) {
		t.Fatalf("a.Sub(b) = %v", got)
	}
	if got := a.DistanceTo(b); got != 5 {
		t.Fatalf("DistanceTo = %v, want 5", got)
	}
	if got := a.Add(V(1, 1, 1)); got != (Cartesian{X: 2, Y: 3, Z: 4}) {
		t.Fatalf("Add = %v", got)
	}
}

func TestMutableCartesianIncrement(t *testing.T) {
	m := Cartesian{X: 1}.Mutable()
	m.Increment(V(100, 0, -50), 0.01)
	if got := m.Fix(); got != (Cartesian{X: 2, Z: -0.5}) {
		t.Fatalf("Increment = %v", got)
	}
}

func TestSurfaceDistanceQuarterCircle(t *testing.T) {
	a := Spherical{R: EarthRadius, Inclination: math.Pi / 2, Azimuth: 0}
	b := Spherical{R: EarthRadius, Inclination: math.Pi / 2, Azimuth: math.Pi / 2}
	want := EarthRadius * math.Pi / 2
	if got := a.SurfaceDistanceTo(b); !approx(got, want, 1.0) {
		t.Fatalf("quarter great circle = %v, want %v", got, want)
	}

	// Altitude is ignored.
	high := Spherical{R: EarthRadius + 100e3, Inclination: math.Pi / 2, Azimuth: math.Pi / 2}
	if got := a.SurfaceDistanceTo(high); !approx(got, want, 1.0) {
		t.Fatalf("surface distance should ignore altitude, got %v", got)
	}
}

func TestOffsetAzimuthMatchesSurfaceDistance(t *testing.T) {
	site := Spherical{R: EarthRadius, Inclination: math.Pi / 2, Azimuth: math.Pi / 2}
	moved := site.Offset(DirAzimuth, 170e3)
	if got := site.SurfaceDistanceTo(moved); !approx(got, 170e3, 0.01) {
		t.Fatalf("distance after 170 km azimuth offset = %v", got)
	}
}

func TestConvertRelativeVerticalIsUp(t *testing.T) {
	site := Spherical{R: EarthRadius + 1, Inclination: math.Pi / 2, Azimuth: math.Pi / 2}
	got := site.ConvertRelative(V(0, 0, 1))
	want := site.Cartesian().Up()
	if got.AngleTo(want) > 1e-6 {
		t.Fatalf("pure altitude heading %v should point up %v", got, want)
	}
	if !approx(got.Magnitude(), 1, eps) {
		t.Fatalf("converted heading not unit: %v", got.Magnitude())
	}

	// A pitched heading leans away from vertical but still climbs.
	pitched := site.ConvertRelative(V(0.2, 0, 1))
	if pitched.Dot(want) <= 0 || pitched.AngleTo(want) < 0.1 {
		t.Fatalf("pitched heading %v should climb and lean", pitched)
	}
}

func TestOnSurface(t *testing.T) {
	p := Cartesian{X: 3e6, Y: 4e6, Z: 5e6}
	s := p.OnSurface()
	if !approx(s.Altitude(), 0, 1e-6) {
		t.Fatalf("OnSurface altitude = %v", s.Altitude())
	}
	if p.Up().AngleTo(s.Up()) > 1e-6 {
		t.Fatalf("OnSurface changed direction")
	}
}
