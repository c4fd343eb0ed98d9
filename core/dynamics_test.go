package core

import (
	"math"
	"testing"
	"time"
)

func TestGravityOnlyTick(t *testing.T) {
	const dt = 0.01
	pos := Cartesian{Z: EarthRadius}.Mutable()
	m := ForceModel{
		Position: pos.Fix(),
		Mass:     100,
		Area:     1,
	}

	vel := Integrate(&pos, Vector{}, m.Acceleration(), dt)

	if !approx(vel.DZ, -G0*dt, 1e-12) {
		t.Fatalf("vertical velocity after one tick = %v, want %v", vel.DZ, -G0*dt)
	}
	if vel.DX != 0 || vel.DY != 0 {
		t.Fatalf("gravity should act radially, got %v", vel)
	}
	if !pos.Fix().HasCrashed() {
		t.Fatalf("falling from the surface should end below it, got %v", pos.Fix())
	}
}

func TestGravityFallsOffWithAltitude(t *testing.T) {
	if GravityAt(0) != G0 {
		t.Fatalf("surface gravity = %v", GravityAt(0))
	}
	if got := GravityAt(EarthRadius); !approx(got, G0/4, 1e-12) {
		t.Fatalf("gravity at one radius up = %v, want %v", got, G0/4)
	}
}

func TestDragOpposesVelocity(t *testing.T) {
	m := ForceModel{
		Velocity:        V(300, 0, 100),
		Position:        Cartesian{Z: EarthRadius + 1000},
		Mass:            50,
		DragCoefficient: 0.3,
		Area:            0.5,
	}
	f := m.Forces()
	if f.Drag.AngleTo(m.Velocity) < math.Pi-1e-6 {
		t.Fatalf("drag %v should point against velocity %v", f.Drag, m.Velocity)
	}

	speed := m.Velocity.Magnitude()
	want := 0.5 * AirDensity(1000) * 0.3 * 0.5 * speed * speed
	if !approx(f.Drag.Magnitude(), want, 1e-9*want) {
		t.Fatalf("drag magnitude = %v, want %v", f.Drag.Magnitude(), want)
	}

	// Practically no air at 200 km.
	m.Position = Cartesian{Z: EarthRadius + 200e3}
	if got := m.Forces().Drag.Magnitude(); got > 1e-3 {
		t.Fatalf("drag at 200 km = %v", got)
	}
}

func TestThrustSteering(t *testing.T) {
	m := ForceModel{
		Heading:         V(0, 0, 1),
		ThrustDirection: V(1, 0, 0),
		Position:        Cartesian{Z: EarthRadius + 10e3},
		Thrust:          1000,
		Mass:            10,
		Powered:         true,
	}
	if got := m.Forces().Thrust; got != V(1000, 0, 0) {
		t.Fatalf("in atmosphere thrust = %v, want along thrust direction", got)
	}

	m.Position = Cartesian{Z: EarthRadius + 150e3}
	if got := m.Forces().Thrust; got != V(0, 0, 1000) {
		t.Fatalf("in vacuum thrust = %v, want along heading", got)
	}

	m.Powered = false
	f := m.Forces()
	if got := m.Acceleration(); got != f.Gravity.Add(f.Drag).Scale(1/m.Mass) {
		t.Fatalf("unpowered acceleration should ignore thrust, got %v", got)
	}
}

func TestBallisticProfileRegimes(t *testing.T) {
	p := DefaultBallisticProfile
	cases := []struct {
		mach float64
		want float64
	}{
		{0.5, 0.4},
		{0.8, 0.4},
		{1.0, 1.2},
		{3, 0.3},
		{5, 0.3},
		{7, 0.25},
	}
	for _, tc := range cases {
		v := V(tc.mach*SpeedOfSound, 0, 0)
		if got := p.DragCoefficient(v); got != tc.want {
			t.Errorf("Mach %v: Cd = %v, want %v", tc.mach, got, tc.want)
		}
	}
}

func TestBurnWindow(t *testing.T) {
	b := Burn{LaunchTime: 2 * time.Second, BurnTime: 4 * time.Second}

	if b.Burning(time.Second) {
		t.Fatalf("should not burn before launch")
	}
	if !b.Burning(2 * time.Second) {
		t.Fatalf("should burn at launch")
	}
	if b.Burning(6 * time.Second) {
		t.Fatalf("should stop burning at launch+burn")
	}

	if got := b.RemainingFraction(4 * time.Second); !approx(got, 0.5, 1e-12) {
		t.Fatalf("half way remaining = %v", got)
	}
	if got := b.RemainingFraction(time.Second); got != 1 {
		t.Fatalf("before launch remaining = %v", got)
	}
	if got := b.RemainingFraction(time.Minute); got != 0 {
		t.Fatalf("after burn remaining = %v", got)
	}
	if got := (Burn{}).RemainingFraction(time.Second); got != 0 {
		t.Fatalf("no burn time remaining = %v", got)
	}
}

func TestKinematicsKillIdempotent(t *testing.T) {
	k := Kinematics{Pos: Cartesian{X: EarthRadius + 5000}.Mutable(), Vel: V(10, 20, 30)}

	k.Kill()
	pos, vel := k.Position(), k.Velocity()
	k.Kill()

	if k.Alive() {
		t.Fatalf("killed body reports alive")
	}
	if k.Position() != pos || k.Velocity() != vel {
		t.Fatalf("second Kill changed state: %v %v -> %v %v", pos, vel, k.Position(), k.Velocity())
	}
	if !vel.IsZero() || !approx(pos.Altitude(), 0, 1e-6) {
		t.Fatalf("kill should stop the body on the surface, got %v %v", pos, vel)
	}
}
