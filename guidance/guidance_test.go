package guidance

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/internal/report"
)

// Launcher on the north pole so that +z is local up.
var pole = core.Cartesian{Z: core.EarthRadius + 1}

func TestPursuitPointsAtTarget(t *testing.T) {
	in := Input{
		SelfPos:   pole,
		SelfVel:   core.V(0, 0, 300),
		TargetPos: pole.Add(core.V(3000, 4000, 0)),
	}
	got, err := Pursuit{}.Command(in)
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if math.Abs(got.Magnitude()-300) > 1e-9 {
		t.Fatalf("magnitude = %v, want current speed", got.Magnitude())
	}
	if got.AngleTo(core.V(3, 4, 0)) > 1e-6 {
		t.Fatalf("pursuit command %v does not point at target", got)
	}
}

func TestLeadingPursuitUsesSpeedFloor(t *testing.T) {
	in := Input{
		SelfPos:   pole,
		SelfVel:   core.V(0, 0, 50),
		TargetPos: pole.Add(core.V(10_000, 0, 0)),
		TargetVel: core.V(0, 300, 0),
	}
	l := LeadingPursuit{}
	// 10 km / (300 + max(50, 200)) m/s
	if got := l.LeadTime(in); math.Abs(got-20) > 1e-9 {
		t.Fatalf("lead time = %v, want 20", got)
	}

	got, err := l.Command(in)
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	want := core.V(10_000, 6_000, 0)
	if got.AngleTo(want) > 1e-6 {
		t.Fatalf("leading command %v should aim at predicted point %v", got, want)
	}
}

func TestLeadingPursuitReportsWhenAsked(t *testing.T) {
	log := report.NewLog()
	in := Input{SelfPos: pole, SelfVel: core.V(0, 0, 300), TargetPos: pole.Add(core.V(5000, 0, 0)), Report: log}
	if _, err := (LeadingPursuit{}).Command(in); err != nil {
		t.Fatalf("Command: %v", err)
	}
	if !log.Contains("lead time") {
		t.Fatalf("expected lead time line, got %q", log.String())
	}
}

func TestAltitudeCruisePhases(t *testing.T) {
	a := NewAltitudeCruise(1000, 750)
	target := pole.Add(core.V(100_000, 0, 0))

	// Low and heading horizontally: climb.
	climb, err := a.Command(Input{SelfPos: pole, SelfVel: core.V(200, 0, 0), TargetPos: target})
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if climb.DZ <= 0 || math.Abs(climb.Magnitude()-200) > 1e-9 {
		t.Fatalf("climb command = %v", climb)
	}
	wantClimb := core.V(1, 0, 0.2)
	if climb.AngleTo(wantClimb) > 1e-6 {
		t.Fatalf("climb command %v, want along %v", climb, wantClimb)
	}

	// At cruise altitude: level towards the target.
	cruising := pole.Add(core.V(0, 0, 1000))
	level, err := a.Command(Input{SelfPos: cruising, SelfVel: core.V(200, 0, 0), TargetPos: target})
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if level.DX <= 0 || math.Abs(level.DY) > 1e-9 {
		t.Fatalf("level command should head for the target, got %v", level)
	}
	if a.Terminal() {
		t.Fatalf("terminal too early")
	}

	// Inside 1.3 × (1000 + 750): terminal, and it sticks.
	approach := pole.Add(core.V(100_000-2000, 0, 1000))
	if _, err := a.Command(Input{SelfPos: approach, SelfVel: core.V(200, 0, 0), TargetPos: target}); err != nil {
		t.Fatalf("Command: %v", err)
	}
	if !a.Terminal() {
		t.Fatalf("expected terminal phase")
	}
	far := Input{SelfPos: cruising, SelfVel: core.V(200, 0, 0), TargetPos: target}
	got, _ := a.Command(far)
	want := cruising.To(target)
	if got.AngleTo(want) > 1e-6 {
		t.Fatalf("terminal phase must pursue even when far, got %v", got)
	}
}

func TestQuasiBallisticRequiresArm(t *testing.T) {
	q := NewQuasiBallistic(5000)
	_, err := q.Command(Input{SelfPos: pole, SelfVel: core.V(0, 0, 10), TargetPos: pole.Add(core.V(50_000, 0, 20_000))})
	if !errors.Is(err, ErrUnarmed) {
		t.Fatalf("err = %v, want ErrUnarmed", err)
	}
}

func TestQuasiBallisticHoldsSolutionDuringBoost(t *testing.T) {
	q := NewQuasiBallistic(5000)
	Arm(q)

	target := pole.Add(core.V(80_000, 0, 20_000))

	// Below the minimum altitude: climb towards the target, no solution yet.
	low, err := q.Command(Input{SelfPos: pole, SelfVel: core.V(0, 0, 10), TargetPos: target, Boosting: true})
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if low.DZ <= 0 || low.DX <= 0 {
		t.Fatalf("low-altitude command %v should climb towards the target", low)
	}
	if _, _, ok := q.Solution(); ok {
		t.Fatalf("solution computed below minimum altitude")
	}

	log := report.NewLog()
	self := pole.Add(core.V(0, 0, 100))
	first, err := q.Command(Input{SelfPos: self, SelfVel: core.V(0, 0, 100), TargetPos: target, Boosting: true, Report: log})
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if first.DX <= 0 || first.DZ <= 0 {
		t.Fatalf("ballistic command %v should be up and towards the target", first)
	}
	if !strings.Contains(log.String(), "Estimated time to target") {
		t.Fatalf("expected solution lines, got %q", log.String())
	}

	// Later in the boost, from elsewhere: the same command.
	second, err := q.Command(Input{SelfPos: self.Add(core.V(500, 0, 2000)), SelfVel: core.V(300, 0, 900), TargetPos: target, Boosting: true})
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if second != first {
		t.Fatalf("held command changed: %v -> %v", first, second)
	}

	// After burnout: hold the current velocity.
	vel := core.V(400, 0, 700)
	coast, _ := q.Command(Input{SelfPos: self.Add(core.V(1000, 0, 5000)), SelfVel: vel, TargetPos: target})
	if coast != vel {
		t.Fatalf("coast command = %v, want current velocity", coast)
	}

	// Inside the terminal range: pursuit.
	near := target.Add(core.V(-5000, 0, 0))
	term, _ := q.Command(Input{SelfPos: near, SelfVel: vel, TargetPos: target})
	if term.AngleTo(core.V(1, 0, 0)) > 1e-6 {
		t.Fatalf("terminal command %v should pursue", term)
	}
}

func TestQuasiBallisticImpactPointClampsDenominator(t *testing.T) {
	q := NewQuasiBallistic(0)
	in := Input{SelfPos: pole, TargetPos: pole.Add(core.V(20_000, 0, 0))}
	p := q.ImpactPoint(in)
	if math.IsNaN(p.X) || math.IsInf(p.X, 0) {
		t.Fatalf("impact point not finite: %v", p)
	}
}

func TestProNavHoldsHeadingAndMeasuresLOSRate(t *testing.T) {
	p := NewProNav(0)
	vel := core.V(0, 300, 0)

	got, err := p.Command(Input{SelfPos: pole, SelfVel: vel, TargetPos: pole.Add(core.V(10_000, 0, 0)), DT: 0.01})
	if err != nil || got != vel {
		t.Fatalf("first command = %v, %v; want current velocity", got, err)
	}
	if p.LastLOSRate != 0 {
		t.Fatalf("no rate before a second sample, got %v", p.LastLOSRate)
	}

	moved := pole.Add(vel.Scale(0.01))
	got, _ = p.Command(Input{SelfPos: moved, SelfVel: vel, TargetPos: pole.Add(core.V(10_000, 0, 0)), DT: 0.01})
	if got != vel {
		t.Fatalf("pronav must hold heading, got %v", got)
	}
	if p.LastLOSRate <= 0 {
		t.Fatalf("expected a positive LOS rate, got %v", p.LastLOSRate)
	}
	if p.LastAcceleration == 0 {
		t.Fatalf("expected a lateral acceleration estimate")
	}
}

func TestParseKindRoundTrip(t *testing.T) {
	for k := KindPursuit; k <= KindProNav; k++ {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("beam-riding"); err == nil {
		t.Fatalf("expected error for unknown law")
	}
}

func TestDescribe(t *testing.T) {
	laws := []Law{Pursuit{}, LeadingPursuit{}, NewAltitudeCruise(1000, 500), NewQuasiBallistic(4000), NewProNav(3)}
	for _, l := range laws {
		if Describe(l) == "" {
			t.Fatalf("empty description for %v", l.Kind())
		}
	}
	if Describe(nil) != "none" {
		t.Fatalf("nil law description = %q", Describe(nil))
	}
}
