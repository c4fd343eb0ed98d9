package detector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/interceptor"
	"github.com/signalsfoundry/intercept-simulator/internal/report"
	"github.com/signalsfoundry/intercept-simulator/kb"
	"github.com/signalsfoundry/intercept-simulator/timectrl"
)

const dt = timectrl.DefaultTick

// Radar on the north pole so that +z is local up.
var site = core.Cartesian{Z: core.EarthRadius + 1}

type dummy struct {
	core.Kinematics
	id string
}

func newDummy(id string, offset core.Vector) *dummy {
	return &dummy{Kinematics: core.Kinematics{Pos: site.Add(offset).Mutable()}, id: id}
}

func (d *dummy) ID() string                            { return d.id }
func (d *dummy) Move(context.Context, *core.Env) error { return nil }
func (d *dummy) ReportState(*core.Env) string          { return d.id }

// ghostRegistry hands out a fresh object per scan, the way a radar sees a
// target without knowing its identity.
type ghostRegistry struct {
	positions []core.Vector
	scans     int
	last      []core.Target
}

func (g *ghostRegistry) WithinRadius(center core.Cartesian, radius float64) []core.Target {
	g.scans++
	g.last = nil
	for _, p := range g.positions {
		t := newDummy("ghost", p)
		if t.Position().DistanceTo(center) < radius {
			g.last = append(g.last, t)
		}
	}
	return g.last
}

type countingRecorder struct {
	scans, dropped, assigned int
}

func (c *countingRecorder) ObserveScan(string, time.Duration, int) { c.scans++ }
func (c *countingRecorder) TrackDropped(string)                    { c.dropped++ }
func (c *countingRecorder) InterceptorAssigned(string)             { c.assigned++ }

func pursuitFactory(id string, track core.Target, launcher core.Cartesian, now time.Duration) *interceptor.Interceptor {
	return interceptor.New(id, track, launcher, guidance.Pursuit{}, interceptor.Config{
		Thrust:     5000,
		BurnTime:   5 * time.Second,
		EmptyMass:  100,
		KillRadius: 20,
		Timeout:    60 * time.Second,
	}, now)
}

func baseConfig() Config {
	return Config{
		ID:              "radar",
		Site:            core.StaticSite{Location: site},
		DetectionRadius: 100_000,
		Factory:         pursuitFactory,
	}
}

func step(t *testing.T, d *Detector, n int, log *report.Log) {
	t.Helper()
	env := core.NewEnv(timectrl.At(time.Duration(n)*dt, dt), log, nil)
	if err := d.Step(context.Background(), env); err != nil {
		t.Fatalf("Step %d: %v", n, err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Site = nil
	if _, err := New(cfg, kb.NewKnowledgeBase()); !errors.Is(err, ErrNoSite) {
		t.Fatalf("err = %v, want ErrNoSite", err)
	}

	cfg = baseConfig()
	cfg.DetectionRadius = 0
	if _, err := New(cfg, kb.NewKnowledgeBase()); !errors.Is(err, ErrInvalidRadius) {
		t.Fatalf("err = %v, want ErrInvalidRadius", err)
	}

	cfg = baseConfig()
	cfg.Engagement = true
	cfg.Factory = nil
	if _, err := New(cfg, kb.NewKnowledgeBase()); !errors.Is(err, ErrNoFactory) {
		t.Fatalf("err = %v, want ErrNoFactory", err)
	}
}

func TestRefreshRateSchedule(t *testing.T) {
	for _, tc := range []struct {
		refresh time.Duration
		ticks   int
		want    int
	}{
		{refresh: 0, ticks: 10, want: 10},
		{refresh: 50 * time.Millisecond, ticks: 12, want: 2},
		{refresh: time.Second, ticks: 100, want: 0},
	} {
		rec := &countingRecorder{}
		cfg := baseConfig()
		cfg.RefreshRate = tc.refresh
		d, err := New(cfg, kb.NewKnowledgeBase(), WithRecorder(rec))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		for n := 1; n <= tc.ticks; n++ {
			step(t, d, n, nil)
		}
		if rec.scans != tc.want {
			t.Fatalf("refresh %v: %d scans in %d ticks, want %d", tc.refresh, rec.scans, tc.ticks, tc.want)
		}
	}
}

func TestScanTracksTargetsInRadius(t *testing.T) {
	reg := kb.NewKnowledgeBase()
	near := newDummy("near", core.V(10_000, 0, 5000))
	far := newDummy("far", core.V(500_000, 0, 5000))
	for _, b := range []*dummy{near, far} {
		if err := reg.Add(b); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	log := report.NewLog()
	cfg := baseConfig()
	cfg.Verbose = true
	d, err := New(cfg, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	step(t, d, 1, log)
	tracks := d.Tracks()
	if len(tracks) != 1 || tracks[0].Target != near {
		t.Fatalf("tracks = %+v, want only near", tracks)
	}
	if !log.Contains("Currently tracking targets") {
		t.Fatalf("missing verbose report: %q", log.String())
	}
	if len(d.Interceptors()) != 0 {
		t.Fatalf("engagement disabled but interceptors created")
	}
}

func TestAssociationUpdatesTrack(t *testing.T) {
	reg := &ghostRegistry{positions: []core.Vector{core.V(5000, 0, 3000)}}
	cfg := baseConfig()
	cfg.Engagement = true
	d, err := New(cfg, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	step(t, d, 1, nil)
	first := reg.last[0]
	i := d.Assigned(first)
	if i == nil || !i.Launched() {
		t.Fatalf("expected a launched interceptor for the first detection")
	}

	// The target moved 20 m in one tick: well inside the 50 m gate.
	reg.positions[0] = core.V(5020, 0, 3000)
	step(t, d, 2, nil)
	second := reg.last[0]

	if i.Track() != second {
		t.Fatalf("interceptor still chases the stale track")
	}
	if !i.Alive() || i.Outcome() != interceptor.Flying {
		t.Fatalf("interceptor outcome = %v, want flying", i.Outcome())
	}
	if d.Assigned(second) != i || len(d.Interceptors()) != 1 {
		t.Fatalf("assignment not carried over")
	}
}

func TestNeighbouringTargetsKeepTheirInterceptors(t *testing.T) {
	positions := []core.Vector{core.V(5000, 0, 3000), core.V(6000, 0, 3000)}

	stored := kb.NewKnowledgeBase()
	for k, off := range positions {
		if err := stored.Add(newDummy(fmt.Sprintf("t%d", k), off)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	for name, reg := range map[string]Registry{
		"same objects":  stored,
		"fresh objects": &ghostRegistry{positions: positions},
	} {
		rec := &countingRecorder{}
		cfg := baseConfig()
		cfg.Engagement = true
		cfg.MaxTargetVelocity = 200_000 // 2 km per tick, wider than the spacing
		d, err := New(cfg, reg, WithRecorder(rec))
		if err != nil {
			t.Fatalf("%s: New: %v", name, err)
		}

		for n := 1; n <= 5; n++ {
			step(t, d, n, nil)
		}
		if got := len(d.Interceptors()); got != 2 || d.Deployed() != 2 {
			t.Fatalf("%s: %d interceptors, %d deployed, want 2 and 2", name, got, d.Deployed())
		}
		if rec.dropped != 0 {
			t.Fatalf("%s: %d tracks dropped, want 0", name, rec.dropped)
		}
		for _, i := range d.Interceptors() {
			if !i.Alive() {
				t.Fatalf("%s: %s outcome = %v, want flying", name, i.ID(), i.Outcome())
			}
		}
	}
}

func TestLostTrackKillsInterceptor(t *testing.T) {
	rec := &countingRecorder{}
	log := report.NewLog()
	reg := &ghostRegistry{positions: []core.Vector{core.V(5000, 0, 3000)}}
	cfg := baseConfig()
	cfg.Engagement = true
	d, err := New(cfg, reg, WithRecorder(rec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	step(t, d, 1, log)
	i := d.Assigned(reg.last[0])

	reg.positions = nil
	step(t, d, 2, log)

	if i.Alive() || i.Outcome() != interceptor.Dropped {
		t.Fatalf("outcome = %v, want dropped", i.Outcome())
	}
	if rec.dropped != 1 || !log.Contains("Target out of track") {
		t.Fatalf("drop not reported: recorder %+v, log %q", rec, log.String())
	}
}

func TestJumpBeyondGateKillsInterceptor(t *testing.T) {
	reg := &ghostRegistry{positions: []core.Vector{core.V(5000, 0, 3000)}}
	cfg := baseConfig()
	cfg.Engagement = true
	cfg.MaxTargetVelocity = 1000 // 10 m per tick
	d, err := New(cfg, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	step(t, d, 1, nil)
	i := d.Assigned(reg.last[0])

	reg.positions[0] = core.V(5100, 0, 3000)
	step(t, d, 2, nil)

	if i.Outcome() != interceptor.Dropped {
		t.Fatalf("outcome = %v, want dropped", i.Outcome())
	}
	// The new detection is a fresh track and gets its own interceptor.
	if n := len(d.Interceptors()); n != 2 {
		t.Fatalf("%d interceptors, want 2", n)
	}
}

func TestAttemptBudget(t *testing.T) {
	reg := kb.NewKnowledgeBase()
	for k, off := range []core.Vector{core.V(3000, 0, 3000), core.V(-3000, 0, 3000), core.V(0, 3000, 3000)} {
		if err := reg.Add(newDummy(string(rune('a'+k)), off)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	cfg := baseConfig()
	cfg.Engagement = true
	cfg.MaxEngagementAttempts = 2
	d, err := New(cfg, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for n := 1; n <= 20; n++ {
		step(t, d, n, nil)
	}
	if d.Deployed() != 2 {
		t.Fatalf("deployed = %d, want 2", d.Deployed())
	}
	launched := 0
	for _, i := range d.Interceptors() {
		if i.Launched() {
			launched++
		}
	}
	if launched != 2 {
		t.Fatalf("%d interceptors launched, want 2", launched)
	}
}

func TestLaunchWhenTargetEntersRange(t *testing.T) {
	reg := kb.NewKnowledgeBase()
	target := newDummy("inbound", core.V(30_000, 0, 5000))
	if err := reg.Add(target); err != nil {
		t.Fatalf("Add: %v", err)
	}
	cfg := baseConfig()
	cfg.Engagement = true
	cfg.InterceptorRange = 20_000
	// Let the target teleport between ticks without losing the track.
	cfg.MaxTargetVelocity = 2_000_000
	d, err := New(cfg, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	step(t, d, 1, nil)
	i := d.Assigned(target)
	if i == nil || i.Launched() {
		t.Fatalf("out-of-range target should get an unlaunched interceptor")
	}
	start := i.Position()

	target.Pos.Set(site.Add(core.V(15_000, 0, 5000)))
	step(t, d, 2, nil)

	if d.Assigned(target) != i || !i.Launched() || d.Deployed() != 1 {
		t.Fatalf("waiting interceptor not launched when the target came in range")
	}
	step(t, d, 3, nil)
	if i.Position() == start {
		t.Fatalf("launched interceptor did not fly")
	}
}

func TestInterceptorsFlyBetweenScans(t *testing.T) {
	reg := kb.NewKnowledgeBase()
	if err := reg.Add(newDummy("t", core.V(0, 0, 8000))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	cfg := baseConfig()
	cfg.Engagement = true
	d, err := New(cfg, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	step(t, d, 1, nil)
	i := d.Interceptors()[0]

	// Slow the radar down: the interceptor still moves every tick.
	d.cooldown = time.Hour
	prev := i.Position()
	for n := 2; n < 10; n++ {
		step(t, d, n, nil)
		if i.Position() == prev {
			t.Fatalf("interceptor idle at tick %d", n)
		}
		prev = i.Position()
	}
}

func TestHorizonCheckHidesLowTargets(t *testing.T) {
	reg := kb.NewKnowledgeBase()
	high := newDummy("high", core.V(20_000, 0, 10_000))
	low := newDummy("low", core.V(50_000, 0, -150))
	for _, b := range []*dummy{high, low} {
		if err := reg.Add(b); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	cfg := baseConfig()
	cfg.HorizonCheck = true
	cfg.MinElevation = 1
	d, err := New(cfg, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	step(t, d, 1, nil)
	tracks := d.Tracks()
	if len(tracks) != 1 || tracks[0].Target != high {
		t.Fatalf("tracks = %d, want only the high target", len(tracks))
	}
}
