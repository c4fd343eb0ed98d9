// Package detector implements the radar engagement scheduler: periodic
// scans of the target registry, track association across scans, and
// interceptor assignment and launch.
package detector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/interceptor"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/internal/observability"
)

// Defaults for zero Config fields.
const (
	DefaultInterceptorRange      = 20_000.0 // m
	DefaultMaxTargetVelocity     = 5_000.0  // m/s
	DefaultMaxEngagementAttempts = 10
)

var (
	// ErrNoSite is returned when a detector is configured without a location.
	ErrNoSite = errors.New("detector has no site")
	// ErrNoFactory is returned when engagement is enabled without an
	// interceptor factory.
	ErrNoFactory = errors.New("engagement enabled without an interceptor factory")
	// ErrInvalidRadius is returned for a non-positive detection radius.
	ErrInvalidRadius = errors.New("detection radius must be positive")
)

// Registry is the live-target view a detector scans.
type Registry interface {
	WithinRadius(center core.Cartesian, radius float64) []core.Target
}

// Recorder receives detector metrics.
type Recorder interface {
	ObserveScan(detector string, d time.Duration, tracks int)
	TrackDropped(detector string)
	InterceptorAssigned(detector string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveScan(string, time.Duration, int) {}
func (noopRecorder) TrackDropped(string)                    {}
func (noopRecorder) InterceptorAssigned(string)             {}

// Config describes one radar site and its battery.
type Config struct {
	ID   string
	Site core.Site

	DetectionRadius float64 // m
	// RefreshRate is the time between scans; zero scans every tick.
	RefreshRate      time.Duration
	InterceptorRange float64 // m
	// MaxTargetVelocity bounds how far a target can move between scans and
	// so sets the association gate.
	MaxTargetVelocity float64 // m/s

	Engagement            bool
	MaxEngagementAttempts int
	Factory               interceptor.Factory

	// HorizonCheck drops detections hidden by the Earth or below
	// MinElevation degrees.
	HorizonCheck bool
	MinElevation float64

	// Verbose writes a track summary to the report after every scan.
	Verbose bool
}

func (c Config) withDefaults() Config {
	if c.InterceptorRange <= 0 {
		c.InterceptorRange = DefaultInterceptorRange
	}
	if c.MaxTargetVelocity <= 0 {
		c.MaxTargetVelocity = DefaultMaxTargetVelocity
	}
	if c.MaxEngagementAttempts <= 0 {
		c.MaxEngagementAttempts = DefaultMaxEngagementAttempts
	}
	if c.ID == "" {
		c.ID = "radar"
	}
	return c
}

// Track is the detector's snapshot of a target at the latest scan.
type Track struct {
	Target   core.Target
	Position core.Cartesian
	Velocity core.Vector
	Range    float64
}

type assignment struct {
	target      core.Target
	interceptor *interceptor.Interceptor
}

// Option customises a Detector.
type Option func(*Detector)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Detector) {
		if r != nil {
			d.metrics = r
		}
	}
}

// Detector scans a registry every RefreshRate and flies the interceptors it
// launches every tick.
type Detector struct {
	cfg      Config
	registry Registry
	metrics  Recorder

	location core.Cartesian
	cooldown time.Duration
	lastScan time.Duration
	scanned  bool

	tracks       []Track
	assignments  []assignment
	interceptors []*interceptor.Interceptor
	deployed     int
}

// New validates cfg and returns a detector scanning registry.
func New(cfg Config, registry Registry, opts ...Option) (*Detector, error) {
	cfg = cfg.withDefaults()
	if cfg.Site == nil {
		return nil, fmt.Errorf("%s: %w", cfg.ID, ErrNoSite)
	}
	if cfg.DetectionRadius <= 0 {
		return nil, fmt.Errorf("%s: %w", cfg.ID, ErrInvalidRadius)
	}
	if cfg.Engagement && cfg.Factory == nil {
		return nil, fmt.Errorf("%s: %w", cfg.ID, ErrNoFactory)
	}

	d := &Detector{
		cfg:      cfg,
		registry: registry,
		metrics:  noopRecorder{},
		cooldown: cfg.RefreshRate,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ID returns the detector's ID.
func (d *Detector) ID() string { return d.cfg.ID }

// Location returns the site position at the latest step.
func (d *Detector) Location() core.Cartesian { return d.location }

// Deployed returns how many interceptors have been launched.
func (d *Detector) Deployed() int { return d.deployed }

// Tracks returns the tracks from the latest scan.
func (d *Detector) Tracks() []Track {
	return append([]Track(nil), d.tracks...)
}

// Interceptors returns every interceptor created so far, in creation order.
func (d *Detector) Interceptors() []*interceptor.Interceptor {
	return append([]*interceptor.Interceptor(nil), d.interceptors...)
}

// Assigned returns the interceptor currently assigned to target, if any.
func (d *Detector) Assigned(target core.Target) *interceptor.Interceptor {
	if a := d.assignmentFor(target); a != nil {
		return a.interceptor
	}
	return nil
}

// Active returns the number of live interceptors.
func (d *Detector) Active() int {
	n := 0
	for _, i := range d.interceptors {
		if i.Alive() {
			n++
		}
	}
	return n
}

// Step runs one tick: a scan when the cooldown has elapsed, then one flight
// step for every interceptor.
func (d *Detector) Step(ctx context.Context, env *core.Env) error {
	d.location = d.cfg.Site.Position(env.Tick)

	if d.cooldown <= 0 {
		if err := d.scan(ctx, env); err != nil {
			return err
		}
		d.cooldown = d.cfg.RefreshRate
	} else {
		d.cooldown -= env.Tick.DT
	}

	for _, i := range d.interceptors {
		if err := i.Run(ctx, env); err != nil {
			return fmt.Errorf("%s: %w", d.cfg.ID, err)
		}
	}
	return nil
}

func (d *Detector) scan(ctx context.Context, env *core.Env) error {
	started := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "detector.scan", trace.WithAttributes(
		attribute.String("detector", d.cfg.ID),
		attribute.Float64("sim_time_s", env.Seconds()),
	))
	defer span.End()

	detected := d.detect()
	d.associate(ctx, env, detected)

	if d.cfg.Verbose {
		d.report(env)
	}
	if d.cfg.Engagement && d.deployed < d.cfg.MaxEngagementAttempts {
		if err := d.engage(ctx, env); err != nil {
			span.RecordError(err)
			return err
		}
	}

	span.SetAttributes(
		attribute.Int("tracks", len(d.tracks)),
		attribute.Int("deployed", d.deployed),
	)
	d.metrics.ObserveScan(d.cfg.ID, time.Since(started), len(d.tracks))
	return nil
}

func (d *Detector) detect() []core.Target {
	found := d.registry.WithinRadius(d.location, d.cfg.DetectionRadius)
	if !d.cfg.HorizonCheck {
		return found
	}
	visible := found[:0:0]
	for _, t := range found {
		pos := t.Position()
		if core.HasLineOfSight(d.location, pos) && core.ElevationDegrees(d.location, pos) >= d.cfg.MinElevation {
			visible = append(visible, t)
		}
	}
	return visible
}

// gate returns the association distance: how far a target could have moved
// since the previous scan.
func (d *Detector) gate(now time.Duration) float64 {
	interval := d.cfg.RefreshRate
	if d.scanned && now-d.lastScan > interval {
		interval = now - d.lastScan
	}
	return d.cfg.MaxTargetVelocity * interval.Seconds()
}

// associate matches the new detections against the previous tracks, moves
// assignments over to their successors and drops the rest.
func (d *Detector) associate(ctx context.Context, env *core.Env, detected []core.Target) {
	now := env.Now()
	gate := d.gate(now)

	successor := d.match(detected, gate)

	kept := d.assignments[:0]
	for _, a := range d.assignments {
		if n, ok := successor[a.target]; ok {
			a.interceptor.UpdateTrack(n)
			a.target = n
			kept = append(kept, a)
			continue
		}
		if a.interceptor.Alive() {
			a.interceptor.Kill()
			env.Linef("Target out of track")
			d.metrics.TrackDropped(d.cfg.ID)
			logging.FromContext(ctx).Info(ctx, "track dropped",
				logging.String("detector", d.cfg.ID),
				logging.String("interceptor", a.interceptor.ID()),
				logging.String("target", a.target.ID()),
			)
		}
	}
	d.assignments = kept

	d.tracks = d.tracks[:0]
	for _, t := range detected {
		pos := t.Position()
		d.tracks = append(d.tracks, Track{
			Target:   t,
			Position: pos,
			Velocity: t.Velocity(),
			Range:    d.location.DistanceTo(pos),
		})
	}
	d.lastScan = now
	d.scanned = true
}

// match pairs each previous track with at most one new detection inside the
// gate. Detections of the same object claim their own track first; the rest
// take the nearest unclaimed track.
func (d *Detector) match(detected []core.Target, gate float64) map[core.Target]core.Target {
	successor := make(map[core.Target]core.Target, len(detected))
	matched := make(map[core.Target]bool, len(detected))

	for _, n := range detected {
		for _, prev := range d.tracks {
			if prev.Target == n && prev.Target.Alive() && prev.Position.DistanceTo(n.Position()) <= gate {
				successor[prev.Target] = n
				matched[n] = true
				break
			}
		}
	}

	for _, n := range detected {
		if matched[n] {
			continue
		}
		pos := n.Position()
		var best core.Target
		bestDist := math.Inf(1)
		for _, prev := range d.tracks {
			if _, taken := successor[prev.Target]; taken || !prev.Target.Alive() {
				continue
			}
			if dist := prev.Position.DistanceTo(pos); dist <= gate && dist < bestDist {
				best, bestDist = prev.Target, dist
			}
		}
		if best != nil {
			successor[best] = n
		}
	}
	return successor
}

// engage assigns an interceptor to every track without a live one and
// launches those in range while the attempt budget lasts.
func (d *Detector) engage(ctx context.Context, env *core.Env) error {
	for _, tr := range d.tracks {
		a := d.assignmentFor(tr.Target)
		if a == nil || !a.interceptor.Alive() {
			if d.cfg.Verbose {
				env.Linef("Assigning interceptor")
			}
			id := fmt.Sprintf("%s/interceptor-%d", d.cfg.ID, len(d.interceptors)+1)
			i := d.cfg.Factory(id, tr.Target, d.location, env.Now())
			d.interceptors = append(d.interceptors, i)
			d.metrics.InterceptorAssigned(d.cfg.ID)
			if a == nil {
				d.assignments = append(d.assignments, assignment{target: tr.Target, interceptor: i})
				a = &d.assignments[len(d.assignments)-1]
			} else {
				a.interceptor = i
			}
		}

		if !a.interceptor.Launched() && a.interceptor.Alive() &&
			tr.Range <= d.cfg.InterceptorRange && d.deployed < d.cfg.MaxEngagementAttempts {
			if err := a.interceptor.Launch(ctx, env); err != nil {
				return fmt.Errorf("%s: %w", d.cfg.ID, err)
			}
			d.deployed++
		}
	}
	return nil
}

func (d *Detector) assignmentFor(target core.Target) *assignment {
	for k := range d.assignments {
		if d.assignments[k].target == target {
			return &d.assignments[k]
		}
	}
	return nil
}

func (d *Detector) report(env *core.Env) {
	if len(d.tracks) == 0 {
		return
	}
	env.Linef("=================================")
	env.Linef("t = %.2f. Currently tracking targets", env.Seconds())
	env.Linef("Interceptors out : %d", d.Active())
	env.Linef("Interceptors launched (total) : %d", d.deployed)
	for k, tr := range d.tracks {
		speed := tr.Velocity.Magnitude()
		env.Linef("Target %d", k)
		env.Linef("    %v", tr.Position)
		env.Linef("    Speed %.1f (Mach %.2f)", speed, speed/core.SpeedOfSound)
		env.Linef("    Distance to %.0f", math.Round(tr.Range))
		env.Linef("---------------------------------------")
	}
}
