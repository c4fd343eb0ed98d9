package scenario

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/intercept-simulator/body"
	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/detector"
	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/interceptor"
	"github.com/signalsfoundry/intercept-simulator/kb"
	"github.com/signalsfoundry/intercept-simulator/model"
)

// Target is where built bodies and detectors go; *sim.Simulator satisfies
// it.
type Target interface {
	AddTarget(t core.Target) error
	AddDetector(d *detector.Detector)
	Registry() *kb.KnowledgeBase
}

// Options tunes Populate.
type Options struct {
	InterceptorRecorder interceptor.Recorder
	DetectorRecorder    detector.Recorder
	// Verbose turns on per-scan detector reports and per-tick interceptor
	// lines everywhere.
	Verbose bool
}

// Populate builds every body and detector in sc and adds them to dst, bodies
// first.
func Populate(sc *model.Scenario, dst Target, opts Options) error {
	for _, spec := range sc.Ballistic {
		b, err := Ballistic(spec)
		if err != nil {
			return err
		}
		if err := dst.AddTarget(b); err != nil {
			return err
		}
	}
	for _, spec := range sc.MultiStage {
		m, err := MultiStage(spec)
		if err != nil {
			return err
		}
		if err := dst.AddTarget(m); err != nil {
			return err
		}
	}
	for _, spec := range sc.Cruise {
		c, err := Cruise(spec)
		if err != nil {
			return err
		}
		if err := dst.AddTarget(c); err != nil {
			return err
		}
	}
	for _, spec := range sc.Detectors {
		d, err := Detector(spec, dst.Registry(), opts)
		if err != nil {
			return err
		}
		dst.AddDetector(d)
	}
	return nil
}

// Location resolves a non-orbital site to an Earth-fixed point.
func Location(s model.SiteSpec) (core.Cartesian, error) {
	var base core.Spherical
	switch {
	case s.Position != nil:
		base = point(*s.Position).Spherical()
	case s.Preset != "":
		p, ok := sites[s.Preset]
		if !ok {
			return core.Cartesian{}, fmt.Errorf("%w: site %q", ErrUnknownPreset, s.Preset)
		}
		base = p
	default:
		base = sites[LaunchSite]
	}
	if s.Downrange != 0 {
		base = base.Offset(core.DirAzimuth, s.Downrange)
	}
	if s.Altitude != 0 {
		base = base.Offset(core.DirAltitude, s.Altitude)
	}
	return base.Cartesian(), nil
}

// Site resolves a sensor site: SGP4-propagated when it carries a TLE,
// static otherwise.
func Site(s model.SiteSpec) (core.Site, error) {
	if s.Orbital() {
		if s.Epoch == "" {
			return nil, fmt.Errorf("%w: orbital site without epoch", ErrInvalidScenario)
		}
		epoch, err := time.Parse(time.RFC3339, s.Epoch)
		if err != nil {
			return nil, fmt.Errorf("%w: epoch: %w", ErrInvalidScenario, err)
		}
		return core.NewOrbitalSiteFromTLE(s.TLE1, s.TLE2, epoch), nil
	}
	loc, err := Location(s)
	if err != nil {
		return nil, err
	}
	return core.StaticSite{Location: loc}, nil
}

// Ballistic builds a single-stage missile, overlaying spec on its preset.
func Ballistic(spec model.BallisticSpec) (*body.Ballistic, error) {
	id, site, stage := spec.ID, spec.Site, spec.Stage
	if spec.Preset != "" {
		p, ok := ballisticPresets[spec.Preset]
		if !ok {
			return nil, fmt.Errorf("%w: ballistic %q", ErrUnknownPreset, spec.Preset)
		}
		stage = mergeStage(p.Stage, spec.Stage)
		if id == "" {
			id = spec.Preset
		}
	}
	if id == "" {
		return nil, fmt.Errorf("%w: ballistic without id", ErrInvalidScenario)
	}
	start, err := Location(site)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	st, err := buildStage(id, stage, true)
	if err != nil {
		return nil, err
	}
	st.Heading = start.Spherical().ConvertRelative(st.Heading)
	return body.NewBallistic(id, start, st, spec.LaunchTime.Duration()), nil
}

// MultiStage builds a two-stage rocket, overlaying spec on its preset.
func MultiStage(spec model.MultiStageSpec) (*body.MultiStage, error) {
	id := spec.ID
	s1, s2, wh := spec.Stage1, spec.Stage2, spec.Warhead
	if spec.Preset != "" {
		p, ok := multiStagePresets[spec.Preset]
		if !ok {
			return nil, fmt.Errorf("%w: multistage %q", ErrUnknownPreset, spec.Preset)
		}
		s1, s2, wh = mergeStage(p.Stage1, s1), mergeStage(p.Stage2, s2), mergeStage(p.Warhead, wh)
		if id == "" {
			id = spec.Preset
		}
	}
	if id == "" {
		return nil, fmt.Errorf("%w: multistage without id", ErrInvalidScenario)
	}
	start, err := Location(spec.Site)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	cfg := body.MultiStageConfig{Start: start, LaunchTime: spec.LaunchTime.Duration()}
	if cfg.Stage1, err = buildStage(id+"/stage1", s1, true); err != nil {
		return nil, err
	}
	if cfg.Stage2, err = buildStage(id+"/stage2", s2, true); err != nil {
		return nil, err
	}
	if cfg.Warhead, err = buildStage(id+"/warhead", wh, false); err != nil {
		return nil, err
	}
	return body.NewMultiStage(id, cfg), nil
}

// Cruise builds a cruise missile, overlaying spec on its preset.
func Cruise(spec model.CruiseSpec) (*body.CruiseMissile, error) {
	merged := spec
	if spec.Preset != "" {
		p, ok := cruisePresets[spec.Preset]
		if !ok {
			return nil, fmt.Errorf("%w: cruise %q", ErrUnknownPreset, spec.Preset)
		}
		merged = p
		merged.ID = spec.ID
		if merged.ID == "" {
			merged.ID = spec.Preset
		}
		if spec.Site != (model.SiteSpec{}) {
			merged.Site = spec.Site
		}
		if spec.Velocity != nil {
			merged.Velocity = spec.Velocity
		}
		if spec.Destination != nil {
			merged.Destination = spec.Destination
		}
		if spec.TopSpeed != 0 {
			merged.TopSpeed = spec.TopSpeed
		}
		if spec.TWR != 0 {
			merged.TWR = spec.TWR
		}
		if spec.Guidance != nil {
			merged.Guidance = spec.Guidance
		}
	}
	id := merged.ID
	if id == "" {
		return nil, fmt.Errorf("%w: cruise missile without id", ErrInvalidScenario)
	}
	if merged.Destination == nil {
		return nil, fmt.Errorf("%w: %s has no destination", ErrInvalidScenario, id)
	}

	start, err := Location(merged.Site)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	dest, err := Location(*merged.Destination)
	if err != nil {
		return nil, fmt.Errorf("%s destination: %w", id, err)
	}
	law, err := Law(merged.Guidance, guidance.KindPursuit, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	var vel core.Vector
	if merged.Velocity != nil {
		vel = local(start, *merged.Velocity)
	}
	return body.NewCruiseMissile(id, body.CruiseConfig{
		Start:       start,
		Velocity:    vel,
		Destination: dest,
		TopSpeed:    merged.TopSpeed,
		TWR:         merged.TWR,
		Law:         law,
	}), nil
}

// Law builds a fresh guidance law. A nil spec or empty law name selects
// fallback. dv is the quasi-ballistic velocity budget used when the spec
// gives none.
func Law(g *model.GuidanceSpec, fallback guidance.Kind, dv float64) (guidance.Law, error) {
	newLaw, err := lawBuilder(g, fallback, dv)
	if err != nil {
		return nil, err
	}
	return newLaw(), nil
}

// lawBuilder validates g once and returns a constructor for fresh laws of
// that configuration. Stateful laws must not be shared between bodies.
func lawBuilder(g *model.GuidanceSpec, fallback guidance.Kind, dv float64) (func() guidance.Law, error) {
	kind := fallback
	var spec model.GuidanceSpec
	if g != nil {
		spec = *g
		if spec.Law != "" {
			k, err := guidance.ParseKind(spec.Law)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
			}
			kind = k
		}
	}

	switch kind {
	case guidance.KindPursuit:
		return func() guidance.Law { return guidance.Pursuit{} }, nil
	case guidance.KindLeadingPursuit:
		return func() guidance.Law { return guidance.LeadingPursuit{MinSpeed: spec.MinSpeed} }, nil
	case guidance.KindAltitudeCruise:
		if spec.CruiseAltitude <= 0 {
			return nil, fmt.Errorf("%w: altitude-cruise needs a positive cruise_altitude", ErrInvalidScenario)
		}
		return func() guidance.Law { return guidance.NewAltitudeCruise(spec.CruiseAltitude, spec.SwitchDistance) }, nil
	case guidance.KindQuasiBallistic:
		if spec.DeltaV > 0 {
			dv = spec.DeltaV
		}
		if dv <= 0 {
			return nil, fmt.Errorf("%w: quasi-ballistic needs a positive delta_v", ErrInvalidScenario)
		}
		return func() guidance.Law { return guidance.NewQuasiBallistic(dv) }, nil
	case guidance.KindProNav:
		return func() guidance.Law { return guidance.NewProNav(spec.Gain) }, nil
	default:
		return nil, fmt.Errorf("%w: guidance %v", ErrInvalidScenario, kind)
	}
}

// InterceptorFactory returns a factory building interceptors from spec
// overlaid on its preset. Each interceptor gets its own guidance law, and
// its rail velocity is turned from the launcher's local frame into an
// absolute vector.
func InterceptorFactory(spec model.InterceptorSpec, verbose bool, opts ...interceptor.Option) (interceptor.Factory, error) {
	merged := spec
	if spec.Preset != "" {
		p, ok := interceptorPresets[spec.Preset]
		if !ok {
			return nil, fmt.Errorf("%w: interceptor %q", ErrUnknownPreset, spec.Preset)
		}
		merged = mergeInterceptor(p, spec)
	}
	if merged.EmptyMass <= 0 {
		return nil, fmt.Errorf("%w: interceptor needs a positive empty_mass", ErrInvalidScenario)
	}

	dv := merged.Thrust * float64(merged.BurnTime) / merged.EmptyMass
	newLaw, err := lawBuilder(merged.Guidance, guidance.KindLeadingPursuit, dv)
	if err != nil {
		return nil, err
	}

	cfg := interceptor.Config{
		Thrust:            merged.Thrust,
		BurnTime:          merged.BurnTime.Duration(),
		EmptyMass:         merged.EmptyMass,
		FuelMass:          merged.FuelMass,
		DragCoefficient:   merged.DragCoefficient,
		Area:              merged.Area,
		KillRadius:        merged.KillRadius,
		TrackUpdatePeriod: merged.TrackUpdatePeriod.Duration(),
		Timeout:           merged.Timeout.Duration(),
		MaxG:              merged.MaxG,
		TerminalMaxG:      merged.TerminalMaxG,
		TerminalRange:     merged.TerminalRange,
		Verbose:           merged.Verbose || verbose,
	}
	rail := merged.InitialVelocity

	return func(id string, track core.Target, launcher core.Cartesian, now time.Duration) *interceptor.Interceptor {
		c := cfg
		if rail != nil {
			c.InitialVelocity = local(launcher, *rail)
		}
		return interceptor.New(id, track, launcher, newLaw(), c, now, opts...)
	}, nil
}

// Detector builds a detector scanning registry.
func Detector(spec model.DetectorSpec, registry detector.Registry, opts Options) (*detector.Detector, error) {
	site, err := Site(spec.Site)
	if err != nil {
		return nil, fmt.Errorf("detector %s: %w", spec.ID, err)
	}
	cfg := detector.Config{
		ID:                    spec.ID,
		Site:                  site,
		DetectionRadius:       spec.DetectionRadius,
		RefreshRate:           spec.RefreshRate.Duration(),
		InterceptorRange:      spec.InterceptorRange,
		MaxTargetVelocity:     spec.MaxTargetVelocity,
		Engagement:            spec.Engagement,
		MaxEngagementAttempts: spec.MaxEngagementAttempts,
		HorizonCheck:          spec.HorizonCheck,
		MinElevation:          spec.MinElevation,
		Verbose:               spec.Verbose || opts.Verbose,
	}
	if spec.Engagement {
		ispec := model.InterceptorSpec{Preset: "short-range"}
		if spec.Interceptor != nil {
			ispec = *spec.Interceptor
		}
		var iopts []interceptor.Option
		if opts.InterceptorRecorder != nil {
			iopts = append(iopts, interceptor.WithRecorder(opts.InterceptorRecorder))
		}
		cfg.Factory, err = InterceptorFactory(ispec, opts.Verbose, iopts...)
		if err != nil {
			return nil, fmt.Errorf("detector %s: %w", spec.ID, err)
		}
	}

	var dopts []detector.Option
	if opts.DetectorRecorder != nil {
		dopts = append(dopts, detector.WithRecorder(opts.DetectorRecorder))
	}
	return detector.New(cfg, registry, dopts...)
}

func buildStage(id string, s *model.StageSpec, powered bool) (body.Stage, error) {
	if s == nil {
		return body.Stage{}, fmt.Errorf("%w: %s has no stage", ErrInvalidScenario, id)
	}
	if s.EmptyMass <= 0 {
		return body.Stage{}, fmt.Errorf("%w: %s needs a positive empty_mass", ErrInvalidScenario, id)
	}
	if powered && s.Thrust > 0 && s.Heading == nil {
		return body.Stage{}, fmt.Errorf("%w: %s needs a heading", ErrInvalidScenario, id)
	}
	st := body.Stage{
		Thrust:          s.Thrust,
		BurnTime:        s.BurnTime.Duration(),
		EmptyMass:       s.EmptyMass,
		FuelMass:        s.FuelMass,
		DragCoefficient: s.DragCoefficient,
		Area:            s.Area,
	}
	if s.Heading != nil {
		st.Heading = vector(*s.Heading)
	}
	if s.Profile {
		st.Profile = core.DefaultBallisticProfile
	}
	return st, nil
}

// mergeStage overlays the non-zero fields of over onto base.
func mergeStage(base, over *model.StageSpec) *model.StageSpec {
	if base == nil {
		return over
	}
	out := *base
	if over == nil {
		return &out
	}
	if over.Heading != nil {
		out.Heading = over.Heading
	}
	setIf(&out.Thrust, over.Thrust)
	setIf(&out.BurnTime, over.BurnTime)
	setIf(&out.EmptyMass, over.EmptyMass)
	setIf(&out.FuelMass, over.FuelMass)
	setIf(&out.DragCoefficient, over.DragCoefficient)
	setIf(&out.Area, over.Area)
	if over.Profile {
		out.Profile = true
	}
	return &out
}

// mergeInterceptor overlays the non-zero fields of over onto base.
func mergeInterceptor(base, over model.InterceptorSpec) model.InterceptorSpec {
	out := base
	out.Preset = over.Preset
	setIf(&out.Thrust, over.Thrust)
	setIf(&out.BurnTime, over.BurnTime)
	setIf(&out.EmptyMass, over.EmptyMass)
	setIf(&out.FuelMass, over.FuelMass)
	setIf(&out.DragCoefficient, over.DragCoefficient)
	setIf(&out.Area, over.Area)
	setIf(&out.KillRadius, over.KillRadius)
	setIf(&out.Timeout, over.Timeout)
	setIf(&out.MaxG, over.MaxG)
	setIf(&out.TerminalMaxG, over.TerminalMaxG)
	setIf(&out.TerminalRange, over.TerminalRange)
	setIf(&out.TrackUpdatePeriod, over.TrackUpdatePeriod)
	if over.InitialVelocity != nil {
		out.InitialVelocity = over.InitialVelocity
	}
	if over.Guidance != nil {
		out.Guidance = over.Guidance
	}
	out.Verbose = out.Verbose || over.Verbose
	return out
}

func setIf[T float64 | model.Seconds](dst *T, v T) {
	if v != 0 {
		*dst = v
	}
}

func vector(v model.Vec3) core.Vector { return core.V(v.X, v.Y, v.Z) }

func point(v model.Vec3) core.Cartesian { return core.Cartesian{X: v.X, Y: v.Y, Z: v.Z} }

// local turns a velocity written in the local frame at p into an absolute
// vector of the same magnitude.
func local(p core.Cartesian, v model.Vec3) core.Vector {
	rel := vector(v)
	return p.Spherical().ConvertRelative(rel).Scale(rel.Magnitude())
}
