package scenario

import (
	"math"
	"sort"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/model"
)

// Named launch sites.
const (
	LaunchSite         = "launch-site"
	ElevatedLaunchSite = "elevated-launch-site"
)

// Both sites sit on the equator. The launch site is a metre above the
// surface so that line-of-sight checks from it are not blocked.
var sites = map[string]core.Spherical{
	LaunchSite:         {R: core.EarthRadius + 1, Inclination: math.Pi / 2, Azimuth: math.Pi / 2},
	ElevatedLaunchSite: {R: core.EarthRadius + 100, Inclination: math.Pi / 2, Azimuth: math.Pi / 2},
}

func vec(x, y, z float64) *model.Vec3 { return &model.Vec3{X: x, Y: y, Z: z} }

var interceptorPresets = map[string]model.InterceptorSpec{
	// Effective against cooperative targets out to about 70 km, 30 km
	// otherwise.
	"short-range": {
		Thrust:          17_800,
		BurnTime:        4,
		EmptyMass:       130,
		Area:            0.0625,
		DragCoefficient: 0.044,
		KillRadius:      5,
		MaxG:            10,
		TerminalMaxG:    40,
		Guidance:        &model.GuidanceSpec{Law: "leading-pursuit"},
	},
	// Loosely an SM-2: about 150 km.
	"medium-range": {
		Thrust:          80_000,
		BurnTime:        17,
		EmptyMass:       900,
		Area:            0.117649,
		DragCoefficient: 0.065,
		KillRadius:      10,
		Timeout:         300,
		InitialVelocity: vec(0, 0, 30),
		MaxG:            15,
		TerminalMaxG:    50,
		Guidance:        &model.GuidanceSpec{Law: "leading-pursuit"},
	},
	// Loosely a Sprint: engages at 200 km for an intercept at 30 km.
	"nike-sprint": {
		Thrust:          2_900_000,
		BurnTime:        5,
		EmptyMass:       3500,
		Area:            1,
		DragCoefficient: 0.03,
		KillRadius:      50,
		Timeout:         300,
		InitialVelocity: vec(0, 0, 30),
		MaxG:            80,
		TerminalMaxG:    100,
		Guidance:        &model.GuidanceSpec{Law: "leading-pursuit"},
	},
	"sm6": {
		Thrust:          50_000,
		BurnTime:        70,
		EmptyMass:       700,
		Area:            0.34,
		DragCoefficient: 0.13,
		KillRadius:      15,
		Timeout:         360,
		InitialVelocity: vec(0, 0, 10),
		Guidance:        &model.GuidanceSpec{Law: "quasi-ballistic"},
	},
}

var ballisticPresets = map[string]model.BallisticSpec{
	"test-ballistic-1": {Stage: &model.StageSpec{
		Heading:         vec(0.2, 1, 1.5),
		Thrust:          24_000,
		BurnTime:        120,
		EmptyMass:       600,
		DragCoefficient: 0.1,
		Area:            0.15,
	}},
	"test-ballistic-2": {Stage: &model.StageSpec{
		Heading:         vec(1, 0, 1.3),
		Thrust:          24_000,
		BurnTime:        50,
		EmptyMass:       600,
		DragCoefficient: 0.1,
		Area:            0.15,
	}},
	// Impacts about 34 km downrange.
	"test-srbm": {Stage: &model.StageSpec{
		Heading:         vec(1, 0, 2),
		Thrust:          28_000,
		BurnTime:        50,
		EmptyMass:       700,
		DragCoefficient: 0.1,
		Area:            0.75,
	}},
	// Impacts about 283 km downrange after 295 s at Mach 3.45.
	"test-mrbm": {Stage: &model.StageSpec{
		Heading:         vec(1, 0, 1.2),
		Thrust:          120_000,
		BurnTime:        20,
		EmptyMass:       900,
		DragCoefficient: 0.03,
		Area:            0.372,
	}},
	// Impacts about 574 km downrange after 380 s at Mach 4.59.
	"test-mrbm2": {Stage: &model.StageSpec{
		Heading:         vec(0.2, 0, 1),
		Thrust:          120_000,
		BurnTime:        60,
		EmptyMass:       2000,
		FuelMass:        5000,
		DragCoefficient: 0.35,
		Area:            0.88 * 0.88,
	}},
}

var multiStagePresets = map[string]model.MultiStageSpec{
	// Loosely an R-36.
	"r36": {
		Stage1: &model.StageSpec{
			Heading:   vec(0.2, 0, 1),
			Thrust:    2_366_000,
			BurnTime:  120,
			EmptyMass: 6400,
			FuelMass:  118_900,
			Area:      9,
			Profile:   true,
		},
		Stage2: &model.StageSpec{
			Heading:   vec(2, 0, 0.5),
			Thrust:    940_000,
			BurnTime:  100,
			EmptyMass: 6700,
			FuelMass:  45_600,
			Area:      9,
			Profile:   true,
		},
		Warhead: &model.StageSpec{
			EmptyMass: 7800,
			Area:      0.16,
			Profile:   true,
		},
	},
	"minuteman3": {
		Stage1: &model.StageSpec{
			Heading:   vec(0.4, 0, 1),
			Thrust:    792_000,
			BurnTime:  60,
			EmptyMass: 2292,
			FuelMass:  20_785,
			Area:      1.67 * 1.67,
			Profile:   true,
		},
		Stage2: &model.StageSpec{
			Heading:   vec(1, 0, 1),
			Thrust:    267_700,
			BurnTime:  66,
			EmptyMass: 795 + 400,
			FuelMass:  6237 + 3200,
			Area:      1.33 * 1.33,
			Profile:   true,
		},
		Warhead: &model.StageSpec{
			EmptyMass: 577,
			Area:      1.33 * 1.33,
			Profile:   true,
		},
	},
}

var cruisePresets = map[string]model.CruiseSpec{
	"test-aero-1": {
		Site:        model.SiteSpec{Preset: ElevatedLaunchSite},
		Velocity:    vec(0, 0, 3),
		Destination: &model.SiteSpec{Preset: LaunchSite, Downrange: 170_000},
		TopSpeed:    580,
		TWR:         0.05,
		Guidance:    &model.GuidanceSpec{Law: "altitude-cruise", CruiseAltitude: 1000, SwitchDistance: 750},
	},
	"test-aero-2": {
		Site:        model.SiteSpec{Preset: ElevatedLaunchSite},
		Velocity:    vec(0, 0, 3),
		Destination: &model.SiteSpec{Preset: LaunchSite, Downrange: 200_000},
		TopSpeed:    700,
		TWR:         0.7,
		Guidance:    &model.GuidanceSpec{Law: "altitude-cruise", CruiseAltitude: 4000, SwitchDistance: 1000},
	},
}

// Catalogue lists every preset name by category, sorted.
type Catalogue struct {
	Sites        []string
	Interceptors []string
	Ballistic    []string
	MultiStage   []string
	Cruise       []string
}

// Presets returns the preset catalogue.
func Presets() Catalogue {
	return Catalogue{
		Sites:        keys(sites),
		Interceptors: keys(interceptorPresets),
		Ballistic:    keys(ballisticPresets),
		MultiStage:   keys(multiStagePresets),
		Cruise:       keys(cruisePresets),
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
