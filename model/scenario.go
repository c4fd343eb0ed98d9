package model

// StageSpec is one powered stage. Zero fields inherit from the preset the
// owning body names. Heading is relative to the local frame at the launch
// site: (inclination, azimuth, altitude) components.
type StageSpec struct {
	Heading         *Vec3   `yaml:"heading,omitempty" json:"heading,omitempty"`
	Thrust          float64 `yaml:"thrust,omitempty" json:"thrust,omitempty"`
	BurnTime        Seconds `yaml:"burn_time,omitempty" json:"burn_time,omitempty"`
	EmptyMass       float64 `yaml:"empty_mass,omitempty" json:"empty_mass,omitempty"`
	FuelMass        float64 `yaml:"fuel_mass,omitempty" json:"fuel_mass,omitempty"`
	DragCoefficient float64 `yaml:"drag_coefficient,omitempty" json:"drag_coefficient,omitempty"`
	Area            float64 `yaml:"area,omitempty" json:"area,omitempty"`
	// Profile selects the Mach-dependent drag profile instead of the fixed
	// coefficient.
	Profile bool `yaml:"profile,omitempty" json:"profile,omitempty"`
}

// BallisticSpec is a single-stage powered ballistic missile.
type BallisticSpec struct {
	ID         string     `yaml:"id" json:"id"`
	Preset     string     `yaml:"preset,omitempty" json:"preset,omitempty"`
	Site       SiteSpec   `yaml:"site,omitempty" json:"site,omitempty"`
	LaunchTime Seconds    `yaml:"launch_time,omitempty" json:"launch_time,omitempty"`
	Stage      *StageSpec `yaml:"stage,omitempty" json:"stage,omitempty"`
}

// MultiStageSpec is a two-stage rocket with a separating warhead. Stage 2's
// heading is relative to the local frame at separation; the warhead follows
// the velocity it inherits.
type MultiStageSpec struct {
	ID         string     `yaml:"id" json:"id"`
	Preset     string     `yaml:"preset,omitempty" json:"preset,omitempty"`
	Site       SiteSpec   `yaml:"site,omitempty" json:"site,omitempty"`
	LaunchTime Seconds    `yaml:"launch_time,omitempty" json:"launch_time,omitempty"`
	Stage1     *StageSpec `yaml:"stage1,omitempty" json:"stage1,omitempty"`
	Stage2     *StageSpec `yaml:"stage2,omitempty" json:"stage2,omitempty"`
	Warhead    *StageSpec `yaml:"warhead,omitempty" json:"warhead,omitempty"`
}

// GuidanceSpec names a guidance law and its parameters.
type GuidanceSpec struct {
	// Law is one of pursuit, leading-pursuit, altitude-cruise,
	// quasi-ballistic or pronav.
	Law string `yaml:"law,omitempty" json:"law,omitempty"`

	CruiseAltitude float64 `yaml:"cruise_altitude,omitempty" json:"cruise_altitude,omitempty"`
	SwitchDistance float64 `yaml:"switch_distance,omitempty" json:"switch_distance,omitempty"`
	// DeltaV is the quasi-ballistic velocity budget; zero derives it from
	// the interceptor's thrust, burn time and empty mass.
	DeltaV   float64 `yaml:"delta_v,omitempty" json:"delta_v,omitempty"`
	Gain     float64 `yaml:"gain,omitempty" json:"gain,omitempty"`
	MinSpeed float64 `yaml:"min_speed,omitempty" json:"min_speed,omitempty"`
}

// CruiseSpec is an air-breathing missile flying to a fixed destination.
type CruiseSpec struct {
	ID     string   `yaml:"id" json:"id"`
	Preset string   `yaml:"preset,omitempty" json:"preset,omitempty"`
	Site   SiteSpec `yaml:"site,omitempty" json:"site,omitempty"`
	// Velocity is the initial velocity in the local frame at Site.
	Velocity    *Vec3         `yaml:"velocity,omitempty" json:"velocity,omitempty"`
	Destination *SiteSpec     `yaml:"destination,omitempty" json:"destination,omitempty"`
	TopSpeed    float64       `yaml:"top_speed,omitempty" json:"top_speed,omitempty"`
	TWR         float64       `yaml:"twr,omitempty" json:"twr,omitempty"`
	Guidance    *GuidanceSpec `yaml:"guidance,omitempty" json:"guidance,omitempty"`
}

// InterceptorSpec describes the interceptors a detector launches. Zero
// fields inherit from Preset.
type InterceptorSpec struct {
	Preset string `yaml:"preset,omitempty" json:"preset,omitempty"`

	Thrust          float64 `yaml:"thrust,omitempty" json:"thrust,omitempty"`
	BurnTime        Seconds `yaml:"burn_time,omitempty" json:"burn_time,omitempty"`
	EmptyMass       float64 `yaml:"empty_mass,omitempty" json:"empty_mass,omitempty"`
	FuelMass        float64 `yaml:"fuel_mass,omitempty" json:"fuel_mass,omitempty"`
	DragCoefficient float64 `yaml:"drag_coefficient,omitempty" json:"drag_coefficient,omitempty"`
	Area            float64 `yaml:"area,omitempty" json:"area,omitempty"`
	KillRadius      float64 `yaml:"kill_radius,omitempty" json:"kill_radius,omitempty"`
	Timeout         Seconds `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// InitialVelocity is the rail velocity in the local frame at the
	// launcher.
	InitialVelocity   *Vec3         `yaml:"initial_velocity,omitempty" json:"initial_velocity,omitempty"`
	MaxG              float64       `yaml:"max_g,omitempty" json:"max_g,omitempty"`
	TerminalMaxG      float64       `yaml:"terminal_max_g,omitempty" json:"terminal_max_g,omitempty"`
	TerminalRange     float64       `yaml:"terminal_range,omitempty" json:"terminal_range,omitempty"`
	TrackUpdatePeriod Seconds       `yaml:"track_update_period,omitempty" json:"track_update_period,omitempty"`
	Guidance          *GuidanceSpec `yaml:"guidance,omitempty" json:"guidance,omitempty"`
	Verbose           bool          `yaml:"verbose,omitempty" json:"verbose,omitempty"`
}

// DetectorSpec is a radar site and, when engagement is on, its battery.
type DetectorSpec struct {
	ID                    string           `yaml:"id" json:"id"`
	Site                  SiteSpec         `yaml:"site,omitempty" json:"site,omitempty"`
	DetectionRadius       float64          `yaml:"detection_radius" json:"detection_radius"`
	RefreshRate           Seconds          `yaml:"refresh_rate,omitempty" json:"refresh_rate,omitempty"`
	InterceptorRange      float64          `yaml:"interceptor_range,omitempty" json:"interceptor_range,omitempty"`
	MaxTargetVelocity     float64          `yaml:"max_target_velocity,omitempty" json:"max_target_velocity,omitempty"`
	Engagement            bool             `yaml:"engagement,omitempty" json:"engagement,omitempty"`
	MaxEngagementAttempts int              `yaml:"max_engagement_attempts,omitempty" json:"max_engagement_attempts,omitempty"`
	Interceptor           *InterceptorSpec `yaml:"interceptor,omitempty" json:"interceptor,omitempty"`
	HorizonCheck          bool             `yaml:"horizon_check,omitempty" json:"horizon_check,omitempty"`
	MinElevation          float64          `yaml:"min_elevation,omitempty" json:"min_elevation,omitempty"`
	Verbose               bool             `yaml:"verbose,omitempty" json:"verbose,omitempty"`
}

// Scenario is a complete run description.
type Scenario struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// Duration is the simulation-time budget; zero uses the simulator
	// default.
	Duration Seconds `yaml:"duration,omitempty" json:"duration,omitempty"`
	// Tick is the integration step; zero uses the simulator default.
	Tick Seconds `yaml:"tick,omitempty" json:"tick,omitempty"`

	Ballistic  []BallisticSpec  `yaml:"ballistic,omitempty" json:"ballistic,omitempty"`
	MultiStage []MultiStageSpec `yaml:"multistage,omitempty" json:"multistage,omitempty"`
	Cruise     []CruiseSpec     `yaml:"cruise,omitempty" json:"cruise,omitempty"`
	Detectors  []DetectorSpec   `yaml:"detectors,omitempty" json:"detectors,omitempty"`
}

// BodyCount returns how many flying bodies the scenario declares.
func (s Scenario) BodyCount() int {
	return len(s.Ballistic) + len(s.MultiStage) + len(s.Cruise)
}
