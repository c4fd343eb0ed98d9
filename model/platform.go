package model

import (
	"math"
	"time"
)

// Seconds is a duration written as a plain number of seconds in scenario
// files.
type Seconds float64

// Duration converts s to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(math.Round(float64(s) * float64(time.Second)))
}

// Vec3 is a three-component vector or Earth-fixed position in metres.
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }

// SiteSpec places a launcher, sensor or destination. Resolution order:
// Position if set, else the named Preset, else the default launch site;
// Downrange and Altitude are then applied as offsets. A site with both TLE
// lines is an orbiting sensor platform and ignores the rest.
type SiteSpec struct {
	Preset   string `yaml:"preset,omitempty" json:"preset,omitempty"`
	Position *Vec3  `yaml:"position,omitempty" json:"position,omitempty"`

	// Downrange moves the site along the azimuth, in metres of arc.
	Downrange float64 `yaml:"downrange,omitempty" json:"downrange,omitempty"`
	// Altitude raises the site, in metres.
	Altitude float64 `yaml:"altitude,omitempty" json:"altitude,omitempty"`

	TLE1 string `yaml:"tle1,omitempty" json:"tle1,omitempty"`
	TLE2 string `yaml:"tle2,omitempty" json:"tle2,omitempty"`
	// Epoch anchors simulation time zero for an orbital site (RFC 3339).
	Epoch string `yaml:"epoch,omitempty" json:"epoch,omitempty"`
}

// Orbital reports whether the site is propagated from a TLE.
func (s SiteSpec) Orbital() bool { return s.TLE1 != "" && s.TLE2 != "" }
