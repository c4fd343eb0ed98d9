package guidance

import (
	"math"

	"github.com/signalsfoundry/intercept-simulator/core"
)

// Pursuit points straight at the target.
type Pursuit struct{}

func (Pursuit) law()       {}
func (Pursuit) Kind() Kind { return KindPursuit }

// Command implements Law.
func (Pursuit) Command(in Input) (core.Vector, error) {
	return pursue(in.SelfPos, in.TargetPos, in.SelfVel), nil
}

func pursue(self, target core.Cartesian, vel core.Vector) core.Vector {
	return self.To(target).ScaleTo(vel.Magnitude())
}

// DefaultLeadMinSpeed is the floor applied to the missile's own speed when
// estimating lead time.
const DefaultLeadMinSpeed = 200.0

// LeadingPursuit pursues the point the target will reach after a lead time
// of distance / (target speed + own speed).
type LeadingPursuit struct {
	// MinSpeed floors the own-speed term; zero means DefaultLeadMinSpeed.
	MinSpeed float64
}

func (LeadingPursuit) law()       {}
func (LeadingPursuit) Kind() Kind { return KindLeadingPursuit }

func (l LeadingPursuit) minSpeed() float64 {
	if l.MinSpeed <= 0 {
		return DefaultLeadMinSpeed
	}
	return l.MinSpeed
}

// LeadTime returns the lead time used for in.
func (l LeadingPursuit) LeadTime(in Input) float64 {
	closing := in.TargetVel.Magnitude() + math.Max(in.SelfVel.Magnitude(), l.minSpeed())
	return in.distance() / closing
}

// Command implements Law.
func (l LeadingPursuit) Command(in Input) (core.Vector, error) {
	lead := l.LeadTime(in)
	predicted := in.TargetPos.Add(in.TargetVel.Scale(lead))
	in.Report.Linef("   lead time : %.3f", lead)
	return pursue(in.SelfPos, predicted, in.SelfVel), nil
}
