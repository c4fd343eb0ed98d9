package guidance

import "github.com/signalsfoundry/intercept-simulator/core"

// DefaultNavigationGain is the proportional navigation constant N.
const DefaultNavigationGain = 4.0

// ProNav measures the line-of-sight rotation rate between calls and the
// lateral acceleration proportional navigation would demand, but holds the
// current heading. Turning that acceleration into a command is left open.
type ProNav struct {
	// N is the navigation gain, typically between 2 and 5.
	N float64

	primed     bool
	prevSelf   core.Cartesian
	prevTarget core.Cartesian

	// LastLOSRate is the most recent line-of-sight rotation rate (rad/s).
	LastLOSRate float64
	// LastAcceleration is the most recent commanded lateral acceleration (m/s²).
	LastAcceleration float64
}

// NewProNav returns a law with gain n; n <= 0 selects DefaultNavigationGain.
func NewProNav(n float64) *ProNav {
	return &ProNav{N: n}
}

func (*ProNav) law()       {}
func (*ProNav) Kind() Kind { return KindProNav }

func (p *ProNav) gain() float64 {
	if p.N <= 0 {
		return DefaultNavigationGain
	}
	return p.N
}

// Command implements Law.
func (p *ProNav) Command(in Input) (core.Vector, error) {
	los := in.SelfPos.To(in.TargetPos)

	if p.primed && in.DT > 0 {
		prevLOS := p.prevSelf.To(p.prevTarget)
		p.LastLOSRate = prevLOS.AngleTo(los) / in.DT

		closing := -in.TargetVel.Sub(in.SelfVel).Dot(los.Unit())
		p.LastAcceleration = p.gain() * p.LastLOSRate * closing
	}

	p.prevSelf = in.SelfPos
	p.prevTarget = in.TargetPos
	p.primed = true

	return in.SelfVel, nil
}
