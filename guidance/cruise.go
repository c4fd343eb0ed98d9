package guidance

import "github.com/signalsfoundry/intercept-simulator/core"

// AltitudeCruise climbs to a cruising altitude, holds it while flying
// towards the target and switches for good to pursuit once the target is
// within 1.3 × (CruiseAltitude + SwitchDistance).
type AltitudeCruise struct {
	CruiseAltitude float64
	SwitchDistance float64

	terminal bool
}

// NewAltitudeCruise returns a cruise law in its initial phase.
func NewAltitudeCruise(cruiseAltitude, switchDistance float64) *AltitudeCruise {
	return &AltitudeCruise{CruiseAltitude: cruiseAltitude, SwitchDistance: switchDistance}
}

func (*AltitudeCruise) law()       {}
func (*AltitudeCruise) Kind() Kind { return KindAltitudeCruise }

// Terminal reports whether the law has switched to pursuit.
func (a *AltitudeCruise) Terminal() bool { return a.terminal }

// Command implements Law.
func (a *AltitudeCruise) Command(in Input) (core.Vector, error) {
	if a.terminal || in.distance() <= 1.3*(a.SwitchDistance+a.CruiseAltitude) {
		a.terminal = true
		return pursue(in.SelfPos, in.TargetPos, in.SelfVel), nil
	}

	speed := in.SelfVel.Magnitude()
	up := in.SelfPos.Up()
	altitude := in.SelfPos.Altitude()

	if altitude <= 0.9*a.CruiseAltitude {
		climb := horizontal(in.SelfVel, up).Add(up.Scale(0.2 * speed))
		return climb.ScaleTo(speed), nil
	}

	level := horizontal(in.SelfPos.To(in.TargetPos), up).Add(up.Scale(a.CruiseAltitude - altitude))
	return level.ScaleTo(speed), nil
}
