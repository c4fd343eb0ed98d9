// Package guidance implements the steering laws an interceptor or cruise
// missile consults for a commanded velocity direction. The set of laws is
// closed: Law can only be implemented inside this package.
package guidance

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/internal/report"
)

// ErrUnarmed is returned by laws that must be armed by their owning missile
// before first use.
var ErrUnarmed = errors.New("guidance law used before being armed")

// Kind names a guidance law.
type Kind int

const (
	KindPursuit Kind = iota
	KindLeadingPursuit
	KindAltitudeCruise
	KindQuasiBallistic
	KindProNav
)

func (k Kind) String() string {
	switch k {
	case KindPursuit:
		return "pursuit"
	case KindLeadingPursuit:
		return "leading-pursuit"
	case KindAltitudeCruise:
		return "altitude-cruise"
	case KindQuasiBallistic:
		return "quasi-ballistic"
	case KindProNav:
		return "pronav"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a law name to its Kind.
func ParseKind(name string) (Kind, error) {
	for k := KindPursuit; k <= KindProNav; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown guidance law %q", name)
}

// Input is everything a law may look at for one command.
type Input struct {
	TargetPos core.Cartesian
	TargetVel core.Vector
	SelfPos   core.Cartesian
	SelfVel   core.Vector

	// Boosting is true while the guided missile's motor is burning.
	Boosting bool
	// DT is the time since the previous command, in seconds.
	DT float64

	// Report receives diagnostic lines when non-nil.
	Report *report.Log
}

func (in Input) distance() float64 { return in.SelfPos.DistanceTo(in.TargetPos) }

// Law computes a commanded velocity. The result has the magnitude of the
// current velocity when the law can produce one; callers rescale it anyway.
type Law interface {
	Kind() Kind
	Command(in Input) (core.Vector, error)

	law()
}

// Armer is implemented by laws that need to know their missile has
// launched before they can be used.
type Armer interface {
	Arm()
}

// Arm arms l when it needs arming.
func Arm(l Law) {
	if a, ok := l.(Armer); ok {
		a.Arm()
	}
}

// Describe renders a law and its parameters for reports.
func Describe(l Law) string {
	switch g := l.(type) {
	case Pursuit:
		return "pursuit"
	case LeadingPursuit:
		return fmt.Sprintf("leading pursuit (min speed %.0f m/s)", g.minSpeed())
	case *AltitudeCruise:
		return fmt.Sprintf("altitude cruise (%.0f m, switch %.0f m)", g.CruiseAltitude, g.SwitchDistance)
	case *QuasiBallistic:
		return fmt.Sprintf("quasi-ballistic (dv %.0f m/s)", g.DV)
	case *ProNav:
		return fmt.Sprintf("proportional navigation (N = %.1f)", g.gain())
	case nil:
		return "none"
	default:
		return l.Kind().String()
	}
}

// horizontal returns v with its component along up removed.
func horizontal(v, up core.Vector) core.Vector {
	return v.Sub(up.Scale(v.Dot(up)))
}
