package guidance

import (
	"math"

	"github.com/signalsfoundry/intercept-simulator/core"
)

const (
	// QuasiBallisticTerminalRange is the range under which the law hands
	// over to pursuit.
	QuasiBallisticTerminalRange = 10_000.0
	// QuasiBallisticMinAltitude is the altitude the missile must clear before
	// the ballistic solution is computed.
	QuasiBallisticMinAltitude = 40.0

	minClosingSpeed = 1.0
)

// QuasiBallistic flies a precomputed ballistic arc towards a predicted
// impact point and switches to pursuit inside QuasiBallisticTerminalRange.
// The solution is computed once, during boost, and held for the rest of the
// boost. The law must be armed by its missile at launch.
type QuasiBallistic struct {
	// DV is the missile's total velocity change, used to predict the impact
	// point and the time of flight.
	DV float64

	armed    bool
	computed bool
	optimal  core.Vector
	impact   core.Cartesian
}

// NewQuasiBallistic returns an unarmed law for a missile with the given
// velocity budget.
func NewQuasiBallistic(dv float64) *QuasiBallistic {
	return &QuasiBallistic{DV: dv}
}

func (*QuasiBallistic) law()       {}
func (*QuasiBallistic) Kind() Kind { return KindQuasiBallistic }

// Arm implements Armer.
func (q *QuasiBallistic) Arm() { q.armed = true }

// Solution returns the held command and the predicted impact point once
// they have been computed.
func (q *QuasiBallistic) Solution() (core.Vector, core.Cartesian, bool) {
	return q.optimal, q.impact, q.computed
}

// ImpactPoint predicts where a non-manoeuvring target will be met, assuming
// the missile closes at a quarter of its velocity budget.
func (q *QuasiBallistic) ImpactPoint(in Input) core.Cartesian {
	closing := math.Max(q.DV/4+in.TargetVel.Magnitude(), minClosingSpeed)
	return in.TargetPos.Add(in.TargetVel.Scale(in.distance() / closing))
}

// Command implements Law.
func (q *QuasiBallistic) Command(in Input) (core.Vector, error) {
	if !q.armed {
		return core.Vector{}, ErrUnarmed
	}

	if in.distance() < QuasiBallisticTerminalRange {
		return pursue(in.SelfPos, in.TargetPos, in.SelfVel), nil
	}

	up := in.SelfPos.Up()

	if q.computed {
		if in.Boosting {
			return q.optimal, nil
		}
		return in.SelfVel, nil
	}

	if in.SelfPos.Altitude() < QuasiBallisticMinAltitude {
		// Not enough room to manoeuvre yet: keep climbing towards the target.
		toward := horizontal(in.SelfPos.To(in.TargetPos).Unit(), up)
		return toward.Add(up.Scale(10)), nil
	}

	if !in.Boosting {
		return in.SelfVel, nil
	}

	impact := q.ImpactPoint(in)
	offset := in.SelfPos.To(impact)
	dz := offset.Dot(up)
	level := horizontal(offset, up)
	dx := level.Magnitude()

	g := core.G0
	root := math.Sqrt(math.Max(q.DV*q.DV-2*g*(dz+dx), 0))
	tof := (q.DV - root) / g
	if tof < 0 {
		tof = (q.DV + root) / g
	}
	if tof <= 0 {
		return in.SelfVel, nil
	}

	vx := dx / tof
	vz := (dz + 0.5*g*tof*tof) / tof

	q.optimal = level.ScaleTo(vx).Add(up.Scale(vz))
	q.impact = impact
	q.computed = true

	in.Report.Linef("  -- Estimated time to target : %.2f s --", tof)
	in.Report.Linef("  -- Horizontal distance to target : %.0f m --", dx)
	in.Report.Linef("  -- Vertical distance to target : %.0f m --", dz)
	in.Report.Linef("  -- Impact point : %v --", impact)
	return q.optimal, nil
}
