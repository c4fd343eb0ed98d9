package interceptor

import (
	"math"

	"github.com/signalsfoundry/intercept-simulator/core"
)

// MaxDampingIterations bounds the G-limit damping loop.
const MaxDampingIterations = 64

// TurnG returns the load, in multiples of g0, of turning from velocity cur
// to cmd within dt seconds. The turn is treated as circular motion with
// angular rate ω = angle/dt and radius |v| / sqrt(2(1 − cos ω)).
func TurnG(cur, cmd core.Vector, dt float64) float64 {
	speed := cur.Magnitude()
	angle := cur.AngleTo(cmd)
	if speed == 0 || angle == 0 || dt <= 0 {
		return 0
	}
	omega := angle / dt
	chord := 2 * math.Abs(math.Sin(omega/2))
	if chord == 0 {
		return math.Inf(1)
	}
	radius := speed / chord
	return radius * omega * omega / core.G0
}

// Damp pulls cmd towards cur until the turn fits within limit G. Each
// iteration averages the command with the current velocity and rescales it
// to the current speed. If that cannot converge the command falls back to
// the current velocity. It returns the damped command, its load and the
// number of iterations used.
func Damp(cur, cmd core.Vector, limit, dt float64) (core.Vector, float64, int) {
	speed := cur.Magnitude()
	g := TurnG(cur, cmd, dt)

	n := 0
	for g > limit {
		if n == MaxDampingIterations {
			return cur, 0, n
		}
		n++

		sum := cmd.Add(cur)
		if sum.IsZero() {
			return cur, 0, n
		}
		cmd = sum.ScaleTo(speed)
		g = TurnG(cur, cmd, dt)
	}
	return cmd, g, n
}
