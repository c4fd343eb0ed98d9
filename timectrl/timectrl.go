package timectrl

import (
	"sync"
	"time"
)

// DefaultTick is the fixed integration step shared by every component.
const DefaultTick = 10 * time.Millisecond

// Tick is the value handed to every component that needs "now". Time is kept
// as an integer duration so repeated stepping does not accumulate rounding.
type Tick struct {
	Now time.Duration
	DT  time.Duration
}

// Seconds returns the current simulation time in seconds.
func (t Tick) Seconds() float64 { return t.Now.Seconds() }

// Step returns the tick size in seconds.
func (t Tick) Step() float64 { return t.DT.Seconds() }

// At returns a tick at simulation time now with step dt. Handy in tests.
func At(now, dt time.Duration) Tick { return Tick{Now: now, DT: dt} }

// SimClock is an interface for reading simulation time without depending on
// the concrete controller.
type SimClock interface {
	// Now returns the current simulation tick.
	Now() Tick
}

// TimeController owns the simulated clock and notifies registered listeners
// synchronously, in registration order, on every advance. Simulation time is
// never paced against the wall clock.
type TimeController struct {
	mu   sync.RWMutex
	tick time.Duration

	// current tracks the current simulation time.
	current time.Duration

	listeners []func(Tick) error
}

// NewTimeController constructs a controller starting at t=0. A non-positive
// tick falls back to DefaultTick.
func NewTimeController(tick time.Duration) *TimeController {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &TimeController{tick: tick}
}

// Now returns the current simulation tick. Implements SimClock.
func (tc *TimeController) Now() Tick {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return Tick{Now: tc.current, DT: tc.tick}
}

// SetTime moves the clock to now without notifying listeners.
func (tc *TimeController) SetTime(now time.Duration) {
	tc.mu.Lock()
	tc.current = now
	tc.mu.Unlock()
}

// AddListener registers a callback invoked on every advance.
func (tc *TimeController) AddListener(fn func(Tick) error) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Advance steps the clock by one tick and runs every listener with the new
// tick. The first listener error stops the advance and is returned.
func (tc *TimeController) Advance() (Tick, error) {
	tc.mu.Lock()
	tc.current += tc.tick
	t := Tick{Now: tc.current, DT: tc.tick}
	listeners := append([]func(Tick) error{}, tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		if err := fn(t); err != nil {
			return t, err
		}
	}
	return t, nil
}

// Run advances the clock until budget of simulation time has elapsed or done
// reports true after an advance. It returns true when it stopped because
// done fired, false when the budget ran out.
func (tc *TimeController) Run(budget time.Duration, done func() bool) (bool, error) {
	for tc.Now().Now < budget {
		if _, err := tc.Advance(); err != nil {
			return false, err
		}
		if done != nil && done() {
			return true, nil
		}
	}
	return false, nil
}
