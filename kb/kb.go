// Package kb is the live-target registry shared by the simulation loop and
// the detectors.
package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/intercept-simulator/core"
)

// ErrTargetExists is returned when adding a target whose ID is taken.
var ErrTargetExists = errors.New("target already exists")

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventTargetAdded EventType = iota
	EventTargetDown
)

func (t EventType) String() string {
	switch t {
	case EventTargetAdded:
		return "added"
	case EventTargetDown:
		return "down"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type     EventType
	ID       string
	Position core.Cartesian
	// Fate is the target's cause of death for EventTargetDown, when it
	// reports one.
	Fate string
}

// KnowledgeBase is an in-memory, thread-safe registry of flying bodies.
// Listing preserves insertion order.
type KnowledgeBase struct {
	mu sync.RWMutex

	order   []string
	targets map[string]core.Target
	down    map[string]bool

	subs []func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		targets: make(map[string]core.Target),
		down:    make(map[string]bool),
	}
}

// Add registers a target. It returns ErrTargetExists if the ID is taken.
func (kb *KnowledgeBase) Add(t core.Target) error {
	kb.mu.Lock()
	id := t.ID()
	if _, exists := kb.targets[id]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("target %q: %w", id, ErrTargetExists)
	}
	kb.targets[id] = t
	kb.order = append(kb.order, id)
	subs := append([]func(Event){}, kb.subs...)
	kb.mu.Unlock()

	notify(subs, Event{Type: EventTargetAdded, ID: id, Position: t.Position()})
	return nil
}

// Get returns the target with the given ID, or nil if not found.
func (kb *KnowledgeBase) Get(id string) core.Target {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.targets[id]
}

// List returns a snapshot of all targets in insertion order.
func (kb *KnowledgeBase) List() []core.Target {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]core.Target, 0, len(kb.order))
	for _, id := range kb.order {
		res = append(res, kb.targets[id])
	}
	return res
}

// Len returns the number of registered targets, dead or alive.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.order)
}

// WithinRadius returns the live targets strictly closer than radius to
// center, in insertion order.
func (kb *KnowledgeBase) WithinRadius(center core.Cartesian, radius float64) []core.Target {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	var res []core.Target
	for _, id := range kb.order {
		t := kb.targets[id]
		if !t.Alive() {
			continue
		}
		if t.Position().DistanceTo(center) < radius {
			res = append(res, t)
		}
	}
	return res
}

// AliveCount returns how many registered targets are still flying.
func (kb *KnowledgeBase) AliveCount() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	n := 0
	for _, t := range kb.targets {
		if t.Alive() {
			n++
		}
	}
	return n
}

// Sweep emits EventTargetDown once for every target that has died since the
// previous sweep and returns how many it found.
func (kb *KnowledgeBase) Sweep() int {
	kb.mu.Lock()
	var events []Event
	for _, id := range kb.order {
		t := kb.targets[id]
		if t.Alive() || kb.down[id] {
			continue
		}
		kb.down[id] = true
		ev := Event{Type: EventTargetDown, ID: id, Position: t.Position()}
		if f, ok := t.(core.Fate); ok {
			ev.Fate = f.Fate()
		}
		events = append(events, ev)
	}
	subs := append([]func(Event){}, kb.subs...)
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, ev := range events {
		notify(subs, ev)
	}
	return len(events)
}

func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.subs = append(kb.subs, fn)
	idx := len(kb.subs) - 1

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		if idx < 0 || idx >= len(kb.subs) {
			return
		}
		kb.subs = append(kb.subs[:idx], kb.subs[idx+1:]...)
		idx = -1
	}
}
