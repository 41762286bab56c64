package tracking

import (
	"sync"
	"time"
)

// CooldownGate suppresses repeat notifications for a label inside the
// cooldown window. It must be consulted only after the Tracker has confirmed
// a streak crossing; calling it on every present frame would re-notify each
// confirmed frame as soon as the window expires.
//
// Elapsed time is computed with now.Sub(last), which uses the monotonic
// clock reading carried by time.Time values from time.Now. Wall-clock
// adjustments therefore cannot produce negative deltas or suppress alerts.
type CooldownGate struct {
	mu       sync.Mutex
	cooldown time.Duration
	lastFire map[string]time.Time
}

// NewCooldownGate creates a gate with the given minimum interval between
// accepted notifications per label. A zero cooldown accepts every attempt.
func NewCooldownGate(cooldown time.Duration) *CooldownGate {
	return &CooldownGate{
		cooldown: cooldown,
		lastFire: make(map[string]time.Time),
	}
}

// TryFire returns true and records the fire time iff the label has never
// fired or the cooldown has elapsed since its last fire. On suppression no
// state changes.
func (g *CooldownGate) TryFire(label string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.lastFire[label]
	if ok && now.Sub(last) < g.cooldown {
		return false
	}

	g.lastFire[label] = now
	return true
}

// LastFired returns the last accepted fire time for a label, or false when
// the label has never fired.
func (g *CooldownGate) LastFired(label string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.lastFire[label]
	return last, ok
}

// Remaining returns how much of the cooldown window is left for a label at
// the given instant, zero when the gate would accept a fire.
func (g *CooldownGate) Remaining(label string, now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.lastFire[label]
	if !ok {
		return 0
	}
	remaining := g.cooldown - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}
