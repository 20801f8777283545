package client

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SubmissionGuard absorbs accidental double submits (double-click, double
// tap). One cooldown window covers every create and claim attempt in the
// process regardless of target — it is deliberately not a per-record or
// per-user limit, and not a security control.
type SubmissionGuard struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	cooldown time.Duration
	last     time.Time
}

// NewSubmissionGuard returns a guard with the given cooldown. A
// non-positive cooldown defaults to one second; a nil clock uses the real
// one.
func NewSubmissionGuard(cooldown time.Duration, clock clockwork.Clock) *SubmissionGuard {
	if cooldown <= 0 {
		cooldown = time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SubmissionGuard{clock: clock, cooldown: cooldown}
}

// Allow reports whether a submission may proceed now. An accepted call
// opens a new cooldown window; a rejected call leaves the window untouched.
func (g *SubmissionGuard) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if !g.last.IsZero() && now.Sub(g.last) < g.cooldown {
		return false
	}
	g.last = now
	return true
}
