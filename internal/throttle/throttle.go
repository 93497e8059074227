// Package throttle provides a small per-category log rate limiter, so a
// misbehaving client can't flood logs. Generalized from the teacher's ad hoc
// periodic bookkeeping (cleanupInactiveSessions-style) into a reusable,
// time-window-based throttle.
package throttle

import (
	"sync"
	"time"
)

// DefaultWindow is the spec's log-throttle window (SPEC_FULL.md §4.5).
const DefaultWindow = 2 * time.Second

// Limiter allows at most one event per category every Window.
type Limiter struct {
	mu     sync.Mutex
	last   map[string]time.Time
	Window time.Duration
}

// New returns a Limiter using DefaultWindow.
func New() *Limiter {
	return &Limiter{last: make(map[string]time.Time), Window: DefaultWindow}
}

// Allow reports whether an event in category should be logged now, updating
// the category's last-seen time if so.
func (l *Limiter) Allow(category string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if prev, ok := l.last[category]; ok && now.Sub(prev) < l.Window {
		return false
	}
	l.last[category] = now
	return true
}
