// Package clock abstracts wall-clock access so that temporal behavior
// (undo windows, grant deadlines, countdowns) can be driven
// deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current wall-clock time.
// Implemented by System (production) and Fake (tests).
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Fake is a settable clock for tests.
//
// Unlike System, Fake only moves when told to, so the same test
// scenario produces identical timestamps on every run.
//
// Thread-safety: all methods are safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a fake clock pinned at the given instant.
func NewFake(at time.Time) *Fake {
	return &Fake{now: at}
}

// Now returns the fake's current instant.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d. Negative d is ignored;
// the fake never goes backwards through Advance.
func (f *Fake) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set pins the clock at an absolute instant.
func (f *Fake) Set(at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = at
}
