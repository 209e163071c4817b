// Package clock abstracts monotonic time so loops and timeouts can be driven
// deterministically in tests.
//
// Only differences between instants returned by the same Clock are
// meaningful. System relies on the monotonic reading carried by time.Now,
// so wall-clock adjustments never move a deadline.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the current instant and deadline waits.
type Clock interface {
	Now() time.Time
	// SleepUntil blocks until the clock reaches t or ctx is done.
	SleepUntil(ctx context.Context, t time.Time) error
}

// System is the process monotonic clock.
type System struct{}

// Now returns time.Now, which carries a monotonic reading.
func (System) Now() time.Time { return time.Now() }

// SleepUntil waits on a timer; it returns immediately if t is not in the future.
func (System) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Manual is a clock that only moves when told to.
//
// SleepUntil jumps the clock forward to the requested instant instead of
// blocking, so a fixed-rate loop runs as fast as the test can drive it.
// Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual instant.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Set moves the clock to t. Moving backwards is ignored.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.After(m.now) {
		m.now = t
	}
}

// SleepUntil advances the clock to t unless ctx is already done.
func (m *Manual) SleepUntil(ctx context.Context, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Set(t)
	return nil
}
