// Package ticker runs fixed-rate loops against absolute deadlines.
//
// The next deadline is always previous deadline + period, so per-iteration
// jitter never accumulates. When an iteration overruns by more than a whole
// period the schedule is resnapped to now + period instead of replaying
// every missed tick.
package ticker

import (
	"context"
	"errors"
	"time"

	"github.com/leandrodaf/airdaw/internal/clock"
)

// ErrInvalidPeriod is returned for non-positive periods.
var ErrInvalidPeriod = errors.New("ticker period must be positive")

// Ticker tracks the absolute deadline of a fixed-rate loop.
// A Ticker is owned by one goroutine.
type Ticker struct {
	clock   clock.Clock
	period  time.Duration
	next    time.Time
	resnaps int
}

// New returns a Ticker whose first deadline is the current instant.
func New(c clock.Clock, period time.Duration) (*Ticker, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return &Ticker{clock: c, period: period, next: c.Now()}, nil
}

// PeriodFromHz converts a rate into a period.
func PeriodFromHz(hz float64) (time.Duration, error) {
	if hz <= 0 {
		return 0, ErrInvalidPeriod
	}
	return time.Duration(float64(time.Second) / hz), nil
}

// Period returns the configured period.
func (t *Ticker) Period() time.Duration { return t.period }

// Next returns the pending deadline.
func (t *Ticker) Next() time.Time { return t.next }

// Resnaps reports how many times the schedule was resnapped after an overrun.
func (t *Ticker) Resnaps() int { return t.resnaps }

// Wait blocks until the pending deadline, schedules the following one and
// returns the instant the tick fired.
func (t *Ticker) Wait(ctx context.Context) (time.Time, error) {
	if err := t.clock.SleepUntil(ctx, t.next); err != nil {
		return time.Time{}, err
	}
	now := t.clock.Now()
	var resnapped bool
	t.next, resnapped = Advance(t.next, now, t.period)
	if resnapped {
		t.resnaps++
	}
	return now, nil
}

// Advance computes the deadline after next. If now is more than one period
// past that deadline the schedule restarts from now.
func Advance(next, now time.Time, period time.Duration) (time.Time, bool) {
	following := next.Add(period)
	if now.Sub(following) > period {
		return now.Add(period), true
	}
	return following, false
}

// Run calls fn once per period until ctx is done. It returns nil on
// cancellation.
func Run(ctx context.Context, c clock.Clock, period time.Duration, fn func(now time.Time)) error {
	t, err := New(c, period)
	if err != nil {
		return err
	}
	for {
		now, err := t.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(now)
	}
}
