// Package gesture supplies the router with classifier snapshots.
package gesture

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/airdaw/internal/clock"
	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/internal/ticker"
	"github.com/leandrodaf/airdaw/sdk/contracts"
)

var (
	ErrNoSnapshot = errors.New("no gesture snapshot received yet")
	ErrTimeout    = errors.New("gesture provider timed out")
	ErrPanicked   = errors.New("gesture provider panicked")
)

// Static always returns the same snapshot.
type Static contracts.GestureSnapshot

func (s Static) Snapshot() (contracts.GestureSnapshot, error) {
	return contracts.GestureSnapshot(s), nil
}

// Poller calls a provider on its own goroutine and keeps the latest
// successful snapshot. Readers never wait on the provider.
type Poller struct {
	provider contracts.GestureProvider
	timeout  time.Duration
	log      contracts.Logger

	latest   atomic.Pointer[contracts.GestureSnapshot]
	inflight atomic.Bool
	failures atomic.Int64
	failLog  *logger.Throttle
}

// NewPoller wraps provider. A call that takes longer than timeout counts
// as a failure; no new call starts until it returns.
func NewPoller(provider contracts.GestureProvider, timeout time.Duration, log contracts.Logger) *Poller {
	return &Poller{
		provider: provider,
		timeout:  timeout,
		log:      log,
		failLog:  logger.NewThrottle(time.Second),
	}
}

// Latest returns the most recent snapshot, or an idle snapshot before the
// first success.
func (p *Poller) Latest() contracts.GestureSnapshot {
	if s := p.latest.Load(); s != nil {
		return *s
	}
	return contracts.GestureSnapshot{Mode: contracts.ModeIdle}
}

// Failures counts failed or timed out polls.
func (p *Poller) Failures() int64 { return p.failures.Load() }

// Poll performs one call, bounded by the timeout.
func (p *Poller) Poll(ctx context.Context) {
	if !p.inflight.CompareAndSwap(false, true) {
		p.fail(ErrTimeout)
		return
	}

	type result struct {
		snap contracts.GestureSnapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		s, err := p.snapshot()
		p.inflight.Store(false)
		done <- result{s, err}
	}()

	var timeout <-chan time.Time
	if p.timeout > 0 {
		t := time.NewTimer(p.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case r := <-done:
		if r.err != nil {
			p.fail(r.err)
			return
		}
		p.latest.Store(&r.snap)
	case <-timeout:
		p.fail(ErrTimeout)
	case <-ctx.Done():
	}
}

// snapshot calls the provider, turning a panic into an error.
func (p *Poller) snapshot() (s contracts.GestureSnapshot, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, v)
		}
	}()
	return p.provider.Snapshot()
}

func (p *Poller) fail(err error) {
	p.failures.Add(1)
	p.failLog.Warn(p.log, "gesture provider failed, keeping previous snapshot",
		p.log.Field().Error("error", err))
}

// Run polls at the given period until ctx is done.
func (p *Poller) Run(ctx context.Context, c clock.Clock, period time.Duration) error {
	return ticker.Run(ctx, c, period, func(time.Time) { p.Poll(ctx) })
}
