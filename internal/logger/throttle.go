package logger

import (
	"sync/atomic"
	"time"

	"github.com/leandrodaf/airdaw/sdk/contracts"
	"golang.org/x/time/rate"
)

// Throttle limits a repetitive log line to at most one per interval. The
// number of calls swallowed since the last emitted line is attached as
// the "suppressed" field.
type Throttle struct {
	sometimes  rate.Sometimes
	suppressed atomic.Int64
}

// NewThrottle returns a Throttle that logs the first call and then at most
// once per interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{sometimes: rate.Sometimes{First: 1, Interval: interval}}
}

// Warn logs msg at warn level through l unless throttled.
func (t *Throttle) Warn(l contracts.Logger, msg string, fields ...contracts.Field) {
	t.do(l, l.Warn, msg, fields)
}

// Error logs msg at error level through l unless throttled.
func (t *Throttle) Error(l contracts.Logger, msg string, fields ...contracts.Field) {
	t.do(l, l.Error, msg, fields)
}

func (t *Throttle) do(l contracts.Logger, emit func(string, ...contracts.Field), msg string, fields []contracts.Field) {
	ran := false
	t.sometimes.Do(func() {
		ran = true
		n := t.suppressed.Swap(0)
		emit(msg, append(fields, l.Field().Int64("suppressed", n))...)
	})
	if !ran {
		t.suppressed.Add(1)
	}
}
