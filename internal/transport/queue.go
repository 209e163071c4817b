// Package transport ships telemetry to the router without ever blocking the
// acquisition loop.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/leandrodaf/airdaw/internal/wire"
)

// ErrClosed is returned by Wait once the queue is closed and drained.
var ErrClosed = errors.New("transport queue closed")

// Outcome describes what Enqueue did.
type Outcome uint8

const (
	// Accepted means the message was appended without displacing anything.
	Accepted Outcome = iota
	// EvictedDist means the oldest Dist was removed to make room.
	EvictedDist
	// DroppedIncoming means the message was discarded.
	DroppedIncoming
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case EvictedDist:
		return "evicted_dist"
	case DroppedIncoming:
		return "dropped_incoming"
	default:
		return "unknown"
	}
}

// Queue is a bounded FIFO with priority-aware overflow: when full, the oldest
// Dist is evicted for any incoming message; if no Dist is queued the
// incoming message is dropped. Single producer, single consumer.
type Queue struct {
	mu       sync.Mutex
	items    []wire.Message
	capacity int
	closed   bool
	ready    chan struct{}
}

// NewQueue returns a queue holding at most capacity messages (minimum 1).
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		items:    make([]wire.Message, 0, capacity),
		capacity: capacity,
		ready:    make(chan struct{}, 1),
	}
}

// Capacity returns the configured bound.
func (q *Queue) Capacity() int { return q.capacity }

// Enqueue never blocks.
func (q *Queue) Enqueue(m wire.Message) Outcome {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return DroppedIncoming
	}

	outcome := Accepted
	if len(q.items) >= q.capacity {
		i := q.oldestDistLocked()
		if i < 0 {
			return DroppedIncoming
		}
		q.items = append(q.items[:i], q.items[i+1:]...)
		outcome = EvictedDist
	}
	q.items = append(q.items, m)
	q.signal()
	return outcome
}

func (q *Queue) oldestDistLocked() int {
	for i, m := range q.items {
		if m.Kind == wire.KindDist {
			return i
		}
	}
	return -1
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// TryDequeue pops the head if there is one.
func (q *Queue) TryDequeue() (wire.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return wire.Message{}, false
	}
	m := q.items[0]
	q.items = append(q.items[:0], q.items[1:]...)
	if len(q.items) > 0 {
		q.signal()
	}
	return m, true
}

// Wait blocks until a message is available, the queue is closed and empty,
// or ctx is done.
func (q *Queue) Wait(ctx context.Context) (wire.Message, error) {
	for {
		if m, ok := q.TryDequeue(); ok {
			return m, nil
		}
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return wire.Message{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return wire.Message{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot copies the queued messages in order.
func (q *Queue) Snapshot() []wire.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]wire.Message(nil), q.items...)
}

// Close stops accepting messages. Queued messages can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.signal()
}
