// Package receiver maintains the router's view of the sensor node.
package receiver

import (
	"sync"
	"time"

	"github.com/leandrodaf/airdaw/internal/hit"
	"github.com/leandrodaf/airdaw/internal/wire"
)

// Snapshot is what one router tick sees.
type Snapshot struct {
	Distance    float64
	HasDistance bool
	// LastSeen is the arrival time of the latest Dist or Hit.
	LastSeen time.Time
	// Hits are drained: each appears in exactly one Snapshot, in arrival order.
	Hits     []hit.Event
	AliveSeq int32
	HasAlive bool
}

// State is written by the network handler and read by the router tick.
// Every Apply is atomic with respect to Drain.
type State struct {
	mu       sync.Mutex
	distance float64
	hasDist  bool
	lastSeen time.Time
	hits     []hit.Event
	aliveSeq int32
	hasAlive bool
}

// NewState starts the staleness clock at created so a sensor that never
// reports still trips the watchdog.
func NewState(created time.Time) *State {
	return &State{lastSeen: created}
}

// Apply records one decoded message received at the given instant.
func (s *State) Apply(m wire.Message, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m.Kind {
	case wire.KindDist:
		s.distance = float64(m.Distance)
		s.hasDist = true
		s.lastSeen = at
	case wire.KindHit:
		s.hits = append(s.hits, hit.Event{Velocity: int(m.Velocity), At: at})
		s.lastSeen = at
	case wire.KindAlive:
		s.aliveSeq = m.Seq
		s.hasAlive = true
	}
}

// Drain returns the current view and empties the pending hits.
func (s *State) Drain() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Distance:    s.distance,
		HasDistance: s.hasDist,
		LastSeen:    s.lastSeen,
		Hits:        s.hits,
		AliveSeq:    s.aliveSeq,
		HasAlive:    s.hasAlive,
	}
	s.hits = nil
	return snap
}
