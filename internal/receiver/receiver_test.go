package receiver

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/airdaw/internal/clock"
	"github.com/leandrodaf/airdaw/internal/hit"
	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

func TestState_StartsStaleFromCreation(t *testing.T) {
	s := NewState(epoch)
	snap := s.Drain()

	assert.False(t, snap.HasDistance)
	assert.Equal(t, epoch, snap.LastSeen)
	assert.Empty(t, snap.Hits)
}

func TestState_DistOverwritesAndRefreshes(t *testing.T) {
	s := NewState(epoch)
	s.Apply(wire.Dist(40), epoch.Add(time.Second))
	s.Apply(wire.Dist(35), epoch.Add(2*time.Second))

	snap := s.Drain()
	assert.True(t, snap.HasDistance)
	assert.Equal(t, 35.0, snap.Distance)
	assert.Equal(t, epoch.Add(2*time.Second), snap.LastSeen)
}

func TestState_HitsDrainExactlyOnceInOrder(t *testing.T) {
	s := NewState(epoch)
	s.Apply(wire.Hit(90), epoch.Add(1*time.Millisecond))
	s.Apply(wire.Hit(60), epoch.Add(2*time.Millisecond))

	snap := s.Drain()
	assert.Equal(t, []hit.Event{
		{Velocity: 90, At: epoch.Add(1 * time.Millisecond)},
		{Velocity: 60, At: epoch.Add(2 * time.Millisecond)},
	}, snap.Hits)
	assert.Equal(t, epoch.Add(2*time.Millisecond), snap.LastSeen)
	assert.False(t, snap.HasDistance, "a hit carries no distance")

	assert.Empty(t, s.Drain().Hits)
}

func TestState_AliveDoesNotRefreshLastSeen(t *testing.T) {
	s := NewState(epoch)
	s.Apply(wire.Alive(7), epoch.Add(5*time.Second))

	snap := s.Drain()
	assert.Equal(t, epoch, snap.LastSeen)
	assert.True(t, snap.HasAlive)
	assert.EqualValues(t, 7, snap.AliveSeq)
}

func TestState_ConcurrentHitsAreNeitherLostNorDuplicated(t *testing.T) {
	s := NewState(epoch)
	const total = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			s.Apply(wire.Hit(i%128), epoch)
		}
	}()

	drained := 0
	for drained < total {
		drained += len(s.Drain().Hits)
	}
	wg.Wait()
	assert.Equal(t, total, drained)
	assert.Empty(t, s.Drain().Hits)
}

func TestReceiver_HandleDiscardsMalformed(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	r := New(pc, clock.NewManual(epoch), logger.NewNop())
	defer r.Close()

	r.Handle([]byte("junk"))
	r.Handle(nil)

	assert.EqualValues(t, 2, r.Malformed())
	snap := r.State().Drain()
	assert.False(t, snap.HasDistance)
	assert.Equal(t, epoch, snap.LastSeen)
}

func TestReceiver_ServeOverUDP(t *testing.T) {
	c := clock.NewManual(epoch)
	r, err := Listen("127.0.0.1:0", c, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	conn, err := net.Dial("udp", r.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	c.Advance(time.Second)
	for _, m := range []wire.Message{wire.Dist(27.5), wire.Hit(101)} {
		b, err := wire.Encode(m)
		require.NoError(t, err)
		_, err = conn.Write(b)
		require.NoError(t, err)
	}
	_, err = conn.Write([]byte("junk"))
	require.NoError(t, err)

	var hits []hit.Event
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = r.State().Drain()
		hits = append(hits, snap.Hits...)
		return snap.HasDistance && len(hits) == 1 && r.Malformed() == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 27.5, snap.Distance)
	assert.Equal(t, 101, hits[0].Velocity)
	assert.Equal(t, epoch.Add(time.Second), snap.LastSeen)

	cancel()
	assert.NoError(t, <-done)
}
