package receiver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/leandrodaf/airdaw/internal/clock"
	"github.com/leandrodaf/airdaw/internal/wire"
	"github.com/leandrodaf/airdaw/sdk/contracts"
)

const maxDatagram = 1024

// Receiver reads telemetry datagrams into a State.
type Receiver struct {
	conn  net.PacketConn
	state *State
	clock clock.Clock
	log   contracts.Logger

	malformed atomic.Int64
}

// Listen binds a UDP socket on addr.
func Listen(addr string, c clock.Clock, log contracts.Logger) (*Receiver, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen telemetry %s: %w", addr, err)
	}
	return New(conn, c, log), nil
}

// New wraps an open socket. The staleness clock starts now.
func New(conn net.PacketConn, c clock.Clock, log contracts.Logger) *Receiver {
	return &Receiver{conn: conn, state: NewState(c.Now()), clock: c, log: log}
}

// State returns the shared state the router drains.
func (r *Receiver) State() *State { return r.state }

// Addr returns the bound address.
func (r *Receiver) Addr() net.Addr { return r.conn.LocalAddr() }

// Malformed counts discarded datagrams.
func (r *Receiver) Malformed() int64 { return r.malformed.Load() }

// Serve reads datagrams until ctx is done, then closes the socket.
func (r *Receiver) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = r.conn.Close() })
	defer stop()

	r.log.Info("telemetry receiver listening", r.log.Field().String("addr", r.Addr().String()))
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read telemetry: %w", err)
		}
		r.Handle(buf[:n])
	}
}

// Handle decodes and applies one datagram. Bad datagrams change nothing.
func (r *Receiver) Handle(b []byte) {
	m, err := wire.Decode(b)
	if err != nil {
		r.malformed.Add(1)
		r.log.Debug("discarding datagram",
			r.log.Field().Int("bytes", len(b)),
			r.log.Field().Error("error", err))
		return
	}
	r.state.Apply(m, r.clock.Now())
}

// Close releases the socket.
func (r *Receiver) Close() error {
	err := r.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
