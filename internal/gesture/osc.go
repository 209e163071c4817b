package gesture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/leandrodaf/airdaw/sdk/contracts"
)

// AddressGesture is the OSC address an external classifier reports on:
//
//	/gesture s:instrument s:mode i:recording i:note_active
const AddressGesture = "/gesture"

var ErrBadGesture = errors.New("malformed gesture message")

type stamped struct {
	snap contracts.GestureSnapshot
	at   time.Time
}

// OSCProvider receives snapshots pushed by a classifier process over UDP.
type OSCProvider struct {
	conn  net.PacketConn
	log   contracts.Logger
	now   func() time.Time
	stale time.Duration

	latest atomic.Pointer[stamped]
}

// ListenOSC binds addr. Snapshots older than stale are reported as errors;
// zero disables the check.
func ListenOSC(addr string, stale time.Duration, log contracts.Logger) (*OSCProvider, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen gesture %s: %w", addr, err)
	}
	return NewOSC(conn, stale, log, time.Now), nil
}

// NewOSC wraps an open socket.
func NewOSC(conn net.PacketConn, stale time.Duration, log contracts.Logger, now func() time.Time) *OSCProvider {
	return &OSCProvider{conn: conn, log: log, now: now, stale: stale}
}

// Addr returns the bound address.
func (o *OSCProvider) Addr() net.Addr { return o.conn.LocalAddr() }

// Snapshot returns the most recent report.
func (o *OSCProvider) Snapshot() (contracts.GestureSnapshot, error) {
	s := o.latest.Load()
	if s == nil {
		return contracts.GestureSnapshot{}, ErrNoSnapshot
	}
	if o.stale > 0 {
		if age := o.now().Sub(s.at); age > o.stale {
			return contracts.GestureSnapshot{}, fmt.Errorf("gesture snapshot is %s old", age)
		}
	}
	return s.snap, nil
}

// Serve reads reports until ctx is done.
func (o *OSCProvider) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = o.conn.Close() })
	defer stop()

	buf := make([]byte, 1024)
	for {
		n, _, err := o.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read gesture: %w", err)
		}
		snap, err := DecodeGesture(buf[:n])
		if err != nil {
			o.log.Debug("discarding gesture datagram", o.log.Field().Error("error", err))
			continue
		}
		o.latest.Store(&stamped{snap: snap, at: o.now()})
	}
}

// Close releases the socket.
func (o *OSCProvider) Close() error {
	err := o.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// EncodeGesture renders a snapshot as a /gesture message.
func EncodeGesture(s contracts.GestureSnapshot) ([]byte, error) {
	return osc.NewMessage(AddressGesture, s.Instrument, string(s.Mode), boolArg(s.Recording), boolArg(s.NoteActive)).MarshalBinary()
}

// DecodeGesture parses a /gesture message. Flags may be sent as ints or
// OSC booleans.
func DecodeGesture(b []byte) (contracts.GestureSnapshot, error) {
	if len(b) == 0 {
		return contracts.GestureSnapshot{}, ErrBadGesture
	}
	pkt, err := osc.ParsePacket(string(b))
	if err != nil {
		return contracts.GestureSnapshot{}, fmt.Errorf("%w: %v", ErrBadGesture, err)
	}
	msg, ok := pkt.(*osc.Message)
	if !ok || msg.Address != AddressGesture || len(msg.Arguments) != 4 {
		return contracts.GestureSnapshot{}, ErrBadGesture
	}

	inst, ok1 := msg.Arguments[0].(string)
	mode, ok2 := msg.Arguments[1].(string)
	rec, ok3 := flagArg(msg.Arguments[2])
	active, ok4 := flagArg(msg.Arguments[3])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return contracts.GestureSnapshot{}, fmt.Errorf("%w: argument types %v", ErrBadGesture, msg.Arguments)
	}
	return contracts.GestureSnapshot{
		Instrument: inst,
		Mode:       contracts.Mode(mode),
		Recording:  rec,
		NoteActive: active,
	}, nil
}

func boolArg(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func flagArg(v interface{}) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case int32:
		return x != 0, true
	case int64:
		return x != 0, true
	}
	return false, false
}
