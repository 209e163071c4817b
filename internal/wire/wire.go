// Package wire encodes sensor telemetry as OSC 1.0 messages.
//
//	/dist  f  distance in centimetres
//	/hit   i  velocity 0..127
//	/alive i  heartbeat sequence
package wire

import (
	"errors"
	"fmt"
	"math"

	"github.com/hypebeast/go-osc/osc"
)

const (
	AddressDist  = "/dist"
	AddressHit   = "/hit"
	AddressAlive = "/alive"
)

var (
	ErrMalformed      = errors.New("malformed telemetry message")
	ErrUnknownAddress = errors.New("unknown telemetry address")
)

// Kind tags a Message.
type Kind uint8

const (
	KindDist Kind = iota + 1
	KindHit
	KindAlive
)

func (k Kind) String() string {
	switch k {
	case KindDist:
		return "dist"
	case KindHit:
		return "hit"
	case KindAlive:
		return "alive"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Message is the tagged union exchanged between nodes. Only the field
// matching Kind is meaningful.
type Message struct {
	Kind     Kind
	Distance float32
	Velocity int32
	Seq      int32
}

// Dist builds a distance report.
func Dist(cm float64) Message {
	return Message{Kind: KindDist, Distance: float32(cm)}
}

// Hit builds a strike report; velocity is clamped to 0..127.
func Hit(velocity int) Message {
	return Message{Kind: KindHit, Velocity: int32(clampVelocity(int64(velocity)))}
}

// Alive builds a heartbeat.
func Alive(seq int64) Message {
	return Message{Kind: KindAlive, Seq: int32(seq)}
}

func (m Message) String() string {
	return m.Kind.String() + " " + m.value()
}

func (m Message) value() string {
	switch m.Kind {
	case KindDist:
		return fmt.Sprintf("%.2f", m.Distance)
	case KindHit:
		return fmt.Sprint(m.Velocity)
	default:
		return fmt.Sprint(m.Seq)
	}
}

// Encode renders m as an OSC datagram.
func Encode(m Message) ([]byte, error) {
	var msg *osc.Message
	switch m.Kind {
	case KindDist:
		msg = osc.NewMessage(AddressDist, m.Distance)
	case KindHit:
		msg = osc.NewMessage(AddressHit, int32(clampVelocity(int64(m.Velocity))))
	case KindAlive:
		msg = osc.NewMessage(AddressAlive, m.Seq)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, m.Kind)
	}
	return msg.MarshalBinary()
}

// Decode parses one datagram. Bundles, unknown addresses and arguments of
// the wrong shape are rejected; numeric arguments are accepted in any OSC
// numeric encoding.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return Message{}, fmt.Errorf("%w: empty datagram", ErrMalformed)
	}
	pkt, err := osc.ParsePacket(string(b))
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	msg, ok := pkt.(*osc.Message)
	if !ok {
		return Message{}, fmt.Errorf("%w: bundles are not supported", ErrMalformed)
	}
	if len(msg.Arguments) != 1 {
		return Message{}, fmt.Errorf("%w: %s expects one argument, got %d", ErrMalformed, msg.Address, len(msg.Arguments))
	}

	arg := msg.Arguments[0]
	switch msg.Address {
	case AddressDist:
		f, ok := asFloat(arg)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return Message{}, fmt.Errorf("%w: %s argument %v", ErrMalformed, msg.Address, arg)
		}
		return Message{Kind: KindDist, Distance: float32(f)}, nil
	case AddressHit:
		n, ok := asInt(arg)
		if !ok {
			return Message{}, fmt.Errorf("%w: %s argument %v", ErrMalformed, msg.Address, arg)
		}
		return Message{Kind: KindHit, Velocity: int32(clampVelocity(n))}, nil
	case AddressAlive:
		n, ok := asInt(arg)
		if !ok {
			return Message{}, fmt.Errorf("%w: %s argument %v", ErrMalformed, msg.Address, arg)
		}
		return Message{Kind: KindAlive, Seq: int32(n)}, nil
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownAddress, msg.Address)
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func asInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float32:
		return int64(math.Round(float64(x))), true
	case float64:
		return int64(math.Round(x)), true
	}
	return 0, false
}

func clampVelocity(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}
