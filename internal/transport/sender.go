package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/internal/wire"
	"github.com/leandrodaf/airdaw/sdk/contracts"
)

const (
	defaultWriteTimeout = 5 * time.Millisecond
	defaultLogInterval  = time.Second
)

// Options configures a Transport.
type Options struct {
	// Addr is the router's host:port.
	Addr         string
	QueueSize    int
	WriteTimeout time.Duration
	// LogInterval bounds how often overflow and send errors are logged.
	LogInterval time.Duration
}

// Transport owns the outbound queue and the goroutine that drains it into a
// datagram connection.
type Transport struct {
	queue        *Queue
	conn         net.Conn
	log          contracts.Logger
	writeTimeout time.Duration

	overflow  *logger.Throttle
	dropped   *logger.Throttle
	sendError *logger.Throttle
}

// Dial opens a UDP socket towards opts.Addr.
func Dial(opts Options, log contracts.Logger) (*Transport, error) {
	conn, err := net.Dial("udp", opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial telemetry %s: %w", opts.Addr, err)
	}
	return New(conn, opts, log), nil
}

// New wraps an already connected socket.
func New(conn net.Conn, opts Options, log contracts.Logger) *Transport {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.LogInterval <= 0 {
		opts.LogInterval = defaultLogInterval
	}
	return &Transport{
		queue:        NewQueue(opts.QueueSize),
		conn:         conn,
		log:          log,
		writeTimeout: opts.WriteTimeout,
		overflow:     logger.NewThrottle(opts.LogInterval),
		dropped:      logger.NewThrottle(opts.LogInterval),
		sendError:    logger.NewThrottle(opts.LogInterval),
	}
}

// Queue exposes the outbound queue.
func (t *Transport) Queue() *Queue { return t.queue }

// Publish enqueues m without blocking.
func (t *Transport) Publish(m wire.Message) Outcome {
	outcome := t.queue.Enqueue(m)
	switch {
	case outcome == EvictedDist:
		t.overflow.Warn(t.log, "telemetry queue full, evicted oldest dist",
			t.log.Field().String("incoming", m.Kind.String()))
	case outcome == DroppedIncoming && m.Kind == wire.KindDist:
		t.overflow.Warn(t.log, "telemetry queue full, dropped dist")
	case outcome == DroppedIncoming:
		t.dropped.Warn(t.log, "telemetry queue full of priority messages, dropped message",
			t.log.Field().String("message", m.String()))
	}
	return outcome
}

// Run drains the queue until ctx is done. Each write carries a short
// deadline so a stalled socket delays only the sender.
func (t *Transport) Run(ctx context.Context) error {
	for {
		m, err := t.queue.Wait(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		t.send(m)
	}
}

func (t *Transport) send(m wire.Message) {
	b, err := wire.Encode(m)
	if err != nil {
		t.log.Error("encode telemetry", t.log.Field().Error("error", err))
		return
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		t.sendError.Warn(t.log, "set write deadline", t.log.Field().Error("error", err))
	}
	if _, err := t.conn.Write(b); err != nil {
		t.sendError.Warn(t.log, "send telemetry",
			t.log.Field().String("message", m.String()),
			t.log.Field().Error("error", err))
	}
}

// Close stops accepting messages and releases the socket.
func (t *Transport) Close() error {
	t.queue.Close()
	return t.conn.Close()
}
