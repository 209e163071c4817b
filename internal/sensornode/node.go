// Package sensornode runs the acquisition loop: read echo, filter, detect
// hits, publish telemetry.
package sensornode

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/leandrodaf/airdaw/internal/clock"
	"github.com/leandrodaf/airdaw/internal/filter"
	"github.com/leandrodaf/airdaw/internal/hit"
	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/internal/sensor"
	"github.com/leandrodaf/airdaw/internal/ticker"
	"github.com/leandrodaf/airdaw/internal/transport"
	"github.com/leandrodaf/airdaw/internal/wire"
	"github.com/leandrodaf/airdaw/sdk/contracts"
)

const aliveInterval = time.Second

// Publisher accepts outbound telemetry without blocking.
type Publisher interface {
	Publish(m wire.Message) transport.Outcome
}

// Node wires one sensor to one publisher. All of its state is owned by the
// goroutine calling Cycle.
type Node struct {
	source   sensor.Source
	pipeline *filter.Pipeline
	detector *hit.Detector
	out      Publisher
	log      contracts.Logger

	// PrintDist, when set, receives one line per published distance.
	PrintDist io.Writer

	triggerErr *logger.Throttle
	nextAlive  time.Time
	aliveSeq   int64
}

// New builds a node. The detector may be disabled but not nil.
func New(src sensor.Source, p *filter.Pipeline, d *hit.Detector, out Publisher, log contracts.Logger) *Node {
	return &Node{
		source:     src,
		pipeline:   p,
		detector:   d,
		out:        out,
		log:        log,
		triggerErr: logger.NewThrottle(time.Second),
	}
}

// AliveSeq returns the last heartbeat sequence sent.
func (n *Node) AliveSeq() int64 { return n.aliveSeq }

// Cycle performs one acquisition step at instant now.
func (n *Node) Cycle(now time.Time) {
	if n.nextAlive.IsZero() {
		n.nextAlive = now.Add(aliveInterval)
	}

	if smp, ok := n.source.ReadEcho(); ok {
		n.pipeline.Process(smp.Echo, smp.TemperatureC)
	}

	if cm, ok := n.pipeline.Last(); ok {
		n.out.Publish(wire.Dist(cm))
		if n.PrintDist != nil {
			fmt.Fprintf(n.PrintDist, "dist_cm=%.2f\n", cm)
		}
		if ev, fired := n.detector.Observe(cm, now); fired {
			n.out.Publish(wire.Hit(ev.Velocity))
			n.log.Info("hit",
				n.log.Field().Float64("cm", cm),
				n.log.Field().Int("velocity", ev.Velocity))
		}
	}

	for !now.Before(n.nextAlive) {
		n.aliveSeq++
		n.out.Publish(wire.Alive(n.aliveSeq))
		n.log.Debug("alive", n.log.Field().Int64("seq", n.aliveSeq))
		n.nextAlive = n.nextAlive.Add(aliveInterval)
	}

	if err := n.source.Trigger(); err != nil {
		n.triggerErr.Warn(n.log, "sensor trigger failed", n.log.Field().Error("error", err))
	}
}

// Run triggers the first measurement and cycles at the given period until
// ctx is done.
func (n *Node) Run(ctx context.Context, c clock.Clock, period time.Duration) error {
	if err := n.source.Trigger(); err != nil {
		return fmt.Errorf("initial trigger: %w", err)
	}
	n.log.Info("sensor node started", n.log.Field().Duration("period", period))
	defer n.log.Info("sensor node stopped", n.log.Field().Int64("alive_seq", n.aliveSeq))
	return ticker.Run(ctx, c, period, n.Cycle)
}
