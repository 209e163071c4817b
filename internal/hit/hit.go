// Package hit detects percussion strikes in a filtered distance stream.
package hit

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidHysteresis = errors.New("hysteresis must not be negative")
	ErrInvalidVelocity   = errors.New("velocity bounds must satisfy 0 <= min <= max <= 127")
	ErrInvalidSpeed      = errors.New("min approach speed must be below max approach speed")
)

// Config holds the detector parameters. Distances are in centimetres and
// speeds in centimetres per second.
type Config struct {
	Enabled       bool
	ThresholdCM   float64
	HysteresisCM  float64
	Refractory    time.Duration
	VelocityMin   int
	VelocityMax   int
	MinSpeed      float64
	MaxSpeed      float64
	FixedVelocity int
}

// Validate checks the parameters. A disabled detector is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.HysteresisCM < 0 {
		return ErrInvalidHysteresis
	}
	if c.VelocityMin < 0 || c.VelocityMax > 127 || c.VelocityMin > c.VelocityMax {
		return ErrInvalidVelocity
	}
	if c.FixedVelocity < 0 || c.FixedVelocity > 127 {
		return ErrInvalidVelocity
	}
	if c.MinSpeed >= c.MaxSpeed {
		return ErrInvalidSpeed
	}
	return nil
}

// Event is one detected strike.
type Event struct {
	Velocity int
	At       time.Time
}

// Detector is a two-state (armed, refractory) edge detector with hysteresis.
// It is owned by the acquisition loop and is not safe for concurrent use.
type Detector struct {
	cfg Config

	armed   bool
	fired   bool
	lastHit time.Time

	prevCM  float64
	prevAt  time.Time
	hasPrev bool
}

// New returns an armed detector.
func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, armed: true}, nil
}

// Enabled reports whether the detector consumes distances at all.
func (d *Detector) Enabled() bool { return d.cfg.Enabled }

// Armed reports whether the next crossing can fire.
func (d *Detector) Armed() bool { return d.armed }

// Observe feeds one filtered distance taken at the given instant.
func (d *Detector) Observe(cm float64, at time.Time) (Event, bool) {
	if !d.cfg.Enabled {
		return Event{}, false
	}

	var (
		ev    Event
		fired bool
	)
	if d.armed && cm < d.cfg.ThresholdCM-d.cfg.HysteresisCM && d.refractoryElapsed(at) {
		ev = Event{Velocity: d.velocity(cm, at), At: at}
		fired = true
		d.armed = false
		d.fired = true
		d.lastHit = at
	}
	if !d.armed && cm > d.cfg.ThresholdCM+d.cfg.HysteresisCM {
		d.armed = true
	}

	d.prevCM, d.prevAt, d.hasPrev = cm, at, true
	return ev, fired
}

func (d *Detector) refractoryElapsed(at time.Time) bool {
	return !d.fired || at.Sub(d.lastHit) >= d.cfg.Refractory
}

func (d *Detector) velocity(cm float64, at time.Time) int {
	if !d.hasPrev {
		return d.cfg.FixedVelocity
	}
	dt := at.Sub(d.prevAt).Seconds()
	if dt <= 0 {
		return d.cfg.FixedVelocity
	}

	speed := math.Max(0, (d.prevCM-cm)/dt)
	switch {
	case speed <= d.cfg.MinSpeed:
		return d.cfg.VelocityMin
	case speed >= d.cfg.MaxSpeed:
		return d.cfg.VelocityMax
	}
	ratio := (speed - d.cfg.MinSpeed) / (d.cfg.MaxSpeed - d.cfg.MinSpeed)
	v := float64(d.cfg.VelocityMin) + ratio*float64(d.cfg.VelocityMax-d.cfg.VelocityMin)
	return int(math.Round(v))
}
