// Package filter turns raw ultrasonic echo timings into a smoothed distance.
//
// Each sample goes through three stages: a median over the most recent
// samples, an exponential moving average, and a clamp to the usable range.
package filter

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// Speed of sound in dry air: 331.3 m/s at 0 °C plus 0.606 m/s per °C.
const (
	speedOfSoundAtZero = 331.3
	speedOfSoundPerC   = 0.606
)

var (
	ErrInvalidWindow = errors.New("median window must be greater than zero")
	ErrInvalidAlpha  = errors.New("ema alpha must be between 0 and 1")
	ErrInvalidRange  = errors.New("min distance must be below max distance")
)

// Config holds the filter parameters.
type Config struct {
	MedianWindow int
	// Alpha weights the newest median. Zero disables smoothing.
	Alpha float64
	MinCM float64
	MaxCM float64
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if c.MedianWindow <= 0 {
		return ErrInvalidWindow
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidAlpha, c.Alpha)
	}
	if c.MinCM >= c.MaxCM {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, c.MinCM, c.MaxCM)
	}
	return nil
}

// SpeedOfSound returns the speed of sound in m/s at tempC.
func SpeedOfSound(tempC float64) float64 {
	return speedOfSoundAtZero + speedOfSoundPerC*tempC
}

// EchoToCentimeters converts a round-trip echo duration into a one-way
// distance. It reports false for non-positive durations.
func EchoToCentimeters(echo time.Duration, tempC float64) (float64, bool) {
	if echo <= 0 {
		return 0, false
	}
	meters := echo.Seconds() * SpeedOfSound(tempC) / 2
	return meters * 100, true
}

// CentimetersToEcho is the inverse of EchoToCentimeters, used by simulators.
func CentimetersToEcho(cm, tempC float64) time.Duration {
	seconds := (cm / 100) * 2 / SpeedOfSound(tempC)
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

// Pipeline is the stateful median → EMA → clamp chain. It is not safe for
// concurrent use; the acquisition loop owns it.
type Pipeline struct {
	cfg Config

	ring    []float64
	head    int
	count   int
	scratch []float64

	ema    float64
	seeded bool
	last   float64
}

// New creates a pipeline with an empty history.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:     cfg,
		ring:    make([]float64, cfg.MedianWindow),
		scratch: make([]float64, 0, cfg.MedianWindow),
	}, nil
}

// Process converts and filters one echo. It reports false, leaving the
// history untouched, when the echo is unusable.
func (p *Pipeline) Process(echo time.Duration, tempC float64) (float64, bool) {
	cm, ok := EchoToCentimeters(echo, tempC)
	if !ok {
		return 0, false
	}
	return p.Push(cm), true
}

// Push feeds one raw centimetre value and returns the filtered distance.
func (p *Pipeline) Push(cm float64) float64 {
	p.ring[p.head] = cm
	p.head = (p.head + 1) % len(p.ring)
	if p.count < len(p.ring) {
		p.count++
	}

	m := p.median()
	v := m
	if p.cfg.Alpha > 0 {
		if !p.seeded {
			p.ema = m
			p.seeded = true
		} else {
			p.ema = p.cfg.Alpha*m + (1-p.cfg.Alpha)*p.ema
		}
		v = p.ema
	}
	p.last = clamp(v, p.cfg.MinCM, p.cfg.MaxCM)
	return p.last
}

// Last returns the most recent filtered distance and whether one exists.
func (p *Pipeline) Last() (float64, bool) {
	return p.last, p.count > 0
}

// median of whatever is buffered; correct before the ring fills.
func (p *Pipeline) median() float64 {
	p.scratch = append(p.scratch[:0], p.ring[:p.count]...)
	slices.Sort(p.scratch)
	n := len(p.scratch)
	if n%2 == 1 {
		return p.scratch[n/2]
	}
	return (p.scratch[n/2-1] + p.scratch[n/2]) / 2
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
