// Package sensor acquires ultrasonic echo timings.
//
// Acquisition is split in two so the fixed-rate loop never waits on the
// echo: Trigger starts a measurement at the end of one cycle and ReadEcho
// collects it, if it completed, at the start of the next.
package sensor

import (
	"time"

	"github.com/leandrodaf/airdaw/internal/filter"
)

// Sample is one completed echo measurement.
type Sample struct {
	Echo         time.Duration
	TemperatureC float64
	CapturedAt   time.Time
}

// Source is an echo sensor.
type Source interface {
	// Trigger starts a measurement. It must not block.
	Trigger() error
	// ReadEcho consumes the most recent completed measurement. It reports
	// false when none completed since the previous call (timeout or
	// measurement still in flight).
	ReadEcho() (Sample, bool)
	Close() error
}

// SimSource replays a fixed waveform of distances, one per trigger.
type SimSource struct {
	waveform     []float64
	temperatureC float64
	now          func() time.Time

	pos     int
	pending *Sample
}

// NewSim returns a simulator cycling through waveformCM. An empty waveform
// holds 40 cm.
func NewSim(waveformCM []float64, temperatureC float64, now func() time.Time) *SimSource {
	if len(waveformCM) == 0 {
		waveformCM = []float64{40}
	}
	if now == nil {
		now = time.Now
	}
	return &SimSource{
		waveform:     append([]float64(nil), waveformCM...),
		temperatureC: temperatureC,
		now:          now,
	}
}

func (s *SimSource) Trigger() error {
	cm := s.waveform[s.pos]
	s.pos = (s.pos + 1) % len(s.waveform)

	echo := filter.CentimetersToEcho(cm, s.temperatureC).Round(time.Microsecond)
	s.pending = &Sample{Echo: echo, TemperatureC: s.temperatureC, CapturedAt: s.now()}
	return nil
}

func (s *SimSource) ReadEcho() (Sample, bool) {
	if s.pending == nil {
		return Sample{}, false
	}
	smp := *s.pending
	s.pending = nil
	return smp, true
}

func (s *SimSource) Close() error { return nil }
