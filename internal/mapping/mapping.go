// Package mapping quantizes distances into MIDI note numbers.
package mapping

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrDistanceRange = errors.New("distance low must be below distance high")
	ErrNoteRange     = errors.New("note range must satisfy 0 <= low <= high <= 127")
	ErrUnknownScale  = errors.New("unknown scale")
)

// Scale restricts quantized notes to a set of pitch classes.
type Scale string

const (
	Chromatic  Scale = "chromatic"
	Major      Scale = "major"
	Minor      Scale = "minor"
	Pentatonic Scale = "pentatonic"
)

var scaleSteps = map[Scale][]int{
	Chromatic:  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	Major:      {0, 2, 4, 5, 7, 9, 11},
	Minor:      {0, 2, 3, 5, 7, 8, 10},
	Pentatonic: {0, 2, 4, 7, 9},
}

// ParseScale accepts a scale name; the empty string means chromatic.
func ParseScale(s string) (Scale, error) {
	sc := Scale(strings.ToLower(strings.TrimSpace(s)))
	if sc == "" {
		return Chromatic, nil
	}
	if _, ok := scaleSteps[sc]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownScale, s)
	}
	return sc, nil
}

// Contains reports whether note belongs to the scale rooted at root.
func (s Scale) Contains(root, note int) bool {
	pc := ((note-root)%12 + 12) % 12
	for _, step := range scaleSteps[s] {
		if step == pc {
			return true
		}
	}
	return false
}

// NoteMapping is an immutable linear map from a distance band to a note
// band. With CloserIsHigher set, DistanceLow maps to NoteHigh.
type NoteMapping struct {
	DistanceLow    float64
	DistanceHigh   float64
	NoteLow        int
	NoteHigh       int
	CloserIsHigher bool
	Scale          Scale
	// Root is the pitch class (0 = C) the scale is built on.
	Root int
}

// Validate checks the bands and the scale.
func (m NoteMapping) Validate() error {
	if m.DistanceLow >= m.DistanceHigh {
		return fmt.Errorf("%w: [%v, %v]", ErrDistanceRange, m.DistanceLow, m.DistanceHigh)
	}
	if m.NoteLow < 0 || m.NoteHigh > 127 || m.NoteLow > m.NoteHigh {
		return fmt.Errorf("%w: [%d, %d]", ErrNoteRange, m.NoteLow, m.NoteHigh)
	}
	if m.Scale != "" {
		if _, ok := scaleSteps[m.Scale]; !ok {
			return fmt.Errorf("%w %q", ErrUnknownScale, m.Scale)
		}
	}
	return nil
}

// Quantize maps cm to a note in [NoteLow, NoteHigh]. It is monotonic in cm:
// non-increasing when CloserIsHigher, non-decreasing otherwise.
func (m NoteMapping) Quantize(cm float64) int {
	d := math.Min(math.Max(cm, m.DistanceLow), m.DistanceHigh)
	ratio := (d - m.DistanceLow) / (m.DistanceHigh - m.DistanceLow)
	if m.CloserIsHigher {
		ratio = 1 - ratio
	}

	f := float64(m.NoteLow) + ratio*float64(m.NoteHigh-m.NoteLow)
	n := clampInt(int(math.Floor(f+0.5)), m.NoteLow, m.NoteHigh)
	if m.Scale == "" || m.Scale == Chromatic {
		return n
	}
	return m.snapToScale(n)
}

// snapToScale moves n down to the nearest scale note, or up to the lowest
// in-band scale note when nothing in the band lies below n.
func (m NoteMapping) snapToScale(n int) int {
	for c := n; c >= m.NoteLow; c-- {
		if m.Scale.Contains(m.Root, c) {
			return c
		}
	}
	for c := m.NoteLow; c <= m.NoteHigh; c++ {
		if m.Scale.Contains(m.Root, c) {
			return c
		}
	}
	return n
}

// Snap rounds cm to the nearest multiple of step. A non-positive step
// leaves cm unchanged.
func Snap(cm, step float64) float64 {
	if step <= 0 {
		return cm
	}
	return math.Round(cm/step) * step
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
