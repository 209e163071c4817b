package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawConfig() Config {
	return Config{MedianWindow: 3, Alpha: 0, MinCM: 0, MaxCM: 1000}
}

func TestEchoToCentimeters(t *testing.T) {
	cm, ok := EchoToCentimeters(1000*time.Microsecond, 20)
	require.True(t, ok)
	assert.InDelta(t, 17.171, cm, 1e-9)

	cm, ok = EchoToCentimeters(1000*time.Microsecond, 0)
	require.True(t, ok)
	assert.InDelta(t, 16.565, cm, 1e-9)
}

func TestEchoToCentimeters_RejectsNonPositive(t *testing.T) {
	_, ok := EchoToCentimeters(0, 20)
	assert.False(t, ok)
	_, ok = EchoToCentimeters(-time.Microsecond, 20)
	assert.False(t, ok)
}

func TestCentimetersToEcho_RoundTrip(t *testing.T) {
	for _, cm := range []float64{15, 40, 60} {
		echo := CentimetersToEcho(cm, 22)
		back, ok := EchoToCentimeters(echo, 22)
		require.True(t, ok)
		// One nanosecond of echo is about 1.7e-5 cm.
		assert.InDelta(t, cm, back, 1e-4)
	}
}

func TestCentimetersToEcho_RoundsToNearestNanosecond(t *testing.T) {
	for _, cm := range []float64{15, 40, 60} {
		exact := (cm / 100) * 2 / SpeedOfSound(22) * float64(time.Second)
		assert.InDelta(t, exact, float64(CentimetersToEcho(cm, 22)), 0.5)
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, Config{MedianWindow: 0, MinCM: 1, MaxCM: 2}.Validate(), ErrInvalidWindow)
	assert.ErrorIs(t, Config{MedianWindow: 1, Alpha: 1.5, MinCM: 1, MaxCM: 2}.Validate(), ErrInvalidAlpha)
	assert.ErrorIs(t, Config{MedianWindow: 1, MinCM: 2, MaxCM: 2}.Validate(), ErrInvalidRange)
	assert.NoError(t, rawConfig().Validate())
}

func TestPipeline_MedianBeforeBufferFills(t *testing.T) {
	p, err := New(rawConfig())
	require.NoError(t, err)

	_, ok := p.Last()
	assert.False(t, ok)

	assert.Equal(t, 10.0, p.Push(10))
	assert.Equal(t, 20.0, p.Push(30), "median of two samples is their mean")
	assert.Equal(t, 20.0, p.Push(20))
}

func TestPipeline_MedianRejectsSpike(t *testing.T) {
	p, err := New(rawConfig())
	require.NoError(t, err)

	for _, v := range []float64{40, 41, 400, 42} {
		p.Push(v)
	}
	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, 42.0, last, "window [41 400 42] has median 42")
}

func TestPipeline_EMASeededWithFirstMedian(t *testing.T) {
	cfg := Config{MedianWindow: 1, Alpha: 0.25, MinCM: 0, MaxCM: 1000}
	p, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, 40.0, p.Push(40))
	assert.InDelta(t, 0.25*60+0.75*40, p.Push(60), 1e-9)
	assert.InDelta(t, 0.25*60+0.75*45, p.Push(60), 1e-9)
}

func TestPipeline_Clamps(t *testing.T) {
	p, err := New(Config{MedianWindow: 1, MinCM: 15, MaxCM: 60})
	require.NoError(t, err)

	assert.Equal(t, 15.0, p.Push(3))
	assert.Equal(t, 60.0, p.Push(300))
	assert.Equal(t, 33.0, p.Push(33))
}

func TestPipeline_ProcessSkipsInvalidEcho(t *testing.T) {
	p, err := New(rawConfig())
	require.NoError(t, err)

	_, ok := p.Process(0, 20)
	assert.False(t, ok)
	_, ok = p.Last()
	assert.False(t, ok, "rejected echo must not enter the history")

	cm, ok := p.Process(CentimetersToEcho(40, 20), 20)
	require.True(t, ok)
	assert.InDelta(t, 40, cm, 1e-6)
}
