package hit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

func testConfig() Config {
	return Config{
		Enabled:       true,
		ThresholdCM:   20,
		HysteresisCM:  2,
		Refractory:    200 * time.Millisecond,
		VelocityMin:   30,
		VelocityMax:   120,
		MinSpeed:      5,
		MaxSpeed:      100,
		FixedVelocity: 90,
	}
}

func at(ms int) time.Time { return epoch.Add(time.Duration(ms) * time.Millisecond) }

func TestDetector_HysteresisFiresOnce(t *testing.T) {
	d, err := New(testConfig())
	require.NoError(t, err)

	var fired []int
	for i, cm := range []float64{25, 19, 17, 19, 17} {
		if _, ok := d.Observe(cm, at(i*300)); ok {
			fired = append(fired, i)
		}
	}

	assert.Equal(t, []int{2}, fired, "distance never rises above 22cm, so only the first sub-18 crossing fires")
	assert.False(t, d.Armed())
}

func TestDetector_RearmsAboveUpperBound(t *testing.T) {
	cfg := testConfig()
	cfg.ThresholdCM = 30
	d, err := New(cfg)
	require.NoError(t, err)

	samples := []struct {
		cm   float64
		ms   int
		fire bool
	}{
		{35, 0, false},
		{28, 50, false},
		{27, 100, true},
		{29, 150, false},
		{33, 350, false},
		{27, 400, true},
	}
	for _, s := range samples {
		_, ok := d.Observe(s.cm, at(s.ms))
		assert.Equal(t, s.fire, ok, "sample %v at %dms", s.cm, s.ms)
	}
}

func TestDetector_RefractoryBlocksRearmedCrossing(t *testing.T) {
	cfg := testConfig()
	cfg.ThresholdCM = 30
	cfg.HysteresisCM = 1
	cfg.Refractory = 500 * time.Millisecond
	d, err := New(cfg)
	require.NoError(t, err)

	_, ok := d.Observe(28, at(100))
	require.True(t, ok)

	_, ok = d.Observe(27, at(300))
	assert.False(t, ok, "not armed")

	d.Observe(32, at(350))
	require.True(t, d.Armed())

	_, ok = d.Observe(27, at(400))
	assert.False(t, ok, "armed but inside the refractory interval")

	_, ok = d.Observe(27, at(700))
	assert.True(t, ok)
}

func TestDetector_VelocityFromApproachSpeed(t *testing.T) {
	d, err := New(testConfig())
	require.NoError(t, err)

	// 40 -> 20 in 100ms is 200 cm/s, above MaxSpeed.
	d.Observe(40, at(0))
	ev, ok := d.Observe(17, at(100))
	require.True(t, ok)
	assert.Equal(t, 120, ev.Velocity)
	assert.Equal(t, at(100), ev.At)
}

func TestDetector_VelocityInterpolates(t *testing.T) {
	d, err := New(testConfig())
	require.NoError(t, err)

	// 52.5 cm/s sits halfway between 5 and 100: 30 + 0.5*90 = 75.
	d.Observe(22.25, at(0))
	ev, ok := d.Observe(17, at(100))
	require.True(t, ok)
	assert.Equal(t, 75, ev.Velocity)
}

func TestDetector_SlowApproachUsesMinimum(t *testing.T) {
	d, err := New(testConfig())
	require.NoError(t, err)

	d.Observe(18.1, at(0))
	ev, ok := d.Observe(17.9, at(100))
	require.True(t, ok)
	assert.Equal(t, 30, ev.Velocity)
}

func TestDetector_FixedVelocityWithoutHistory(t *testing.T) {
	d, err := New(testConfig())
	require.NoError(t, err)

	ev, ok := d.Observe(10, at(0))
	require.True(t, ok)
	assert.Equal(t, 90, ev.Velocity)
}

func TestDetector_DisabledNeverFires(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	d, err := New(cfg)
	require.NoError(t, err)

	for i, cm := range []float64{25, 10, 30, 5} {
		_, ok := d.Observe(cm, at(i*500))
		assert.False(t, ok)
	}
	assert.False(t, d.Enabled())
	assert.False(t, d.hasPrev, "disabled detector keeps no history")
}

func TestConfig_Validate(t *testing.T) {
	cfg := testConfig()
	cfg.VelocityMax = 200
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidVelocity)

	cfg = testConfig()
	cfg.MinSpeed = 100
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidSpeed)

	cfg = testConfig()
	cfg.HysteresisCM = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidHysteresis)

	assert.NoError(t, Config{}.Validate(), "disabled detector skips validation")
}
