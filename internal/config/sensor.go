package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/leandrodaf/airdaw/internal/filter"
	"github.com/leandrodaf/airdaw/internal/hit"
	"github.com/leandrodaf/airdaw/internal/sensor"
	"github.com/leandrodaf/airdaw/internal/transport"
	"go.uber.org/multierr"
)

// SensorConfig is the sensor node configuration file.
type SensorConfig struct {
	CycleHz   float64 `yaml:"cycle_hz"`
	TimeoutUS int     `yaml:"timeout_us"`
	PrintDist bool    `yaml:"print_dist"`

	Distance struct {
		MinCM float64 `yaml:"min_cm"`
		MaxCM float64 `yaml:"max_cm"`
		TempC float64 `yaml:"temp_C"`
	} `yaml:"distance"`

	Filters struct {
		MedianWindow int     `yaml:"median_window"`
		EMAAlpha     float64 `yaml:"ema_alpha"`
	} `yaml:"filters"`

	OSC struct {
		LaptopIP       string `yaml:"laptop_ip"`
		Port           int    `yaml:"port"`
		QueueSize      int    `yaml:"queue_size"`
		WriteTimeoutMS int    `yaml:"write_timeout_ms"`
	} `yaml:"osc"`

	Hit struct {
		Enabled       bool    `yaml:"enabled"`
		ThresholdCM   float64 `yaml:"threshold_cm"`
		HysteresisCM  float64 `yaml:"hysteresis_cm"`
		RefractoryS   float64 `yaml:"refractory_s"`
		VelocityMin   int     `yaml:"velocity_min"`
		VelocityMax   int     `yaml:"velocity_max"`
		MinSpeedCMS   float64 `yaml:"min_speed_cm_s"`
		MaxSpeedCMS   float64 `yaml:"max_speed_cm_s"`
		FixedVelocity int     `yaml:"fixed_velocity"`
	} `yaml:"hit"`

	Simulator struct {
		Enabled    bool      `yaml:"enabled"`
		WaveformCM []float64 `yaml:"waveform_cm"`
	} `yaml:"simulator"`

	Serial struct {
		Device string `yaml:"device"`
		Baud   int    `yaml:"baud"`
	} `yaml:"serial"`

	Logging LoggingConfig `yaml:"logging"`
}

// DefaultSensor returns the built-in sensor node defaults.
func DefaultSensor() SensorConfig {
	var c SensorConfig
	c.CycleHz = 100
	c.TimeoutUS = 30000
	c.PrintDist = true
	c.Distance.MinCM = 15
	c.Distance.MaxCM = 60
	c.Distance.TempC = 20
	c.Filters.MedianWindow = 5
	c.Filters.EMAAlpha = 0.25
	c.OSC.LaptopIP = "127.0.0.1"
	c.OSC.Port = 9000
	c.OSC.QueueSize = 64
	c.OSC.WriteTimeoutMS = 5
	c.Hit.ThresholdCM = 25
	c.Hit.HysteresisCM = 2
	c.Hit.RefractoryS = 0.2
	c.Hit.VelocityMin = 30
	c.Hit.VelocityMax = 127
	c.Hit.MinSpeedCMS = 5
	c.Hit.MaxSpeedCMS = 120
	c.Hit.FixedVelocity = 100
	c.Simulator.WaveformCM = []float64{40}
	c.Serial.Device = "/dev/ttyACM0"
	c.Serial.Baud = 115200
	c.Logging.Level = "info"
	return c
}

// LoadSensor reads path (optional) over the defaults, applies environment
// overrides and validates the result.
func LoadSensor(path string) (SensorConfig, error) {
	c := DefaultSensor()
	if err := decodeFile(path, &c); err != nil {
		return c, err
	}
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *SensorConfig) applyEnv() error {
	envString("ROUTER_HOST", &c.OSC.LaptopIP)
	envString("SERIAL_DEVICE", &c.Serial.Device)
	envString("LOG_LEVEL", &c.Logging.Level)
	return multierr.Combine(
		envInt("ROUTER_PORT", &c.OSC.Port),
		envBool("SIMULATE", &c.Simulator.Enabled),
	)
}

// Validate reports every invalid field.
func (c SensorConfig) Validate() error {
	var err error
	if c.CycleHz <= 0 {
		err = multierr.Append(err, fmt.Errorf("cycle_hz must be greater than zero (got %v)", c.CycleHz))
	}
	if c.TimeoutUS <= 0 {
		err = multierr.Append(err, fmt.Errorf("timeout_us must be greater than zero (got %d)", c.TimeoutUS))
	}
	if e := c.FilterConfig().Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("filters: %w", e))
	}
	if e := c.HitConfig().Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("hit: %w", e))
	}
	if c.OSC.LaptopIP == "" {
		err = multierr.Append(err, fmt.Errorf("osc.laptop_ip must not be empty"))
	}
	err = multierr.Append(err, inRange("osc.port", c.OSC.Port, 1, 65535))
	if c.OSC.QueueSize < 1 {
		err = multierr.Append(err, fmt.Errorf("osc.queue_size must be at least 1 (got %d)", c.OSC.QueueSize))
	}
	if c.OSC.WriteTimeoutMS < 0 {
		err = multierr.Append(err, fmt.Errorf("osc.write_timeout_ms must not be negative"))
	}
	if c.Simulator.Enabled {
		for _, cm := range c.Simulator.WaveformCM {
			if cm <= 0 {
				err = multierr.Append(err, fmt.Errorf("simulator.waveform_cm values must be positive (got %v)", cm))
				break
			}
		}
	} else {
		if c.Serial.Device == "" {
			err = multierr.Append(err, fmt.Errorf("serial.device must be set when the simulator is off"))
		}
		if c.Serial.Baud <= 0 {
			err = multierr.Append(err, fmt.Errorf("serial.baud must be positive (got %d)", c.Serial.Baud))
		}
	}
	return multierr.Append(err, c.Logging.validate())
}

// Period is the acquisition cycle length.
func (c SensorConfig) Period() time.Duration {
	return time.Duration(float64(time.Second) / c.CycleHz)
}

// FilterConfig builds the filter pipeline configuration.
func (c SensorConfig) FilterConfig() filter.Config {
	return filter.Config{
		MedianWindow: c.Filters.MedianWindow,
		Alpha:        c.Filters.EMAAlpha,
		MinCM:        c.Distance.MinCM,
		MaxCM:        c.Distance.MaxCM,
	}
}

// HitConfig builds the hit detector configuration.
func (c SensorConfig) HitConfig() hit.Config {
	return hit.Config{
		Enabled:       c.Hit.Enabled,
		ThresholdCM:   c.Hit.ThresholdCM,
		HysteresisCM:  c.Hit.HysteresisCM,
		Refractory:    seconds(c.Hit.RefractoryS),
		VelocityMin:   c.Hit.VelocityMin,
		VelocityMax:   c.Hit.VelocityMax,
		MinSpeed:      c.Hit.MinSpeedCMS,
		MaxSpeed:      c.Hit.MaxSpeedCMS,
		FixedVelocity: c.Hit.FixedVelocity,
	}
}

// TransportOptions builds the telemetry sender options.
func (c SensorConfig) TransportOptions() transport.Options {
	return transport.Options{
		Addr:         net.JoinHostPort(c.OSC.LaptopIP, strconv.Itoa(c.OSC.Port)),
		QueueSize:    c.OSC.QueueSize,
		WriteTimeout: time.Duration(c.OSC.WriteTimeoutMS) * time.Millisecond,
	}
}

// SerialConfig builds the serial acquisition configuration.
func (c SensorConfig) SerialConfig() sensor.SerialConfig {
	return sensor.SerialConfig{
		Device:       c.Serial.Device,
		Baud:         c.Serial.Baud,
		Timeout:      time.Duration(c.TimeoutUS) * time.Microsecond,
		TemperatureC: c.Distance.TempC,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
