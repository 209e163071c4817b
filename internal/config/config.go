// Package config loads the sensor and router YAML files, applies
// environment overrides and converts the result into component configs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/sdk/contracts"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every recognised environment variable.
const EnvPrefix = "AIRDAW_"

// LoggingConfig selects log level and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Options converts the section into logger options.
func (l LoggingConfig) Options() (logger.Options, error) {
	level, err := contracts.ParseLogLevel(l.Level)
	if err != nil {
		return logger.Options{}, err
	}
	return logger.Options{Level: level, Format: l.Format}, nil
}

func (l LoggingConfig) validate() error {
	var err error
	if _, e := contracts.ParseLogLevel(l.Level); e != nil {
		err = multierr.Append(err, fmt.Errorf("logging.level: %w", e))
	}
	switch l.Format {
	case "", "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.format: unknown format %q", l.Format))
	}
	return err
}

// LoadEnv reads a dotenv file into the process environment. A missing file
// is not an error unless the path was given explicitly.
func LoadEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// decodeFile merges the YAML at path over dst. Unknown keys are rejected.
func decodeFile(path string, dst interface{}) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(data, dst)
}

func decode(data []byte, dst interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// envLookup is swapped in tests.
var envLookup = os.LookupEnv

func envString(name string, dst *string) {
	if v, ok := envLookup(EnvPrefix + name); ok && v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) error {
	v, ok := envLookup(EnvPrefix + name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = n
	return nil
}

func envBool(name string, dst *bool) error {
	v, ok := envLookup(EnvPrefix + name)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = b
	return nil
}

func inRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be between %d and %d (got %d)", name, lo, hi, v)
	}
	return nil
}
