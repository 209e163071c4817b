package logger

import (
	"fmt"
	"time"

	"github.com/leandrodaf/airdaw/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoder and initial level of a ZapLogger.
type Options struct {
	Level  contracts.LogLevel
	Format string // "json" (default) or "console"
}

// ZapLogger implements contracts.Logger on top of zap.
type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

// NewZapLogger creates a production JSON logger at info level.
func NewZapLogger() contracts.Logger {
	l, err := New(Options{Level: contracts.InfoLevel})
	if err != nil {
		// Building the default config cannot fail short of a broken stderr.
		return NewNop()
	}
	return l
}

// New builds a ZapLogger writing to stderr.
func New(opts Options) (*ZapLogger, error) {
	level := zap.NewAtomicLevelAt(zapcore.Level(opts.Level))

	var cfg zap.Config
	switch opts.Format {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	cfg.Level = level
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// Sampling would hide edge-triggered events; throttling is explicit instead.
	cfg.Sampling = nil

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &ZapLogger{logger: base, level: level}, nil
}

// NewWithCore wraps an existing core, mainly for tests with zaptest/observer.
func NewWithCore(core zapcore.Core, level zap.AtomicLevel) *ZapLogger {
	return &ZapLogger{logger: zap.New(core), level: level}
}

// NewNop returns a logger that discards everything.
func NewNop() *ZapLogger {
	return NewWithCore(zapcore.NewNopCore(), zap.NewAtomicLevel())
}

// Debug logs a message at the DEBUG level.
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.logger.Debug(msg, toZap(fields)...)
}

// Info logs a message at the INFO level.
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.logger.Info(msg, toZap(fields)...)
}

// Warn logs a message at the WARN level.
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.logger.Warn(msg, toZap(fields)...)
}

// Error logs a message at the ERROR level.
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.logger.Error(msg, toZap(fields)...)
}

// Fatal logs a message at the FATAL level and terminates the application.
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.logger.Fatal(msg, toZap(fields)...)
}

// Field returns a new field builder.
func (z *ZapLogger) Field() contracts.Field {
	return zapField{}
}

// With returns a child logger sharing the level of its parent.
func (z *ZapLogger) With(fields ...contracts.Field) contracts.Logger {
	return &ZapLogger{logger: z.logger.With(toZap(fields)...), level: z.level}
}

// SetLevel changes the level of this logger and every child.
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(zapcore.Level(level))
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}

func toZap(fields []contracts.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if zf, ok := f.(zapField); ok && zf.set {
			out = append(out, zf.f)
		}
	}
	return out
}

// zapField implements contracts.Field
type zapField struct {
	f   zap.Field
	set bool
}

func wrap(f zap.Field) contracts.Field { return zapField{f: f, set: true} }

func (zapField) Bool(key string, val bool) contracts.Field { return wrap(zap.Bool(key, val)) }

func (zapField) Int(key string, val int) contracts.Field { return wrap(zap.Int(key, val)) }

func (zapField) Float64(key string, val float64) contracts.Field { return wrap(zap.Float64(key, val)) }

func (zapField) String(key string, val string) contracts.Field { return wrap(zap.String(key, val)) }

func (zapField) Time(key string, val time.Time) contracts.Field { return wrap(zap.Time(key, val)) }

func (zapField) Duration(key string, val time.Duration) contracts.Field {
	return wrap(zap.Duration(key, val))
}

func (zapField) Int64(key string, val int64) contracts.Field { return wrap(zap.Int64(key, val)) }

func (zapField) Error(key string, val error) contracts.Field { return wrap(zap.NamedError(key, val)) }

func (zapField) Uint8(key string, val uint8) contracts.Field { return wrap(zap.Uint8(key, val)) }
