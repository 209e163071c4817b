package contracts

import (
	"fmt"
	"strings"
	"time"
)

// LogLevel represents the severity level for logging.
// The ordering matches zapcore so a level filter is a plain comparison.
type LogLevel int8

const (
	// DebugLevel is for per-tick diagnostics such as dropped datagrams.
	DebugLevel LogLevel = iota - 1
	// InfoLevel is for lifecycle and state-edge messages.
	InfoLevel
	// WarnLevel is for recoverable faults (watchdog trips, queue overflow).
	WarnLevel
	// ErrorLevel is for faults that lose data or output.
	ErrorLevel
	// FatalLevel logs and terminates the process.
	FatalLevel
)

// String returns the lowercase level name.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	}
	return fmt.Sprintf("level(%d)", l)
}

// ParseLogLevel converts a configuration string into a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// Field is a typed log field builder. Each method returns a new Field
// carrying a single key/value pair.
type Field interface {
	Bool(key string, val bool) Field
	Int(key string, val int) Field
	Float64(key string, val float64) Field
	String(key string, val string) Field
	Time(key string, val time.Time) Field
	Duration(key string, val time.Duration) Field
	Int64(key string, val int64) Field
	Error(key string, val error) Field
	Uint8(key string, val uint8) Field
}

// Logger provides leveled, structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// Field returns a builder for typed fields.
	Field() Field
	// With returns a child logger that always carries fields.
	With(fields ...Field) Logger

	SetLevel(level LogLevel)
	Sync() error
}
