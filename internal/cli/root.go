// Package cli implements the airdaw command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/leandrodaf/airdaw/internal/config"
	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/sdk/contracts"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // runtime failure
	ExitCommandError = 2 // bad flags or configuration
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error, ExitFailure by default.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// RootOptions holds the persistent flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	EnvFile    string
}

// NewRootCommand builds the airdaw command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "airdaw",
		Short: "Distance and gesture controlled MIDI for a DAW",
		Long: `airdaw turns an ultrasonic distance sensor and a hand-gesture classifier
into lead notes, drum hits and recording control for a DAW.

Run "airdaw sensor" on the machine wired to the sensor and "airdaw router"
on the machine running the DAW.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(opts.EnvFile); err != nil {
				return WrapExitError(ExitCommandError, "invalid env file", err)
			}
			if opts.LogLevel != "" {
				if _, err := contracts.ParseLogLevel(opts.LogLevel); err != nil {
					return WrapExitError(ExitCommandError, "invalid --log-level", err)
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML configuration (defaults built in)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override logging.level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file with AIRDAW_* overrides (default .env if present)")

	cmd.AddCommand(NewSensorCommand(opts))
	cmd.AddCommand(NewRouterCommand(opts))
	cmd.AddCommand(NewPortsCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))

	return cmd
}

// newLogger builds the process logger and tags it with a fresh session id.
func newLogger(opts *RootOptions, lc config.LoggingConfig, component string) (contracts.Logger, string, error) {
	if opts.LogLevel != "" {
		lc.Level = opts.LogLevel
	}
	lo, err := lc.Options()
	if err != nil {
		return nil, "", err
	}
	base, err := logger.New(lo)
	if err != nil {
		return nil, "", err
	}
	session := uuid.Must(uuid.NewV7()).String()
	log := base.With(
		base.Field().String("session", session),
		base.Field().String("component", component),
	)
	return log, session, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
