package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/leandrodaf/airdaw/internal/config"
	"github.com/leandrodaf/airdaw/internal/journal"
	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/spf13/cobra"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the most recent journal entries",
		Long: `Print what the router emitted, newest first. The database defaults to
journal.path from the router configuration.

Example:
  airdaw journal --db airdaw.db --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.Database
			if path == "" {
				cfg, err := config.LoadRouter(opts.ConfigPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid router configuration", err)
				}
				path = cfg.Journal.Path
			}
			if path == "" {
				return WrapExitError(ExitCommandError, "no journal database", fmt.Errorf("pass --db or set journal.path"))
			}

			j, err := journal.Open(path, "", 1, logger.NewNop())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to open journal", err)
			}
			defer j.Close()

			entries, err := j.Recent(cmd.Context(), opts.Limit)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read journal", err)
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of entries to print")
	return cmd
}

func printEntries(w io.Writer, entries []journal.Entry) {
	for _, e := range entries {
		detail := e.Detail
		if detail == "" {
			detail = "-"
		}
		fmt.Fprintf(w, "%s  %-8s  %-18s  %s  [%s]\n",
			e.At.Format(time.RFC3339Nano), e.Kind, e.Name, detail, shortSession(e.Session))
	}
}

func shortSession(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
