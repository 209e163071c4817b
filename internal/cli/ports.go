package cli

import (
	"fmt"
	"io"

	"github.com/leandrodaf/airdaw/internal/config"
	"github.com/leandrodaf/airdaw/internal/sensor"
	"github.com/leandrodaf/airdaw/sdk/contracts"
	"github.com/leandrodaf/airdaw/sdk/midi"
	"github.com/spf13/cobra"
)

// NewPortsCommand creates the ports command.
func NewPortsCommand(rootOpts *RootOptions) *cobra.Command {
	var serialOnly, midiOnly bool

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List MIDI output ports and serial devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lc := config.DefaultRouter().Logging
			lc.Level = "warn"
			log, _, err := newLogger(rootOpts, lc, "ports")
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid logging configuration", err)
			}
			out := cmd.OutOrStdout()
			if !serialOnly {
				devices, err := midi.ListPorts(contracts.WithLogger(log))
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list MIDI ports", err)
				}
				printMIDIPorts(out, devices)
			}
			if !midiOnly {
				names, err := sensor.Ports()
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list serial ports", err)
				}
				printSerialPorts(out, names)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&serialOnly, "serial", false, "list serial devices only")
	cmd.Flags().BoolVar(&midiOnly, "midi", false, "list MIDI output ports only")
	cmd.MarkFlagsMutuallyExclusive("serial", "midi")
	return cmd
}

func printMIDIPorts(w io.Writer, devices []contracts.DeviceInfo) {
	fmt.Fprintln(w, "MIDI output ports:")
	if len(devices) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, d := range devices {
		if d.Manufacturer != "" {
			fmt.Fprintf(w, "  %d: %s (%s)\n", i, d.Name, d.Manufacturer)
		} else {
			fmt.Fprintf(w, "  %d: %s\n", i, d.Name)
		}
	}
}

func printSerialPorts(w io.Writer, names []string) {
	fmt.Fprintln(w, "Serial devices:")
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}
