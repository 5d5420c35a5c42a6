package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"keydogger/internal/config"
	"keydogger/internal/keystroke"
)

func newDevicesCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List detected keyboards",
		Long: `List the keyboards found in /proc/bus/input/devices. The first one is
used by "keydogger run" when no device is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exclude := config.DefaultConfig().Output.Name
			if cfg, err := opts.loadConfig(); err == nil {
				exclude = cfg.Output.Name
			}

			keyboards, err := keystroke.FindKeyboards(exclude)
			if err != nil {
				return withCode(exitDevice, err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(keyboards)
			}

			if len(keyboards) == 0 {
				return withCode(exitDevice, keystroke.ErrNoKeyboard)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DEVICE\tBUS\tID\tNAME")
			for _, kb := range keyboards {
				fmt.Fprintf(tw, "%s\t%s\t%04x:%04x\t%s\n", kb.EventPath, kb.Bus, kb.VendorID, kb.ProductID, kb.Name)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
