package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"keydogger/internal/daemon"
	"keydogger/internal/expand"
)

func newCheckCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and abbreviation file",
		Long: `Load the configuration and abbreviation file without touching any device,
print every rejected line, and exit non-zero when anything was rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:        %s\n", opts.path())
			fmt.Fprintf(out, "abbreviations: %s\n", cfg.Abbreviations.File)

			_, report, err := daemon.BuildTrie(cfg, quietLogger())
			if err != nil && !errors.Is(err, daemon.ErrNoAbbreviations) {
				return withCode(exitConfig, err)
			}

			for _, e := range report.Errors {
				fmt.Fprintf(out, "  rejected: %v\n", e)
			}
			fmt.Fprintf(out, "%d loaded, %d rejected, %d overridden\n",
				report.Loaded, report.Rejected, report.Overridden)

			if err != nil {
				return withCode(exitConfig, err)
			}
			if report.Rejected > 0 {
				return withCode(exitConfig, fmt.Errorf("%d abbreviations rejected", report.Rejected))
			}
			return nil
		},
	}
}

func newListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the loaded abbreviations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			trie, _, err := daemon.BuildTrie(cfg, quietLogger())
			if err != nil && !errors.Is(err, daemon.ErrNoAbbreviations) {
				return withCode(exitConfig, err)
			}
			return printEntries(cmd.OutOrStdout(), trie.Entries())
		},
	}
}

func printEntries(w io.Writer, entries []expand.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Abbreviation, e.Expansion)
	}
	return tw.Flush()
}

// quietLogger drops the per-entry warnings that check and list report
// themselves.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
