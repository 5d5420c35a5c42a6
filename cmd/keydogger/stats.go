package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"keydogger/internal/store"
)

func newStatsCommand(opts *globalOptions) *cobra.Command {
	var (
		top    int
		recent int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show expansion history",
		Long: `Summarise the expansion history recorded when [history] enabled = true.
Only abbreviation names and counts are stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.History.Path); err != nil {
				return fmt.Errorf("no history at %s (enable [history] in the configuration)", cfg.History.Path)
			}

			history, err := store.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer history.Close()

			sum, err := history.Stats(top)
			if err != nil {
				return err
			}
			var latest []recentExpansion
			if recent > 0 {
				if latest, err = recentExpansions(history, recent); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					*store.Summary
					Recent []recentExpansion `json:",omitempty"`
				}{sum, latest})
			}

			fmt.Fprintf(out, "expansions: %d (%d failed) over %d sessions\n", sum.Total, sum.Failed, sum.Sessions)
			if sum.Total == 0 {
				return nil
			}
			fmt.Fprintf(out, "period:     %s to %s\n", sum.First.Format(time.DateTime), sum.Last.Format(time.DateTime))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ABBREVIATION\tCOUNT\tFAILED\tLAST USED")
			for _, st := range sum.Top {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", st.Abbreviation, st.Count, st.Failed, st.LastUsed.Format(time.DateTime))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(latest) == 0 {
				return nil
			}

			fmt.Fprintln(out)
			tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tABBREVIATION\tERASED\tTYPED\tSTATUS\tDEVICE")
			for _, e := range latest {
				status := "ok"
				if e.Failed {
					status = "failed"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
					e.At.Format(time.DateTime), e.Abbreviation, e.EraseCount, e.EmittedCount, status, e.Device)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "number of abbreviations to list")
	cmd.Flags().IntVar(&recent, "recent", 0, "also list the N most recent expansions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// recentExpansion is a history record with the device of its session.
type recentExpansion struct {
	store.Expansion
	Device string `json:",omitempty"`
}

func recentExpansions(history *store.Store, limit int) ([]recentExpansion, error) {
	records, err := history.Recent(limit)
	if err != nil {
		return nil, err
	}

	devices := make(map[int64]string)
	out := make([]recentExpansion, 0, len(records))
	for _, r := range records {
		e := recentExpansion{Expansion: r}
		if r.SessionID != nil {
			dev, ok := devices[*r.SessionID]
			if !ok {
				sess, err := history.GetSession(*r.SessionID)
				switch {
				case errors.Is(err, store.ErrSessionNotFound):
				case err != nil:
					return nil, err
				default:
					dev = sess.Device
				}
				devices[*r.SessionID] = dev
			}
			e.Device = dev
		}
		out = append(out, e)
	}
	return out, nil
}
