package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/rag-builder-assistant/internal/bootstrap"
)

func newStatsCommand(e *env) *cobra.Command {
	var window time.Duration
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded query events by result state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.OpenEvents(cmd.Context(), e.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			since := time.Now().Add(-window)
			counts, err := app.Events.CountByState(cmd.Context(), since)
			if err != nil {
				return fmt.Errorf("count query events: %w", err)
			}

			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "STATE\tCOUNT\n")
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%d\n", c.State, c.Count)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().DurationVar(&window, "since", 24*time.Hour, "look-back window")
	return cmd
}
