package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"curtailwatch/internal/app"
)

var (
	reanalyzeFrom   string
	reanalyzeTo     string
	reanalyzeDryRun bool
	reanalyzeNotify bool
)

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze",
	Short: "Re-run detection over stored measurements, one day at a time",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reanalyzeFrom == "" || reanalyzeTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := time.Parse(time.RFC3339, reanalyzeFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := time.Parse(time.RFC3339, reanalyzeTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		if !from.Before(to) {
			return fmt.Errorf("--from must be before --to")
		}

		return getApp().Reanalyze(cmd.Context(), app.ReanalyzeOptions{
			From:   from,
			To:     to,
			DryRun: reanalyzeDryRun,
			Notify: reanalyzeNotify,
		})
	},
}

func init() {
	reanalyzeCmd.Flags().StringVar(&reanalyzeFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	reanalyzeCmd.Flags().StringVar(&reanalyzeTo, "to", "", "End timestamp (RFC3339, exclusive)")
	reanalyzeCmd.Flags().BoolVar(&reanalyzeDryRun, "dry-run", false, "Analyse without writing intervals")
	reanalyzeCmd.Flags().BoolVar(&reanalyzeNotify, "notify", false, "Send alerts for intervals still pending")
}
