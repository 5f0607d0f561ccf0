package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"curtailwatch/internal/app"
)

var (
	exportFlags     analysisFlags
	exportFrom      string
	exportTo        string
	exportPNGPath   string
	exportCSVPath   string
	exportTitle     string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export [FILE...]",
	Short: "Export a curtailment chart (PNG) and interval table (CSV)",
	Long:  "Export analyses the given sample files, or the stored measurements between --from and --to when no file is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Files:     args,
			Dates:     exportFlags.dates,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			Title:     exportTitle,
			MaxPoints: exportMaxPoints,
			Overrides: exportFlags.overrides(cmd),
		}

		if exportFrom != "" {
			from, err := time.Parse(time.RFC3339, exportFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if exportTo != "" {
			to, err := time.Parse(time.RFC3339, exportTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportFlags.register(exportCmd.Flags())
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start timestamp (RFC3339, inclusive) for stored data")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End timestamp (RFC3339, exclusive) for stored data")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write interval CSV")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "Chart title")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum points per plotted series (defaults to config)")
}
