package cli

import (
	"github.com/spf13/cobra"

	"curtailwatch/internal/app"
)

var (
	analyzeFlags analysisFlags
	analyzeJSON  bool
	analyzeSave  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE...",
	Short: "Detect curtailment intervals in sample files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Analyze(cmd.Context(), app.AnalyzeOptions{
			Files:     args,
			Dates:     analyzeFlags.dates,
			JSON:      analyzeJSON,
			Save:      analyzeSave,
			Overrides: analyzeFlags.overrides(cmd),
		})
	},
}

func init() {
	analyzeFlags.register(analyzeCmd.Flags())
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the full result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store samples and intervals in the database")
}
