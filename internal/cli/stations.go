package cli

import (
	"github.com/spf13/cobra"
)

var stationsExportPath string

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Manage the station registry",
}

var stationsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import stations from a CSV or tab separated table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ImportStations(cmd.Context(), args[0])
	},
}

var stationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered stations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListStations(cmd.Context())
	},
}

var stationsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stations as a table readable by import",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ExportStations(cmd.Context(), stationsExportPath)
	},
}

func init() {
	stationsExportCmd.Flags().StringVarP(&stationsExportPath, "output", "o", "-", "Output path (- for stdout)")
	stationsCmd.AddCommand(stationsImportCmd, stationsListCmd, stationsExportCmd)
}
