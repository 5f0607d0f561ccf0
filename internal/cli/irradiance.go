package cli

import (
	"github.com/spf13/cobra"

	"curtailwatch/internal/app"
)

var (
	irradianceStation string
	irradianceDate    string
	irradianceOutput  string
	irradianceSave    bool
)

var irradianceCmd = &cobra.Command{
	Use:   "fetch-irradiance",
	Short: "Download the historical irradiance curve of a station day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().FetchIrradiance(cmd.Context(), app.IrradianceOptions{
			Station: irradianceStation,
			Date:    irradianceDate,
			Output:  irradianceOutput,
			Save:    irradianceSave,
		})
	},
}

func init() {
	irradianceCmd.Flags().StringVar(&irradianceStation, "station", "", "Station name")
	irradianceCmd.Flags().StringVar(&irradianceDate, "date", "", "Date (YYYY-MM-DD, station local)")
	irradianceCmd.Flags().StringVarP(&irradianceOutput, "output", "o", "", "CSV output path (default stdout)")
	irradianceCmd.Flags().BoolVar(&irradianceSave, "save", false, "Store the curve in the database")
	_ = irradianceCmd.MarkFlagRequired("station")
	_ = irradianceCmd.MarkFlagRequired("date")
}
