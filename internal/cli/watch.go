package cli

import (
	"github.com/spf13/cobra"

	"curtailwatch/internal/app"
)

var serveWatch bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically re-analyse stored measurements and alert on new intervals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context(), app.ServeOptions{Watch: serveWatch})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Migrate(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Also run the periodic re-analysis loop")
}
