package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"curtailwatch/internal/app"
)

var (
	simulateStation  string
	simulateDuration time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次限电区间并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateStation == "" {
			return errors.New("--station 不能为空")
		}
		if simulateDuration <= 0 {
			return errors.New("--duration 必须大于 0")
		}

		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			Station:  simulateStation,
			Duration: simulateDuration,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateStation, "station", "", "场站名称")
	simulateCmd.Flags().DurationVar(&simulateDuration, "duration", 45*time.Minute, "模拟区间时长")
}
