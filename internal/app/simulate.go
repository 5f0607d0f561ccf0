package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"curtailwatch/internal/alerting"
	"curtailwatch/internal/series"
)

// SimulateOptions describe the synthetic interval to alert on.
type SimulateOptions struct {
	Station  string
	Duration time.Duration
}

// SimulateAlert sends one synthetic curtailment alert through every
// configured channel.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	if opts.Duration <= 0 {
		opts.Duration = 15 * time.Minute
	}
	end := time.Now().In(a.location()).Truncate(a.Config.Scheduler.Interval)
	start := end.Add(-opts.Duration)
	day := start.Format("2006-01-02")
	th := a.Config.Thresholds()

	return notifier.Notify(ctx, alerting.Notification{
		GroupKey:            series.GroupKey(day, opts.Station),
		Station:             opts.Station,
		Day:                 day,
		Start:               start,
		End:                 end,
		EndInclusive:        true,
		Ongoing:             true,
		IrradianceThreshold: th.Irradiance,
		DiffThreshold:       th.Diff,
		RunID:               uuid.NewString(),
		Channels:            a.Config.Alerting.Channels,
		AdditionalMsg:       "This is a simulated alert.\n",
	})
}
