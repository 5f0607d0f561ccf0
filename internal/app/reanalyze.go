package app

import (
	"context"
	"errors"
	"time"

	"curtailwatch/internal/service"
	"curtailwatch/internal/storage"
)

// ReanalyzeOptions configure the reanalyze job.
type ReanalyzeOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
	// Notify sends alerts for intervals still pending after each day.
	Notify bool
}

// Reanalyze replays stored measurements day by day over [From, To),
// persisting the detected intervals. A dry run only logs what it finds.
func (a *App) Reanalyze(ctx context.Context, opts ReanalyzeOptions) error {
	loc := a.location()
	start := startOfDay(opts.From.In(loc))
	end := opts.To.In(loc)
	if !start.Before(end) {
		return errors.New("reanalyze range is empty; check --from/--to")
	}

	store, closeStore, err := a.requireStore(ctx, "reanalyze")
	if err != nil {
		return err
	}
	defer closeStore()

	var intervals storage.IntervalStore = store
	if opts.DryRun {
		a.Logger.Warn().Msg("reanalyze dry-run: intervals will not be written")
		intervals = nil
	}

	svcOpts := a.serviceOptions()
	svcOpts.AlertsEnabled = opts.Notify && a.Config.Alerting.Enabled && !opts.DryRun
	svc := service.New(svcOpts, nil, a.newEngine(), store, intervals, a.newNotifier(), a.Logger)

	processed := 0
	failed := 0
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next := day.AddDate(0, 0, 1)
		if next.After(end) {
			next = end
		}
		summary, err := svc.ProcessWindow(ctx, day, next)
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Time("day", day).Msg("reanalyze failed")
			continue
		}
		processed++
		a.Logger.Info().Str("day", day.Format("2006-01-02")).
			Int("groups", summary.Groups).
			Int("intervals", summary.Intervals).
			Int("created", summary.Created).
			Msg("day reanalysed")
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("reanalyze finished")
	if failed > 0 {
		return errors.New("some days failed to reanalyse; check the logs")
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
