package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// Show prints the most recently detected intervals.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.requireStore(ctx, "show intervals")
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.ListRecentIntervals(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "no intervals found")
		return nil
	}

	loc := a.location()
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Group\tStart\tEnd\tDuration\tNotified\tRun")
	for _, rec := range records {
		end := rec.End.In(loc).Format("15:04")
		if rec.EndInclusive {
			end += " (incl.)"
		}
		notified := "pending"
		if rec.NotifiedAt != nil {
			notified = rec.NotifiedAt.In(loc).Format(time.DateTime)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.GroupKey,
			rec.Start.In(loc).Format("2006-01-02 15:04"),
			end,
			rec.Duration().Round(time.Second),
			notified,
			rec.RunID,
		)
	}

	return writer.Flush()
}
