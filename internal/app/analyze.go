package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"curtailwatch/internal/engine"
	"curtailwatch/internal/ingest"
	"curtailwatch/internal/series"
	"curtailwatch/internal/service"
)

// AnalysisOverrides replace configured analysis settings for one command.
type AnalysisOverrides struct {
	GroupDimension      string
	Granularity         string
	Overlay             *bool
	IrradianceThreshold *float64
	DiffThreshold       *float64
}

// AnalyzeOptions configure the analyze command.
type AnalyzeOptions struct {
	Files     []string
	Dates     []string
	JSON      bool
	Save      bool
	Overrides AnalysisOverrides
}

func (a *App) engineOptions(o AnalysisOverrides) (engine.Options, error) {
	opts := a.Config.EngineOptions()
	if o.GroupDimension != "" {
		opts.GroupDimension = o.GroupDimension
	}
	if o.Granularity != "" {
		g, err := series.ParseGranularity(o.Granularity)
		if err != nil {
			return engine.Options{}, err
		}
		opts.Granularity = g
	}
	if o.Overlay != nil {
		opts.Overlay = *o.Overlay
	}
	if o.IrradianceThreshold != nil {
		opts.Thresholds.Irradiance = *o.IrradianceThreshold
	}
	if o.DiffThreshold != nil {
		opts.Thresholds.Diff = *o.DiffThreshold
	}
	opts.Thresholds = opts.Thresholds.Normalize()
	return opts, nil
}

// loadAndRun ingests files, keeps the selected dates, and runs one pass.
func (a *App) loadAndRun(files, dates []string, overrides AnalysisOverrides) ([]series.TimeSeries, engine.Result, error) {
	if len(files) == 0 {
		return nil, engine.Result{}, errors.New("at least one input file is required")
	}
	opts, err := a.engineOptions(overrides)
	if err != nil {
		return nil, engine.Result{}, err
	}

	list, err := a.newLoader().LoadFiles(files)
	if err != nil {
		return nil, engine.Result{}, err
	}
	list = ingest.SelectDates(list, dates...)
	if len(list) == 0 {
		return nil, engine.Result{}, fmt.Errorf("no series for dates %s", strings.Join(dates, ","))
	}

	res, err := a.newEngine().Run(list, opts)
	if err != nil {
		return nil, engine.Result{}, err
	}
	return list, res, nil
}

// Analyze runs curtailment detection over sample files and prints a report.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	list, res, err := a.loadAndRun(opts.Files, opts.Dates, opts.Overrides)
	if err != nil {
		return err
	}

	if opts.Save {
		if err := a.saveAnalysis(ctx, list, res); err != nil {
			return err
		}
	}

	if opts.JSON {
		encoder := json.NewEncoder(a.Out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(res)
	}
	return a.printReport(res)
}

func (a *App) saveAnalysis(ctx context.Context, list []series.TimeSeries, res engine.Result) error {
	store, closeStore, err := a.requireStore(ctx, "save analysis")
	if err != nil {
		return err
	}
	defer closeStore()

	written, err := store.UpsertMeasurements(ctx, ingest.ToMeasurements(list, res.GroupDimension))
	if err != nil {
		return err
	}
	runID := uuid.New()
	created, err := store.UpsertIntervals(ctx, service.IntervalRecords(res, runID))
	if err != nil {
		return err
	}
	a.Logger.Info().Str("run_id", runID.String()).Int("measurements", written).Int("new_intervals", len(created)).Msg("analysis saved")
	return nil
}

func (a *App) printReport(res engine.Result) error {
	loc := a.location()
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Group\tAnalyzed\tClassified\tCurtailed\tRatio%\tDuration\tMissing")
	for _, g := range res.Groups {
		ratio := "-"
		if g.Classified > 0 {
			ratio = decimal.NewFromInt(int64(g.Curtailed)).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(int64(g.Classified))).
				StringFixed(1)
		}
		fmt.Fprintf(writer, "%s\t%t\t%d\t%d\t%s\t%s\t%s\n",
			g.Key, g.Analyzed, g.Classified, g.Curtailed, ratio, g.CurtailedDuration(), strings.Join(g.Missing, ","))
	}
	fmt.Fprintln(writer)

	fmt.Fprintln(writer, "Group\tStart\tEnd\tDuration")
	for _, g := range res.Groups {
		for _, iv := range g.RawIntervals {
			end := iv.End.In(loc).Format("15:04")
			if iv.EndInclusive {
				end += " (incl.)"
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", g.Key, iv.Start.In(loc).Format("2006-01-02 15:04"), end, iv.End.Sub(iv.Start).Round(time.Second))
		}
	}
	return writer.Flush()
}
