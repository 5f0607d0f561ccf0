package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"curtailwatch/internal/engine"
	"curtailwatch/internal/ingest"
	"curtailwatch/internal/plot"
	"curtailwatch/internal/series"
	"curtailwatch/internal/service"
)

// ExportOptions hold parameters for exporting a chart and interval table.
// Without input files the window [From, To) is read from the database.
type ExportOptions struct {
	Files     []string
	Dates     []string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	Title     string
	MaxPoints int
	Overrides AnalysisOverrides
}

// Export renders an analysis as a PNG chart and/or an interval CSV.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	var res engine.Result
	var err error
	if len(opts.Files) > 0 {
		_, res, err = a.loadAndRun(opts.Files, opts.Dates, opts.Overrides)
	} else {
		res, err = a.analyzeStored(ctx, opts)
	}
	if err != nil {
		return err
	}

	for i := range res.Display {
		res.Display[i].Points = downsamplePoints(res.Display[i].Points, opts.MaxPoints)
	}
	a.Logger.Info().Int("groups", len(res.Groups)).Int("series", len(res.Display)).Msg("exporting analysis")

	if opts.CSVPath != "" {
		if err := a.writeIntervalsCSV(opts.CSVPath, res); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := a.writePNG(opts.PNGPath, opts.Title, res); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) analyzeStored(ctx context.Context, opts ExportOptions) (engine.Result, error) {
	store, closeStore, err := a.requireStore(ctx, "export stored measurements")
	if err != nil {
		return engine.Result{}, err
	}
	defer closeStore()

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := service.WindowStart(to, a.Config.Scheduler.Lookback, a.location())
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return engine.Result{}, errors.New("from must be before to")
	}

	rows, err := store.ListMeasurementsBetween(ctx, from, to)
	if err != nil {
		return engine.Result{}, err
	}
	if len(rows) == 0 {
		return engine.Result{}, errors.New("no measurements found for export window")
	}

	engineOpts, err := a.engineOptions(opts.Overrides)
	if err != nil {
		return engine.Result{}, err
	}
	if engineOpts.GroupDimension == "" {
		engineOpts.GroupDimension = ingest.StationDimension
	}
	list := ingest.SelectDates(ingest.FromMeasurements(rows, a.location()), opts.Dates...)
	return a.newEngine().Run(list, engineOpts)
}

func downsamplePoints(points []series.Point, max int) []series.Point {
	if max <= 1 || len(points) <= max {
		return points
	}

	result := make([]series.Point, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func (a *App) writeIntervalsCSV(path string, res engine.Result) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"group_key", "station", "date", "start", "end", "end_inclusive", "duration_minutes"}
	if err := writer.Write(header); err != nil {
		return err
	}

	loc := a.location()
	for _, g := range res.Groups {
		for _, iv := range g.RawIntervals {
			minutes := decimal.NewFromFloat(iv.End.Sub(iv.Start).Minutes())
			record := []string{
				g.Key,
				g.Station,
				g.Date,
				iv.Start.In(loc).Format(time.RFC3339),
				iv.End.In(loc).Format(time.RFC3339),
				strconv.FormatBool(iv.EndInclusive),
				minutes.StringFixed(1),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func (a *App) writePNG(path, title string, res engine.Result) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return plot.RenderPNG(file, res, plot.Options{
		Title:        title,
		Width:        a.Config.Export.Width,
		Height:       a.Config.Export.Height,
		ShadeHex:     a.Config.Export.CurtailmentColor,
		ShadeOpacity: a.Config.Export.CurtailmentOpacity,
	})
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
