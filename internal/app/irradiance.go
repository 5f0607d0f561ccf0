package app

import (
	"context"
	"errors"
	"os"

	"curtailwatch/internal/ingest"
	"curtailwatch/internal/series"
)

// IrradianceOptions configure the fetch-irradiance command.
type IrradianceOptions struct {
	Station string
	Date    string
	// Output is a CSV path; empty or "-" writes to Out.
	Output string
	Save   bool
}

// FetchIrradiance downloads the historical irradiance curve of one station
// day and writes it as a sample file.
func (a *App) FetchIrradiance(ctx context.Context, opts IrradianceOptions) error {
	if opts.Station == "" || opts.Date == "" {
		return errors.New("station and date are required")
	}

	stations, closeStations, err := a.stationStore(ctx)
	if err != nil {
		return err
	}
	defer closeStations()

	station, err := stations.GetStation(ctx, opts.Station)
	if err != nil {
		return err
	}

	curve, err := a.newIrradiance().FetchIrradiance(ctx, station, opts.Date)
	if err != nil {
		return err
	}
	list := []series.TimeSeries{curve}

	if opts.Save {
		store, closeStore, err := a.requireStore(ctx, "save irradiance")
		if err != nil {
			return err
		}
		defer closeStore()
		written, err := store.UpsertMeasurements(ctx, ingest.ToMeasurements(list, ingest.StationDimension))
		if err != nil {
			return err
		}
		a.Logger.Info().Str("station", station.Name).Str("date", opts.Date).Int("rows", written).Msg("irradiance saved")
	}

	if opts.Output == "" || opts.Output == "-" {
		return ingest.WriteSeries(a.Out, list)
	}
	if err := ensureDir(opts.Output); err != nil {
		return err
	}
	file, err := os.Create(opts.Output)
	if err != nil {
		return err
	}
	defer file.Close()
	return ingest.WriteSeries(file, list)
}
