package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"curtailwatch/internal/ingest"
	"curtailwatch/internal/storage"
)

// stationStore returns the database registry, or the built-in seed list
// when no database is configured.
func (a *App) stationStore(ctx context.Context) (storage.StationStore, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; using built-in stations")
		return storage.NewMemoryStations(storage.SeedStations()), func() {}, nil
	}
	return store, closeStore, nil
}

// ImportStations reads a station table and upserts every entry.
func (a *App) ImportStations(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	stations, err := ingest.ReadStations(file)
	if err != nil {
		return err
	}

	store, closeStore, err := a.requireStore(ctx, "import stations")
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.UpsertStations(ctx, stations); err != nil {
		return err
	}
	a.Logger.Info().Int("stations", len(stations)).Str("file", path).Msg("stations imported")
	return nil
}

// ListStations prints the registry.
func (a *App) ListStations(ctx context.Context) error {
	store, closeStore, err := a.stationStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	stations, err := store.ListStations(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Name\tLon\tLat\tRegion\tAzimuth\tTilt")
	for _, st := range stations {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			st.Name,
			decimal.NewFromFloat(st.Lon).String(),
			decimal.NewFromFloat(st.Lat).String(),
			st.Region,
			decimal.NewFromFloat(st.Azimuth).String(),
			decimal.NewFromFloat(st.Tilt).String(),
		)
	}
	return writer.Flush()
}

// ExportStations writes the registry as a station table readable by
// ImportStations.
func (a *App) ExportStations(ctx context.Context, path string) error {
	store, closeStore, err := a.stationStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	stations, err := store.ListStations(ctx)
	if err != nil {
		return err
	}

	if path == "" || path == "-" {
		return ingest.WriteStations(a.Out, stations)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ingest.WriteStations(file, stations)
}
