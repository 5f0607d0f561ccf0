package fetcher

import (
	"context"

	"curtailwatch/internal/series"
	"curtailwatch/internal/storage"
)

// IrradianceFetcher retrieves a historical irradiance curve for one station day.
type IrradianceFetcher interface {
	FetchIrradiance(ctx context.Context, station storage.Station, date string) (series.TimeSeries, error)
}
