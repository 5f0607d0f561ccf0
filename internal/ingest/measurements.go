package ingest

import (
	"time"

	"github.com/google/uuid"

	"curtailwatch/internal/series"
	"curtailwatch/internal/storage"
)

// StationDimension is the dimension key carried by series rebuilt from storage.
const StationDimension = "场站名称"

// ToMeasurements flattens series into storage rows. The station column takes
// the value of dimension, or the default group value when a series lacks it.
func ToMeasurements(list []series.TimeSeries, dimension string) []storage.Measurement {
	out := make([]storage.Measurement, 0)
	for _, s := range list {
		station := series.DefaultGroupValue
		if dimension != "" {
			if v, ok := s.Dimensions.Get(dimension); ok {
				station = v
			}
		}
		for _, p := range s.Points {
			out = append(out, storage.Measurement{
				Metric:  s.MetricKey,
				Station: station,
				TS:      p.Time,
				Value:   p.Value,
				Unit:    s.Unit,
			})
		}
	}
	return out
}

// FromMeasurements rebuilds series from stored rows, one per (metric,
// station, calendar date in loc), in order of first appearance.
func FromMeasurements(rows []storage.Measurement, loc *time.Location) []series.TimeSeries {
	if loc == nil {
		loc = time.Local
	}
	index := make(map[string]int)
	out := make([]series.TimeSeries, 0)
	for _, m := range rows {
		date := m.TS.In(loc).Format(series.DateLayout)
		key := m.Metric + "\x1f" + m.Station + "\x1f" + date
		i, ok := index[key]
		if !ok {
			ts := series.TimeSeries{
				ID:        uuid.NewString(),
				MetricKey: m.Metric,
				Date:      date,
				Unit:      m.Unit,
			}
			if m.Station != "" && m.Station != series.DefaultGroupValue {
				ts.Dimensions = series.Dimensions{{Key: StationDimension, Value: m.Station}}
			}
			out = append(out, ts)
			i = len(out) - 1
			index[key] = i
		}
		out[i].Points = append(out[i].Points, series.Point{Time: m.TS.In(loc), Value: m.Value})
	}
	for i := range out {
		out[i].Points = series.Normalize(out[i].Points)
	}
	return out
}
