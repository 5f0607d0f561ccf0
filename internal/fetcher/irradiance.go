package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"curtailwatch/internal/series"
	"curtailwatch/internal/storage"
)

const (
	archivePath = "/archive"
	// IrradianceMetric names the fetched series.
	IrradianceMetric = "历史辐照度"
	// IrradianceUnit is the unit of shortwave radiation.
	IrradianceUnit = "W/m²"
	// RegionDimension carries the station region on fetched series.
	RegionDimension = "区域"

	stepsPerHour = 4
	hourLayout   = "2006-01-02T15:04"
)

var (
	// ErrInvalidDate is returned for a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("fetcher: invalid date")
	// ErrNoData is returned when the archive answers without hourly data.
	ErrNoData = errors.New("fetcher: weather api returned no data")
)

// IrradianceOptions parameterise the weather archive fetcher.
type IrradianceOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// StationDimension is the dimension key the station name is stored under.
	StationDimension string
}

// Irradiance fetches hourly shortwave radiation from the Open-Meteo archive
// and resamples it to 15 minute steps.
type Irradiance struct {
	opts    IrradianceOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewIrradiance constructs an irradiance fetcher.
func NewIrradiance(opts IrradianceOptions, logger zerolog.Logger) *Irradiance {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://archive-api.open-meteo.com/v1"
	}
	if opts.StationDimension == "" {
		opts.StationDimension = "场站名称"
	}

	return &Irradiance{
		opts:    opts,
		logger:  logger.With().Str("component", "irradiance_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchIrradiance retrieves the curve for station on date (YYYY-MM-DD, station local).
func (f *Irradiance) FetchIrradiance(ctx context.Context, station storage.Station, date string) (series.TimeSeries, error) {
	if _, err := time.Parse(series.DateLayout, date); err != nil {
		return series.TimeSeries{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(station.Lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(station.Lon, 'f', -1, 64))
	query.Set("start_date", date)
	query.Set("end_date", date)
	query.Set("hourly", "shortwave_radiation")
	query.Set("timezone", "auto")

	endpoint := f.baseURL + archivePath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return series.TimeSeries{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "curtailwatch/1.0")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return series.TimeSeries{}, fmt.Errorf("request weather archive: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return series.TimeSeries{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return series.TimeSeries{}, parseHTTPError(resp.StatusCode, payload)
	}

	var archive archiveResponse
	if err := json.Unmarshal(payload, &archive); err != nil {
		return series.TimeSeries{}, fmt.Errorf("decode weather archive: %w", err)
	}
	if archive.Hourly == nil || len(archive.Hourly.Time) == 0 {
		return series.TimeSeries{}, ErrNoData
	}

	loc := time.FixedZone(archive.Timezone, archive.UTCOffsetSeconds)
	points, err := expandHourly(archive.Hourly.Time, archive.Hourly.ShortwaveRadiation, loc)
	if err != nil {
		return series.TimeSeries{}, err
	}

	dims := series.Dimensions{{Key: f.opts.StationDimension, Value: station.Name}}
	if station.Region != "" {
		dims = dims.With(RegionDimension, station.Region)
	}

	f.logger.Debug().Str("station", station.Name).Str("date", date).Int("points", len(points)).Msg("irradiance fetched")

	return series.TimeSeries{
		ID:         uuid.NewString(),
		MetricKey:  IrradianceMetric,
		Date:       date,
		Dimensions: dims,
		Unit:       IrradianceUnit,
		Points:     points,
	}, nil
}

// expandHourly turns hourly readings into 15 minute steps by linear
// interpolation toward the next hour. The last hour, and any hour followed
// by a missing one, is held flat. Values are rounded to two decimals. A
// missing hour yields missing steps.
func expandHourly(times []string, values []*float64, loc *time.Location) ([]series.Point, error) {
	out := make([]series.Point, 0, len(times)*stepsPerHour)
	for i, raw := range times {
		start, err := time.ParseInLocation(hourLayout, raw, loc)
		if err != nil {
			return nil, fmt.Errorf("parse archive time %q: %w", raw, err)
		}
		current := valueAt(values, i)
		next := current
		if i < len(times)-1 {
			if v := valueAt(values, i+1); !math.IsNaN(v) {
				next = v
			}
		}
		for step := 0; step < stepsPerHour; step++ {
			weight := float64(step) / stepsPerHour
			out = append(out, series.Point{
				Time:  start.Add(time.Duration(step) * 15 * time.Minute),
				Value: round2(current + (next-current)*weight),
			})
		}
	}
	return out, nil
}

func valueAt(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return math.NaN()
	}
	return *values[i]
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

type archiveResponse struct {
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
	Timezone         string `json:"timezone"`
	Hourly           *struct {
		Time               []string   `json:"time"`
		ShortwaveRadiation []*float64 `json:"shortwave_radiation"`
	} `json:"hourly"`
}

type errorResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Reason != "" {
		return fmt.Errorf("weather api error (%d): %s", status, apiErr.Reason)
	}
	if len(payload) > 0 {
		return fmt.Errorf("weather api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("weather api error (%d)", status)
}

var _ IrradianceFetcher = (*Irradiance)(nil)
