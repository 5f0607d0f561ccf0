// Package ingest turns tabular files and stored rows into series.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"curtailwatch/internal/series"
)

// ErrNoRows is returned when an input holds no usable sample row.
var ErrNoRows = errors.New("ingest: no data rows")

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
}

func canonicalColumn(name string) string {
	switch strings.ToLower(name) {
	case "time", "timestamp", "时间", "时刻":
		return "time"
	case "metric", "指标", "指标名称":
		return "metric"
	case "value", "值", "数值":
		return "value"
	case "unit", "单位":
		return "unit"
	case "date", "日期":
		return "date"
	}
	return ""
}

// Loader reads long-format sample files: one row per (time, metric, value)
// with optional unit and date columns; every other column is a dimension.
type Loader struct {
	loc    *time.Location
	logger zerolog.Logger
	newID  func() string
}

// NewLoader constructs a Loader reading naive timestamps in loc.
func NewLoader(loc *time.Location, logger zerolog.Logger) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{
		loc:    loc,
		logger: logger.With().Str("component", "ingest").Logger(),
		newID:  uuid.NewString,
	}
}

// LoadFiles reads every path and concatenates the series in file order.
func (l *Loader) LoadFiles(paths []string) ([]series.TimeSeries, error) {
	out := make([]series.TimeSeries, 0)
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		list, readErr := l.ReadSeries(file)
		file.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", path, readErr)
		}
		out = append(out, list...)
	}
	return out, nil
}

type layout struct {
	time, metric, value, unit, date int
	dims                            []int
	names                           []string
}

// ReadSeries parses one CSV document. Rows with an unreadable timestamp are
// skipped; an unreadable value becomes a missing sample.
func (l *Loader) ReadSeries(r io.Reader) ([]series.TimeSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveLayout(header)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*series.TimeSeries)
	order := make([]string, 0)
	skipped := 0

	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read row: %w", readErr)
		}

		at, ok := l.parseTime(field(record, cols.time))
		metricKey := field(record, cols.metric)
		if !ok || metricKey == "" {
			skipped++
			continue
		}

		date := field(record, cols.date)
		if date == "" {
			date = at.In(l.loc).Format(series.DateLayout)
		}

		dims := make(series.Dimensions, 0, len(cols.dims))
		for i, idx := range cols.dims {
			if v := field(record, idx); v != "" {
				dims = append(dims, series.Dimension{Key: cols.names[i], Value: v})
			}
		}

		key := seriesKey(metricKey, date, dims)
		current, exists := index[key]
		if !exists {
			current = &series.TimeSeries{
				ID:         l.newID(),
				MetricKey:  metricKey,
				Date:       date,
				Dimensions: dims,
			}
			index[key] = current
			order = append(order, key)
		}
		if current.Unit == "" {
			current.Unit = field(record, cols.unit)
		}
		current.Points = append(current.Points, series.Point{Time: at, Value: parseValue(field(record, cols.value))})
	}

	if len(order) == 0 {
		return nil, ErrNoRows
	}

	out := make([]series.TimeSeries, 0, len(order))
	for _, key := range order {
		ts := *index[key]
		ts.Points = series.Normalize(ts.Points)
		out = append(out, ts)
	}

	l.logger.Debug().Int("series", len(out)).Int("skipped_rows", skipped).Msg("csv ingested")
	return out, nil
}

func resolveLayout(header []string) (layout, error) {
	cols := layout{time: -1, metric: -1, value: -1, unit: -1, date: -1}
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		switch canonicalColumn(name) {
		case "time":
			cols.time = i
		case "metric":
			cols.metric = i
		case "value":
			cols.value = i
		case "unit":
			cols.unit = i
		case "date":
			cols.date = i
		default:
			if name != "" {
				cols.dims = append(cols.dims, i)
				cols.names = append(cols.names, name)
			}
		}
	}
	switch {
	case cols.time < 0:
		return layout{}, fmt.Errorf("missing time column")
	case cols.metric < 0:
		return layout{}, fmt.Errorf("missing metric column")
	case cols.value < 0:
		return layout{}, fmt.Errorf("missing value column")
	}
	return cols, nil
}

func (l *Loader) parseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, true
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, raw, l.loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseValue(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func seriesKey(metricKey, date string, dims series.Dimensions) string {
	var b strings.Builder
	b.WriteString(metricKey)
	b.WriteByte(0x1f)
	b.WriteString(date)
	for _, d := range dims {
		b.WriteByte(0x1f)
		b.WriteString(d.Key)
		b.WriteByte('=')
		b.WriteString(d.Value)
	}
	return b.String()
}

// SelectDates keeps the series whose date is one of dates; no dates keeps all.
func SelectDates(list []series.TimeSeries, dates ...string) []series.TimeSeries {
	if len(dates) == 0 {
		return list
	}
	want := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		want[d] = struct{}{}
	}
	out := make([]series.TimeSeries, 0, len(list))
	for _, s := range list {
		if _, ok := want[s.Date]; ok {
			out = append(out, s)
		}
	}
	return out
}

// WriteSeries writes list in the long format ReadSeries accepts. Dimension
// columns are the union of every series' keys in order of first use; a
// missing sample is written as an empty value.
func WriteSeries(w io.Writer, list []series.TimeSeries) error {
	dimKeys := make([]string, 0)
	seen := make(map[string]struct{})
	for _, s := range list {
		for _, d := range s.Dimensions {
			if _, ok := seen[d.Key]; ok {
				continue
			}
			seen[d.Key] = struct{}{}
			dimKeys = append(dimKeys, d.Key)
		}
	}

	writer := csv.NewWriter(w)
	header := append([]string{"time", "metric", "value", "unit", "date"}, dimKeys...)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, s := range list {
		for _, p := range s.Points {
			value := ""
			if p.Valid() {
				value = strconv.FormatFloat(p.Value, 'f', -1, 64)
			}
			record := []string{p.Time.Format(time.RFC3339), s.MetricKey, value, s.Unit, s.Date}
			for _, key := range dimKeys {
				v, _ := s.Dimensions.Get(key)
				record = append(record, v)
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
