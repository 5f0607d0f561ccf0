package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curtailwatch/internal/series"
)

var loc = time.FixedZone("CST", 8*3600)

func station(name string) series.Dimensions {
	return series.Dimensions{{Key: "场站名称", Value: name}}
}

func build(metric, date, name string, start time.Time, every time.Duration, values ...float64) series.TimeSeries {
	points := make([]series.Point, len(values))
	for i, v := range values {
		points[i] = series.Point{Time: start.Add(time.Duration(i) * every), Value: v}
	}
	return series.TimeSeries{ID: metric + "-" + date + "-" + name, MetricKey: metric, Date: date, Dimensions: station(name), Points: points}
}

func fixture() []series.TimeSeries {
	d1 := time.Date(2024, 5, 1, 10, 0, 0, 0, loc)
	d2 := time.Date(2024, 5, 2, 10, 0, 0, 0, loc)
	q := 15 * time.Minute
	return []series.TimeSeries{
		build("辐照度", "2024-05-01", "峙书", d1, q, 50, 60, 55, 40, 45),
		build("AGC远方指令", "2024-05-01", "峙书", d1, q, 10, 10, 10, 10, 10),
		build("实际功率", "2024-05-01", "峙书", d1, q, 10, 10, 5, 10, 10),
		build("辐照度", "2024-05-02", "峙书", d2, q, 50, 60, 55, 40, 45),
		build("AGC远方指令", "2024-05-02", "峙书", d2, q, 10, 10, 10, 10, 10),
		build("实际功率", "2024-05-02", "峙书", d2, q, 10, 10, 10, 10, 10),
		build("实际功率", "2024-05-01", "守旗", d1, q, 1, 2, 3),
	}
}

func TestRunGroupsAndIntervals(t *testing.T) {
	res, err := New(zerolog.Nop()).Run(fixture(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "场站名称", res.GroupDimension)
	require.Len(t, res.Groups, 3)

	first, ok := res.Group("2024-05-01_峙书")
	require.True(t, ok)
	require.True(t, first.Analyzed)
	require.Len(t, first.RawIntervals, 2)
	assert.False(t, first.RawIntervals[0].EndInclusive)
	assert.True(t, first.RawIntervals[1].EndInclusive)
	assert.Equal(t, 5, first.Classified)
	assert.Equal(t, 4, first.Curtailed)
	assert.Equal(t, 45*time.Minute, first.CurtailedDuration())

	second, ok := res.Group("2024-05-02_峙书")
	require.True(t, ok)
	require.Len(t, second.RawIntervals, 1)
	assert.True(t, second.RawIntervals[0].EndInclusive)

	partial, ok := res.Group("2024-05-01_守旗")
	require.True(t, ok)
	assert.False(t, partial.Analyzed)
	assert.ElementsMatch(t, []string{"irradiance", "dispatch"}, partial.Missing)
	_, classified := res.Classification["2024-05-01_守旗"]
	assert.False(t, classified)

	curtailed, ok := res.Classification.Lookup("2024-05-01_峙书", time.Date(2024, 5, 1, 10, 30, 0, 0, loc))
	require.True(t, ok)
	assert.False(t, curtailed)
}

func TestRunAxesPerMetric(t *testing.T) {
	res, err := New(zerolog.Nop()).Run(fixture(), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Axes, 3)
	assert.Equal(t, "辐照度", res.Axes[0].MetricKey)
	assert.Equal(t, 1000.0, res.Axes[0].Max)
	assert.Equal(t, "AGC远方指令", res.Axes[1].MetricKey)
	assert.Equal(t, 0.0, res.Axes[1].Min, "default limits are on by default")
	assert.Equal(t, "实际功率", res.Axes[2].MetricKey)
	assert.Equal(t, 11.0, res.Axes[2].Max)
}

func TestRunOverlayKeepsShadingOnCurves(t *testing.T) {
	opts := DefaultOptions()
	opts.Overlay = true

	res, err := New(zerolog.Nop()).Run(fixture(), opts)
	require.NoError(t, err)

	second, _ := res.Group("2024-05-02_峙书")
	require.Len(t, second.Intervals, 1)
	start := second.Intervals[0].Start
	assert.Equal(t, 2000, start.Year())
	assert.Equal(t, 10, start.Hour())
	assert.Equal(t, 2024, second.RawIntervals[0].Start.Year())

	var power series.TimeSeries
	for _, d := range res.Display {
		if d.GroupKey == "2024-05-02_峙书" && d.Role == "power" {
			power = series.TimeSeries{Points: d.Points}
		}
	}
	require.NotEmpty(t, power.Points)
	assert.Equal(t, power.Points[0].Time, start)
	assert.Equal(t, power.Points[len(power.Points)-1].Time, second.Intervals[0].End)

	assert.True(t, res.StatusAt(start))
	assert.Equal(t, 2000, res.WindowStart.Year())
}

func TestRunAggregationDoesNotAffectIntervals(t *testing.T) {
	opts := DefaultOptions()
	opts.Granularity = series.GranularityDay

	res, err := New(zerolog.Nop()).Run(fixture(), opts)
	require.NoError(t, err)

	first, _ := res.Group("2024-05-01_峙书")
	require.Len(t, first.RawIntervals, 2)
	for _, d := range res.Display {
		assert.Len(t, d.Points, 1, d.ID)
	}
}

func TestRunEmpty(t *testing.T) {
	res, err := New(zerolog.Nop()).Run(nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
	assert.True(t, res.WindowStart.IsZero())
}
