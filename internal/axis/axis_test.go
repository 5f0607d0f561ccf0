package axis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"curtailwatch/internal/series"
)

func f(v float64) *float64 { return &v }

func TestResolveRangeFromData(t *testing.T) {
	r := ResolveRange("实际功率", []float64{10, 20, 30}, Override{}, Options{ScaleFactor: 1})

	assert.Equal(t, Range{MetricKey: "实际功率", Min: 9, Max: 33, HasMin: true, HasMax: true}, r)
}

func TestResolveRangeSingleValueKeepsHeight(t *testing.T) {
	r := ResolveRange("实际功率", []float64{0, 0}, Override{}, Options{})

	assert.Equal(t, -1.0, r.Min)
	assert.Equal(t, 1.0, r.Max)
}

func TestResolveRangeNegativeData(t *testing.T) {
	r := ResolveRange("功率", []float64{-10, -5}, Override{}, Options{ScaleFactor: 1})

	assert.Equal(t, -11.0, r.Min)
	assert.Equal(t, -4.0, r.Max)
}

func TestResolveRangeOverrideWins(t *testing.T) {
	r := ResolveRange("辐照度", []float64{10, 2000}, Override{Min: f(5), Max: f(50)}, Options{})
	assert.Equal(t, 5.0, r.Min)
	assert.Equal(t, 50.0, r.Max)

	partial := ResolveRange("实际功率", []float64{10, 20, 30}, Override{Max: f(100)}, Options{})
	assert.Equal(t, 9.0, partial.Min)
	assert.Equal(t, 100.0, partial.Max)
}

func TestResolveRangeIrradianceDefault(t *testing.T) {
	r := ResolveRange("短波辐射", []float64{10, 2000}, Override{}, Options{})

	assert.Equal(t, 0.0, r.Min)
	assert.Equal(t, 1000.0, r.Max)
}

func TestResolveRangeDispatchDefaultNeedsFlag(t *testing.T) {
	off := ResolveRange("AGC远方指令", []float64{10, 20, 30}, Override{}, Options{})
	assert.Equal(t, 9.0, off.Min)
	assert.Equal(t, 33.0, off.Max)

	on := ResolveRange("AGC远方指令", []float64{10, 20, 30}, Override{}, Options{UseDefaultLimits: true})
	assert.Equal(t, 0.0, on.Min)
	assert.Equal(t, 1000.0, on.Max)
}

func TestResolveRangeScaleFactor(t *testing.T) {
	r := ResolveRange("实际功率", []float64{10, 20, 30}, Override{}, Options{ScaleFactor: 2})
	assert.Equal(t, 18.0, r.Min)
	assert.Equal(t, 66.0, r.Max)

	nan := ResolveRange("实际功率", []float64{10, 20, 30}, Override{}, Options{ScaleFactor: math.NaN()})
	assert.Equal(t, 33.0, nan.Max)
}

func TestResolveRangeNoData(t *testing.T) {
	r := ResolveRange("实际功率", []float64{math.NaN()}, Override{}, Options{})

	assert.False(t, r.HasMin)
	assert.False(t, r.HasMax)
}

var loc = time.FixedZone("CST", 8*3600)

func TestWindowPointGranularity(t *testing.T) {
	first := time.Date(2024, 5, 1, 6, 10, 0, 0, loc)
	last := time.Date(2024, 5, 2, 20, 0, 0, 0, loc)

	start, end := SolarWindow(7, 19).Resolve(series.GranularityPoint, false, first, last)

	assert.Equal(t, time.Date(2024, 5, 1, 7, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 5, 2, 19, 59, 59, lastNano, loc), end)
}

func TestWindowOverlay(t *testing.T) {
	first := time.Date(2024, 5, 1, 6, 10, 0, 0, loc)

	start, end := DefaultWindow().Resolve(series.GranularityPoint, true, first, first)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2000, 1, 1, 23, 59, 59, lastNano, loc), end)

	start, end = DefaultWindow().Resolve(series.GranularityMonth, true, first, first)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2000, 12, 31, 23, 59, 59, lastNano, loc), end)
}

func TestWindowDayClampsToMonthLength(t *testing.T) {
	first := time.Date(2024, 2, 3, 0, 0, 0, 0, loc)
	last := time.Date(2024, 4, 9, 0, 0, 0, 0, loc)

	start, end := DefaultWindow().Resolve(series.GranularityDay, false, first, last)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 4, 30, 23, 59, 59, lastNano, loc), end)
}
