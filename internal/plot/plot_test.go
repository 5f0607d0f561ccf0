package plot

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"curtailwatch/internal/engine"
	"curtailwatch/internal/series"
)

var loc = time.FixedZone("CST", 8*3600)

func build(metric string, values ...float64) series.TimeSeries {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, loc)
	points := make([]series.Point, len(values))
	for i, v := range values {
		points[i] = series.Point{Time: start.Add(time.Duration(i) * 15 * time.Minute), Value: v}
	}
	return series.TimeSeries{
		ID:         metric,
		MetricKey:  metric,
		Date:       "2024-05-01",
		Dimensions: series.Dimensions{{Key: "场站名称", Value: "峙书"}},
		Points:     points,
	}
}

func analysed(t *testing.T) engine.Result {
	t.Helper()
	res, err := engine.New(zerolog.Nop()).Run([]series.TimeSeries{
		build("辐照度", 50, 60, 55, 40, 45),
		build("AGC远方指令", 10, 10, 10, 10, 10),
		build("实际功率", 10, 10, 5, 10, 10),
	}, engine.DefaultOptions())
	require.NoError(t, err)
	return res
}

func TestShadeColor(t *testing.T) {
	assert.Equal(t, drawing.Color{R: 255, G: 70, B: 70, A: 77}, ShadeColor("#ff4646", 0.3))
	assert.Equal(t, drawing.Color{R: 0xaa, G: 0xbb, B: 0xcc, A: 255}, ShadeColor("#abc", 1))
	assert.Equal(t, drawing.Color{R: 255, G: 70, B: 70, A: 0}, ShadeColor("red", -2))
	assert.Equal(t, drawing.Color{R: 255, G: 70, B: 70, A: 77}, ShadeColor("#zzzzzz", math.NaN()))
}

func TestBuildPlacesIrradianceOnSecondaryAxis(t *testing.T) {
	res := analysed(t)
	graph, err := Build(res, Options{Title: "峙书", Width: 800, Height: 400})
	require.NoError(t, err)

	bands := 0
	for _, g := range res.Groups {
		bands += len(g.Intervals)
	}
	require.Positive(t, bands)
	require.Len(t, graph.Series, bands+len(res.Display))

	secondary := 0
	filled := 0
	for _, s := range graph.Series {
		ts, ok := s.(chart.TimeSeries)
		require.True(t, ok)
		if ts.YAxis == chart.YAxisSecondary {
			secondary++
		}
		if !ts.Style.FillColor.IsZero() {
			filled++
		}
	}
	assert.Equal(t, 1, secondary)
	assert.Equal(t, bands, filled)
	assert.NotNil(t, graph.YAxis.Range)
	assert.NotNil(t, graph.YAxisSecondary.Range)
	assert.Len(t, graph.Elements, 1)
}

func TestBuildWithoutData(t *testing.T) {
	_, err := Build(engine.Result{}, Options{})
	assert.ErrorIs(t, err, ErrNothingToPlot)
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, analysed(t), Options{Width: 640, Height: 360, ShadeHex: DefaultShadeHex, ShadeOpacity: DefaultShadeOpacity}))
	require.Greater(t, buf.Len(), 8)
	assert.Equal(t, []byte("\x89PNG"), buf.Bytes()[:4])
}
