package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"curtailwatch/internal/axis"
	"curtailwatch/internal/engine"
	"curtailwatch/internal/metric"
)

// ErrNothingToPlot is returned when no display series has a usable point.
var ErrNothingToPlot = errors.New("plot: no data to render")

// Options control chart rendering.
type Options struct {
	Title        string
	Width        int
	Height       int
	ShadeHex     string
	ShadeOpacity float64
}

// Build lays out res as a go-chart chart. Irradiance series go on the
// secondary axis; every other metric shares the primary one. Each axis uses
// the union of the resolved ranges of the metrics drawn on it. Curtailment
// intervals are shaded as filled bands from the bottom of the primary axis to
// its top.
func Build(res engine.Result, opts Options) (chart.Chart, error) {
	ranges := make(map[string]axis.Range, len(res.Axes))
	for _, r := range res.Axes {
		ranges[r.MetricKey] = r
	}

	var primary, secondary bounds
	lines := make([]chart.Series, 0, len(res.Display))
	for i, d := range res.Display {
		xs, ys := usable(d)
		if len(xs) == 0 {
			continue
		}
		onSecondary := metric.RoleOf(d.Name) == metric.RoleIrradiance
		target := &primary
		yAxis := chart.YAxisPrimary
		if onSecondary {
			target = &secondary
			yAxis = chart.YAxisSecondary
		}
		target.include(ranges[d.MetricKey], ys)

		lines = append(lines, chart.TimeSeries{
			Name:    seriesName(d),
			XValues: xs,
			YValues: ys,
			YAxis:   yAxis,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(i),
				StrokeWidth: 1.5,
			},
		})
	}
	if len(lines) == 0 {
		return chart.Chart{}, ErrNothingToPlot
	}

	// shading needs a fixed axis to span; fall back to the secondary one when
	// only irradiance is drawn
	shadeAxis, shadeBounds := chart.YAxisPrimary, primary
	if !primary.ok {
		shadeAxis, shadeBounds = chart.YAxisSecondary, secondary
	}
	shade := ShadeColor(opts.ShadeHex, opts.ShadeOpacity)
	bands := make([]chart.Series, 0)
	for _, g := range res.Groups {
		for _, iv := range g.Intervals {
			end := iv.End
			if !end.After(iv.Start) {
				end = iv.Start.Add(time.Second)
			}
			bands = append(bands, chart.TimeSeries{
				XValues: []time.Time{iv.Start, end},
				YValues: []float64{shadeBounds.max, shadeBounds.max},
				YAxis:   shadeAxis,
				Style: chart.Style{
					StrokeColor: shade,
					StrokeWidth: 1,
					FillColor:   shade,
				},
			})
		}
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat(timeFormat(res)),
		},
		YAxis: chart.YAxis{
			ValueFormatter: valueFormatter,
			Range:          primary.continuous(),
		},
		YAxisSecondary: chart.YAxis{
			ValueFormatter: valueFormatter,
			Range:          secondary.continuous(),
		},
		Series: append(bands, lines...),
	}
	if !res.WindowStart.IsZero() && res.WindowEnd.After(res.WindowStart) {
		graph.XAxis.Range = &chart.ContinuousRange{
			Min: chart.TimeToFloat64(res.WindowStart),
			Max: chart.TimeToFloat64(res.WindowEnd),
		}
	}
	// the legend lists curves only, never the shading bands
	legend := graph
	legend.Series = lines
	graph.Elements = []chart.Renderable{chart.LegendLeft(&legend)}
	return graph, nil
}

// RenderPNG writes res as a PNG image.
func RenderPNG(w io.Writer, res engine.Result, opts Options) error {
	graph, err := Build(res, opts)
	if err != nil {
		return err
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

type bounds struct {
	min, max float64
	ok       bool
}

// include widens b with the resolved range of a metric, using the plotted
// values for any bound the resolver left open.
func (b *bounds) include(r axis.Range, ys []float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, y := range ys {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	if r.HasMin {
		lo = r.Min
	}
	if r.HasMax {
		hi = r.Max
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return
	}
	if !b.ok {
		b.min, b.max, b.ok = lo, hi, true
		return
	}
	b.min = math.Min(b.min, lo)
	b.max = math.Max(b.max, hi)
}

func (b bounds) continuous() chart.Range {
	if !b.ok {
		return nil
	}
	hi := b.max
	if hi <= b.min {
		hi = b.min + 1
	}
	return &chart.ContinuousRange{Min: b.min, Max: hi}
}

func usable(d engine.DisplaySeries) ([]time.Time, []float64) {
	xs := make([]time.Time, 0, len(d.Points))
	ys := make([]float64, 0, len(d.Points))
	for _, p := range d.Points {
		if !p.Valid() {
			continue
		}
		xs = append(xs, p.Time)
		ys = append(ys, p.Value)
	}
	return xs, ys
}

func seriesName(d engine.DisplaySeries) string {
	if d.GroupKey == "" {
		return d.MetricKey
	}
	return d.MetricKey + " " + d.GroupKey
}

func timeFormat(res engine.Result) string {
	if res.WindowEnd.Sub(res.WindowStart) > 48*time.Hour {
		return "01-02"
	}
	return "15:04"
}

func valueFormatter(v interface{}) string {
	return chart.FloatValueFormatterWithFormat(v, "%.2f")
}
