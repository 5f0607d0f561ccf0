// Package engine runs one full analysis pass over the currently selected series.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"curtailwatch/internal/aggregate"
	"curtailwatch/internal/axis"
	"curtailwatch/internal/curtailment"
	"curtailwatch/internal/metric"
	"curtailwatch/internal/overlay"
	"curtailwatch/internal/series"
)

// Options carry every input of a pass besides the series themselves.
type Options struct {
	GroupDimension string                   `json:"groupDimension"`
	Thresholds     curtailment.Thresholds   `json:"thresholds"`
	Granularity    series.Granularity       `json:"granularity"`
	Overlay        bool                     `json:"overlay"`
	Axis           axis.Options             `json:"axis"`
	AxisOverrides  map[string]axis.Override `json:"axisOverrides,omitempty"`
	Window         axis.WindowConfig        `json:"window"`
}

// DefaultOptions mirrors the documented defaults.
func DefaultOptions() Options {
	return Options{
		Thresholds:  curtailment.DefaultThresholds(),
		Granularity: series.GranularityPoint,
		Axis:        axis.Options{ScaleFactor: 1, UseDefaultLimits: true},
		Window:      axis.DefaultWindow(),
	}
}

// GroupReport summarises curtailment analysis for one group.
type GroupReport struct {
	Key      string   `json:"key"`
	Date     string   `json:"date"`
	Station  string   `json:"station"`
	Analyzed bool     `json:"analyzed"`
	Missing  []string `json:"missing,omitempty"`
	// Intervals are on the display axis (remapped when overlay is on).
	Intervals curtailment.Intervals `json:"intervals"`
	// RawIntervals are always in real time.
	RawIntervals curtailment.Intervals `json:"rawIntervals"`
	Classified   int                   `json:"classified"`
	Curtailed    int                   `json:"curtailed"`
}

// CurtailedDuration sums the real-time length of the raw intervals.
func (g GroupReport) CurtailedDuration() time.Duration {
	var total time.Duration
	for _, iv := range g.RawIntervals {
		total += iv.End.Sub(iv.Start)
	}
	return total
}

// DisplaySeries is a series prepared for a renderer.
type DisplaySeries struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	MetricKey string         `json:"metricKey"`
	GroupKey  string         `json:"groupKey"`
	Role      string         `json:"role"`
	Points    []series.Point `json:"points"`
}

// Result is everything one pass produces. It is never mutated after Run returns.
type Result struct {
	GroupDimension string                     `json:"groupDimension"`
	Groups         []GroupReport              `json:"groups"`
	Classification curtailment.Classification `json:"-"`
	Display        []DisplaySeries            `json:"display"`
	Axes           []axis.Range               `json:"axes"`
	WindowStart    time.Time                  `json:"windowStart"`
	WindowEnd      time.Time                  `json:"windowEnd"`
}

// Group returns the report for key.
func (r Result) Group(key string) (GroupReport, bool) {
	for _, g := range r.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return GroupReport{}, false
}

// StatusAt reports whether display instant t lies inside any curtailment
// interval of any group, the way a tooltip status row does.
func (r Result) StatusAt(t time.Time) bool {
	for _, g := range r.Groups {
		if g.Intervals.Contains(t) {
			return true
		}
	}
	return false
}

// Engine is a stateless runner; it only holds a logger.
type Engine struct {
	logger zerolog.Logger
}

// New constructs an Engine.
func New(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger.With().Str("component", "engine").Logger()}
}

// Run executes one pass. Curtailment always runs on raw points; aggregation and
// the overlay remap only touch display output. An error means an internal
// ordering contract was broken, never that the data was bad.
func (e *Engine) Run(list []series.TimeSeries, opts Options) (Result, error) {
	th := opts.Thresholds.Normalize()
	remap := overlay.New(opts.Granularity)

	dimension := series.ResolveGroupDimension(opts.GroupDimension, list)
	groups := series.GroupBy(list, dimension)

	res := Result{
		GroupDimension: dimension,
		Groups:         make([]GroupReport, 0, len(groups)),
		Classification: make(curtailment.Classification, len(groups)),
	}

	for _, g := range groups {
		analysis, err := curtailment.AnalyzeGroup(g, th)
		if err != nil {
			return Result{}, fmt.Errorf("analyze group: %w", err)
		}

		report := GroupReport{
			Key:      g.Key,
			Date:     g.Date,
			Station:  g.Value,
			Analyzed: analysis.Analyzed(),
		}
		if !report.Analyzed {
			for _, role := range analysis.Roles.Missing() {
				report.Missing = append(report.Missing, role.String())
			}
			e.logger.Debug().Str("group", g.Key).Strs("missing", report.Missing).Msg("group skipped for curtailment analysis")
		} else {
			res.Classification[g.Key] = analysis.Status
			report.RawIntervals = analysis.Intervals
			report.Intervals = analysis.Intervals
			if opts.Overlay {
				report.Intervals = remap.Intervals(analysis.Intervals)
			}
			report.Classified = len(analysis.Status)
			for _, curtailed := range analysis.Status {
				if curtailed {
					report.Curtailed++
				}
			}
			e.logger.Debug().Str("group", g.Key).
				Int("aligned", len(analysis.Aligned)).
				Int("curtailed", report.Curtailed).
				Int("intervals", len(analysis.Intervals)).
				Msg("group analyzed")
		}
		res.Groups = append(res.Groups, report)

		for _, s := range g.Series {
			points := aggregate.Aggregate(s.Points, opts.Granularity)
			if opts.Overlay {
				points = remap.Points(points)
			}
			res.Display = append(res.Display, DisplaySeries{
				ID:        s.ID,
				Name:      s.MetricKey,
				MetricKey: metric.CleanName(s.MetricKey, s.Unit),
				GroupKey:  g.Key,
				Role:      metric.RoleOf(s.MetricKey).String(),
				Points:    points,
			})
		}
	}

	res.Axes = resolveAxes(list, opts)
	res.WindowStart, res.WindowEnd = resolveWindow(res.Display, opts)

	e.logger.Debug().Int("series", len(list)).Int("groups", len(groups)).Str("dimension", dimension).Msg("analysis pass complete")
	return res, nil
}

// resolveAxes computes one range per cleaned metric key, in order of first
// appearance, over the raw values of every series with that key.
func resolveAxes(list []series.TimeSeries, opts Options) []axis.Range {
	order := make([]string, 0)
	values := make(map[string][]float64)
	for _, s := range list {
		key := metric.CleanName(s.MetricKey, s.Unit)
		if _, ok := values[key]; !ok {
			order = append(order, key)
			values[key] = nil
		}
		values[key] = append(values[key], series.Values(s.Points)...)
	}

	out := make([]axis.Range, 0, len(order))
	for _, key := range order {
		out = append(out, axis.ResolveRange(key, values[key], lookupOverride(opts.AxisOverrides, key), opts.Axis))
	}
	return out
}

// lookupOverride falls back to the lowercased key because config files loaded
// through viper lowercase every map key.
func lookupOverride(overrides map[string]axis.Override, key string) axis.Override {
	if o, ok := overrides[key]; ok {
		return o
	}
	return overrides[strings.ToLower(key)]
}

func resolveWindow(display []DisplaySeries, opts Options) (time.Time, time.Time) {
	var first, last time.Time
	for _, d := range display {
		for _, p := range d.Points {
			if first.IsZero() || p.Time.Before(first) {
				first = p.Time
			}
			if last.IsZero() || p.Time.After(last) {
				last = p.Time
			}
		}
	}
	if first.IsZero() {
		return time.Time{}, time.Time{}
	}
	if opts.Window == (axis.WindowConfig{}) {
		opts.Window = axis.DefaultWindow()
	}
	return opts.Window.Resolve(opts.Granularity, opts.Overlay, first, last)
}
