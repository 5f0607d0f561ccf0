// Package overlay maps real instants onto a shared synthetic calendar so that
// several dates can be compared on one axis.
package overlay

import (
	"time"

	"curtailwatch/internal/curtailment"
	"curtailwatch/internal/series"
)

// Reference date of the synthetic axis.
const (
	referenceYear  = 2000
	referenceMonth = time.January
	referenceDay   = 1
)

// Remapper projects instants for one granularity. The zero value remaps at
// point granularity.
type Remapper struct {
	Granularity series.Granularity
}

// New returns a remapper for g.
func New(g series.Granularity) Remapper {
	return Remapper{Granularity: g}
}

// Time maps t onto the reference date, keeping only the field that matters for
// the granularity: clock time for points, day of month for days, month for months.
// The result stays in t's location.
func (r Remapper) Time(t time.Time) time.Time {
	loc := t.Location()
	switch r.Granularity {
	case series.GranularityDay:
		return time.Date(referenceYear, referenceMonth, t.Day(), 0, 0, 0, 0, loc)
	case series.GranularityMonth:
		return time.Date(referenceYear, t.Month(), referenceDay, 0, 0, 0, 0, loc)
	default:
		return time.Date(referenceYear, referenceMonth, referenceDay, t.Hour(), t.Minute(), t.Second(), 0, loc)
	}
}

// Points remaps the timestamps of points into a new slice.
func (r Remapper) Points(points []series.Point) []series.Point {
	out := make([]series.Point, len(points))
	for i, p := range points {
		out[i] = series.Point{Time: r.Time(p.Time), Value: p.Value}
	}
	return out
}

// Interval remaps both boundaries of iv; the end bound kind is preserved.
func (r Remapper) Interval(iv curtailment.Interval) curtailment.Interval {
	return curtailment.Interval{
		Start:        r.Time(iv.Start),
		End:          r.Time(iv.End),
		EndInclusive: iv.EndInclusive,
	}
}

// Intervals remaps every interval of ivs.
func (r Remapper) Intervals(ivs curtailment.Intervals) curtailment.Intervals {
	if ivs == nil {
		return nil
	}
	out := make(curtailment.Intervals, len(ivs))
	for i, iv := range ivs {
		out[i] = r.Interval(iv)
	}
	return out
}

// Inverse maps a synthetic instant back onto the calendar of source, the date
// the value originally came from. The result is in source's location.
func (r Remapper) Inverse(t time.Time, source time.Time) time.Time {
	loc := source.Location()
	switch r.Granularity {
	case series.GranularityDay:
		return time.Date(source.Year(), source.Month(), t.Day(), 0, 0, 0, 0, loc)
	case series.GranularityMonth:
		return time.Date(source.Year(), t.Month(), referenceDay, 0, 0, 0, 0, loc)
	default:
		return time.Date(source.Year(), source.Month(), source.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	}
}
