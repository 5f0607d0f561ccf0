package axis

import (
	"time"

	"curtailwatch/internal/series"
)

// Span is an inclusive pair of range limits for one calendar field.
type Span struct {
	Start int `json:"start" mapstructure:"start"`
	End   int `json:"end" mapstructure:"end"`
}

// WindowConfig limits the visible part of the time axis per granularity:
// hours of the day, days of the month, months of the year.
type WindowConfig struct {
	Hour  Span `json:"hour" mapstructure:"hour"`
	Day   Span `json:"day" mapstructure:"day"`
	Month Span `json:"month" mapstructure:"month"`
}

// DefaultWindow shows everything.
func DefaultWindow() WindowConfig {
	return WindowConfig{
		Hour:  Span{Start: 0, End: 23},
		Day:   Span{Start: 1, End: 31},
		Month: Span{Start: 1, End: 12},
	}
}

// SolarWindow restricts the point view to daylight hours.
func SolarWindow(start, end int) WindowConfig {
	w := DefaultWindow()
	w.Hour = Span{Start: start, End: end}
	return w
}

const lastNano = 999999999

// Resolve returns the time-axis bounds for granularity g. With overlay on, the
// window lies on the synthetic reference calendar; otherwise it stretches from
// the date of first to the date of last.
func (w WindowConfig) Resolve(g series.Granularity, overlay bool, first, last time.Time) (time.Time, time.Time) {
	hour := clamp(w.Hour, 0, 23)
	day := clamp(w.Day, 1, 31)
	month := clamp(w.Month, 1, 12)
	loc := first.Location()

	if overlay {
		first = time.Date(2000, time.January, 1, 0, 0, 0, 0, loc)
		last = first
	}

	switch g {
	case series.GranularityDay:
		start := time.Date(first.Year(), first.Month(), min(day.Start, daysIn(first.Year(), first.Month())), 0, 0, 0, 0, loc)
		end := time.Date(last.Year(), last.Month(), min(day.End, daysIn(last.Year(), last.Month())), 23, 59, 59, lastNano, last.Location())
		return start, end
	case series.GranularityMonth:
		start := time.Date(first.Year(), time.Month(month.Start), 1, 0, 0, 0, 0, loc)
		endMonth := time.Month(month.End)
		end := time.Date(last.Year(), endMonth, daysIn(last.Year(), endMonth), 23, 59, 59, lastNano, last.Location())
		return start, end
	default:
		start := time.Date(first.Year(), first.Month(), first.Day(), hour.Start, 0, 0, 0, loc)
		end := time.Date(last.Year(), last.Month(), last.Day(), hour.End, 59, 59, lastNano, last.Location())
		return start, end
	}
}

func clamp(s Span, lo, hi int) Span {
	s.Start = max(lo, min(hi, s.Start))
	s.End = max(lo, min(hi, s.End))
	if s.End < s.Start {
		s.Start, s.End = s.End, s.Start
	}
	return s
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
