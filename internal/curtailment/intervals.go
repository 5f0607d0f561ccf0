package curtailment

import (
	"errors"
	"fmt"
	"time"
)

// ErrOutOfOrder is returned when a classification stream is not ascending in time.
var ErrOutOfOrder = errors.New("curtailment: classification stream out of order")

// Interval is a maximal run of curtailed instants.
type Interval struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	EndInclusive bool      `json:"endInclusive"`
}

// Contains reports whether t falls inside the interval, honouring the end bound.
func (iv Interval) Contains(t time.Time) bool {
	if t.Before(iv.Start) {
		return false
	}
	if iv.EndInclusive {
		return !t.After(iv.End)
	}
	return t.Before(iv.End)
}

// Intervals is an ordered, non-overlapping list of intervals.
type Intervals []Interval

// Contains reports whether any interval contains t.
func (ivs Intervals) Contains(t time.Time) bool {
	for _, iv := range ivs {
		if iv.Contains(t) {
			return true
		}
	}
	return false
}

// ExtractIntervals run-length encodes a classification stream.
//
// A curtailed sample opens an interval. A clear or unclassifiable sample closes
// an open interval at its own timestamp, exclusive. An interval still open at
// the end of the stream closes inclusively at the last sample. Unclassifiable
// samples outside an interval are ignored.
func ExtractIntervals(stream []Sample) (Intervals, error) {
	var (
		out    Intervals
		inside bool
		start  time.Time
	)

	for i, s := range stream {
		if i > 0 && !s.Time.After(stream[i-1].Time) {
			return nil, fmt.Errorf("%w: sample %d at %s not after %s", ErrOutOfOrder, i, s.Time.Format(time.RFC3339), stream[i-1].Time.Format(time.RFC3339))
		}

		switch {
		case !inside && s.State == StateCurtailed:
			inside = true
			start = s.Time
		case inside && s.State != StateCurtailed:
			out = append(out, Interval{Start: start, End: s.Time})
			inside = false
		}
	}

	if inside {
		out = append(out, Interval{Start: start, End: stream[len(stream)-1].Time, EndInclusive: true})
	}
	return out, nil
}
