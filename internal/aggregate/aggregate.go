// Package aggregate collapses raw samples into calendar buckets for display.
package aggregate

import (
	"sort"
	"time"

	"curtailwatch/internal/series"
)

type bucket struct {
	start time.Time
	sum   float64
	count int
}

// Aggregate averages points per calendar day or month. Each bucket is anchored
// at its canonical start in the location of its first sample; the output is
// sorted by bucket start. Point granularity returns the input unchanged.
// Non-finite values are skipped; a bucket with no finite values is dropped.
func Aggregate(points []series.Point, g series.Granularity) []series.Point {
	if g != series.GranularityDay && g != series.GranularityMonth {
		return points
	}

	buckets := make(map[string]*bucket)
	for _, p := range points {
		if !p.Valid() {
			continue
		}
		key, start := bucketOf(p.Time, g)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{start: start}
			buckets[key] = b
		}
		b.sum += p.Value
		b.count++
	}

	out := make([]series.Point, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, series.Point{Time: b.start, Value: b.sum / float64(b.count)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func bucketOf(t time.Time, g series.Granularity) (string, time.Time) {
	y, m, d := t.Date()
	if g == series.GranularityMonth {
		return t.Format("2006-01"), time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	}
	return t.Format(series.DateLayout), time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
