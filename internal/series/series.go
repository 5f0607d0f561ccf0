package series

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// DateLayout is the calendar date format carried on every series.
const DateLayout = "2006-01-02"

// Point is a single timestamped sample.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Valid reports whether the sample carries a usable number.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0)
}

type wirePoint struct {
	Time  time.Time `json:"time"`
	Value *float64  `json:"value"`
}

// MarshalJSON writes non-finite values as null.
func (p Point) MarshalJSON() ([]byte, error) {
	w := wirePoint{Time: p.Time}
	if p.Valid() {
		v := p.Value
		w.Value = &v
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads a null or missing value as NaN.
func (p *Point) UnmarshalJSON(data []byte) error {
	var w wirePoint
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.Time = w.Time
	p.Value = math.NaN()
	if w.Value != nil {
		p.Value = *w.Value
	}
	return nil
}

// Dimension is one key/value pair of a series' dimension tuple.
type Dimension struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Dimensions is an ordered mapping; the first entry for a key wins on lookup.
type Dimensions []Dimension

// Get returns the value stored under key.
func (d Dimensions) Get(key string) (string, bool) {
	for _, dim := range d {
		if dim.Key == key {
			return dim.Value, true
		}
	}
	return "", false
}

// With returns a copy of d with key set to value, keeping insertion order.
func (d Dimensions) With(key, value string) Dimensions {
	out := make(Dimensions, 0, len(d)+1)
	replaced := false
	for _, dim := range d {
		if dim.Key == key && !replaced {
			out = append(out, Dimension{Key: key, Value: value})
			replaced = true
			continue
		}
		out = append(out, dim)
	}
	if !replaced {
		out = append(out, Dimension{Key: key, Value: value})
	}
	return out
}

// TimeSeries is a caller-owned sequence of samples for one metric on one date.
type TimeSeries struct {
	ID         string     `json:"id"`
	MetricKey  string     `json:"metricKey"`
	Date       string     `json:"date"`
	Dimensions Dimensions `json:"dimensions,omitempty"`
	Unit       string     `json:"unit,omitempty"`
	Points     []Point    `json:"points"`
}

// Normalize returns the points sorted by time with duplicate timestamps
// collapsed; the sample appearing last in input order wins.
func Normalize(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	out := sorted[:0:0]
	for _, p := range sorted {
		if n := len(out); n > 0 && out[n-1].Time.Equal(p.Time) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// Sorted reports whether points are in non-decreasing time order.
func Sorted(points []Point) bool {
	for i := 1; i < len(points); i++ {
		if points[i].Time.Before(points[i-1].Time) {
			return false
		}
	}
	return true
}

// Values extracts the finite values of points.
func Values(points []Point) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Valid() {
			out = append(out, p.Value)
		}
	}
	return out
}
