package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curtailwatch/internal/curtailment"
	"curtailwatch/internal/series"
)

var shanghai = time.FixedZone("CST", 8*3600)

func TestTimeByGranularity(t *testing.T) {
	ts := time.Date(2024, 7, 19, 13, 45, 30, 500, shanghai)

	assert.Equal(t, time.Date(2000, 1, 1, 13, 45, 30, 0, shanghai), New(series.GranularityPoint).Time(ts))
	assert.Equal(t, time.Date(2000, 1, 19, 0, 0, 0, 0, shanghai), New(series.GranularityDay).Time(ts))
	assert.Equal(t, time.Date(2000, 7, 1, 0, 0, 0, 0, shanghai), New(series.GranularityMonth).Time(ts))
}

func TestTimeIsIdempotent(t *testing.T) {
	ts := time.Date(2023, 12, 31, 23, 59, 59, 0, shanghai)
	for _, g := range []series.Granularity{series.GranularityPoint, series.GranularityDay, series.GranularityMonth} {
		r := New(g)
		once := r.Time(ts)
		assert.Equal(t, once, r.Time(once), g.String())
	}
}

func TestTwoDaysShareAxis(t *testing.T) {
	r := New(series.GranularityPoint)
	a := time.Date(2024, 5, 1, 11, 15, 0, 0, shanghai)
	b := time.Date(2024, 5, 2, 11, 15, 0, 0, shanghai)

	assert.Equal(t, r.Time(a), r.Time(b))
}

func TestSingleDayRoundTrip(t *testing.T) {
	r := New(series.GranularityPoint)
	source := time.Date(2024, 5, 1, 0, 0, 0, 0, shanghai)

	for i := 0; i < 96; i++ {
		original := source.Add(time.Duration(i) * 15 * time.Minute)
		back := r.Inverse(r.Time(original), source)
		require.True(t, original.Equal(back), "round trip of %s gave %s", original, back)
	}
}

func TestDayAndMonthRoundTrip(t *testing.T) {
	source := time.Date(2024, 3, 1, 0, 0, 0, 0, shanghai)

	day := New(series.GranularityDay)
	d := time.Date(2024, 3, 17, 0, 0, 0, 0, shanghai)
	assert.True(t, d.Equal(day.Inverse(day.Time(d), source)))

	month := New(series.GranularityMonth)
	m := time.Date(2024, 11, 1, 0, 0, 0, 0, shanghai)
	assert.True(t, m.Equal(month.Inverse(month.Time(m), source)))
}

func TestIntervalsUseSameMapping(t *testing.T) {
	r := New(series.GranularityPoint)
	start := time.Date(2024, 5, 2, 10, 0, 0, 0, shanghai)
	end := time.Date(2024, 5, 2, 10, 30, 0, 0, shanghai)
	ivs := curtailment.Intervals{{Start: start, End: end, EndInclusive: true}}
	points := []series.Point{{Time: start, Value: 1}, {Time: end, Value: 2}}

	mapped := r.Intervals(ivs)
	mappedPoints := r.Points(points)

	require.Len(t, mapped, 1)
	assert.Equal(t, mappedPoints[0].Time, mapped[0].Start)
	assert.Equal(t, mappedPoints[1].Time, mapped[0].End)
	assert.True(t, mapped[0].EndInclusive)
	assert.Equal(t, start, ivs[0].Start, "input must not be mutated")
	assert.Nil(t, r.Intervals(nil))
}
