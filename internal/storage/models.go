package storage

import (
	"time"

	"github.com/google/uuid"
)

// Station is one entry of the station registry.
type Station struct {
	Name    string
	Lon     float64
	Lat     float64
	Region  string
	Azimuth float64
	Tilt    float64
}

// Measurement is a single persisted sample. A NaN value is stored as NULL.
type Measurement struct {
	Metric  string
	Station string
	TS      time.Time
	Value   float64
	Unit    string
}

// IntervalRecord captures a detected curtailment interval for auditing and
// alert de-duplication. Rows are keyed by (GroupKey, Start); a later run that
// extends the same interval only moves End.
type IntervalRecord struct {
	GroupKey     string
	Start        time.Time
	End          time.Time
	EndInclusive bool
	Station      string
	Day          string
	RunID        uuid.UUID
	NotifiedAt   *time.Time
	CreatedAt    time.Time
}

// Duration is the real-time length of the interval.
func (r IntervalRecord) Duration() time.Duration {
	return r.End.Sub(r.Start)
}
