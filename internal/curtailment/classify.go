package curtailment

import (
	"math"
	"time"
)

const (
	// DefaultIrradianceThreshold is the minimum irradiance (W/m²) for curtailment to be possible.
	DefaultIrradianceThreshold = 20.0
	// DefaultDiffThreshold is the dispatch/power gap (MW) under which output is considered pinned.
	DefaultDiffThreshold = 3.0
)

// Thresholds parameterise the per-instant decision.
type Thresholds struct {
	Irradiance float64 `json:"irradiance"`
	Diff       float64 `json:"diff"`
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Irradiance: DefaultIrradianceThreshold, Diff: DefaultDiffThreshold}
}

// Normalize replaces non-finite thresholds with their defaults.
func (t Thresholds) Normalize() Thresholds {
	if !finite(t.Irradiance) {
		t.Irradiance = DefaultIrradianceThreshold
	}
	if !finite(t.Diff) {
		t.Diff = DefaultDiffThreshold
	}
	return t
}

// State is the outcome of classifying one aligned instant.
type State int

const (
	// StateUnclassifiable marks an instant missing one of the three inputs.
	StateUnclassifiable State = iota
	StateClear
	StateCurtailed
)

func (s State) String() string {
	switch s {
	case StateClear:
		return "clear"
	case StateCurtailed:
		return "curtailed"
	default:
		return "unclassifiable"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Sample is one element of the time-ordered classification stream.
type Sample struct {
	Time  time.Time `json:"time"`
	State State     `json:"state"`
}

// Decide classifies a single aligned point. ok is false when any input is
// missing or non-finite; such instants are never curtailed.
func Decide(p AlignedPoint, th Thresholds) (curtailed bool, ok bool) {
	if !usable(p.Irradiance) || !usable(p.Dispatch) || !usable(p.Power) {
		return false, false
	}
	th = th.Normalize()

	irradiance := p.Irradiance.Value
	dispatch := p.Dispatch.Value
	power := p.Power.Value

	curtailed = irradiance > th.Irradiance &&
		(dispatch < power || math.Abs(dispatch-power) < th.Diff)
	return curtailed, true
}

// PointStatus maps an instant (Unix nanoseconds) to its classification.
// Unclassifiable instants are absent.
type PointStatus map[int64]bool

// Lookup returns the classification recorded for t.
func (s PointStatus) Lookup(t time.Time) (curtailed bool, ok bool) {
	curtailed, ok = s[t.UnixNano()]
	return curtailed, ok
}

// Classification is the per-group point status cache handed to renderers.
type Classification map[string]PointStatus

// Lookup returns the classification of t within group.
func (c Classification) Lookup(group string, t time.Time) (curtailed bool, ok bool) {
	status, found := c[group]
	if !found {
		return false, false
	}
	return status.Lookup(t)
}

// Classify evaluates every aligned point, returning the status cache and the
// ordered stream consumed by ExtractIntervals.
func Classify(points []AlignedPoint, th Thresholds) (PointStatus, []Sample) {
	status := make(PointStatus, len(points))
	stream := make([]Sample, 0, len(points))
	for _, p := range points {
		curtailed, ok := Decide(p, th)
		state := StateUnclassifiable
		if ok {
			status[p.Time.UnixNano()] = curtailed
			state = StateClear
			if curtailed {
				state = StateCurtailed
			}
		}
		stream = append(stream, Sample{Time: p.Time, State: state})
	}
	return status, stream
}

func usable(r Reading) bool {
	return r.Valid && finite(r.Value)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
