package curtailment

import (
	"sort"
	"time"

	"curtailwatch/internal/series"
)

// Reading is an optional numeric field of an aligned row.
type Reading struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

func present(v float64) Reading {
	return Reading{Value: v, Valid: true}
}

// AlignedPoint is one row of the merged timeline of a group.
type AlignedPoint struct {
	Time       time.Time `json:"time"`
	Irradiance Reading   `json:"irradiance"`
	Dispatch   Reading   `json:"dispatch"`
	Power      Reading   `json:"power"`
	// IrradianceFilled marks an irradiance value carried forward from an earlier sample.
	IrradianceFilled bool `json:"irradianceFilled,omitempty"`
}

type slot struct {
	time       time.Time
	irradiance Reading
	dispatch   Reading
	power      Reading
}

// Align merges the role series of a group onto the union of their timestamps.
// Only irradiance is forward-filled. A later sample at an already seen
// timestamp replaces the earlier one (last write wins). Non-finite samples are
// treated as absent. Roles left nil contribute no timestamps.
func Align(roles RoleMap) []AlignedPoint {
	slots := make(map[int64]*slot)

	insert := func(s *series.TimeSeries, set func(*slot, Reading)) {
		if s == nil {
			return
		}
		for _, p := range s.Points {
			key := p.Time.UnixNano()
			sl, ok := slots[key]
			if !ok {
				sl = &slot{time: p.Time}
				slots[key] = sl
			}
			if p.Valid() {
				set(sl, present(p.Value))
			} else {
				set(sl, Reading{})
			}
		}
	}

	insert(roles.Irradiance, func(sl *slot, r Reading) { sl.irradiance = r })
	insert(roles.Dispatch, func(sl *slot, r Reading) { sl.dispatch = r })
	insert(roles.Power, func(sl *slot, r Reading) { sl.power = r })

	keys := make([]int64, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]AlignedPoint, 0, len(keys))
	var last Reading
	for _, k := range keys {
		sl := slots[k]
		row := AlignedPoint{
			Time:       sl.time,
			Irradiance: sl.irradiance,
			Dispatch:   sl.dispatch,
			Power:      sl.power,
		}
		if sl.irradiance.Valid {
			last = sl.irradiance
		} else if last.Valid {
			row.Irradiance = last
			row.IrradianceFilled = true
		}
		out = append(out, row)
	}
	return out
}
