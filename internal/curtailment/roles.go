package curtailment

import (
	"curtailwatch/internal/metric"
	"curtailwatch/internal/series"
)

// RoleMap holds the series chosen for each role in a group. Nil means the role
// is unassigned.
type RoleMap struct {
	Irradiance *series.TimeSeries
	Dispatch   *series.TimeSeries
	Power      *series.TimeSeries
}

// Complete reports whether every role is assigned.
func (r RoleMap) Complete() bool {
	return r.Irradiance != nil && r.Dispatch != nil && r.Power != nil
}

// Missing lists the unassigned roles.
func (r RoleMap) Missing() []metric.Role {
	var out []metric.Role
	if r.Irradiance == nil {
		out = append(out, metric.RoleIrradiance)
	}
	if r.Dispatch == nil {
		out = append(out, metric.RoleDispatch)
	}
	if r.Power == nil {
		out = append(out, metric.RolePower)
	}
	return out
}

// ClassifyRoles tags the series of a group. Each series takes its highest
// priority role; the first series in input order wins each role.
func ClassifyRoles(group series.Group) RoleMap {
	var roles RoleMap
	for i := range group.Series {
		s := &group.Series[i]
		switch metric.RoleOf(s.MetricKey) {
		case metric.RoleIrradiance:
			if roles.Irradiance == nil {
				roles.Irradiance = s
			}
		case metric.RoleDispatch:
			if roles.Dispatch == nil {
				roles.Dispatch = s
			}
		case metric.RolePower:
			if roles.Power == nil {
				roles.Power = s
			}
		}
	}
	return roles
}
