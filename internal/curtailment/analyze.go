package curtailment

import (
	"fmt"

	"curtailwatch/internal/series"
)

// GroupResult is the outcome of running the curtailment pipeline on one group.
type GroupResult struct {
	Group     series.Group
	Roles     RoleMap
	Aligned   []AlignedPoint
	Status    PointStatus
	Stream    []Sample
	Intervals Intervals
}

// Analyzed reports whether the group had all roles and was classified.
func (r GroupResult) Analyzed() bool {
	return r.Roles.Complete()
}

// AnalyzeGroup runs role classification, alignment, classification and
// interval extraction. A group missing any role is returned with only Roles set.
func AnalyzeGroup(group series.Group, th Thresholds) (GroupResult, error) {
	res := GroupResult{Group: group, Roles: ClassifyRoles(group)}
	if !res.Roles.Complete() {
		return res, nil
	}

	res.Aligned = Align(res.Roles)
	res.Status, res.Stream = Classify(res.Aligned, th)

	intervals, err := ExtractIntervals(res.Stream)
	if err != nil {
		return GroupResult{}, fmt.Errorf("extract intervals for %s: %w", group.Key, err)
	}
	res.Intervals = intervals
	return res, nil
}
