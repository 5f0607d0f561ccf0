package series

// DefaultGroupValue is used when a series carries no grouping dimension.
const DefaultGroupValue = "default"

// stationDimensionKeys are probed in order when no grouping dimension is configured.
var stationDimensionKeys = []string{
	"场站名称",
	"场站",
	"电站",
	"名称",
	"调度名称",
	"item",
	"station",
	"项目",
}

// Group is the set of series sharing a date and a grouping-dimension value.
type Group struct {
	Key       string
	Date      string
	Dimension string
	Value     string
	Series    []TimeSeries
}

// ResolveGroupDimension picks the dimension key used to split series into groups.
// An explicit preference always wins; otherwise the first well-known station key
// present on the first series with dimensions is used. Empty means "no dimension".
func ResolveGroupDimension(preferred string, list []TimeSeries) string {
	if preferred != "" {
		return preferred
	}
	for _, s := range list {
		if len(s.Dimensions) == 0 {
			continue
		}
		for _, key := range stationDimensionKeys {
			if v, ok := s.Dimensions.Get(key); ok && v != "" {
				return key
			}
		}
		return ""
	}
	return ""
}

// GroupKey builds the identifier of the group a series belongs to.
func GroupKey(date, value string) string {
	return date + "_" + value
}

// GroupBy splits list by (date, value of dimension). Groups keep the order in
// which their first member appears, and members keep input order.
func GroupBy(list []TimeSeries, dimension string) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, s := range list {
		value := DefaultGroupValue
		if dimension != "" {
			if v, ok := s.Dimensions.Get(dimension); ok {
				value = v
			}
		}
		key := GroupKey(s.Date, value)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{
				Key:       key,
				Date:      s.Date,
				Dimension: dimension,
				Value:     value,
			})
		}
		groups[i].Series = append(groups[i].Series, s)
	}
	return groups
}
