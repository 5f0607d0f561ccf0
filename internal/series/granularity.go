package series

import (
	"fmt"
	"strings"
)

// Granularity is the display bucket resolution.
type Granularity string

const (
	// GranularityPoint keeps raw samples (the dashboard's "hour" view).
	GranularityPoint Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// ParseGranularity accepts the configured spelling of a granularity.
func ParseGranularity(raw string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "hour", "point", "raw":
		return GranularityPoint, nil
	case "day":
		return GranularityDay, nil
	case "month":
		return GranularityMonth, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", raw)
	}
}

func (g Granularity) String() string {
	return string(g)
}
