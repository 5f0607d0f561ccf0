// Package metric resolves free-form metric names into tagged kinds using
// fixed keyword tables.
package metric

import (
	"regexp"
	"strings"
)

// Role is the semantic function of a series inside a station group.
type Role int

const (
	RoleNone Role = iota
	RoleIrradiance
	RoleDispatch
	RolePower
)

func (r Role) String() string {
	switch r {
	case RoleIrradiance:
		return "irradiance"
	case RoleDispatch:
		return "dispatch"
	case RolePower:
		return "power"
	default:
		return "none"
	}
}

type keywordRule struct {
	role    Role
	include []string
	exclude []string
}

// roleRules are evaluated in priority order; the first matching rule decides.
var roleRules = []keywordRule{
	{role: RoleIrradiance, include: []string{"辐照度", "短波", "irradiance", "radiation"}},
	{role: RoleDispatch, include: []string{"agc", "指令"}},
	{
		role:    RolePower,
		include: []string{"实际功率", "功率", "power", "load", "output"},
		exclude: []string{"agc", "可用", "预测"},
	},
}

// RoleOf classifies a metric name. Matching is case-insensitive.
func RoleOf(name string) Role {
	lowered := strings.ToLower(name)
	for _, rule := range roleRules {
		if containsAny(lowered, rule.include) && !containsAny(lowered, rule.exclude) {
			return rule.role
		}
	}
	return RoleNone
}

// BoundKind tags metrics that carry a default display range.
type BoundKind int

const (
	BoundNone BoundKind = iota
	// BoundIrradiance metrics always default to [0, 1000].
	BoundIrradiance
	// BoundDispatchLimit metrics default to [0, 1000] only when default limits are enabled.
	BoundDispatchLimit
)

var (
	irradianceBoundKeywords    = []string{"辐照度", "短波", "辐射", "irradiance", "radiation"}
	dispatchLimitBoundKeywords = []string{"agc远方指令", "超短期"}
)

// BoundOf classifies a metric for axis default bounds.
func BoundOf(name string) BoundKind {
	lowered := strings.ToLower(name)
	switch {
	case containsAny(lowered, irradianceBoundKeywords):
		return BoundIrradiance
	case containsAny(lowered, dispatchLimitBoundKeywords):
		return BoundDispatchLimit
	default:
		return BoundNone
	}
}

var unitPattern = regexp.MustCompile(`\(([^)]+)\)`)

// CleanName strips parenthesised suffixes from name and re-appends the unit,
// taken from unit or, failing that, from the first parenthesised part of name.
func CleanName(name, unit string) string {
	clean := name
	if i := strings.Index(clean, " ("); i >= 0 {
		clean = clean[:i]
	}
	if i := strings.Index(clean, "("); i >= 0 {
		clean = clean[:i]
	}
	clean = strings.TrimSpace(clean)

	if unit == "" {
		if m := unitPattern.FindStringSubmatch(name); m != nil {
			unit = m[1]
		}
	}
	if unit == "" {
		return clean
	}
	return clean + "(" + unit + ")"
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
