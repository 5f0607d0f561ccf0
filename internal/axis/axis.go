// Package axis resolves display bounds for chart axes.
package axis

import (
	"math"

	"github.com/shopspring/decimal"

	"curtailwatch/internal/metric"
)

var (
	defaultLower = decimal.Zero
	defaultUpper = decimal.NewFromInt(1000)
	growFactor   = decimal.RequireFromString("1.1")
	padRatio     = decimal.RequireFromString("0.05")
	minPad       = decimal.NewFromInt(1)
)

// Override is a user supplied bound pair; nil leaves a bound automatic.
type Override struct {
	Min *float64 `json:"min,omitempty" mapstructure:"min"`
	Max *float64 `json:"max,omitempty" mapstructure:"max"`
}

// Options are the global axis settings.
type Options struct {
	// ScaleFactor multiplies both final bounds. Zero or non-finite means 1.
	ScaleFactor float64 `json:"scaleFactor"`
	// UseDefaultLimits enables the [0, 1000] default for AGC and ultra-short-term forecast metrics.
	UseDefaultLimits bool `json:"useDefaultLimits"`
}

// Range is the resolved value range of one metric axis. A bound with Has*
// false is left to the renderer (no data and no default applied).
type Range struct {
	MetricKey string  `json:"metricKey"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	HasMin    bool    `json:"hasMin"`
	HasMax    bool    `json:"hasMax"`
}

// ResolveRange computes the axis bounds of metricKey.
//
// Each bound is decided independently in priority order: user override,
// irradiance default [0, 1000], AGC/ultra-short-term default [0, 1000] when
// UseDefaultLimits is set, then padding around the observed data. Both bounds
// are finally multiplied by the scale factor.
func ResolveRange(metricKey string, values []float64, override Override, opts Options) Range {
	lower, hasLower := fromOverride(override.Min)
	upper, hasUpper := fromOverride(override.Max)

	bound := metric.BoundOf(metricKey)
	if bound == metric.BoundIrradiance || (bound == metric.BoundDispatchLimit && opts.UseDefaultLimits) {
		if !hasLower {
			lower, hasLower = defaultLower, true
		}
		if !hasUpper {
			upper, hasUpper = defaultUpper, true
		}
	}

	if !hasLower || !hasUpper {
		if dataMin, dataMax, ok := span(values); ok {
			pad := decimal.Max(dataMax.Sub(dataMin).Abs().Mul(padRatio), minPad)
			if !hasLower {
				if dataMin.IsNegative() {
					lower = dataMin.Mul(growFactor)
				} else {
					lower = dataMin.Sub(pad)
				}
				hasLower = true
			}
			if !hasUpper {
				if dataMax.IsPositive() {
					upper = dataMax.Mul(growFactor)
				} else {
					upper = dataMax.Add(pad)
				}
				hasUpper = true
			}
		}
	}

	factor := decimal.NewFromFloat(scaleFactor(opts.ScaleFactor))
	r := Range{MetricKey: metricKey, HasMin: hasLower, HasMax: hasUpper}
	if hasLower {
		r.Min = lower.Mul(factor).InexactFloat64()
	}
	if hasUpper {
		r.Max = upper.Mul(factor).InexactFloat64()
	}
	return r
}

func fromOverride(v *float64) (decimal.Decimal, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(*v), true
}

func span(values []float64) (decimal.Decimal, decimal.Decimal, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(lo), decimal.NewFromFloat(hi), true
}

func scaleFactor(f float64) float64 {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 1
	}
	return f
}
