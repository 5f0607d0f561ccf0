// Package plot renders analysis results with go-chart.
package plot

import (
	"math"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// DefaultShadeHex is the curtailment shading colour.
const DefaultShadeHex = "#ff4646"

// DefaultShadeOpacity is the curtailment shading opacity.
const DefaultShadeOpacity = 0.3

var fallbackShade = drawing.Color{R: 255, G: 70, B: 70}

// ShadeColor converts a #rgb or #rrggbb colour plus an opacity in [0,1] to
// RGBA. Anything unparsable falls back to rgb(255,70,70); the opacity is
// clamped and a non-finite opacity uses the default.
func ShadeColor(hex string, opacity float64) drawing.Color {
	c := fallbackShade
	if strings.HasPrefix(hex, "#") {
		h := hex[1:]
		if len(h) == 3 {
			h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
		}
		if len(h) == 6 {
			if v, err := strconv.ParseUint(h, 16, 32); err == nil {
				c = drawing.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
			}
		}
	}

	if math.IsNaN(opacity) || math.IsInf(opacity, 0) {
		opacity = DefaultShadeOpacity
	}
	opacity = math.Min(math.Max(opacity, 0), 1)
	c.A = uint8(math.Round(opacity * 255))
	return c
}
