// Package vulnerability maps aquifer vulnerability levels to colors and
// resolves the per-feature map style from the current view state.
package vulnerability

import (
	"math"
	"strings"
)

// Level is a vulnerability class from 1 (very low) to 5 (very high).
// Zero means unknown.
type Level int

const (
	Unknown Level = iota
	VeryLow
	Low
	Medium
	High
	VeryHigh
)

// DefaultColor is used for missing or out-of-range levels.
const DefaultColor = "#CCCCCC"

var ramp = [...]string{
	VeryLow:  "#2DC937",
	Low:      "#99C140",
	Medium:   "#F2B705",
	High:     "#F25C05",
	VeryHigh: "#D90404",
}

// Valid reports whether l is one of the five known classes.
func (l Level) Valid() bool {
	return l >= VeryLow && l <= VeryHigh
}

// Color returns the ramp color for l, or DefaultColor.
func (l Level) Color() string {
	if !l.Valid() {
		return DefaultColor
	}
	return ramp[l]
}

// ColorFor coerces v to a level and returns its color. It never fails.
func ColorFor(v any) string {
	return ParseLevel(v).Color()
}

// ParseLevel coerces a raw GeoJSON property value to a Level.
// Strings use their leading integer prefix ("3", " 4 ", "5.0" and "2abc"
// all parse). Floats are truncated. Anything outside 1..5 is Unknown.
func ParseLevel(v any) Level {
	var n int64
	switch x := v.(type) {
	case nil:
		return Unknown
	case Level:
		n = int64(x)
	case int:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case float32:
		return ParseLevel(float64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Unknown
		}
		n = int64(math.Trunc(x))
	case string:
		var ok bool
		n, ok = leadingInt(x)
		if !ok {
			return Unknown
		}
	default:
		return Unknown
	}
	if n < int64(VeryLow) || n > int64(VeryHigh) {
		return Unknown
	}
	return Level(n)
}

func leadingInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n int64
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int64(r-'0')
		digits++
		if n > 1000 {
			break
		}
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
