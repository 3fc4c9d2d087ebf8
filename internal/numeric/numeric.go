// Package numeric provides the small number helpers shared by the metrics
// engine. Nothing here returns an error: bad input collapses to 0 so every
// caller always has a renderable number.
package numeric

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// finiteOnly returns the finite subset of values.
func finiteOnly(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Sum adds the finite values. Non-finite values contribute 0.
func Sum(values []float64) float64 {
	clean := finiteOnly(values)
	if len(clean) == 0 {
		return 0
	}
	return Finite(floats.Sum(clean))
}

// Average returns Sum(values)/len(values), or 0 for an empty slice.
// Non-finite entries still count towards the length, matching a sum that
// treats them as 0.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	clean := finiteOnly(values)
	if len(clean) == len(values) {
		return Finite(stat.Mean(clean, nil))
	}
	return Finite(Sum(values) / float64(len(values)))
}

// StdDev returns the sample standard deviation of the finite values,
// or 0 when fewer than two are present.
func StdDev(values []float64) float64 {
	clean := finiteOnly(values)
	if len(clean) < 2 {
		return 0
	}
	return Finite(stat.StdDev(clean, nil))
}

// Clamp limits v to [lo, hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SafeDiv returns num/den, or 0 when den is zero or the quotient is not finite.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Finite(num / den)
}

// ParseNum coerces text to a float. Blank or unparsable text yields 0.
func ParseNum(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return Finite(v)
}

// ToNum coerces an arbitrary value to a float. Unknown types yield 0.
func ToNum(v interface{}) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return Finite(n)
	case float32:
		return Finite(float64(n))
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		return ParseNum(n)
	case *float64:
		if n == nil {
			return 0
		}
		return Finite(*n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Round2 rounds to two decimal places, the precision of every rendered number.
func Round2(v float64) float64 {
	return math.Round(Finite(v)*100) / 100
}
