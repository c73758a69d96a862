// Package kpi assembles the tidy KPI table and derives ratios from raw line items.
package kpi

import (
	"math"

	"github.com/guregu/null/v6"
)

// Div divides num by den. The result is absent when either operand is absent, the
// denominator is zero, or the quotient is not finite.
func Div(num, den null.Float) null.Float {
	if !Valid(num) || !Valid(den) || den.Float64 == 0 {
		return null.Float{}
	}
	return finite(num.Float64 / den.Float64)
}

// Sub returns a - b, absent if either operand is absent.
func Sub(a, b null.Float) null.Float {
	if !Valid(a) || !Valid(b) {
		return null.Float{}
	}
	return finite(a.Float64 - b.Float64)
}

// Mean returns (a + b) / 2, absent if either operand is absent.
func Mean(a, b null.Float) null.Float {
	if !Valid(a) || !Valid(b) {
		return null.Float{}
	}
	return finite((a.Float64 + b.Float64) / 2)
}

// Growth returns the relative change from prev to cur.
func Growth(cur, prev null.Float) null.Float {
	return Div(Sub(cur, prev), prev)
}

// Valid reports whether f holds a finite number.
func Valid(f null.Float) bool {
	return f.Valid && !math.IsNaN(f.Float64) && !math.IsInf(f.Float64, 0)
}

func finite(v float64) null.Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}
