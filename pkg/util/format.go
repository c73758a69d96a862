package util

import (
	"math"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// Missing is shown in place of absent values.
const Missing = "—"

var (
	thousand = decimal.NewFromInt(1000)
	units    = []string{"", "K", "M", "B", "T"}
)

// FormatCompact renders v with a K/M/B/T suffix and no decimals,
// e.g. 1234567 -> "1M", -52300 -> "-52K".
func FormatCompact(v null.Float) string {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return Missing
	}
	d := decimal.NewFromFloat(v.Float64)
	for i, unit := range units {
		if d.Abs().LessThan(thousand) || i == len(units)-1 {
			return group(d.Round(0).String()) + unit
		}
		d = d.Div(thousand)
	}
	return Missing
}

// FormatPercent renders a ratio as a percentage with one decimal.
func FormatPercent(v null.Float) string {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return Missing
	}
	return group(decimal.NewFromFloat(v.Float64).Mul(decimal.NewFromInt(100)).StringFixed(1)) + "%"
}

// FormatRatio renders a plain ratio with two decimals.
func FormatRatio(v null.Float) string {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return Missing
	}
	return decimal.NewFromFloat(v.Float64).StringFixed(2)
}

// group inserts thousands separators into the integer part of a decimal string.
func group(s string) string {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	intPart, frac := s, ""
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			intPart, frac = s[:i], s[i:]
			break
		}
	}
	var out []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	res := string(out) + frac
	if neg && res != "0" {
		res = "-" + res
	}
	return res
}
