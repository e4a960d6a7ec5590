// Package parse holds the small lexical helpers shared by every upstream
// feed parser: French-locale numbers, week labels and quote stripping.
package parse

import (
	"math"
	"strconv"
	"strings"
)

// FrenchNumber converts a French-locale number string (comma decimal) to a
// float, or nil for blank input, the "NA" sentinel, and anything that does
// not parse to a finite number.
func FrenchNumber(raw string) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "NA" {
		return nil
	}

	normalized := strings.Replace(trimmed, ",", ".", 1)
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NormalizeWeek rewrites the upstream week spelling ("2024-S03") into the
// canonical ISO form ("2024-W03"). Only the first "-S" is replaced; input
// that is already canonical, or malformed, passes through unchanged.
func NormalizeWeek(raw string) string {
	return strings.Replace(raw, "-S", "-W", 1)
}

// StripQuotes removes wrapping single or double quotes that the upstream
// CSV sometimes leaves around SANDRE identifiers.
func StripQuotes(raw string) string {
	return strings.Trim(raw, `'"`)
}
