// Package severity classifies an indicator value against its own recent
// history: a 1-5 level from percentile buckets and a 3-way trend from a
// two-period comparison. Both functions are pure and never persisted.
package severity

import (
	"math"
	"sort"
)

// Level is an ordinal severity bucket from 1 (very low) to 5 (very high).
type Level int

// Trend is the direction of change versus a reference value.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

// trendThreshold is the relative change beyond which a value counts as
// increasing or decreasing. Exactly +/-10% is still stable.
const trendThreshold = 0.10

// percentileThresholds are the quintile cut points for level classification.
var percentileThresholds = [4]float64{20, 40, 60, 80}

var levelMeta = map[Level]struct {
	Label string
	Color string
}{
	1: {"Très faible", "#22c55e"},
	2: {"Faible", "#84cc16"},
	3: {"Modéré", "#eab308"},
	4: {"Élevé", "#f97316"},
	5: {"Très élevé", "#ef4444"},
}

// Label returns the French display label for the level.
func (l Level) Label() string { return levelMeta[l].Label }

// Color returns the hex color associated with the level.
func (l Level) Color() string { return levelMeta[l].Color }

// CalculateSeverityLevel classifies currentValue into one of 5 buckets
// using the 20/40/60/80th percentiles of the historical values. Thresholds
// are inclusive upper bounds, so a boundary value falls in the lower bucket.
// Returns the moderate level 3 when currentValue is nil or no historical
// value is non-nil.
func CalculateSeverityLevel(currentValue *float64, historicalValues []*float64) Level {
	if currentValue == nil {
		return 3
	}

	valid := make([]float64, 0, len(historicalValues))
	for _, v := range historicalValues {
		if v != nil {
			valid = append(valid, *v)
		}
	}
	if len(valid) == 0 {
		return 3
	}

	sort.Float64s(valid)

	p20 := percentile(valid, percentileThresholds[0])
	p40 := percentile(valid, percentileThresholds[1])
	p60 := percentile(valid, percentileThresholds[2])
	p80 := percentile(valid, percentileThresholds[3])

	switch v := *currentValue; {
	case v <= p20:
		return 1
	case v <= p40:
		return 2
	case v <= p60:
		return 3
	case v <= p80:
		return 4
	default:
		return 5
	}
}

// percentile computes the p-th percentile of sorted by linear interpolation
// between order statistics.
func percentile(sorted []float64, p float64) float64 {
	index := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (sorted[upper]-sorted[lower])*(index-float64(lower))
}

// CalculateTrend compares currentValue to a reference value two reporting
// periods prior. Returns stable when either value is nil or the relative
// change is within +/-10%. A zero reference falls back to the sign of the
// current value.
func CalculateTrend(currentValue, referenceValue *float64) Trend {
	if currentValue == nil || referenceValue == nil {
		return TrendStable
	}

	if *referenceValue == 0 {
		switch {
		case *currentValue > 0:
			return TrendIncreasing
		case *currentValue < 0:
			return TrendDecreasing
		default:
			return TrendStable
		}
	}

	change := (*currentValue - *referenceValue) / math.Abs(*referenceValue)
	switch {
	case change > trendThreshold:
		return TrendIncreasing
	case change < -trendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
