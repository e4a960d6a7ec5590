package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func ptrs(vals ...float64) []*float64 {
	out := make([]*float64, len(vals))
	for i := range vals {
		out[i] = &vals[i]
	}
	return out
}

func TestCalculateSeverityLevel(t *testing.T) {
	history := ptrs(10, 20, 30, 40, 50, 60, 70, 80, 90, 100)

	t.Run("nil current value", func(t *testing.T) {
		assert.Equal(t, Level(3), CalculateSeverityLevel(nil, history))
	})

	t.Run("empty history", func(t *testing.T) {
		assert.Equal(t, Level(3), CalculateSeverityLevel(ptr(42), nil))
	})

	t.Run("all-nil history", func(t *testing.T) {
		assert.Equal(t, Level(3), CalculateSeverityLevel(ptr(42), []*float64{nil, nil}))
	})

	t.Run("quintile classification", func(t *testing.T) {
		// Percentiles of the 10-element history: p20=28, p40=46, p60=64, p80=82.
		assert.Equal(t, Level(1), CalculateSeverityLevel(ptr(5), history))
		assert.Equal(t, Level(1), CalculateSeverityLevel(ptr(28), history))
		assert.Equal(t, Level(2), CalculateSeverityLevel(ptr(30), history))
		assert.Equal(t, Level(2), CalculateSeverityLevel(ptr(46), history))
		assert.Equal(t, Level(3), CalculateSeverityLevel(ptr(50), history))
		assert.Equal(t, Level(3), CalculateSeverityLevel(ptr(64), history))
		assert.Equal(t, Level(4), CalculateSeverityLevel(ptr(70), history))
		assert.Equal(t, Level(4), CalculateSeverityLevel(ptr(82), history))
		assert.Equal(t, Level(5), CalculateSeverityLevel(ptr(83), history))
		assert.Equal(t, Level(5), CalculateSeverityLevel(ptr(1000), history))
	})

	t.Run("monotone in current value", func(t *testing.T) {
		prev := Level(0)
		for v := 0.0; v <= 110; v++ {
			level := CalculateSeverityLevel(ptr(v), history)
			assert.GreaterOrEqual(t, level, prev, "level must not decrease at value %v", v)
			prev = level
		}
	})

	t.Run("single-element history", func(t *testing.T) {
		assert.Equal(t, Level(1), CalculateSeverityLevel(ptr(10), ptrs(10)))
		assert.Equal(t, Level(1), CalculateSeverityLevel(ptr(9), ptrs(10)))
		assert.Equal(t, Level(5), CalculateSeverityLevel(ptr(11), ptrs(10)))
	})

	t.Run("nil entries are skipped", func(t *testing.T) {
		mixed := []*float64{nil, ptr(10), nil, ptr(20), ptr(30), nil}
		assert.Equal(t, Level(1), CalculateSeverityLevel(ptr(10), mixed))
		assert.Equal(t, Level(5), CalculateSeverityLevel(ptr(31), mixed))
	})

	t.Run("unsorted history", func(t *testing.T) {
		assert.Equal(t, Level(1), CalculateSeverityLevel(ptr(10), ptrs(100, 10, 50, 30, 70)))
	})
}

func TestLevelMeta(t *testing.T) {
	assert.Equal(t, "Modéré", Level(3).Label())
	assert.Equal(t, "#ef4444", Level(5).Color())
}

func TestCalculateTrend(t *testing.T) {
	t.Run("nil values are stable", func(t *testing.T) {
		assert.Equal(t, TrendStable, CalculateTrend(nil, ptr(10)))
		assert.Equal(t, TrendStable, CalculateTrend(ptr(10), nil))
		assert.Equal(t, TrendStable, CalculateTrend(nil, nil))
	})

	t.Run("threshold is inclusive to stable", func(t *testing.T) {
		assert.Equal(t, TrendStable, CalculateTrend(ptr(110), ptr(100)))
		assert.Equal(t, TrendIncreasing, CalculateTrend(ptr(111), ptr(100)))
		assert.Equal(t, TrendStable, CalculateTrend(ptr(90), ptr(100)))
		assert.Equal(t, TrendDecreasing, CalculateTrend(ptr(89), ptr(100)))
	})

	t.Run("zero reference uses sign of current", func(t *testing.T) {
		assert.Equal(t, TrendIncreasing, CalculateTrend(ptr(5), ptr(0)))
		assert.Equal(t, TrendDecreasing, CalculateTrend(ptr(-5), ptr(0)))
		assert.Equal(t, TrendStable, CalculateTrend(ptr(0), ptr(0)))
	})

	t.Run("negative reference uses absolute value", func(t *testing.T) {
		// (-80 - -100) / 100 = +0.2
		assert.Equal(t, TrendIncreasing, CalculateTrend(ptr(-80), ptr(-100)))
		assert.Equal(t, TrendDecreasing, CalculateTrend(ptr(-120), ptr(-100)))
	})
}
