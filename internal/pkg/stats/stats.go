package stats

import "math"

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
// A constant series yields its value exactly.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if IsConstant(values) {
		return values[0]
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StandardDeviation returns the population standard deviation (divisor N).
// Empty, single-element and constant slices yield exactly 0.
func StandardDeviation(values []float64) float64 {
	if len(values) < 2 || IsConstant(values) {
		return 0
	}

	mean := Mean(values)
	var sumSquares float64
	for _, v := range values {
		d := v - mean
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

// Thresholds returns the band mean ∓ stdDev*multiplier
func Thresholds(mean, stdDev, multiplier float64) (lower, upper float64) {
	spread := stdDev * multiplier
	return mean - spread, mean + spread
}

// IsConstant reports whether every value equals the first
func IsConstant(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] != values[0] {
			return false
		}
	}
	return true
}

// AllFinite reports whether no value is NaN or ±Inf
func AllFinite(values []float64) bool {
	for _, v := range values {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}

// IsFinite reports whether v is neither NaN nor ±Inf
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
