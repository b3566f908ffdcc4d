package scoring

import "math"

// stdDev returns the population standard deviation of values.
// An empty slice has zero deviation.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// clamp bounds v to [lo, hi].
func clamp(lo, hi, v float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// round1 rounds v to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
