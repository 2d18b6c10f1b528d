package utils

import (
	"math"
)

// Clamp limits a value between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// RoundTo rounds a float to specified decimal places
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// RoundHalfUp rounds to the nearest integer, with halves going towards +Inf
func RoundHalfUp(value float64) int {
	return int(math.Floor(value + 0.5))
}

// MeanRounded returns round(sum/count), or 0 when count is zero
func MeanRounded(sum float64, count int) int {
	if count <= 0 {
		return 0
	}
	return RoundHalfUp(sum / float64(count))
}
