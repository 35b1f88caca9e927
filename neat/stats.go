package neat

import (
	"fmt"
	"math"
	"slices"
)

// clamp restricts a value to a given range [minVal, maxVal].
func clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}

// --- Statistical Functions ---

// Mean calculates the average of a slice of float64 values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stdev calculates the sample standard deviation. It is 0 for fewer than two values.
func Stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

// Median returns the middle value, or the mean of the two middle values.
// Returns NaN if the slice is empty.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := slices.Sorted(slices.Values(values))
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}

// GenerationStats summarizes the scores of one evaluated generation.
type GenerationStats struct {
	Iteration int
	Best      float64
	Worst     float64
	Mean      float64
	Median    float64
	Stdev     float64
}

// String returns the one-line progress report of a generation.
func (s GenerationStats) String() string {
	return fmt.Sprintf("[%d] best %.3f, mean %.3f, median %.3f, stdev %.3f, worst %.3f",
		s.Iteration, s.Best, s.Mean, s.Median, s.Stdev, s.Worst)
}

// computeStats summarizes scores. An empty slice yields zero values.
func computeStats(iteration int, scores []float64) GenerationStats {
	stats := GenerationStats{Iteration: iteration}
	if len(scores) == 0 {
		return stats
	}
	stats.Best = slices.Max(scores)
	stats.Worst = slices.Min(scores)
	stats.Mean = Mean(scores)
	stats.Median = Median(scores)
	stats.Stdev = Stdev(scores)
	return stats
}
