package engine

import "math"

// SMA computes a simple moving average. The first window-1 slots, where the
// average is not yet seated, are NaN.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RollingMin computes a rolling minimum over the trailing window. Unseated
// slots are NaN.
func RollingMin(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		min := values[i]
		for j := i - window + 1; j < i; j++ {
			if values[j] < min {
				min = values[j]
			}
		}
		out[i] = min
	}
	return out
}

// RollingMeanAbsDiff computes the rolling mean of absolute one-day price
// changes, the close-only true-range proxy. Unseated slots are NaN; the
// first slot has no prior day and never seats.
func RollingMeanAbsDiff(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		sum += math.Abs(values[i] - values[i-1])
		if i > window {
			sum -= math.Abs(values[i-window] - values[i-window-1])
		}
		if i >= window {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Shift moves a series forward by n slots, filling the head with NaN. The
// usual use is aligning rolling statistics so day t only sees data through
// day t-1.
func Shift(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < n {
			out[i] = math.NaN()
		} else {
			out[i] = values[i-n]
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation (n-1 denominator).
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
