package engine

import (
	"fmt"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// BuildEquity compounds a position schedule against a return series on the
// same dates. Day t earns its return scaled by the exposure held at the end
// of day t-1, so the first day never earns anything and the first return is
// ignored; a position taken on day t starts earning on day t+1.
func BuildEquity(dates []time.Time, positions, returns []float64) (model.EquityCurve, error) {
	if len(dates) != len(positions) || len(dates) != len(returns) {
		return model.EquityCurve{}, fmt.Errorf("mismatched lengths: %d dates, %d positions, %d returns",
			len(dates), len(positions), len(returns))
	}
	if len(dates) == 0 {
		return model.EquityCurve{}, fmt.Errorf("%w: no days to build an equity curve over", ErrEmptyWindow)
	}
	values := make([]float64, len(dates))
	values[0] = 1
	for i := 1; i < len(values); i++ {
		values[i] = values[i-1] * (1 + positions[i-1]*returns[i])
	}
	return model.EquityCurve{Dates: append([]time.Time(nil), dates...), Values: values}, nil
}

// BuildWeightedEquity is the multi-asset form of BuildEquity: day t earns
// the weight-averaged return of day t under the weights held at the end of
// day t-1. The remainder of each day's weights up to 1 is cash and earns
// nothing. Returns are indexed [asset][day].
func BuildWeightedEquity(dates []time.Time, weights [][]float64, returns [][]float64) (model.EquityCurve, error) {
	if len(dates) != len(weights) {
		return model.EquityCurve{}, fmt.Errorf("mismatched lengths: %d dates, %d weight rows", len(dates), len(weights))
	}
	if len(dates) == 0 {
		return model.EquityCurve{}, fmt.Errorf("%w: no days to build an equity curve over", ErrEmptyWindow)
	}
	for _, col := range returns {
		if len(col) != len(dates) {
			return model.EquityCurve{}, fmt.Errorf("mismatched lengths: %d dates, %d returns", len(dates), len(col))
		}
	}
	values := make([]float64, len(dates))
	values[0] = 1
	for i := 1; i < len(values); i++ {
		ret := 0.0
		for a, w := range weights[i-1] {
			ret += w * returns[a][i]
		}
		values[i] = values[i-1] * (1 + ret)
	}
	return model.EquityCurve{Dates: append([]time.Time(nil), dates...), Values: values}, nil
}

// BuyAndHold builds the benchmark curve: full exposure every day.
func BuyAndHold(dates []time.Time, returns []float64) (model.EquityCurve, error) {
	positions := make([]float64, len(dates))
	for i := range positions {
		positions[i] = 1
	}
	return BuildEquity(dates, positions, returns)
}
