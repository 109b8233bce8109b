package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEquityAppliesPriorDayPosition(t *testing.T) {
	dates := make([]time.Time, 4)
	for i := range dates {
		dates[i] = day(t, "2024-01-01").AddDate(0, 0, i)
	}
	positions := []float64{1, 1, 0, 0}
	returns := []float64{0, 0.05, -0.10, 0.20}

	curve, err := BuildEquity(dates, positions, returns)
	require.NoError(t, err)

	// Day one earns nothing, day two earns +5% under the day-one position,
	// day three loses 10% under the day-two position, and day four earns
	// nothing because day three was flat.
	assert.InDelta(t, 1.0, curve.Values[0], 1e-12)
	assert.InDelta(t, 1.05, curve.Values[1], 1e-12)
	assert.InDelta(t, 0.945, curve.Values[2], 1e-12)
	assert.InDelta(t, 0.945, curve.Values[3], 1e-12)
}

func TestBuildEquityLengthMismatch(t *testing.T) {
	dates := []time.Time{day(t, "2024-01-01")}
	_, err := BuildEquity(dates, []float64{1, 1}, []float64{0})
	assert.Error(t, err)
}

func TestBuildWeightedEquityUsesPriorDayWeights(t *testing.T) {
	dates := []time.Time{day(t, "2024-01-01"), day(t, "2024-01-02"), day(t, "2024-01-03")}
	weights := [][]float64{{1, 0}, {0, 0.5}, {0, 0.5}}
	returns := [][]float64{{0, 0.10, 0.10}, {0, 0.40, 0.40}}

	curve, err := BuildWeightedEquity(dates, weights, returns)
	require.NoError(t, err)

	// Day two earns asset one's return under full day-one weight; day
	// three earns half of asset two's return, the rest sitting in cash.
	assert.InDelta(t, 1.10, curve.Values[1], 1e-12)
	assert.InDelta(t, 1.10*1.20, curve.Values[2], 1e-12)
}

func TestBuyAndHoldCompoundsEveryReturn(t *testing.T) {
	dates := []time.Time{day(t, "2024-01-01"), day(t, "2024-01-02"), day(t, "2024-01-03")}
	curve, err := BuyAndHold(dates, []float64{0, 0.10, -0.50})
	require.NoError(t, err)

	assert.InDelta(t, 0.55, curve.Values[2], 1e-12)
}
