package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return parsed
}

func TestNewPriceSeriesSortsDedupesAndDropsNaN(t *testing.T) {
	series := NewPriceSeries("ETF", []PricePoint{
		{Date: d(t, "2024-01-03"), Value: 3},
		{Date: d(t, "2024-01-01"), Value: 1},
		{Date: d(t, "2024-01-02"), Value: math.NaN()},
		{Date: d(t, "2024-01-01"), Value: 99}, // duplicate, first kept
		{Date: d(t, "2024-01-04"), Value: 4},
	})

	require.Equal(t, 3, series.Len())
	assert.Equal(t, []float64{1, 3, 4}, series.Values())
	assert.Equal(t, d(t, "2024-01-01"), series.Points[0].Date)
}

func TestReturnsFirstDayIsZero(t *testing.T) {
	series := NewPriceSeries("ETF", []PricePoint{
		{Date: d(t, "2024-01-01"), Value: 100},
		{Date: d(t, "2024-01-02"), Value: 110},
		{Date: d(t, "2024-01-03"), Value: 99},
	})

	rets := series.Returns()
	assert.Equal(t, 0.0, rets[0])
	assert.InDelta(t, 0.1, rets[1], 1e-12)
	assert.InDelta(t, -0.1, rets[2], 1e-12)
}

func TestMonthlyLastKeepsLastObservationPerMonth(t *testing.T) {
	series := NewPriceSeries("ETF", []PricePoint{
		{Date: d(t, "2024-01-02"), Value: 1},
		{Date: d(t, "2024-01-31"), Value: 2},
		{Date: d(t, "2024-02-01"), Value: 3},
		{Date: d(t, "2024-02-28"), Value: 4},
		{Date: d(t, "2024-03-15"), Value: 5},
	})

	monthly := series.MonthlyLast()
	require.Equal(t, 3, monthly.Len())
	assert.Equal(t, []float64{2, 4, 5}, monthly.Values())
}

func TestForwardFillOntoCarriesAndLeadsWithNaN(t *testing.T) {
	indicator := NewPriceSeries("rates", []PricePoint{
		{Date: d(t, "2024-01-03"), Value: 5},
		{Date: d(t, "2024-01-06"), Value: 7},
	})
	dates := []time.Time{
		d(t, "2024-01-02"), d(t, "2024-01-03"), d(t, "2024-01-04"),
		d(t, "2024-01-05"), d(t, "2024-01-06"), d(t, "2024-01-07"),
	}

	filled := indicator.ForwardFillOnto(dates)
	assert.True(t, math.IsNaN(filled[0]))
	assert.Equal(t, []float64{5, 5, 5, 7, 7}, filled[1:])
}

func TestAlignInnerJoinsOnCommonDates(t *testing.T) {
	a := NewPriceSeries("A", []PricePoint{
		{Date: d(t, "2024-01-01"), Value: 1},
		{Date: d(t, "2024-01-02"), Value: 2},
		{Date: d(t, "2024-01-03"), Value: 3},
	})
	b := NewPriceSeries("B", []PricePoint{
		{Date: d(t, "2024-01-02"), Value: 20},
		{Date: d(t, "2024-01-03"), Value: 30},
		{Date: d(t, "2024-01-04"), Value: 40},
	})

	dates, values := Align(a, b)
	require.Len(t, dates, 2)
	assert.Equal(t, d(t, "2024-01-02"), dates[0])
	assert.Equal(t, []float64{2, 3}, values[0])
	assert.Equal(t, []float64{20, 30}, values[1])
}

func TestSliceIsInclusive(t *testing.T) {
	series := NewPriceSeries("ETF", []PricePoint{
		{Date: d(t, "2024-01-01"), Value: 1},
		{Date: d(t, "2024-01-02"), Value: 2},
		{Date: d(t, "2024-01-03"), Value: 3},
	})

	sliced := series.Slice(d(t, "2024-01-02"), d(t, "2024-01-03"))
	assert.Equal(t, []float64{2, 3}, sliced.Values())
}
