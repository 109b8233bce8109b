package engine

import (
	"testing"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return d
}

// dailySeries builds a series of consecutive calendar days starting at start.
func dailySeries(t *testing.T, symbol, start string, values ...float64) model.PriceSeries {
	t.Helper()
	first := day(t, start)
	points := make([]model.PricePoint, len(values))
	for i, v := range values {
		points[i] = model.PricePoint{Date: first.AddDate(0, 0, i), Value: v}
	}
	return model.NewPriceSeries(symbol, points)
}

// seriesOn builds a series on explicit dates.
func seriesOn(t *testing.T, symbol string, dates []string, values []float64) model.PriceSeries {
	t.Helper()
	if len(dates) != len(values) {
		t.Fatalf("mismatched test data: %d dates, %d values", len(dates), len(values))
	}
	points := make([]model.PricePoint, len(values))
	for i := range values {
		points[i] = model.PricePoint{Date: day(t, dates[i]), Value: values[i]}
	}
	return model.NewPriceSeries(symbol, points)
}
