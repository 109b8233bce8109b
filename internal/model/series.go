package model

import (
	"math"
	"sort"
	"time"
)

// PricePoint is a single daily observation for an instrument or indicator.
type PricePoint struct {
	Date  time.Time `json:"date" db:"time"`
	Value float64   `json:"value" db:"close"`
}

// PriceSeries is an ordered daily series (close prices or indicator values).
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// NewPriceSeries builds a clean series: sorted by date, duplicate dates
// collapsed to the first occurrence, NaN observations dropped.
func NewPriceSeries(symbol string, points []PricePoint) PriceSeries {
	cleaned := make([]PricePoint, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Value) {
			continue
		}
		cleaned = append(cleaned, PricePoint{Date: dateOnly(p.Date), Value: p.Value})
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Date.Before(cleaned[j].Date)
	})
	out := cleaned[:0]
	var last time.Time
	for i, p := range cleaned {
		if i > 0 && p.Date.Equal(last) {
			continue
		}
		out = append(out, p)
		last = p.Date
	}
	return PriceSeries{Symbol: symbol, Points: out}
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Dates returns the observation dates in order.
func (s PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// Values returns the observation values in order.
func (s PriceSeries) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// Returns computes simple daily returns. The first element is 0 because no
// prior observation exists for it.
func (s PriceSeries) Returns() []float64 {
	rets := make([]float64, len(s.Points))
	for i := 1; i < len(s.Points); i++ {
		rets[i] = s.Points[i].Value/s.Points[i-1].Value - 1
	}
	return rets
}

// Slice returns the sub-series covering [start, end] inclusive.
func (s PriceSeries) Slice(start, end time.Time) PriceSeries {
	start, end = dateOnly(start), dateOnly(end)
	out := make([]PricePoint, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return PriceSeries{Symbol: s.Symbol, Points: out}
}

// MonthlyLast downsamples to the last observation of each calendar month.
func (s PriceSeries) MonthlyLast() PriceSeries {
	out := make([]PricePoint, 0, len(s.Points)/18+1)
	for i, p := range s.Points {
		if i+1 < len(s.Points) {
			next := s.Points[i+1].Date
			if next.Year() == p.Date.Year() && next.Month() == p.Date.Month() {
				continue
			}
		}
		out = append(out, p)
	}
	return PriceSeries{Symbol: s.Symbol, Points: out}
}

// ForwardFillOnto projects the series onto a daily calendar, carrying the
// most recent observation forward. Days before the first observation are NaN.
func (s PriceSeries) ForwardFillOnto(dates []time.Time) []float64 {
	out := make([]float64, len(dates))
	j := 0
	current := math.NaN()
	for i, d := range dates {
		for j < len(s.Points) && !s.Points[j].Date.After(d) {
			current = s.Points[j].Value
			j++
		}
		out[i] = current
	}
	return out
}

// Align inner-joins several series on their common dates. The returned value
// matrix is indexed [series][day]. Dates present in only some inputs are
// dropped.
func Align(series ...PriceSeries) ([]time.Time, [][]float64) {
	if len(series) == 0 {
		return nil, nil
	}
	counts := make(map[int64]int)
	for _, s := range series {
		for _, p := range s.Points {
			counts[p.Date.Unix()]++
		}
	}
	dates := make([]time.Time, 0, len(series[0].Points))
	for _, p := range series[0].Points {
		if counts[p.Date.Unix()] == len(series) {
			dates = append(dates, p.Date)
		}
	}
	values := make([][]float64, len(series))
	for si, s := range series {
		byDate := make(map[int64]float64, len(s.Points))
		for _, p := range s.Points {
			byDate[p.Date.Unix()] = p.Value
		}
		col := make([]float64, len(dates))
		for di, d := range dates {
			col[di] = byDate[d.Unix()]
		}
		values[si] = col
	}
	return dates, values
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
