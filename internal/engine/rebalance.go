package engine

import (
	"fmt"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// ThreeWay simulates the fixed equal-thirds allocation over exactly three
// instruments. Each bucket compounds its own instrument's daily returns; on
// the first trading day of a new calendar year (or quarter) the pooled value
// is split back into exact thirds after that day's returns accumulate.
func ThreeWay(assets []model.PriceSeries, start, end time.Time, cfg model.ThreeWayConfig) (*Allocation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	if len(assets) != 3 {
		return nil, invalidConfig(fmt.Errorf("exactly three instruments are required, got %d", len(assets)))
	}
	dates, prices := model.Align(assets...)
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: instruments share no trading days", ErrEmptyWindow)
	}
	// Returns need one prior day.
	lo, hi, err := simWindow(dates, start, end, 1)
	if err != nil {
		return nil, err
	}

	period := cfg.Period
	if period == "" {
		period = model.RebalanceYearly
	}

	n := hi - lo + 1
	alloc := &Allocation{
		Dates:   dates[lo : hi+1],
		Weights: make([][]float64, n),
		Equity:  make([]float64, n),
	}

	buckets := []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	alloc.Equity[0] = 1
	alloc.Weights[0] = shares(buckets, 1)

	for i := lo + 1; i <= hi; i++ {
		total := 0.0
		for a := range buckets {
			buckets[a] *= prices[a][i] / prices[a][i-1]
			total += buckets[a]
		}
		if periodBoundary(period, dates[i-1], dates[i]) {
			buckets[0], buckets[1], buckets[2] = total/3, total/3, total/3
			alloc.Events = append(alloc.Events, model.Event{
				Date: dates[i], Kind: model.EventRebalancePeriodic, Position: 1,
			})
		}
		alloc.Equity[i-lo] = total
		alloc.Weights[i-lo] = shares(buckets, total)
	}
	return alloc, nil
}

// Flexible simulates the multi-trigger target-weight allocation over risk
// assets plus a cash bucket that earns nothing. After each day's returns
// accumulate, the triggers are checked in fixed order: a new calendar year
// first, then the cash-low band, then the cash-high band. At most one
// trigger fires per day and every trigger restores the full target weights.
func Flexible(assets []model.PriceSeries, start, end time.Time, cfg model.FlexibleConfig) (*Allocation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	if len(assets) != len(cfg.Weights) {
		return nil, invalidConfig(fmt.Errorf("%d instruments but %d weights", len(assets), len(cfg.Weights)))
	}
	dates, prices := model.Align(assets...)
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: instruments share no trading days", ErrEmptyWindow)
	}
	lo, hi, err := simWindow(dates, start, end, 1)
	if err != nil {
		return nil, err
	}

	n := hi - lo + 1
	alloc := &Allocation{
		Dates:   dates[lo : hi+1],
		Weights: make([][]float64, n),
		Equity:  make([]float64, n),
	}

	buckets := append([]float64(nil), cfg.Weights...)
	cash := cfg.TargetCash()
	alloc.Equity[0] = 1
	alloc.Weights[0] = shares(buckets, 1)

	for i := lo + 1; i <= hi; i++ {
		total := cash
		for a := range buckets {
			buckets[a] *= prices[a][i] / prices[a][i-1]
			total += buckets[a]
		}
		cashFrac := cash / total

		var kind model.EventKind
		switch {
		case cfg.Annual && dates[i].Year() != dates[i-1].Year():
			kind = model.EventRebalancePeriodic
		case cfg.CashLowPct != nil && cashFrac < *cfg.CashLowPct:
			kind = model.EventRebalanceCashLow
		case cfg.CashHighPct != nil && cashFrac > *cfg.CashHighPct:
			kind = model.EventRebalanceCashHigh
		}
		if kind != "" {
			for a, w := range cfg.Weights {
				buckets[a] = total * w
			}
			cash = total * cfg.TargetCash()
			alloc.Events = append(alloc.Events, model.Event{Date: dates[i], Kind: kind, Position: 1 - cfg.TargetCash()})
		}

		alloc.Equity[i-lo] = total
		alloc.Weights[i-lo] = shares(buckets, total)
	}
	return alloc, nil
}

func periodBoundary(period model.RebalancePeriod, prev, cur time.Time) bool {
	switch period {
	case model.RebalanceYearly:
		return cur.Year() != prev.Year()
	case model.RebalanceQuarterly:
		return quarter(cur) != quarter(prev) || cur.Year() != prev.Year()
	}
	return false
}

func quarter(t time.Time) int {
	return (int(t.Month()) - 1) / 3
}

func shares(buckets []float64, total float64) []float64 {
	out := make([]float64, len(buckets))
	for a, b := range buckets {
		out[a] = b / total
	}
	return out
}
