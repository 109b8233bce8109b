package engine

import (
	"fmt"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// SwitchWindow simulates the calendar switch overlay: outside every window
// the equity compounds the base instrument's return, inside it the alternate
// (typically leveraged) instrument's return. On each day the holding changes
// the proportional switch cost is charged on top of that day's return.
func SwitchWindow(base, alt model.PriceSeries, start, end time.Time, cfg model.SwitchWindowConfig) (*Allocation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	dates, prices := model.Align(base, alt)
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

	holdAlt := inWindow(dates[lo], cfg.Windows)
	alloc.Equity[0] = 1
	alloc.Weights[0] = holdingWeights(holdAlt)

	for i := lo + 1; i <= hi; i++ {
		// The switch happens at the prior close, so the incoming holding
		// already earns the switch day's return.
		wantAlt := inWindow(dates[i], cfg.Windows)
		ret := prices[0][i]/prices[0][i-1] - 1
		if wantAlt {
			ret = prices[1][i]/prices[1][i-1] - 1
		}
		growth := 1 + ret
		if wantAlt != holdAlt {
			growth *= 1 - cfg.CostRate
			kind := model.EventExitFull
			symbol := base.Symbol
			if wantAlt {
				kind = model.EventEnterFull
				symbol = alt.Symbol
			}
			alloc.Events = append(alloc.Events, model.Event{
				Date: dates[i], Kind: kind, Position: 1, Symbol: symbol,
			})
			holdAlt = wantAlt
		}
		alloc.Equity[i-lo] = alloc.Equity[i-lo-1] * growth
		alloc.Weights[i-lo] = holdingWeights(holdAlt)
	}
	return alloc, nil
}

func inWindow(d time.Time, windows []model.SwitchRange) bool {
	for _, w := range windows {
		if !d.Before(w.Start) && !d.After(w.End) {
			return true
		}
	}
	return false
}

func holdingWeights(alt bool) []float64 {
	if alt {
		return []float64{0, 1}
	}
	return []float64{1, 0}
}
