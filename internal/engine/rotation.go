package engine

import (
	"fmt"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// Rotation simulates the cross-sectional momentum rotation rule over a
// candidate pool. Each day the candidate with the highest trailing return is
// selected, subject to the optional trend filter; the first maximum wins a
// tie. When no candidate passes the filter the rule holds cash. The returned
// weights take effect with the standard one-day lag during equity
// accounting, so the day's selection earns the next day's return.
func Rotation(candidates []model.PriceSeries, start, end time.Time, cfg model.RotationConfig) (*Allocation, []int, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, invalidConfig(err)
	}
	if len(candidates) < 2 {
		return nil, nil, invalidConfig(fmt.Errorf("rotation needs at least two candidates, got %d", len(candidates)))
	}
	dates, prices := model.Align(candidates...)
	if len(dates) == 0 {
		return nil, nil, fmt.Errorf("%w: candidates share no trading days", ErrEmptyWindow)
	}

	seatAt := cfg.LookbackDays
	var trendMA [][]float64
	if cfg.TrendFilter {
		trendMA = make([][]float64, len(candidates))
		for a := range candidates {
			trendMA[a] = SMA(prices[a], cfg.TrendWindow)
		}
		if cfg.TrendWindow-1 > seatAt {
			seatAt = cfg.TrendWindow - 1
		}
	}
	lo, hi, err := simWindow(dates, start, end, seatAt)
	if err != nil {
		return nil, nil, err
	}

	n := hi - lo + 1
	alloc := &Allocation{Dates: dates[lo : hi+1], Weights: make([][]float64, n)}
	selected := make([]int, n)
	prev := -1

	for i := lo; i <= hi; i++ {
		best, bestMom := -1, 0.0
		for a := range candidates {
			if cfg.TrendFilter && prices[a][i] <= trendMA[a][i] {
				continue
			}
			mom := prices[a][i]/prices[a][i-cfg.LookbackDays] - 1
			if best < 0 || mom > bestMom {
				best, bestMom = a, mom
			}
		}
		w := make([]float64, len(candidates))
		if best >= 0 {
			w[best] = 1
		}
		alloc.Weights[i-lo] = w
		selected[i-lo] = best

		if best != prev {
			d := dates[i]
			if best >= 0 {
				alloc.Events = append(alloc.Events, model.Event{
					Date: d, Kind: model.EventEnterFull, Position: 1, Symbol: candidates[best].Symbol,
				})
			} else {
				alloc.Events = append(alloc.Events, model.Event{Date: d, Kind: model.EventExitFull})
			}
			prev = best
		}
	}
	return alloc, selected, nil
}
