package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// StreakStat summarizes the forward return conditional on a streak of
// consecutive positive months of the given length.
type StreakStat struct {
	Length       int     `json:"length"`
	Occurrences  int     `json:"occurrences"`
	WinRate      float64 `json:"win_rate"`
	MeanReturn   float64 `json:"mean_return"`
	MedianReturn float64 `json:"median_return"`
	BestReturn   float64 `json:"best_return"`
	WorstReturn  float64 `json:"worst_return"`
}

// StreakReport holds the conditional statistics next to the unconditional
// base rate over the same months.
type StreakReport struct {
	Symbol      string       `json:"symbol"`
	Months      int          `json:"months"`
	BaseWinRate float64      `json:"base_win_rate"`
	BaseMean    float64      `json:"base_mean_return"`
	Stats       []StreakStat `json:"stats"`
	FirstMonth  time.Time    `json:"first_month"`
	LastMonth   time.Time    `json:"last_month"`
	HorizonUsed int          `json:"horizon_months"`
	TrendMonths int          `json:"trend_months"`
}

// Streaks downsamples the series to month-end observations and, for each
// requested streak length N, collects the return HorizonMonths ahead of
// every month that closes an N-month run of positive returns while the
// trailing TrendMonths return is also positive. An empty conditional sample
// leaves the stat row with NaN aggregates rather than zeros.
func Streaks(prices model.PriceSeries, start, end time.Time, cfg model.StreakConfig) (*StreakReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	horizon := cfg.HorizonMonths
	if horizon == 0 {
		horizon = 1
	}
	trendMonths := 12
	if cfg.TrendMonths != nil {
		trendMonths = *cfg.TrendMonths
	}

	monthly := prices.Slice(start, end).MonthlyLast()
	if monthly.Len() < 2 {
		return nil, fmt.Errorf("%w: at least two month-end observations are required", ErrEmptyWindow)
	}
	rets := monthly.Returns()[1:] // one return per month from the second on
	maxLen := 0
	for _, n := range cfg.Lengths {
		if n > maxLen {
			maxLen = n
		}
	}
	if len(rets) < maxLen+horizon {
		return nil, fmt.Errorf("%w: %d monthly returns cannot support streak length %d with horizon %d",
			ErrInsufficientHistory, len(rets), maxLen, horizon)
	}

	report := &StreakReport{
		Symbol:      prices.Symbol,
		Months:      len(rets),
		FirstMonth:  monthly.Points[1].Date,
		LastMonth:   monthly.Points[monthly.Len()-1].Date,
		HorizonUsed: horizon,
		TrendMonths: trendMonths,
	}

	wins := 0
	for _, r := range rets {
		if r > 0 {
			wins++
		}
	}
	report.BaseWinRate = float64(wins) / float64(len(rets))
	report.BaseMean = mean(rets)

	// Trailing trend at month i of the return sequence, undefined months
	// fail the gate just like a negative trend.
	values := monthly.Values()
	trendUp := func(i int) bool {
		if trendMonths == 0 {
			return true
		}
		j := i + 1
		if j < trendMonths {
			return false
		}
		return values[j] > values[j-trendMonths]
	}

	for _, n := range cfg.Lengths {
		var forward []float64
		for i := n - 1; i+horizon < len(rets); i++ {
			if allPositive(rets[i-n+1:i+1]) && trendUp(i) {
				forward = append(forward, rets[i+horizon])
			}
		}
		report.Stats = append(report.Stats, summarize(n, forward))
	}
	return report, nil
}

func summarize(length int, forward []float64) StreakStat {
	stat := StreakStat{
		Length:       length,
		Occurrences:  len(forward),
		WinRate:      math.NaN(),
		MeanReturn:   math.NaN(),
		MedianReturn: math.NaN(),
		BestReturn:   math.NaN(),
		WorstReturn:  math.NaN(),
	}
	if len(forward) == 0 {
		return stat
	}
	wins := 0
	best, worst := forward[0], forward[0]
	for _, r := range forward {
		if r > 0 {
			wins++
		}
		if r > best {
			best = r
		}
		if r < worst {
			worst = r
		}
	}
	stat.WinRate = float64(wins) / float64(len(forward))
	stat.MeanReturn = mean(forward)
	stat.MedianReturn = median(forward)
	stat.BestReturn = best
	stat.WorstReturn = worst
	return stat
}

func allPositive(values []float64) bool {
	for _, v := range values {
		if v <= 0 {
			return false
		}
	}
	return true
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
