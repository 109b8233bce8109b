package engine

import (
	"math"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// NamedMetrics pairs a display name with a metric set for comparison.
type NamedMetrics struct {
	Name    string
	Metrics model.MetricSet
}

type metricColumn struct {
	name          string
	lowerIsBetter bool
	value         func(model.MetricSet) float64
}

// Comparison rows in display order. Drawdown and volatility are magnitudes
// where smaller is better; drawdown is compared on its absolute size.
var metricColumns = []metricColumn{
	{"final_multiplier", false, func(m model.MetricSet) float64 { return m.FinalMultiplier }},
	{"total_return", false, func(m model.MetricSet) float64 { return m.TotalReturn }},
	{"cagr", false, func(m model.MetricSet) float64 { return m.CAGR }},
	{"max_drawdown", true, func(m model.MetricSet) float64 { return math.Abs(m.MaxDrawdown) }},
	{"annualized_volatility", true, func(m model.MetricSet) float64 { return m.AnnualVolatility }},
	{"sharpe_ratio", false, func(m model.MetricSet) float64 { return m.SharpeRatio }},
	{"sortino_ratio", false, func(m model.MetricSet) float64 { return m.SortinoRatio }},
	{"calmar_ratio", false, func(m model.MetricSet) float64 { return m.CalmarRatio }},
	{"trade_count", false, func(m model.MetricSet) float64 { return float64(m.TradeCount) }},
}

// Compare builds the side-by-side report for several named metric sets. For
// each metric every entry with the best defined value wins; exact ties
// produce several winners, and entries whose metric is undefined never win.
func Compare(entries []NamedMetrics) []model.MetricComparison {
	report := make([]model.MetricComparison, 0, len(metricColumns))
	for _, col := range metricColumns {
		row := model.MetricComparison{
			Metric:        col.name,
			LowerIsBetter: col.lowerIsBetter,
			Values:        make(map[string]float64, len(entries)),
		}
		best := math.NaN()
		for _, e := range entries {
			v := col.value(e.Metrics)
			row.Values[e.Name] = v
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(best) || better(v, best, col.lowerIsBetter) {
				best = v
			}
		}
		if !math.IsNaN(best) {
			for _, e := range entries {
				if col.value(e.Metrics) == best {
					row.Winners = append(row.Winners, e.Name)
				}
			}
		}
		report = append(report, row)
	}
	return report
}

func better(candidate, best float64, lowerIsBetter bool) bool {
	if lowerIsBetter {
		return candidate < best
	}
	return candidate > best
}
