package engine

import (
	"math"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// TradingDaysPerYear is the annualization base for volatility and ratios.
const TradingDaysPerYear = 252

// Analyze computes the performance summary of an equity curve. Metrics that
// are undefined for the curve stay NaN instead of collapsing to zero: CAGR
// needs elapsed calendar time, the ratios need dispersion, Calmar needs a
// drawdown, Sortino needs at least one losing day. Trade count is the number
// of recorded events. Analyze never mutates the curve, so repeated calls on
// the same inputs return identical sets.
func Analyze(curve model.EquityCurve, events []model.Event) model.MetricSet {
	m := model.MetricSet{
		FinalMultiplier:  math.NaN(),
		TotalReturn:      math.NaN(),
		CAGR:             math.NaN(),
		MaxDrawdown:      math.NaN(),
		AnnualVolatility: math.NaN(),
		SharpeRatio:      math.NaN(),
		SortinoRatio:     math.NaN(),
		CalmarRatio:      math.NaN(),
		TradeCount:       len(events),
	}
	if curve.Len() == 0 {
		return m
	}

	final := curve.Values[curve.Len()-1] / curve.Values[0]
	m.FinalMultiplier = final
	m.TotalReturn = final - 1

	days := curve.Dates[curve.Len()-1].Sub(curve.Dates[0]).Hours() / 24
	if days > 0 {
		m.CAGR = math.Pow(final, 365/days) - 1
	}

	dd := curve.Drawdowns()
	worst := 0.0
	for _, d := range dd {
		if d < worst {
			worst = d
		}
	}
	m.MaxDrawdown = worst

	rets := curve.Returns()[1:]
	sd := stdDev(rets)
	if !math.IsNaN(sd) && sd > 0 {
		m.AnnualVolatility = sd * math.Sqrt(TradingDaysPerYear)
		m.SharpeRatio = mean(rets) / sd * math.Sqrt(TradingDaysPerYear)
	}

	var losses []float64
	for _, r := range rets {
		if r < 0 {
			losses = append(losses, r)
		}
	}
	dsd := stdDev(losses)
	if !math.IsNaN(dsd) && dsd > 0 {
		m.SortinoRatio = mean(rets) / dsd * math.Sqrt(TradingDaysPerYear)
	}

	if worst < 0 && !math.IsNaN(m.CAGR) {
		m.CalmarRatio = m.CAGR / math.Abs(worst)
	}
	return m
}
