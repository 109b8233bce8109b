package engine

import (
	"math"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// Breakout simulates the range-extreme breakout rule. The buy line sits a
// volatility offset above the rolling low of the lookback window, and the
// stop sits the sell offset below either the entry price or the highest
// close since entry. With the trend filter on, entry also requires price
// above its long moving average, and a cross back below that average exits
// regardless of the stop. The rolling low and the volatility estimate are
// shifted one day so a decision on day t only sees data through day t-1.
func Breakout(signal model.PriceSeries, start, end time.Time, cfg model.BreakoutConfig) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	dates := signal.Dates()
	prices := signal.Values()

	periodMin := Shift(RollingMin(prices, cfg.LookbackWindow), 1)
	atr := Shift(RollingMeanAbsDiff(prices, cfg.ATRWindow), 1)

	rolling := [][]float64{periodMin, atr}
	var trendMA []float64
	if cfg.TrendFilter {
		trendMA = SMA(prices, cfg.TrendWindow)
		rolling = append(rolling, trendMA)
	}

	seated := firstSeated(rolling...)
	lo, hi, err := simWindow(dates, start, end, seated)
	if err != nil {
		return nil, err
	}

	n := hi - lo + 1
	sim := &Simulation{Dates: dates[lo : hi+1], Positions: make([]float64, n)}

	inPosition := false
	entry, highest := math.NaN(), math.NaN()

	for i := lo; i <= hi; i++ {
		p := prices[i]
		if inPosition {
			if p > highest {
				highest = p
			}
			basis := entry
			if cfg.StopBasis == model.StopTrailing {
				basis = highest
			}
			stop := basis - cfg.SellMultiple*atr[i]
			if cfg.UsePercent {
				stop = basis * (1 - cfg.SellPct)
			}
			trendCrossDown := cfg.TrendFilter && i > 0 &&
				p < trendMA[i] && prices[i-1] >= trendMA[i-1]
			if p < stop || trendCrossDown {
				inPosition = false
				entry, highest = math.NaN(), math.NaN()
				sim.record(i-lo, model.EventExitFull, 0)
			}
		} else {
			buyLine := periodMin[i] + cfg.BuyMultiple*atr[i]
			if cfg.UsePercent {
				buyLine = periodMin[i] * (1 + cfg.BuyPct)
			}
			trendOK := !cfg.TrendFilter || p > trendMA[i]
			if p > buyLine && trendOK {
				inPosition = true
				entry, highest = p, p
				sim.record(i-lo, model.EventEnterFull, 1)
			}
		}
		if inPosition {
			sim.Positions[i-lo] = 1
		}
	}
	return sim, nil
}
