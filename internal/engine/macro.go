package engine

import (
	"math"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// MacroThreshold simulates the macro-indicator hysteresis rule. The
// indicator, typically monthly, is forward-filled onto the price calendar
// and then shifted by the publication lag in trading days. At or below the
// buy threshold the rule is long, at or above the sell threshold it is flat,
// and between the bands it holds its prior state. State accumulates from the
// first usable indicator day, so the window can open already long.
func MacroThreshold(prices, indicator model.PriceSeries, start, end time.Time, cfg model.MacroConfig) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	dates := prices.Dates()
	score := Shift(indicator.ForwardFillOnto(dates), cfg.LagDays)

	seated := firstSeated(score) + 1
	lo, hi, err := simWindow(dates, start, end, seated)
	if err != nil {
		return nil, err
	}

	n := hi - lo + 1
	sim := &Simulation{Dates: dates[lo : hi+1], Positions: make([]float64, n)}

	pos := 0.0
	for i := seated - 1; i <= hi; i++ {
		if !math.IsNaN(score[i]) {
			switch {
			case score[i] <= cfg.BuyThreshold:
				if pos == 0 && i >= lo {
					sim.record(i-lo, model.EventEnterFull, 1)
				}
				pos = 1
			case score[i] >= cfg.SellThreshold:
				if pos == 1 && i >= lo {
					sim.record(i-lo, model.EventExitFull, 0)
				}
				pos = 0
			}
		}
		if i >= lo {
			sim.Positions[i-lo] = pos
		}
	}
	return sim, nil
}
