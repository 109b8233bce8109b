package engine

import (
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// Crossover simulates the SMA crossover rule on the signal series.
//
// Above the average (strictly) the rule wants full exposure, but only once a
// buy permission has been earned by first spending time at or below the
// average. While at or below, an upward-to-downward cross exits fully and,
// if staged re-entry is enabled, every IntervalDays at-or-below days add
// StepPct of exposure up to 1. A day exactly on the average counts as below.
func Crossover(signal model.PriceSeries, start, end time.Time, cfg model.CrossoverConfig) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	dates := signal.Dates()
	prices := signal.Values()
	ma := SMA(prices, cfg.Window)

	// Day one of the window has no prior day to compare, so the seated
	// region must begin one day before the first simulated day.
	seated := firstSeated(ma) + 1
	lo, hi, err := simWindow(dates, start, end, seated)
	if err != nil {
		return nil, err
	}

	n := hi - lo + 1
	sim := &Simulation{Dates: dates[lo : hi+1], Positions: make([]float64, n)}

	pos := initialExposure(cfg.InitialPosition)
	canBuy := cfg.InitialPosition == model.InitialFull
	dcaWait := 0
	sim.Positions[0] = pos

	for i := lo + 1; i <= hi; i++ {
		above := prices[i] > ma[i]
		wasAbove := prices[i-1] > ma[i-1]

		if above {
			if canBuy {
				if pos < 1 {
					pos = 1
					sim.record(i-lo, model.EventEnterFull, pos)
				}
			} else {
				pos = 0
			}
			dcaWait = 0
		} else {
			canBuy = true
			if wasAbove {
				if pos > 0 {
					pos = 0
					sim.record(i-lo, model.EventExitFull, pos)
				}
				dcaWait = 0
			} else if cfg.DCA.Enabled && pos < 1 {
				dcaWait++
				if dcaWait >= cfg.DCA.IntervalDays {
					pos = min1(pos + cfg.DCA.StepPct)
					sim.record(i-lo, model.EventPartialBuy, pos)
					dcaWait = 0
				}
			}
		}
		sim.Positions[i-lo] = pos
	}
	return sim, nil
}

func (s *Simulation) record(idx int, kind model.EventKind, pos float64) {
	s.Events = append(s.Events, model.Event{Date: s.Dates[idx], Kind: kind, Position: pos})
}

func min1(x float64) float64 {
	if x > 1 {
		return 1
	}
	return x
}
