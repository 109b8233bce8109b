package engine

import (
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// BiasBand simulates the dual bias-band rule: SMA crossovers set the base
// exposure, and the deviation from the average ("bias") scales in or out in
// steps. Each band has its own cooldown counter so a deep deviation cannot
// fire on consecutive days. Crossovers are evaluated before band triggers,
// so a crossing day never also fires a band.
func BiasBand(signal model.PriceSeries, start, end time.Time, cfg model.BiasBandConfig) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	dates := signal.Dates()
	prices := signal.Values()
	ma := SMA(prices, cfg.Window)

	seated := firstSeated(ma) + 1
	lo, hi, err := simWindow(dates, start, end, seated)
	if err != nil {
		return nil, err
	}

	n := hi - lo + 1
	sim := &Simulation{Dates: dates[lo : hi+1], Positions: make([]float64, n)}

	pos := initialExposure(cfg.InitialPosition)
	canBuy := cfg.InitialPosition == model.InitialFull
	lowerCd, upperCd := 0, 0
	sim.Positions[0] = pos

	for i := lo + 1; i <= hi; i++ {
		if lowerCd > 0 {
			lowerCd--
		}
		if upperCd > 0 {
			upperCd--
		}
		bias := (prices[i] - ma[i]) / ma[i]
		above := prices[i] > ma[i]
		wasAbove := prices[i-1] > ma[i-1]

		if above {
			if !canBuy {
				pos = 0
			} else if !wasAbove {
				if pos < 1 {
					pos = 1
					sim.record(i-lo, model.EventEnterFull, pos)
				}
			} else if cfg.UpperStepPct > 0 && bias >= cfg.UpperTriggerPct && upperCd == 0 && pos > 0 {
				pos = max0(pos - cfg.UpperStepPct)
				sim.record(i-lo, model.EventPartialSell, pos)
				upperCd = cfg.CooldownDays
			}
			lowerCd = 0
		} else {
			canBuy = true
			if wasAbove {
				if pos > 0 {
					pos = 0
					sim.record(i-lo, model.EventExitFull, pos)
				}
				upperCd = 0
			} else if cfg.LowerStepPct > 0 && bias <= cfg.LowerTriggerPct && lowerCd == 0 && pos < 1 {
				pos = min1(pos + cfg.LowerStepPct)
				sim.record(i-lo, model.EventPartialBuy, pos)
				lowerCd = cfg.CooldownDays
			}
		}
		sim.Positions[i-lo] = pos
	}
	return sim, nil
}

func max0(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}
