// Package engine implements the signal simulations, equity accounting and
// performance analytics behind the backtest service. Simulations are pure:
// they take aligned daily series plus a rule configuration and produce a
// day-by-day exposure schedule with its change events. Equity accounting and
// metric computation live in separate passes so every rule family shares the
// same conventions.
package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
)

// Simulation is the outcome of a single-instrument rule: a daily exposure
// schedule over the requested window plus the position change events.
type Simulation struct {
	Dates     []time.Time
	Positions []float64
	Events    []model.Event
}

// Schedule returns the simulation as a model schedule.
func (s *Simulation) Schedule() model.PositionSchedule {
	return model.PositionSchedule{Dates: s.Dates, Positions: s.Positions}
}

// Allocation is the outcome of a multi-asset rule: per-day weights, the
// rebalance events, and the equity curve produced by the bucket accounting.
type Allocation struct {
	Dates   []time.Time
	Weights [][]float64
	Events  []model.Event
	Equity  []float64
}

// WeightSchedule returns the allocation as a model schedule.
func (a *Allocation) WeightSchedule() model.WeightSchedule {
	return model.WeightSchedule{Dates: a.Dates, Weights: a.Weights}
}

func invalidConfig(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}

// window locates the inclusive [start, end] index range inside dates.
// ok is false when no date falls inside the window.
func window(dates []time.Time, start, end time.Time) (int, int, bool) {
	lo, hi := -1, -1
	for i, d := range dates {
		if d.Before(start) || d.After(end) {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i
	}
	return lo, hi, lo >= 0
}

// firstSeated finds the first index where every given rolling series holds a
// real value.
func firstSeated(series ...[]float64) int {
	n := 0
	if len(series) > 0 {
		n = len(series[0])
	}
	for i := 0; i < n; i++ {
		ok := true
		for _, s := range series {
			if math.IsNaN(s[i]) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return n
}

// simWindow validates that the requested window fits inside the seated part
// of the series and returns the inclusive index range to simulate over.
func simWindow(dates []time.Time, start, end time.Time, seated int) (int, int, error) {
	if seated >= len(dates) {
		return 0, 0, fmt.Errorf("%w: rolling statistics never seat over %d observations", ErrInsufficientHistory, len(dates))
	}
	lo, hi, ok := window(dates, start, end)
	if !ok {
		return 0, 0, fmt.Errorf("%w: no trading days between %s and %s", ErrEmptyWindow, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	if lo < seated {
		return 0, 0, fmt.Errorf("%w: window starts %s but statistics seat only at %s",
			ErrInsufficientHistory, dates[lo].Format("2006-01-02"), dates[seated].Format("2006-01-02"))
	}
	if hi-lo+1 < 2 {
		return 0, 0, fmt.Errorf("%w: at least two trading days are required", ErrEmptyWindow)
	}
	return lo, hi, nil
}

func initialExposure(p model.InitialPosition) float64 {
	if p == model.InitialFull {
		return 1
	}
	return 0
}
