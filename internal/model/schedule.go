package model

import (
	"math"
	"time"
)

// EventKind identifies a position change recorded during a simulation.
type EventKind string

// Event kinds.
const (
	EventEnterFull         EventKind = "ENTER_FULL"
	EventExitFull          EventKind = "EXIT_FULL"
	EventPartialBuy        EventKind = "PARTIAL_BUY"
	EventPartialSell       EventKind = "PARTIAL_SELL"
	EventRebalancePeriodic EventKind = "REBALANCE_PERIODIC"
	EventRebalanceCashLow  EventKind = "REBALANCE_CASH_LOW"
	EventRebalanceCashHigh EventKind = "REBALANCE_CASH_HIGH"
)

// Event marks a dated position change with the exposure after the change.
// Symbol is set when the rule spans several instruments.
type Event struct {
	Date     time.Time `json:"date"`
	Kind     EventKind `json:"kind"`
	Position float64   `json:"position"`
	Symbol   string    `json:"symbol,omitempty"`
}

// PositionSchedule is a per-day exposure series for a single instrument.
// Positions are fractions in [0, 1].
type PositionSchedule struct {
	Dates     []time.Time `json:"dates"`
	Positions []float64   `json:"positions"`
}

// Len returns the number of scheduled days.
func (s PositionSchedule) Len() int { return len(s.Dates) }

// WeightSchedule is a per-day allocation across several assets. Weights are
// indexed [day][asset]; the remainder up to 1 is cash.
type WeightSchedule struct {
	Dates   []time.Time `json:"dates"`
	Weights [][]float64 `json:"weights"`
}

// EquityCurve is the cumulative value of one simulated unit of capital.
type EquityCurve struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Len returns the number of curve points.
func (c EquityCurve) Len() int { return len(c.Values) }

// Returns computes the curve's simple daily returns, with 0 for day one.
func (c EquityCurve) Returns() []float64 {
	rets := make([]float64, len(c.Values))
	for i := 1; i < len(c.Values); i++ {
		rets[i] = c.Values[i]/c.Values[i-1] - 1
	}
	return rets
}

// Drawdowns computes the per-day drawdown from the running peak. Values are
// non-positive fractions.
func (c EquityCurve) Drawdowns() []float64 {
	dd := make([]float64, len(c.Values))
	peak := math.Inf(-1)
	for i, v := range c.Values {
		if v > peak {
			peak = v
		}
		dd[i] = v/peak - 1
	}
	return dd
}
