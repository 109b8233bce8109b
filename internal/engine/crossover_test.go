package engine

import (
	"testing"

	"github.com/hamr-lab/backtest-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossoverEntersAndExitsOnCrossings(t *testing.T) {
	series := dailySeries(t, "ETF", "2024-01-01", 10, 10, 9, 8, 12, 13, 9, 8)
	cfg := model.CrossoverConfig{Window: 2, InitialPosition: model.InitialFlat}

	sim, err := Crossover(series, day(t, "2024-01-03"), day(t, "2024-01-08"), cfg)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 1, 1, 0, 0}, sim.Positions)
	require.Len(t, sim.Events, 2)
	assert.Equal(t, model.EventEnterFull, sim.Events[0].Kind)
	assert.Equal(t, day(t, "2024-01-05"), sim.Events[0].Date)
	assert.Equal(t, model.EventExitFull, sim.Events[1].Kind)
	assert.Equal(t, day(t, "2024-01-07"), sim.Events[1].Date)
}

func TestCrossoverBuyPermissionRequiresTimeBelow(t *testing.T) {
	// Opens above the average with a flat start: no entry is allowed until
	// the price has first spent a day at or below it.
	series := dailySeries(t, "ETF", "2024-01-01", 10, 10, 20, 21, 22, 5, 4, 30, 31)
	cfg := model.CrossoverConfig{Window: 2, InitialPosition: model.InitialFlat}

	sim, err := Crossover(series, day(t, "2024-01-03"), day(t, "2024-01-09"), cfg)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0, 0, 0, 1, 1}, sim.Positions)
	require.Len(t, sim.Events, 1)
	assert.Equal(t, model.EventEnterFull, sim.Events[0].Kind)
	assert.Equal(t, day(t, "2024-01-08"), sim.Events[0].Date)
}

func TestCrossoverFullStartHoldsAbove(t *testing.T) {
	series := dailySeries(t, "ETF", "2024-01-01", 10, 10, 12, 13, 14)
	cfg := model.CrossoverConfig{Window: 2, InitialPosition: model.InitialFull}

	sim, err := Crossover(series, day(t, "2024-01-03"), day(t, "2024-01-05"), cfg)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1, 1}, sim.Positions)
	assert.Empty(t, sim.Events)
}

func TestCrossoverDCARefillsBelowAverage(t *testing.T) {
	// Window 1 makes every day count as at-or-below, so the staged buys
	// fire on their interval and cap at full exposure.
	series := dailySeries(t, "ETF", "2024-01-01", 10, 10, 10, 10, 10, 10, 10, 10)
	cfg := model.CrossoverConfig{
		Window:          1,
		InitialPosition: model.InitialFlat,
		DCA:             model.DCAConfig{Enabled: true, IntervalDays: 2, StepPct: 0.4},
	}

	sim, err := Crossover(series, day(t, "2024-01-02"), day(t, "2024-01-08"), cfg)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0.4, 0.4, 0.8, 0.8, 1}, sim.Positions)
	require.Len(t, sim.Events, 3)
	for _, e := range sim.Events {
		assert.Equal(t, model.EventPartialBuy, e.Kind)
	}
	assert.Equal(t, 1.0, sim.Events[2].Position)
}

func TestCrossoverInsufficientHistory(t *testing.T) {
	series := dailySeries(t, "ETF", "2024-01-01", 10, 11, 12)
	cfg := model.CrossoverConfig{Window: 10}

	_, err := Crossover(series, day(t, "2024-01-01"), day(t, "2024-01-03"), cfg)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestCrossoverWindowBeforeStatisticsSeat(t *testing.T) {
	series := dailySeries(t, "ETF", "2024-01-01", 10, 11, 12, 13, 14, 15, 16, 17)
	cfg := model.CrossoverConfig{Window: 5}

	_, err := Crossover(series, day(t, "2024-01-02"), day(t, "2024-01-08"), cfg)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestCrossoverEmptyWindow(t *testing.T) {
	series := dailySeries(t, "ETF", "2024-01-01", 10, 11, 12, 13)
	cfg := model.CrossoverConfig{Window: 2}

	_, err := Crossover(series, day(t, "2025-06-01"), day(t, "2025-06-30"), cfg)
	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestCrossoverRejectsBadConfig(t *testing.T) {
	series := dailySeries(t, "ETF", "2024-01-01", 10, 11, 12)

	_, err := Crossover(series, day(t, "2024-01-01"), day(t, "2024-01-03"), model.CrossoverConfig{Window: 0})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := model.CrossoverConfig{Window: 2, DCA: model.DCAConfig{Enabled: true, IntervalDays: 0, StepPct: 0.5}}
	_, err = Crossover(series, day(t, "2024-01-01"), day(t, "2024-01-03"), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
