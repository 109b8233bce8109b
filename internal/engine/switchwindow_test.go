package engine

import (
	"testing"

	"github.com/hamr-lab/backtest-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchWindowChargesCostOnEachSwitch(t *testing.T) {
	base := dailySeries(t, "BASE", "2024-01-01", 100, 100, 100, 100, 100)
	alt := dailySeries(t, "LEV", "2024-01-01", 10, 10, 12, 18, 18)
	cfg := model.SwitchWindowConfig{
		Windows:  []model.SwitchRange{{Start: day(t, "2024-01-03"), End: day(t, "2024-01-04")}},
		CostRate: 0.01,
	}

	alloc, err := SwitchWindow(base, alt, day(t, "2024-01-02"), day(t, "2024-01-05"), cfg)
	require.NoError(t, err)

	// Switch in on 01-03: the leveraged day earns 20% less the 1% cost.
	assert.InDelta(t, 1.2*0.99, alloc.Equity[1], 1e-12)
	// Full leveraged day inside the window.
	assert.InDelta(t, 1.2*0.99*1.5, alloc.Equity[2], 1e-12)
	// Switch back out on 01-05: flat base return, cost charged again.
	assert.InDelta(t, 1.2*0.99*1.5*0.99, alloc.Equity[3], 1e-12)

	require.Len(t, alloc.Events, 2)
	assert.Equal(t, model.EventEnterFull, alloc.Events[0].Kind)
	assert.Equal(t, "LEV", alloc.Events[0].Symbol)
	assert.Equal(t, day(t, "2024-01-03"), alloc.Events[0].Date)
	assert.Equal(t, model.EventExitFull, alloc.Events[1].Kind)
	assert.Equal(t, "BASE", alloc.Events[1].Symbol)
	assert.Equal(t, day(t, "2024-01-05"), alloc.Events[1].Date)

	assert.Equal(t, []float64{1, 0}, alloc.Weights[0])
	assert.Equal(t, []float64{0, 1}, alloc.Weights[1])
	assert.Equal(t, []float64{0, 1}, alloc.Weights[2])
	assert.Equal(t, []float64{1, 0}, alloc.Weights[3])
}

func TestSwitchWindowRejectsInvertedRanges(t *testing.T) {
	base := dailySeries(t, "BASE", "2024-01-01", 100, 100)
	alt := dailySeries(t, "LEV", "2024-01-01", 10, 10)
	cfg := model.SwitchWindowConfig{
		Windows: []model.SwitchRange{{Start: day(t, "2024-02-01"), End: day(t, "2024-01-01")}},
	}

	_, err := SwitchWindow(base, alt, day(t, "2024-01-01"), day(t, "2024-01-02"), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
