package engine

import (
	"math"
	"testing"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"

	"github.com/stretchr/testify/assert"
)

func curveOf(t *testing.T, start string, values ...float64) model.EquityCurve {
	t.Helper()
	dates := make([]time.Time, len(values))
	for i := range values {
		dates[i] = day(t, start).AddDate(0, 0, i)
	}
	return model.EquityCurve{Dates: dates, Values: values}
}

func TestAnalyzeKnownValues(t *testing.T) {
	curve := curveOf(t, "2024-01-01", 1, 1.01, 1.02, 1.015, 1.03)
	events := []model.Event{
		{Date: day(t, "2024-01-02"), Kind: model.EventEnterFull},
		{Date: day(t, "2024-01-04"), Kind: model.EventExitFull},
	}

	m := Analyze(curve, events)

	assert.InDelta(t, 1.03, m.FinalMultiplier, 1e-12)
	assert.InDelta(t, 0.03, m.TotalReturn, 1e-12)
	assert.InDelta(t, math.Pow(1.03, 365.0/4)-1, m.CAGR, 1e-12)
	assert.InDelta(t, 1.015/1.02-1, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, 0.13557, m.AnnualVolatility, 1e-4)
	assert.InDelta(t, 13.838, m.SharpeRatio, 1e-2)
	assert.Equal(t, 2, m.TradeCount)
	// One losing day only: its sample deviation is undefined.
	assert.True(t, math.IsNaN(m.SortinoRatio))
	assert.InDelta(t, m.CAGR/math.Abs(m.MaxDrawdown), m.CalmarRatio, 1e-12)
}

func TestAnalyzeFlatCurveLeavesRatiosUndefined(t *testing.T) {
	m := Analyze(curveOf(t, "2024-01-01", 1, 1, 1, 1), nil)

	assert.InDelta(t, 0, m.TotalReturn, 1e-12)
	assert.InDelta(t, 0, m.MaxDrawdown, 1e-12)
	assert.True(t, math.IsNaN(m.AnnualVolatility))
	assert.True(t, math.IsNaN(m.SharpeRatio))
	assert.True(t, math.IsNaN(m.SortinoRatio))
	// No drawdown means no Calmar denominator.
	assert.True(t, math.IsNaN(m.CalmarRatio))
	assert.Equal(t, 0, m.TradeCount)
}

func TestAnalyzeSinglePointCurve(t *testing.T) {
	m := Analyze(curveOf(t, "2024-01-01", 1), nil)

	assert.InDelta(t, 1, m.FinalMultiplier, 1e-12)
	assert.True(t, math.IsNaN(m.CAGR))
	assert.True(t, math.IsNaN(m.AnnualVolatility))
}

func TestAnalyzeEmptyCurve(t *testing.T) {
	m := Analyze(model.EquityCurve{}, nil)
	assert.True(t, math.IsNaN(m.FinalMultiplier))
	assert.True(t, math.IsNaN(m.TotalReturn))
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	curve := curveOf(t, "2024-01-01", 1, 1.02, 0.99, 1.05)

	first := Analyze(curve, nil)
	second := Analyze(curve, nil)

	assert.Equal(t, first.FinalMultiplier, second.FinalMultiplier)
	assert.Equal(t, first.CAGR, second.CAGR)
	assert.Equal(t, first.MaxDrawdown, second.MaxDrawdown)
	assert.Equal(t, first.SharpeRatio, second.SharpeRatio)
	assert.Equal(t, first.AnnualVolatility, second.AnnualVolatility)
}
