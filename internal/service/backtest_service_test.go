package service

import (
	"context"
	"testing"
	"time"

	"github.com/hamr-lab/backtest-service/internal/engine"
	"github.com/hamr-lab/backtest-service/internal/model"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testService(t *testing.T) *BacktestService {
	t.Helper()
	return NewBacktestService(nil, nil, nil, 0, 0, zap.NewNop())
}

func baseRequest(strategy model.StrategyKind) model.BacktestRequest {
	return model.BacktestRequest{
		Strategy:       strategy,
		Symbol:         "ETF",
		StartDate:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: 10000,
	}
}

func TestValidateRequestRequiresMatchingConfig(t *testing.T) {
	s := testService(t)

	req := baseRequest(model.StrategyCrossover)
	err := s.ValidateRequest(req)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	req.Crossover = &model.CrossoverConfig{Window: 20}
	assert.NoError(t, s.ValidateRequest(req))
}

func TestValidateRequestRejectsInvertedDates(t *testing.T) {
	s := testService(t)

	req := baseRequest(model.StrategyCrossover)
	req.Crossover = &model.CrossoverConfig{Window: 20}
	req.StartDate, req.EndDate = req.EndDate, req.StartDate
	assert.ErrorIs(t, s.ValidateRequest(req), engine.ErrInvalidConfig)
}

func TestValidateRequestPoolSizes(t *testing.T) {
	s := testService(t)

	req := baseRequest(model.StrategyThreeWay)
	req.Symbol = ""
	req.Symbols = []string{"AAA", "BBB"}
	req.ThreeWay = &model.ThreeWayConfig{}
	assert.ErrorIs(t, s.ValidateRequest(req), engine.ErrInvalidConfig)

	req.Symbols = append(req.Symbols, "CCC")
	assert.NoError(t, s.ValidateRequest(req))

	rot := baseRequest(model.StrategyRotation)
	rot.Symbol = ""
	rot.Symbols = []string{"AAA"}
	rot.Rotation = &model.RotationConfig{LookbackDays: 60}
	assert.ErrorIs(t, s.ValidateRequest(rot), engine.ErrInvalidConfig)
}

func TestValidateRequestUnknownStrategy(t *testing.T) {
	s := testService(t)

	req := baseRequest(model.StrategyKind("martingale"))
	assert.ErrorIs(t, s.ValidateRequest(req), engine.ErrInvalidConfig)
}

func TestReturnsOnRestrictedCalendar(t *testing.T) {
	series := model.NewPriceSeries("ETF", []model.PricePoint{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 100},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Value: 110},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Value: 121},
	})
	dates := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}

	rets := returnsOn(series, dates)
	assert.Equal(t, 0.0, rets[0])
	assert.InDelta(t, 0.21, rets[1], 1e-12)
}

func TestCompareBacktestsRejectsSmallOrDuplicateBatches(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	req := baseRequest(model.StrategyCrossover)
	req.Crossover = &model.CrossoverConfig{Window: 20}

	_, err := s.CompareBacktests(ctx, model.CompareRequest{
		Entries: []model.CompareEntry{{Name: "only", Request: req}},
	})
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	_, err = s.CompareBacktests(ctx, model.CompareRequest{
		Entries: []model.CompareEntry{
			{Name: "same", Request: req},
			{Name: "same", Request: req},
		},
	})
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}
