package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
	"github.com/hamr-lab/backtest-service/internal/repository"

	"go.uber.org/zap"
)

// MarketDataService handles price and indicator series operations
type MarketDataService struct {
	marketDataRepo *repository.MarketDataRepository
	logger         *zap.Logger
}

// NewMarketDataService creates a new market data service
func NewMarketDataService(marketDataRepo *repository.MarketDataRepository, logger *zap.Logger) *MarketDataService {
	return &MarketDataService{
		marketDataRepo: marketDataRepo,
		logger:         logger,
	}
}

// GetInstrument retrieves an instrument by symbol
func (s *MarketDataService) GetInstrument(ctx context.Context, symbol string) (*model.Instrument, error) {
	return s.marketDataRepo.GetInstrument(ctx, symbol)
}

// ListInstruments retrieves all known instruments
func (s *MarketDataService) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	return s.marketDataRepo.ListInstruments(ctx)
}

// GetDailyCloses retrieves the close series for a symbol
func (s *MarketDataService) GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	if end.Before(start) {
		return model.PriceSeries{}, fmt.Errorf("end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return s.marketDataRepo.GetDailyCloses(ctx, symbol, start, end)
}

// GetDataRange retrieves the stored coverage for a symbol
func (s *MarketDataService) GetDataRange(ctx context.Context, symbol string) (*model.DateRange, error) {
	return s.marketDataRepo.GetDataRange(ctx, symbol)
}

// ImportDailyCloses stores a batch of close observations
func (s *MarketDataService) ImportDailyCloses(ctx context.Context, closes []model.DailyClose) (int, error) {
	if len(closes) == 0 {
		return 0, nil
	}
	if err := s.marketDataRepo.InsertDailyCloses(ctx, closes); err != nil {
		return 0, err
	}
	s.logger.Info("Imported daily closes",
		zap.Int("count", len(closes)),
		zap.String("symbol", closes[0].Symbol))
	return len(closes), nil
}

// ImportIndicatorValues stores a batch of indicator observations
func (s *MarketDataService) ImportIndicatorValues(ctx context.Context, values []model.IndicatorValue) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	if err := s.marketDataRepo.InsertIndicatorValues(ctx, values); err != nil {
		return 0, err
	}
	s.logger.Info("Imported indicator values",
		zap.Int("count", len(values)),
		zap.String("name", values[0].Name))
	return len(values), nil
}
