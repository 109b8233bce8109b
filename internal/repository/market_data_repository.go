package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// MarketDataRepository handles database operations for price and indicator series
type MarketDataRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewMarketDataRepository creates a new market data repository
func NewMarketDataRepository(db *sqlx.DB, logger *zap.Logger) *MarketDataRepository {
	return &MarketDataRepository{
		db:     db,
		logger: logger,
	}
}

// GetInstrument retrieves an instrument by symbol
func (r *MarketDataRepository) GetInstrument(ctx context.Context, symbol string) (*model.Instrument, error) {
	query := `
		SELECT id, symbol, name, asset_type, created_at
		FROM instruments
		WHERE symbol = $1
	`

	var instrument model.Instrument
	err := r.db.GetContext(ctx, &instrument, query, symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get instrument", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}

	return &instrument, nil
}

// ListInstruments retrieves all known instruments
func (r *MarketDataRepository) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	query := `
		SELECT id, symbol, name, asset_type, created_at
		FROM instruments
		ORDER BY symbol
	`

	var instruments []model.Instrument
	err := r.db.SelectContext(ctx, &instruments, query)
	if err != nil {
		r.logger.Error("Failed to list instruments", zap.Error(err))
		return nil, err
	}

	return instruments, nil
}

// GetDailyCloses retrieves the close series for a symbol over [startDate, endDate]
func (r *MarketDataRepository) GetDailyCloses(
	ctx context.Context,
	symbol string,
	startDate time.Time,
	endDate time.Time,
) (model.PriceSeries, error) {
	query := `
		SELECT d.date, d.close
		FROM daily_closes d
		JOIN instruments i ON i.id = d.instrument_id
		WHERE i.symbol = $1 AND d.date >= $2 AND d.date <= $3
		ORDER BY d.date
	`

	var rows []struct {
		Date  time.Time `db:"date"`
		Close float64   `db:"close"`
	}
	err := r.db.SelectContext(ctx, &rows, query, symbol, startDate, endDate)
	if err != nil {
		r.logger.Error("Failed to get daily closes",
			zap.Error(err),
			zap.String("symbol", symbol))
		return model.PriceSeries{}, err
	}

	points := make([]model.PricePoint, len(rows))
	for i, row := range rows {
		points[i] = model.PricePoint{Date: row.Date, Value: row.Close}
	}
	return model.NewPriceSeries(symbol, points), nil
}

// GetDataRange retrieves the stored coverage for a symbol
func (r *MarketDataRepository) GetDataRange(ctx context.Context, symbol string) (*model.DateRange, error) {
	query := `
		SELECT MIN(d.date) AS start_date, MAX(d.date) AS end_date
		FROM daily_closes d
		JOIN instruments i ON i.id = d.instrument_id
		WHERE i.symbol = $1
	`

	var rng struct {
		Start *time.Time `db:"start_date"`
		End   *time.Time `db:"end_date"`
	}
	err := r.db.GetContext(ctx, &rng, query, symbol)
	if err != nil {
		r.logger.Error("Failed to get data range", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}
	if rng.Start == nil || rng.End == nil {
		return nil, ErrNotFound
	}

	return &model.DateRange{Start: *rng.Start, End: *rng.End}, nil
}

// InsertDailyCloses inserts a batch of close observations in one transaction
func (r *MarketDataRepository) InsertDailyCloses(ctx context.Context, closes []model.DailyClose) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO daily_closes (instrument_id, date, close)
		SELECT i.id, $2, $3 FROM instruments i WHERE i.symbol = $1
		ON CONFLICT (instrument_id, date) DO UPDATE SET close = EXCLUDED.close
	`

	for _, c := range closes {
		if _, err := tx.ExecContext(ctx, query, c.Symbol, c.Date, c.Close); err != nil {
			r.logger.Error("Failed to insert daily close",
				zap.Error(err),
				zap.String("symbol", c.Symbol),
				zap.Time("date", c.Date))
			return err
		}
	}

	return tx.Commit()
}

// GetIndicatorValues retrieves a macro indicator series over [startDate, endDate]
func (r *MarketDataRepository) GetIndicatorValues(
	ctx context.Context,
	name string,
	startDate time.Time,
	endDate time.Time,
) (model.PriceSeries, error) {
	query := `
		SELECT date, value
		FROM indicator_values
		WHERE name = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`

	var rows []struct {
		Date  time.Time `db:"date"`
		Value float64   `db:"value"`
	}
	err := r.db.SelectContext(ctx, &rows, query, name, startDate, endDate)
	if err != nil {
		r.logger.Error("Failed to get indicator values",
			zap.Error(err),
			zap.String("name", name))
		return model.PriceSeries{}, err
	}

	points := make([]model.PricePoint, len(rows))
	for i, row := range rows {
		points[i] = model.PricePoint{Date: row.Date, Value: row.Value}
	}
	return model.NewPriceSeries(name, points), nil
}

// InsertIndicatorValues inserts a batch of indicator observations in one transaction
func (r *MarketDataRepository) InsertIndicatorValues(ctx context.Context, values []model.IndicatorValue) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO indicator_values (name, date, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (name, date) DO UPDATE SET value = EXCLUDED.value
	`

	for _, v := range values {
		if _, err := tx.ExecContext(ctx, query, v.Name, v.Date, v.Value); err != nil {
			r.logger.Error("Failed to insert indicator value",
				zap.Error(err),
				zap.String("name", v.Name),
				zap.Time("date", v.Date))
			return err
		}
	}

	return tx.Commit()
}
