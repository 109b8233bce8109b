package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hamr-lab/backtest-service/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// BacktestRepository handles database operations for backtest runs
type BacktestRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewBacktestRepository creates a new backtest repository
func NewBacktestRepository(db *sqlx.DB, logger *zap.Logger) *BacktestRepository {
	return &BacktestRepository{
		db:     db,
		logger: logger,
	}
}

// CreateRun persists a queued run and returns its ID
func (r *BacktestRepository) CreateRun(ctx context.Context, run *model.BacktestRun) (int, error) {
	query := `
		INSERT INTO backtest_runs (name, strategy, request, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`

	var id int
	err := r.db.QueryRowContext(ctx, query,
		run.Name,
		run.Strategy,
		run.Request,
		model.RunStatusQueued,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to create backtest run", zap.Error(err), zap.String("name", run.Name))
		return 0, err
	}

	return id, nil
}

// GetRun retrieves a run by ID
func (r *BacktestRepository) GetRun(ctx context.Context, id int) (*model.BacktestRun, error) {
	query := `
		SELECT id, name, strategy, request, status, error_message, created_at, completed_at
		FROM backtest_runs
		WHERE id = $1
	`

	var run model.BacktestRun
	err := r.db.GetContext(ctx, &run, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get backtest run", zap.Error(err), zap.Int("id", id))
		return nil, err
	}

	return &run, nil
}

// ListRuns retrieves runs ordered by creation time, newest first
func (r *BacktestRepository) ListRuns(ctx context.Context, limit, offset int) ([]model.BacktestRun, error) {
	query := `
		SELECT id, name, strategy, request, status, error_message, created_at, completed_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var runs []model.BacktestRun
	err := r.db.SelectContext(ctx, &runs, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list backtest runs", zap.Error(err))
		return nil, err
	}

	return runs, nil
}

// MarkRunning transitions a run from queued to running
func (r *BacktestRepository) MarkRunning(ctx context.Context, id int) error {
	query := `
		UPDATE backtest_runs
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	_, err := r.db.ExecContext(ctx, query, id, model.RunStatusRunning, model.RunStatusQueued)
	if err != nil {
		r.logger.Error("Failed to mark run running", zap.Error(err), zap.Int("id", id))
	}
	return err
}

// CompleteRun stores the result and transitions the run to completed
func (r *BacktestRepository) CompleteRun(ctx context.Context, id int, result *model.BacktestResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	statusQuery := `
		UPDATE backtest_runs
		SET status = $2, completed_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, statusQuery, id, model.RunStatusCompleted); err != nil {
		r.logger.Error("Failed to complete run", zap.Error(err), zap.Int("id", id))
		return err
	}

	resultQuery := `
		INSERT INTO backtest_results (run_id, result, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (run_id) DO UPDATE SET result = EXCLUDED.result
	`
	if _, err := tx.ExecContext(ctx, resultQuery, id, result); err != nil {
		r.logger.Error("Failed to store run result", zap.Error(err), zap.Int("id", id))
		return err
	}

	return tx.Commit()
}

// FailRun records the failure reason and transitions the run to failed
func (r *BacktestRepository) FailRun(ctx context.Context, id int, reason string) error {
	query := `
		UPDATE backtest_runs
		SET status = $2, error_message = $3, completed_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, model.RunStatusFailed, reason)
	if err != nil {
		r.logger.Error("Failed to mark run failed", zap.Error(err), zap.Int("id", id))
	}
	return err
}

// GetResult retrieves the stored result for a completed run
func (r *BacktestRepository) GetResult(ctx context.Context, runID int) (*model.BacktestResult, error) {
	query := `
		SELECT result
		FROM backtest_results
		WHERE run_id = $1
	`

	var result model.BacktestResult
	err := r.db.GetContext(ctx, &result, query, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get run result", zap.Error(err), zap.Int("run_id", runID))
		return nil, err
	}

	return &result, nil
}
