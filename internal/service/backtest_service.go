package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hamr-lab/backtest-service/internal/engine"
	"github.com/hamr-lab/backtest-service/internal/events"
	"github.com/hamr-lab/backtest-service/internal/model"
	"github.com/hamr-lab/backtest-service/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// BacktestService orchestrates backtest runs: it loads the series with a
// warm-up buffer, dispatches to the rule engine, builds the equity curve
// and the buy-and-hold benchmark, and persists the outcome.
type BacktestService struct {
	backtestRepo   *repository.BacktestRepository
	marketDataRepo *repository.MarketDataRepository
	publisher      *events.Publisher
	validate       *validator.Validate
	warmupDays     int
	sem            chan struct{}
	logger         *zap.Logger
}

// NewBacktestService creates a new backtest service. maxConcurrent bounds
// the number of background runs executing at once.
func NewBacktestService(
	backtestRepo *repository.BacktestRepository,
	marketDataRepo *repository.MarketDataRepository,
	publisher *events.Publisher,
	warmupDays int,
	maxConcurrent int,
	logger *zap.Logger,
) *BacktestService {
	if warmupDays <= 0 {
		warmupDays = 730
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	// Share gin's binding tags so request shapes validate the same way on
	// the HTTP path and the direct path.
	validate := validator.New()
	validate.SetTagName("binding")
	return &BacktestService{
		backtestRepo:   backtestRepo,
		marketDataRepo: marketDataRepo,
		publisher:      publisher,
		validate:       validate,
		warmupDays:     warmupDays,
		sem:            make(chan struct{}, maxConcurrent),
		logger:         logger,
	}
}

// CreateBacktest validates the request, persists a queued run and executes
// it in the background. It returns the run ID immediately.
func (s *BacktestService) CreateBacktest(ctx context.Context, request model.BacktestRequest) (int, error) {
	if err := s.ValidateRequest(request); err != nil {
		return 0, err
	}

	name := request.Name
	if name == "" {
		name = fmt.Sprintf("%s %s", request.Strategy, time.Now().Format("2006-01-02 15:04:05"))
	}
	run := &model.BacktestRun{
		Name:     name,
		Strategy: request.Strategy,
		Request:  request,
	}
	runID, err := s.backtestRepo.CreateRun(ctx, run)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}

	go s.runBacktest(runID, request)

	return runID, nil
}

// GetRun retrieves a run with its result when completed
func (s *BacktestService) GetRun(ctx context.Context, id int) (*model.BacktestRun, *model.BacktestResult, error) {
	run, err := s.backtestRepo.GetRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if run.Status != model.RunStatusCompleted {
		return run, nil, nil
	}
	result, err := s.backtestRepo.GetResult(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}
	return run, result, nil
}

// ListRuns retrieves runs ordered by creation time, newest first
func (s *BacktestService) ListRuns(ctx context.Context, limit, offset int) ([]model.BacktestRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.backtestRepo.ListRuns(ctx, limit, offset)
}

// Execute runs a backtest synchronously without persisting anything. It is
// the preview path and also the core of every background run.
func (s *BacktestService) Execute(ctx context.Context, request model.BacktestRequest) (*model.BacktestResult, error) {
	if err := s.ValidateRequest(request); err != nil {
		return nil, err
	}

	switch request.Strategy {
	case model.StrategyCrossover, model.StrategyBiasBand, model.StrategyBreakout, model.StrategyMacro:
		return s.executeScheduled(ctx, request)
	case model.StrategyRotation:
		return s.executeRotation(ctx, request)
	case model.StrategyThreeWay, model.StrategyFlexible, model.StrategySwitchWindow:
		return s.executeAllocated(ctx, request)
	}
	return nil, fmt.Errorf("%w: unknown strategy %q", engine.ErrInvalidConfig, request.Strategy)
}

// ValidateRequest checks the request shape before any data is loaded
func (s *BacktestService) ValidateRequest(request model.BacktestRequest) error {
	if err := s.validate.Struct(request); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidConfig, err)
	}
	if !request.EndDate.After(request.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", engine.ErrInvalidConfig)
	}

	needsSymbol := func() error {
		if request.Symbol == "" {
			return fmt.Errorf("%w: symbol is required for %s", engine.ErrInvalidConfig, request.Strategy)
		}
		return nil
	}
	needsSymbols := func(n int) error {
		if len(request.Symbols) < n {
			return fmt.Errorf("%w: %s needs at least %d symbols", engine.ErrInvalidConfig, request.Strategy, n)
		}
		return nil
	}

	switch request.Strategy {
	case model.StrategyCrossover:
		if request.Crossover == nil {
			return missingConfig(request.Strategy)
		}
		return firstErr(needsSymbol(), wrapInvalid(request.Crossover.Validate()))
	case model.StrategyBiasBand:
		if request.BiasBand == nil {
			return missingConfig(request.Strategy)
		}
		return firstErr(needsSymbol(), wrapInvalid(request.BiasBand.Validate()))
	case model.StrategyBreakout:
		if request.Breakout == nil {
			return missingConfig(request.Strategy)
		}
		return firstErr(needsSymbol(), wrapInvalid(request.Breakout.Validate()))
	case model.StrategyMacro:
		if request.Macro == nil {
			return missingConfig(request.Strategy)
		}
		return firstErr(needsSymbol(), wrapInvalid(request.Macro.Validate()))
	case model.StrategyRotation:
		if request.Rotation == nil {
			return missingConfig(request.Strategy)
		}
		return firstErr(needsSymbols(2), wrapInvalid(request.Rotation.Validate()))
	case model.StrategyThreeWay:
		if request.ThreeWay == nil {
			return missingConfig(request.Strategy)
		}
		return firstErr(needsSymbols(3), wrapInvalid(request.ThreeWay.Validate()))
	case model.StrategyFlexible:
		if request.Flexible == nil {
			return missingConfig(request.Strategy)
		}
		return firstErr(needsSymbols(1), wrapInvalid(request.Flexible.Validate()))
	case model.StrategySwitchWindow:
		if request.SwitchWindow == nil {
			return missingConfig(request.Strategy)
		}
		return firstErr(needsSymbols(2), wrapInvalid(request.SwitchWindow.Validate()))
	}
	return fmt.Errorf("%w: unknown strategy %q", engine.ErrInvalidConfig, request.Strategy)
}

// executeScheduled handles the single-instrument rule families: simulate an
// exposure schedule on the signal series and compound it against the target
// series, which defaults to the signal instrument itself.
func (s *BacktestService) executeScheduled(ctx context.Context, request model.BacktestRequest) (*model.BacktestResult, error) {
	signal, err := s.loadSeries(ctx, request.Symbol, request.StartDate, request.EndDate)
	if err != nil {
		return nil, err
	}

	target := signal
	targetSymbol := request.Symbol
	if request.TargetSymbol != "" && request.TargetSymbol != request.Symbol {
		targetSymbol = request.TargetSymbol
		target, err = s.loadSeries(ctx, request.TargetSymbol, request.StartDate, request.EndDate)
		if err != nil {
			return nil, err
		}
		dates, values := model.Align(signal, target)
		if len(dates) == 0 {
			return nil, fmt.Errorf("%w: %s and %s share no trading days",
				engine.ErrEmptyWindow, request.Symbol, request.TargetSymbol)
		}
		signal = seriesFrom(request.Symbol, dates, values[0])
		target = seriesFrom(request.TargetSymbol, dates, values[1])
	}

	var sim *engine.Simulation
	switch request.Strategy {
	case model.StrategyCrossover:
		sim, err = engine.Crossover(signal, request.StartDate, request.EndDate, *request.Crossover)
	case model.StrategyBiasBand:
		sim, err = engine.BiasBand(signal, request.StartDate, request.EndDate, *request.BiasBand)
	case model.StrategyBreakout:
		sim, err = engine.Breakout(signal, request.StartDate, request.EndDate, *request.Breakout)
	case model.StrategyMacro:
		var indicator model.PriceSeries
		indicator, err = s.loadIndicator(ctx, request.Macro.Indicator, request.StartDate, request.EndDate)
		if err != nil {
			return nil, err
		}
		sim, err = engine.MacroThreshold(signal, indicator, request.StartDate, request.EndDate, *request.Macro)
	}
	if err != nil {
		return nil, err
	}

	targetReturns := returnsOn(target, sim.Dates)
	equity, err := engine.BuildEquity(sim.Dates, sim.Positions, targetReturns)
	if err != nil {
		return nil, err
	}

	schedule := sim.Schedule()
	result := s.buildResult(request, equity, sim.Events)
	result.Schedule = &schedule
	s.attachBenchmark(result, targetSymbol, sim.Dates, targetReturns)
	return result, nil
}

// executeRotation handles the momentum rotation family.
func (s *BacktestService) executeRotation(ctx context.Context, request model.BacktestRequest) (*model.BacktestResult, error) {
	candidates, err := s.loadPool(ctx, request.Symbols, request.StartDate, request.EndDate)
	if err != nil {
		return nil, err
	}

	alloc, _, err := engine.Rotation(candidates, request.StartDate, request.EndDate, *request.Rotation)
	if err != nil {
		return nil, err
	}

	returns := make([][]float64, len(candidates))
	for a, c := range candidates {
		returns[a] = returnsOn(c, alloc.Dates)
	}
	equity, err := engine.BuildWeightedEquity(alloc.Dates, alloc.Weights, returns)
	if err != nil {
		return nil, err
	}

	weights := alloc.WeightSchedule()
	result := s.buildResult(request, equity, alloc.Events)
	result.Allocations = &weights
	s.attachBenchmark(result, candidates[0].Symbol, alloc.Dates, returns[0])
	return result, nil
}

// executeAllocated handles the families whose bucket accounting produces the
// equity curve directly.
func (s *BacktestService) executeAllocated(ctx context.Context, request model.BacktestRequest) (*model.BacktestResult, error) {
	pool, err := s.loadPool(ctx, request.Symbols, request.StartDate, request.EndDate)
	if err != nil {
		return nil, err
	}

	var alloc *engine.Allocation
	switch request.Strategy {
	case model.StrategyThreeWay:
		alloc, err = engine.ThreeWay(pool, request.StartDate, request.EndDate, *request.ThreeWay)
	case model.StrategyFlexible:
		alloc, err = engine.Flexible(pool, request.StartDate, request.EndDate, *request.Flexible)
	case model.StrategySwitchWindow:
		alloc, err = engine.SwitchWindow(pool[0], pool[1], request.StartDate, request.EndDate, *request.SwitchWindow)
	}
	if err != nil {
		return nil, err
	}

	equity := model.EquityCurve{Dates: alloc.Dates, Values: alloc.Equity}
	weights := alloc.WeightSchedule()
	result := s.buildResult(request, equity, alloc.Events)
	result.Allocations = &weights
	s.attachBenchmark(result, pool[0].Symbol, alloc.Dates, returnsOn(pool[0], alloc.Dates))
	return result, nil
}

// CompareBacktests executes every named configuration and builds the
// per-metric winner report over the entries that succeeded. Entries are
// independent runs, so they execute concurrently.
func (s *BacktestService) CompareBacktests(ctx context.Context, request model.CompareRequest) (*model.CompareReport, error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidConfig, err)
	}
	seen := make(map[string]bool, len(request.Entries))
	for _, entry := range request.Entries {
		if seen[entry.Name] {
			return nil, fmt.Errorf("%w: duplicate entry name %q", engine.ErrInvalidConfig, entry.Name)
		}
		seen[entry.Name] = true
	}

	legs := make([]model.CompareLeg, len(request.Entries))
	var wg sync.WaitGroup
	for i, entry := range request.Entries {
		wg.Add(1)
		go func(i int, entry model.CompareEntry) {
			defer wg.Done()
			result, err := s.Execute(ctx, entry.Request)
			if err != nil {
				legs[i] = model.CompareLeg{Name: entry.Name, Error: err.Error()}
				return
			}
			metrics := result.Metrics
			legs[i] = model.CompareLeg{Name: entry.Name, Metrics: &metrics}
		}(i, entry)
	}
	wg.Wait()

	named := make([]engine.NamedMetrics, 0, len(legs))
	for _, leg := range legs {
		if leg.Metrics != nil {
			named = append(named, engine.NamedMetrics{Name: leg.Name, Metrics: *leg.Metrics})
		}
	}
	report := &model.CompareReport{Legs: legs}
	if len(named) > 0 {
		report.Comparison = engine.Compare(named)
	}
	return report, nil
}

// Streaks computes the monthly streak-conditional statistics
func (s *BacktestService) Streaks(ctx context.Context, request model.StreakRequest) (*engine.StreakReport, error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidConfig, err)
	}
	prices, err := s.loadSeries(ctx, request.Symbol, request.StartDate, request.EndDate)
	if err != nil {
		return nil, err
	}
	return engine.Streaks(prices, request.StartDate, request.EndDate, request.Config)
}

// runBacktest executes a persisted run in the background
func (s *BacktestService) runBacktest(runID int, request model.BacktestRequest) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := s.backtestRepo.MarkRunning(ctx, runID); err != nil {
		s.failRun(ctx, runID, request, fmt.Sprintf("Failed to mark run running: %v", err))
		return
	}

	result, err := s.Execute(ctx, request)
	if err != nil {
		s.failRun(ctx, runID, request, err.Error())
		return
	}

	if err := s.backtestRepo.CompleteRun(ctx, runID, result); err != nil {
		s.failRun(ctx, runID, request, fmt.Sprintf("Failed to store result: %v", err))
		return
	}

	s.logger.Info("Backtest run completed",
		zap.Int("run_id", runID),
		zap.String("strategy", string(request.Strategy)),
		zap.Float64("final_capital", result.FinalCapital))

	if err := s.publisher.PublishRunCompleted(ctx, events.RunCompletedEvent{
		RunID:        runID,
		Strategy:     request.Strategy,
		FinalCapital: result.FinalCapital,
		CompletedAt:  time.Now(),
	}); err != nil {
		s.logger.Warn("Failed to publish completion event", zap.Int("run_id", runID), zap.Error(err))
	}
}

// failRun marks a run as failed with an error message
func (s *BacktestService) failRun(ctx context.Context, runID int, request model.BacktestRequest, reason string) {
	s.logger.Error("Backtest run failed",
		zap.Int("run_id", runID),
		zap.String("strategy", string(request.Strategy)),
		zap.String("reason", reason))

	if err := s.backtestRepo.FailRun(ctx, runID, reason); err != nil {
		s.logger.Error("Failed to record run failure", zap.Int("run_id", runID), zap.Error(err))
	}

	if err := s.publisher.PublishRunFailed(ctx, events.RunFailedEvent{
		RunID:    runID,
		Strategy: request.Strategy,
		Reason:   reason,
		FailedAt: time.Now(),
	}); err != nil {
		s.logger.Warn("Failed to publish failure event", zap.Int("run_id", runID), zap.Error(err))
	}
}

// loadSeries fetches a close series including the warm-up buffer before the
// window so rolling statistics are seated by the start date.
func (s *BacktestService) loadSeries(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	series, err := s.marketDataRepo.GetDailyCloses(ctx, symbol, start.AddDate(0, 0, -s.warmupDays), end)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("failed to load series for %s: %w", symbol, err)
	}
	if series.Len() == 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: no data stored for %s", engine.ErrEmptyWindow, symbol)
	}
	return series, nil
}

func (s *BacktestService) loadIndicator(ctx context.Context, name string, start, end time.Time) (model.PriceSeries, error) {
	series, err := s.marketDataRepo.GetIndicatorValues(ctx, name, start.AddDate(0, 0, -s.warmupDays), end)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("failed to load indicator %s: %w", name, err)
	}
	if series.Len() == 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: no data stored for indicator %s", engine.ErrEmptyWindow, name)
	}
	return series, nil
}

func (s *BacktestService) loadPool(ctx context.Context, symbols []string, start, end time.Time) ([]model.PriceSeries, error) {
	pool := make([]model.PriceSeries, len(symbols))
	for i, symbol := range symbols {
		series, err := s.loadSeries(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}
		pool[i] = series
	}
	return pool, nil
}

// buildResult assembles the common part of every run outcome
func (s *BacktestService) buildResult(request model.BacktestRequest, equity model.EquityCurve, evts []model.Event) *model.BacktestResult {
	final := equity.Values[equity.Len()-1]
	return &model.BacktestResult{
		Strategy:       request.Strategy,
		StartDate:      equity.Dates[0],
		EndDate:        equity.Dates[equity.Len()-1],
		InitialCapital: request.InitialCapital,
		FinalCapital:   request.InitialCapital * final,
		Equity:         equity,
		Events:         evts,
		Metrics:        engine.Analyze(equity, evts),
	}
}

// attachBenchmark adds the buy-and-hold leg and the side-by-side report
func (s *BacktestService) attachBenchmark(result *model.BacktestResult, symbol string, dates []time.Time, returns []float64) {
	bench, err := engine.BuyAndHold(dates, returns)
	if err != nil {
		s.logger.Warn("Failed to build benchmark curve", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	benchMetrics := engine.Analyze(bench, nil)
	result.Benchmark = &model.BenchmarkResult{Symbol: symbol, Equity: bench, Metrics: benchMetrics}
	result.Comparison = engine.Compare([]engine.NamedMetrics{
		{Name: "strategy", Metrics: result.Metrics},
		{Name: "buy_and_hold", Metrics: benchMetrics},
	})
}

func seriesFrom(symbol string, dates []time.Time, values []float64) model.PriceSeries {
	points := make([]model.PricePoint, len(dates))
	for i := range dates {
		points[i] = model.PricePoint{Date: dates[i], Value: values[i]}
	}
	return model.PriceSeries{Symbol: symbol, Points: points}
}

// returnsOn computes the series' daily returns restricted to the given
// dates, keeping the one-day ratio within the restricted calendar.
func returnsOn(series model.PriceSeries, dates []time.Time) []float64 {
	byDate := make(map[int64]float64, series.Len())
	for _, p := range series.Points {
		byDate[p.Date.Unix()] = p.Value
	}
	rets := make([]float64, len(dates))
	for i := 1; i < len(dates); i++ {
		prev, okPrev := byDate[dates[i-1].Unix()]
		cur, okCur := byDate[dates[i].Unix()]
		if okPrev && okCur && prev != 0 {
			rets[i] = cur/prev - 1
		}
	}
	return rets
}

func missingConfig(kind model.StrategyKind) error {
	return fmt.Errorf("%w: %s config is required", engine.ErrInvalidConfig, kind)
}

func wrapInvalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", engine.ErrInvalidConfig, err)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
