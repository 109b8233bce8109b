package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Run statuses.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// BacktestRequest represents the input parameters for a backtest run.
// Exactly one rule config must be set and it must match Strategy.
type BacktestRequest struct {
	Strategy       StrategyKind `json:"strategy" binding:"required"`
	Name           string       `json:"name,omitempty"`
	Symbol         string       `json:"symbol,omitempty"`
	TargetSymbol   string       `json:"target_symbol,omitempty"`
	Symbols        []string     `json:"symbols,omitempty"`
	StartDate      time.Time    `json:"start_date" binding:"required"`
	EndDate        time.Time    `json:"end_date" binding:"required"`
	InitialCapital float64      `json:"initial_capital" binding:"required,min=1"`

	Crossover    *CrossoverConfig    `json:"crossover,omitempty"`
	BiasBand     *BiasBandConfig     `json:"bias_band,omitempty"`
	Breakout     *BreakoutConfig     `json:"breakout,omitempty"`
	Macro        *MacroConfig        `json:"macro,omitempty"`
	Rotation     *RotationConfig     `json:"rotation,omitempty"`
	ThreeWay     *ThreeWayConfig     `json:"three_way,omitempty"`
	Flexible     *FlexibleConfig     `json:"flexible,omitempty"`
	SwitchWindow *SwitchWindowConfig `json:"switch_window,omitempty"`
}

// Value implements the driver.Valuer interface for BacktestRequest
func (r BacktestRequest) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface for BacktestRequest
func (r *BacktestRequest) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, r)
}

// BacktestRun is the persisted lifecycle record of one request.
type BacktestRun struct {
	ID           int             `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Strategy     StrategyKind    `json:"strategy" db:"strategy"`
	Request      BacktestRequest `json:"request" db:"request"`
	Status       string          `json:"status" db:"status"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// BacktestResult is the full outcome of a completed run.
type BacktestResult struct {
	Strategy       StrategyKind       `json:"strategy"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	InitialCapital float64            `json:"initial_capital"`
	FinalCapital   float64            `json:"final_capital"`
	Equity         EquityCurve        `json:"equity"`
	Schedule       *PositionSchedule  `json:"schedule,omitempty"`
	Allocations    *WeightSchedule    `json:"allocations,omitempty"`
	Events         []Event            `json:"events"`
	Metrics        MetricSet          `json:"metrics"`
	Benchmark      *BenchmarkResult   `json:"benchmark,omitempty"`
	Comparison     []MetricComparison `json:"comparison,omitempty"`
}

// Value implements the driver.Valuer interface for BacktestResult
func (r BacktestResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface for BacktestResult
func (r *BacktestResult) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, r)
}

// BenchmarkResult is the buy-and-hold comparison leg of a run.
type BenchmarkResult struct {
	Symbol  string      `json:"symbol"`
	Equity  EquityCurve `json:"equity"`
	Metrics MetricSet   `json:"metrics"`
}

// MetricComparison is one row of a side-by-side report: the winners hold the
// best defined value of the metric across all named entries.
type MetricComparison struct {
	Metric        string             `json:"metric"`
	LowerIsBetter bool               `json:"lower_is_better"`
	Values        map[string]float64 `json:"-"`
	Winners       []string           `json:"winners"`
}

// MarshalJSON renders the value map with NaN entries as null.
func (c MetricComparison) MarshalJSON() ([]byte, error) {
	values := make(map[string]*float64, len(c.Values))
	for name, v := range c.Values {
		values[name] = nullable(v)
	}
	type alias MetricComparison
	return json.Marshal(struct {
		alias
		Values map[string]*float64 `json:"values"`
	}{alias(c), values})
}

// CompareEntry names one configuration in a comparison request.
type CompareEntry struct {
	Name    string          `json:"name" binding:"required"`
	Request BacktestRequest `json:"request" binding:"required"`
}

// CompareRequest represents a batch of named configurations to run
// side by side over the same kind of window.
type CompareRequest struct {
	Entries []CompareEntry `json:"entries" binding:"required,min=2,dive"`
}

// CompareLeg is the outcome of one entry. A failed entry carries the
// error message and no metrics.
type CompareLeg struct {
	Name    string     `json:"name"`
	Metrics *MetricSet `json:"metrics,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// CompareReport is the result of a comparison request: per-entry outcomes
// plus the per-metric winner rows over the entries that succeeded.
type CompareReport struct {
	Legs       []CompareLeg       `json:"legs"`
	Comparison []MetricComparison `json:"comparison"`
}

// StreakRequest represents the input parameters for a streak analysis.
type StreakRequest struct {
	Symbol    string       `json:"symbol" binding:"required"`
	StartDate time.Time    `json:"start_date" binding:"required"`
	EndDate   time.Time    `json:"end_date" binding:"required"`
	Config    StreakConfig `json:"config" binding:"required"`
}
