package model

import (
	"fmt"
	"time"
)

// StrategyKind identifies a trading rule family.
type StrategyKind string

// Supported rule families.
const (
	StrategyCrossover    StrategyKind = "sma_crossover"
	StrategyBiasBand     StrategyKind = "bias_band"
	StrategyBreakout     StrategyKind = "range_breakout"
	StrategyMacro        StrategyKind = "macro_threshold"
	StrategyRotation     StrategyKind = "momentum_rotation"
	StrategyThreeWay     StrategyKind = "three_way_rebalance"
	StrategyFlexible     StrategyKind = "flexible_rebalance"
	StrategySwitchWindow StrategyKind = "switch_window"
)

// InitialPosition controls exposure on the first day of the window.
type InitialPosition string

// Initial position modes.
const (
	InitialFlat InitialPosition = "flat"
	InitialFull InitialPosition = "full"
)

// DCAConfig enables staged re-entry while the price sits below the average.
type DCAConfig struct {
	Enabled      bool    `json:"enabled"`
	IntervalDays int     `json:"interval_days"`
	StepPct      float64 `json:"step_pct"`
}

// CrossoverConfig parameterizes the SMA crossover rule.
type CrossoverConfig struct {
	Window          int             `json:"window" binding:"required,min=1"`
	InitialPosition InitialPosition `json:"initial_position"`
	DCA             DCAConfig       `json:"dca"`
}

// Validate checks cross-field constraints.
func (c CrossoverConfig) Validate() error {
	if c.Window < 1 {
		return fmt.Errorf("window must be positive, got %d", c.Window)
	}
	if err := validateInitial(c.InitialPosition); err != nil {
		return err
	}
	if c.DCA.Enabled {
		if c.DCA.IntervalDays < 1 {
			return fmt.Errorf("dca interval must be positive, got %d", c.DCA.IntervalDays)
		}
		if c.DCA.StepPct <= 0 || c.DCA.StepPct > 1 {
			return fmt.Errorf("dca step must be in (0, 1], got %v", c.DCA.StepPct)
		}
	}
	return nil
}

// BiasBandConfig parameterizes the dual bias-band rule. Trigger percentages
// are expressed as deviations from the moving average: the lower trigger is
// negative, the upper trigger positive.
type BiasBandConfig struct {
	Window          int             `json:"window" binding:"required,min=1"`
	InitialPosition InitialPosition `json:"initial_position"`
	LowerTriggerPct float64         `json:"lower_trigger_pct"`
	UpperTriggerPct float64         `json:"upper_trigger_pct"`
	LowerStepPct    float64         `json:"lower_step_pct"`
	UpperStepPct    float64         `json:"upper_step_pct"`
	CooldownDays    int             `json:"cooldown_days"`
}

// Validate checks cross-field constraints.
func (c BiasBandConfig) Validate() error {
	if c.Window < 1 {
		return fmt.Errorf("window must be positive, got %d", c.Window)
	}
	if err := validateInitial(c.InitialPosition); err != nil {
		return err
	}
	if c.LowerStepPct > 0 && c.LowerTriggerPct >= 0 {
		return fmt.Errorf("lower trigger must be negative, got %v", c.LowerTriggerPct)
	}
	if c.UpperStepPct > 0 && c.UpperTriggerPct <= 0 {
		return fmt.Errorf("upper trigger must be positive, got %v", c.UpperTriggerPct)
	}
	if c.LowerStepPct < 0 || c.LowerStepPct > 1 {
		return fmt.Errorf("lower step must be in [0, 1], got %v", c.LowerStepPct)
	}
	if c.UpperStepPct < 0 || c.UpperStepPct > 1 {
		return fmt.Errorf("upper step must be in [0, 1], got %v", c.UpperStepPct)
	}
	if c.CooldownDays < 0 {
		return fmt.Errorf("cooldown must not be negative, got %d", c.CooldownDays)
	}
	return nil
}

// StopBasis selects how the breakout exit line is anchored.
type StopBasis string

// Stop basis modes.
const (
	StopFixedEntry StopBasis = "fixed_entry"
	StopTrailing   StopBasis = "trailing_high"
)

// BreakoutConfig parameterizes the range-extreme breakout rule. Either the
// ATR multiples or the percentage offsets are used depending on UsePercent.
type BreakoutConfig struct {
	LookbackWindow int       `json:"lookback_window" binding:"required,min=1"`
	ATRWindow      int       `json:"atr_window" binding:"required,min=1"`
	BuyMultiple    float64   `json:"buy_multiple"`
	SellMultiple   float64   `json:"sell_multiple"`
	BuyPct         float64   `json:"buy_pct"`
	SellPct        float64   `json:"sell_pct"`
	UsePercent     bool      `json:"use_percent"`
	StopBasis      StopBasis `json:"stop_basis"`
	TrendWindow    int       `json:"trend_window"`
	TrendFilter    bool      `json:"trend_filter"`
}

// Validate checks cross-field constraints.
func (c BreakoutConfig) Validate() error {
	if c.LookbackWindow < 1 {
		return fmt.Errorf("lookback window must be positive, got %d", c.LookbackWindow)
	}
	if c.ATRWindow < 1 {
		return fmt.Errorf("atr window must be positive, got %d", c.ATRWindow)
	}
	if c.UsePercent {
		if c.BuyPct <= 0 || c.SellPct <= 0 {
			return fmt.Errorf("buy/sell percentages must be positive, got %v/%v", c.BuyPct, c.SellPct)
		}
	} else if c.BuyMultiple <= 0 || c.SellMultiple <= 0 {
		return fmt.Errorf("buy/sell multiples must be positive, got %v/%v", c.BuyMultiple, c.SellMultiple)
	}
	switch c.StopBasis {
	case "", StopFixedEntry, StopTrailing:
	default:
		return fmt.Errorf("unknown stop basis %q", c.StopBasis)
	}
	if c.TrendFilter && c.TrendWindow < 1 {
		return fmt.Errorf("trend window must be positive when the trend filter is on, got %d", c.TrendWindow)
	}
	return nil
}

// MacroConfig parameterizes the macro-indicator threshold rule. The buy
// threshold must sit below the sell threshold so the bands form a hysteresis.
type MacroConfig struct {
	Indicator     string  `json:"indicator" binding:"required"`
	BuyThreshold  float64 `json:"buy_threshold"`
	SellThreshold float64 `json:"sell_threshold"`
	LagDays       int     `json:"lag_days"`
}

// Validate checks cross-field constraints.
func (c MacroConfig) Validate() error {
	if c.BuyThreshold >= c.SellThreshold {
		return fmt.Errorf("buy threshold %v must be below sell threshold %v", c.BuyThreshold, c.SellThreshold)
	}
	if c.LagDays < 0 {
		return fmt.Errorf("lag must not be negative, got %d", c.LagDays)
	}
	return nil
}

// RotationConfig parameterizes the cross-sectional momentum rotation rule.
type RotationConfig struct {
	LookbackDays int  `json:"lookback_days" binding:"required,min=1"`
	TrendWindow  int  `json:"trend_window"`
	TrendFilter  bool `json:"trend_filter"`
}

// Validate checks cross-field constraints.
func (c RotationConfig) Validate() error {
	if c.LookbackDays < 1 {
		return fmt.Errorf("lookback must be positive, got %d", c.LookbackDays)
	}
	if c.TrendFilter && c.TrendWindow < 1 {
		return fmt.Errorf("trend window must be positive when the trend filter is on, got %d", c.TrendWindow)
	}
	return nil
}

// RebalancePeriod selects the calendar boundary for periodic rebalancing.
type RebalancePeriod string

// Rebalance periods.
const (
	RebalanceYearly    RebalancePeriod = "yearly"
	RebalanceQuarterly RebalancePeriod = "quarterly"
	RebalanceNever     RebalancePeriod = "never"
)

// ThreeWayConfig parameterizes the fixed equal-thirds rebalance rule over
// exactly three instruments.
type ThreeWayConfig struct {
	Period RebalancePeriod `json:"period"`
}

// Validate checks cross-field constraints.
func (c ThreeWayConfig) Validate() error {
	switch c.Period {
	case "", RebalanceYearly, RebalanceQuarterly, RebalanceNever:
		return nil
	}
	return fmt.Errorf("unknown rebalance period %q", c.Period)
}

// FlexibleConfig parameterizes the multi-trigger target-weight rebalance
// rule. Weights are per risk asset in input order; the remainder is cash.
// CashLowPct and CashHighPct are disabled when nil.
type FlexibleConfig struct {
	Weights     []float64 `json:"weights" binding:"required,min=1"`
	Annual      bool      `json:"annual"`
	CashLowPct  *float64  `json:"cash_low_pct,omitempty"`
	CashHighPct *float64  `json:"cash_high_pct,omitempty"`
}

// TargetCash is the cash fraction implied by the risk-asset weights.
func (c FlexibleConfig) TargetCash() float64 {
	total := 0.0
	for _, w := range c.Weights {
		total += w
	}
	return 1 - total
}

// Validate checks cross-field constraints. The cash-low band must sit below
// the target cash weight and the cash-high band above it, otherwise a
// rebalance back to target would immediately re-arm the same trigger.
func (c FlexibleConfig) Validate() error {
	total := 0.0
	for i, w := range c.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("weight %d must be in [0, 1], got %v", i, w)
		}
		total += w
	}
	if total > 1 {
		return fmt.Errorf("weights sum to %v, must not exceed 1", total)
	}
	target := 1 - total
	if c.CashLowPct != nil {
		if *c.CashLowPct < 0 || *c.CashLowPct >= target {
			return fmt.Errorf("cash-low band %v must be in [0, target cash %v)", *c.CashLowPct, target)
		}
	}
	if c.CashHighPct != nil {
		if *c.CashHighPct <= target || *c.CashHighPct > 1 {
			return fmt.Errorf("cash-high band %v must be in (target cash %v, 1]", *c.CashHighPct, target)
		}
	}
	if c.CashLowPct == nil && c.CashHighPct == nil && !c.Annual {
		return fmt.Errorf("at least one trigger must be enabled")
	}
	return nil
}

// SwitchRange is a closed calendar interval during which the overlay holds
// the alternate instrument.
type SwitchRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SwitchWindowConfig parameterizes the calendar switch overlay: inside each
// window the leveraged instrument is held, outside it the base instrument.
// CostRate is the proportional cost charged on each switch day.
type SwitchWindowConfig struct {
	Windows  []SwitchRange `json:"windows" binding:"required,min=1"`
	CostRate float64       `json:"cost_rate"`
}

// Validate checks cross-field constraints.
func (c SwitchWindowConfig) Validate() error {
	if len(c.Windows) == 0 {
		return fmt.Errorf("at least one switch window is required")
	}
	for i, w := range c.Windows {
		if w.End.Before(w.Start) {
			return fmt.Errorf("window %d ends before it starts", i)
		}
	}
	if c.CostRate < 0 || c.CostRate >= 1 {
		return fmt.Errorf("cost rate must be in [0, 1), got %v", c.CostRate)
	}
	return nil
}

// StreakConfig parameterizes the monthly streak-conditional statistics.
type StreakConfig struct {
	Lengths       []int `json:"lengths" binding:"required,min=1"`
	HorizonMonths int   `json:"horizon_months"`
	// TrendMonths gates every streak on the trailing return over this many
	// months being positive. Nil defaults to 12, zero disables the gate.
	TrendMonths *int `json:"trend_months"`
}

// Validate checks cross-field constraints.
func (c StreakConfig) Validate() error {
	if len(c.Lengths) == 0 {
		return fmt.Errorf("at least one streak length is required")
	}
	for _, n := range c.Lengths {
		if n < 1 {
			return fmt.Errorf("streak length must be positive, got %d", n)
		}
	}
	if c.HorizonMonths < 0 {
		return fmt.Errorf("horizon must not be negative, got %d", c.HorizonMonths)
	}
	if c.TrendMonths != nil && *c.TrendMonths < 0 {
		return fmt.Errorf("trend window must not be negative, got %d", *c.TrendMonths)
	}
	return nil
}

func validateInitial(p InitialPosition) error {
	switch p {
	case "", InitialFlat, InitialFull:
		return nil
	}
	return fmt.Errorf("unknown initial position %q", p)
}
