package model

import (
	"encoding/json"
	"math"
)

// MetricSet is the performance summary of one equity curve. Metrics whose
// definition does not apply to the curve (flat series, no drawdown, window
// too short) are NaN; JSON renders them as null.
type MetricSet struct {
	FinalMultiplier  float64 `json:"final_multiplier"`
	TotalReturn      float64 `json:"total_return"`
	CAGR             float64 `json:"cagr"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	AnnualVolatility float64 `json:"annualized_volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	TradeCount       int     `json:"trade_count"`
}

type metricSetJSON struct {
	FinalMultiplier  *float64 `json:"final_multiplier"`
	TotalReturn      *float64 `json:"total_return"`
	CAGR             *float64 `json:"cagr"`
	MaxDrawdown      *float64 `json:"max_drawdown"`
	AnnualVolatility *float64 `json:"annualized_volatility"`
	SharpeRatio      *float64 `json:"sharpe_ratio"`
	SortinoRatio     *float64 `json:"sortino_ratio"`
	CalmarRatio      *float64 `json:"calmar_ratio"`
	TradeCount       int      `json:"trade_count"`
}

// MarshalJSON renders NaN metrics as null so the payload stays valid JSON.
func (m MetricSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricSetJSON{
		FinalMultiplier:  nullable(m.FinalMultiplier),
		TotalReturn:      nullable(m.TotalReturn),
		CAGR:             nullable(m.CAGR),
		MaxDrawdown:      nullable(m.MaxDrawdown),
		AnnualVolatility: nullable(m.AnnualVolatility),
		SharpeRatio:      nullable(m.SharpeRatio),
		SortinoRatio:     nullable(m.SortinoRatio),
		CalmarRatio:      nullable(m.CalmarRatio),
		TradeCount:       m.TradeCount,
	})
}

// UnmarshalJSON accepts null for undefined metrics and restores NaN.
func (m *MetricSet) UnmarshalJSON(data []byte) error {
	var raw metricSetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.FinalMultiplier = deref(raw.FinalMultiplier)
	m.TotalReturn = deref(raw.TotalReturn)
	m.CAGR = deref(raw.CAGR)
	m.MaxDrawdown = deref(raw.MaxDrawdown)
	m.AnnualVolatility = deref(raw.AnnualVolatility)
	m.SharpeRatio = deref(raw.SharpeRatio)
	m.SortinoRatio = deref(raw.SortinoRatio)
	m.CalmarRatio = deref(raw.CalmarRatio)
	m.TradeCount = raw.TradeCount
	return nil
}

func nullable(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
