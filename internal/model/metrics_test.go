package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricSetMarshalsNaNAsNull(t *testing.T) {
	m := MetricSet{
		FinalMultiplier: 1.5,
		TotalReturn:     0.5,
		CAGR:            math.NaN(),
		SharpeRatio:     math.NaN(),
		TradeCount:      3,
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 1.5, raw["final_multiplier"])
	assert.Nil(t, raw["cagr"])
	assert.Nil(t, raw["sharpe_ratio"])
	assert.Equal(t, float64(3), raw["trade_count"])
}

func TestMetricSetRoundTripRestoresNaN(t *testing.T) {
	m := MetricSet{FinalMultiplier: 2, CalmarRatio: math.NaN(), TradeCount: 1}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back MetricSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 2.0, back.FinalMultiplier)
	assert.True(t, math.IsNaN(back.CalmarRatio))
	assert.Equal(t, 1, back.TradeCount)
}
