package model

import "time"

// Instrument represents a tradable series known to the service.
type Instrument struct {
	ID        int       `json:"id" db:"id"`
	Symbol    string    `json:"symbol" db:"symbol" binding:"required"`
	Name      string    `json:"name" db:"name"`
	AssetType string    `json:"asset_type" db:"asset_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DailyClose is one stored close observation for an instrument.
type DailyClose struct {
	Symbol string    `json:"symbol" db:"symbol" binding:"required"`
	Date   time.Time `json:"date" db:"date" binding:"required"`
	Close  float64   `json:"close" db:"close" binding:"required"`
}

// IndicatorValue is one stored macro indicator observation, typically on a
// monthly calendar.
type IndicatorValue struct {
	Name  string    `json:"name" db:"name" binding:"required"`
	Date  time.Time `json:"date" db:"date" binding:"required"`
	Value float64   `json:"value" db:"value" binding:"required"`
}

// DateRange is the stored coverage of a series.
type DateRange struct {
	Start time.Time `json:"start" db:"start_date"`
	End   time.Time `json:"end" db:"end_date"`
}
