// Package models defines the storage records and the request/response shapes
// of the HTTP API.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one stored record of a time series.
type Observation struct {
	SeriesID  string          `json:"series_id" db:"series_id"`
	Timestamp time.Time       `json:"timestamp" db:"ts"`
	Value     decimal.Decimal `json:"value" db:"value"`
}

// SeriesInfo summarizes a stored series for listings.
type SeriesInfo struct {
	SeriesID     string    `json:"series_id" db:"series_id"`
	Observations int64     `json:"observations" db:"observations"`
	First        time.Time `json:"first" db:"first_ts"`
	Last         time.Time `json:"last" db:"last_ts"`
}
