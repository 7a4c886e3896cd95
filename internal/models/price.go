package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Observation is a single recorded price, AED per gram.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// MonthKey identifies a calendar month. Text form is MM/YYYY.
type MonthKey struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

func (m MonthKey) String() string {
	return fmt.Sprintf("%02d/%04d", int(m.Month), m.Year)
}

// Start returns the first instant of the month in loc.
func (m MonthKey) Start(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

func ParseMonthKey(s string) (MonthKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return MonthKey{}, fmt.Errorf("invalid month %q, expected MM/YYYY", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("invalid month %q", s)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year <= 0 {
		return MonthKey{}, fmt.Errorf("invalid year %q", s)
	}
	return MonthKey{Year: year, Month: time.Month(month)}, nil
}

// MonthlyRecord is one row of the coarse-grained historical log.
type MonthlyRecord struct {
	Month       MonthKey
	PegRate     decimal.Decimal
	USDPerOunce decimal.Decimal
	USDPerGram  decimal.Decimal
	AEDPerGram  decimal.Decimal
}

// Quote is the response for a live price fetch.
type Quote struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Currency  string    `json:"currency"`
	Unit      string    `json:"unit"`
	Karat     string    `json:"karat"`
	Source    string    `json:"source"`
}

// ResolvedPoint is one chart point. Price is nil for placeholders.
type ResolvedPoint struct {
	Timestamp       time.Time  `json:"timestamp"`
	Price           *float64   `json:"price"`
	Interpolated    bool       `json:"interpolated,omitempty"`
	ActualTimestamp *time.Time `json:"actual_timestamp,omitempty"`
	IsCurrentTime   bool       `json:"is_current_time,omitempty"`
	IsFixedPoint    *bool      `json:"is_fixed_point,omitempty"`
}

type PriceHistory struct {
	Timeframe           string          `json:"timeframe"`
	Count               int             `json:"count"`
	ExpectedPoints      int             `json:"expected_points"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	PeriodChange        *float64        `json:"period_change"`
	PeriodChangePercent *float64        `json:"period_change_percent"`
	Data                []ResolvedPoint `json:"data"`
}

type PriceStats struct {
	Current       *float64 `json:"current"`
	TodayHigh     *float64 `json:"today_high"`
	TodayLow      *float64 `json:"today_low"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"change_percent"`
}
