package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/vitanova-gold/internal/models"
)

// NeedsRollover reports whether a monthly row should be written at now,
// given the last month already written. Only the first calendar day of a
// month qualifies, and only once per month.
func NeedsRollover(now time.Time, last *models.MonthKey) (models.MonthKey, bool) {
	current := models.MonthOf(now)
	if now.Day() != 1 {
		return current, false
	}
	if last != nil && *last == current {
		return current, false
	}
	return current, true
}

// NewMonthlyRecord derives the USD cross values for a monthly row.
// USD per ounce is computed from the unrounded USD per gram value.
func NewMonthlyRecord(month models.MonthKey, aedPerGram, pegRate, gramsPerOunce float64) models.MonthlyRecord {
	aed := decimal.NewFromFloat(aedPerGram)
	peg := decimal.NewFromFloat(pegRate)
	grams := decimal.NewFromFloat(gramsPerOunce)

	usdPerGram := aed.DivRound(peg, 16)
	usdPerOunce := usdPerGram.Mul(grams)

	return models.MonthlyRecord{
		Month:       month,
		PegRate:     peg,
		USDPerOunce: usdPerOunce.Round(2),
		USDPerGram:  usdPerGram.Round(9),
		AEDPerGram:  aed.Round(9),
	}
}
