package series

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/vitanova-gold/internal/models"
)

// PeriodChange compares the last and first priced points by array order;
// points are expected to be chronological already. With one priced point
// both values are zero, with none both are nil.
func PeriodChange(points []models.ResolvedPoint) (change, percent *float64) {
	var priced []float64
	for _, p := range points {
		if p.Price != nil {
			priced = append(priced, *p.Price)
		}
	}

	switch len(priced) {
	case 0:
		return nil, nil
	case 1:
		return floatPtr(0), floatPtr(0)
	}

	first := decimal.NewFromFloat(priced[0])
	last := decimal.NewFromFloat(priced[len(priced)-1])
	diff := last.Sub(first)
	return ratioPair(diff, first)
}

// DailyStats summarizes the fine-grained log, rows in file order. Today's
// high and low fall back to the current price when nothing was recorded
// today; the change needs a row from yesterday.
func DailyStats(daily []models.Observation, now time.Time) models.PriceStats {
	if len(daily) == 0 {
		return models.PriceStats{}
	}

	todayStart := startOfDay(now)
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	current := daily[len(daily)-1].Price
	high, low := current, current
	seenToday := false
	var yesterdayClose *float64

	for _, o := range daily {
		switch {
		case !o.Timestamp.Before(todayStart):
			if !seenToday || o.Price > high {
				high = o.Price
			}
			if !seenToday || o.Price < low {
				low = o.Price
			}
			seenToday = true
		case !o.Timestamp.Before(yesterdayStart):
			p := o.Price
			yesterdayClose = &p
		}
	}

	stats := models.PriceStats{
		Current:   floatPtr(current),
		TodayHigh: floatPtr(high),
		TodayLow:  floatPtr(low),
	}
	if yesterdayClose != nil && *yesterdayClose != 0 {
		prev := decimal.NewFromFloat(*yesterdayClose)
		diff := decimal.NewFromFloat(current).Sub(prev)
		stats.Change, stats.ChangePercent = ratioPair(diff, prev)
	}
	return stats
}

// ratioPair returns diff and diff/base*100, both rounded to 2 places.
// A zero base yields a zero percentage.
func ratioPair(diff, base decimal.Decimal) (*float64, *float64) {
	pct := decimal.Zero
	if !base.IsZero() {
		pct = diff.Div(base).Mul(decimal.NewFromInt(100))
	}
	return floatPtr(diff.Round(2).InexactFloat64()), floatPtr(pct.Round(2).InexactFloat64())
}

func floatPtr(v float64) *float64 { return &v }
