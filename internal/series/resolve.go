package series

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/vitanova-gold/internal/models"
)

// FindClosest returns the observation nearest to target. Ties keep the first
// minimum in input order; that tie-break is intentional and covered by tests.
// No distance limit is applied: sparse data still yields a best-effort point.
func FindClosest(target time.Time, obs []models.Observation) (models.Observation, bool) {
	return FindClosestWithin(target, obs, 0)
}

// FindClosestWithin is FindClosest with a tolerance in days. A maxDays of
// zero or less disables the tolerance.
func FindClosestWithin(target time.Time, obs []models.Observation, maxDays float64) (models.Observation, bool) {
	if len(obs) == 0 {
		return models.Observation{}, false
	}

	best := -1
	var bestDiff time.Duration
	for i, o := range obs {
		diff := absDuration(o.Timestamp.Sub(target))
		if best < 0 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}

	if maxDays > 0 && bestDiff.Hours() > maxDays*24 {
		return models.Observation{}, false
	}
	return obs[best], true
}

// Estimate is an interpolated price at a target instant.
type Estimate struct {
	Timestamp    time.Time
	Price        float64
	Interpolated bool
}

// Interpolate estimates the price at target from the latest observation at or
// before it and the earliest one after it. With only one side available that
// side's price is returned, still flagged as interpolated.
func Interpolate(target time.Time, obs []models.Observation) (Estimate, bool) {
	if len(obs) == 0 {
		return Estimate{}, false
	}

	sorted := slices.Clone(obs)
	slices.SortStableFunc(sorted, func(a, b models.Observation) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var before, after *models.Observation
	for i := range sorted {
		p := &sorted[i]
		if !p.Timestamp.After(target) {
			before = p
			continue
		}
		after = p
		break
	}

	switch {
	case before != nil && after != nil:
		total := after.Timestamp.Sub(before.Timestamp)
		elapsed := target.Sub(before.Timestamp)
		ratio := float64(elapsed) / float64(total)
		return Estimate{
			Timestamp:    target,
			Price:        before.Price + (after.Price-before.Price)*ratio,
			Interpolated: true,
		}, true
	case before != nil:
		return Estimate{Timestamp: target, Price: before.Price, Interpolated: true}, true
	case after != nil:
		return Estimate{Timestamp: target, Price: after.Price, Interpolated: true}, true
	}
	return Estimate{}, false
}

// Resolve maps every target of w to a chart point.
//
// Intraday keeps future buckets as null-price placeholders so the client can
// draw the whole day, and adds one live point at now inside the open bucket.
// Every other timeframe drops future targets entirely. The asymmetry is
// intentional.
func Resolve(tf Timeframe, w Window, obs []models.Observation, now time.Time) []models.ResolvedPoint {
	if tf == Intraday {
		return resolveIntraday(w, obs, now)
	}

	out := make([]models.ResolvedPoint, 0, len(w.Targets))
	for _, t := range w.Targets {
		if t.IsFuture {
			continue
		}
		if p, ok := resolveTarget(t.Timestamp, obs); ok {
			out = append(out, p)
		}
	}
	return out
}

func resolveIntraday(w Window, obs []models.Observation, now time.Time) []models.ResolvedPoint {
	onBoundary := now.Minute() == 0 && now.Second() == 0

	out := make([]models.ResolvedPoint, 0, len(w.Targets)+1)
	for _, t := range w.Targets {
		if t.IsFuture {
			out = append(out, placeholder(t.Timestamp))
			continue
		}

		p, ok := resolveTarget(t.Timestamp, obs)
		if !ok {
			p = placeholder(t.Timestamp)
		}
		p.IsFixedPoint = boolPtr(true)
		out = append(out, p)

		if t.IsCurrentInterval && !onBoundary {
			if live, ok := FindClosest(now, obs); ok {
				out = append(out, models.ResolvedPoint{
					Timestamp:     now,
					Price:         roundPrice(live.Price),
					IsCurrentTime: true,
					IsFixedPoint:  boolPtr(false),
				})
			}
		}
	}
	return out
}

// resolveTarget tries the nearest observation first, then interpolation.
func resolveTarget(ts time.Time, obs []models.Observation) (models.ResolvedPoint, bool) {
	if closest, ok := FindClosest(ts, obs); ok {
		actual := closest.Timestamp
		return models.ResolvedPoint{
			Timestamp:       ts,
			Price:           roundPrice(closest.Price),
			ActualTimestamp: &actual,
		}, true
	}
	if est, ok := Interpolate(ts, obs); ok {
		return models.ResolvedPoint{
			Timestamp:    ts,
			Price:        roundPrice(est.Price),
			Interpolated: true,
		}, true
	}
	return models.ResolvedPoint{}, false
}

func placeholder(ts time.Time) models.ResolvedPoint {
	return models.ResolvedPoint{Timestamp: ts, IsFixedPoint: boolPtr(true)}
}

// roundPrice rounds to 2 decimal places for display.
func roundPrice(v float64) *float64 {
	r := decimal.NewFromFloat(v).Round(2).InexactFloat64()
	return &r
}

func boolPtr(b bool) *bool { return &b }

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
