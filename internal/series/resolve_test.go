package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/vitanova-gold/internal/models"
)

func obs(ts time.Time, price float64) models.Observation {
	return models.Observation{Timestamp: ts, Price: price}
}

func sampleDay() []models.Observation {
	return []models.Observation{
		obs(at(2026, 3, 10, 0, 0, 0), 100),
		obs(at(2026, 3, 10, 6, 0, 0), 110),
		obs(at(2026, 3, 10, 12, 0, 0), 120),
	}
}

func TestFindClosest_TieKeepsFirst(t *testing.T) {
	got, ok := FindClosest(at(2026, 3, 10, 9, 0, 0), sampleDay())
	require.True(t, ok)
	assert.Equal(t, 110.0, got.Price)

	// reversed input order flips the winner
	data := sampleDay()
	data[1], data[2] = data[2], data[1]
	got, ok = FindClosest(at(2026, 3, 10, 9, 0, 0), data)
	require.True(t, ok)
	assert.Equal(t, 120.0, got.Price)
}

func TestFindClosest_MinimizesDistance(t *testing.T) {
	data := sampleDay()
	targets := []time.Time{
		at(2026, 3, 9, 12, 0, 0),
		at(2026, 3, 10, 2, 59, 59),
		at(2026, 3, 10, 3, 0, 1),
		at(2026, 3, 10, 11, 0, 0),
		at(2026, 4, 1, 0, 0, 0),
	}
	for _, target := range targets {
		got, ok := FindClosest(target, data)
		require.True(t, ok)
		best := absDuration(got.Timestamp.Sub(target))
		for _, o := range data {
			assert.LessOrEqual(t, best, absDuration(o.Timestamp.Sub(target)))
		}
	}
}

func TestFindClosest_Empty(t *testing.T) {
	_, ok := FindClosest(at(2026, 3, 10, 9, 0, 0), nil)
	assert.False(t, ok)
}

func TestFindClosest_NoToleranceByDefault(t *testing.T) {
	far := []models.Observation{obs(at(2010, 1, 1, 0, 0, 0), 50)}
	got, ok := FindClosest(at(2026, 3, 10, 9, 0, 0), far)
	require.True(t, ok)
	assert.Equal(t, 50.0, got.Price)
}

func TestFindClosestWithin(t *testing.T) {
	data := []models.Observation{obs(at(2026, 3, 1, 0, 0, 0), 50)}

	_, ok := FindClosestWithin(at(2026, 3, 10, 0, 0, 0), data, 5)
	assert.False(t, ok)

	got, ok := FindClosestWithin(at(2026, 3, 4, 0, 0, 0), data, 5)
	require.True(t, ok)
	assert.Equal(t, 50.0, got.Price)

	_, ok = FindClosestWithin(at(2026, 3, 10, 0, 0, 0), data, 0)
	assert.True(t, ok)
}

func TestInterpolate_Midpoint(t *testing.T) {
	est, ok := Interpolate(at(2026, 3, 10, 9, 0, 0), sampleDay())
	require.True(t, ok)
	assert.True(t, est.Interpolated)
	assert.InDelta(t, 115.0, est.Price, 1e-9)
}

func TestInterpolate_ExactAtObservation(t *testing.T) {
	data := sampleDay()
	for _, o := range data {
		est, ok := Interpolate(o.Timestamp, data)
		require.True(t, ok)
		assert.InDelta(t, o.Price, est.Price, 1e-9)
	}
}

func TestInterpolate_Monotonic(t *testing.T) {
	data := []models.Observation{
		obs(at(2026, 3, 10, 12, 0, 0), 200),
		obs(at(2026, 3, 10, 0, 0, 0), 100),
	}
	prev := 0.0
	for minute := 1; minute < 12*60; minute += 37 {
		est, ok := Interpolate(at(2026, 3, 10, 0, 0, 0).Add(time.Duration(minute)*time.Minute), data)
		require.True(t, ok)
		assert.Greater(t, est.Price, prev)
		prev = est.Price
	}
}

func TestInterpolate_OneSided(t *testing.T) {
	data := sampleDay()

	est, ok := Interpolate(at(2026, 3, 11, 0, 0, 0), data)
	require.True(t, ok)
	assert.True(t, est.Interpolated)
	assert.Equal(t, 120.0, est.Price)

	est, ok = Interpolate(at(2026, 3, 9, 0, 0, 0), data)
	require.True(t, ok)
	assert.Equal(t, 100.0, est.Price)

	_, ok = Interpolate(at(2026, 3, 9, 0, 0, 0), nil)
	assert.False(t, ok)
}

func TestInterpolate_DoesNotReorderInput(t *testing.T) {
	data := []models.Observation{
		obs(at(2026, 3, 10, 12, 0, 0), 120),
		obs(at(2026, 3, 10, 0, 0, 0), 100),
	}
	_, _ = Interpolate(at(2026, 3, 10, 6, 0, 0), data)
	assert.Equal(t, 120.0, data[0].Price)
}

func TestResolve_IntradayPlaceholdersAndLivePoint(t *testing.T) {
	now := at(2026, 3, 10, 13, 20, 5)
	data := append(sampleDay(), obs(at(2026, 3, 10, 13, 15, 0), 123.456))

	w := Plan(Intraday, "", "", now)
	points := Resolve(Intraday, w, data, now)

	require.Len(t, points, IntradayPoints+1)

	// buckets 0..12 resolved, then the live point, then future placeholders
	for i := 0; i <= 4; i++ {
		require.NotNil(t, points[i].Price, "point %d", i)
		require.NotNil(t, points[i].IsFixedPoint)
		assert.True(t, *points[i].IsFixedPoint)
		assert.NotNil(t, points[i].ActualTimestamp)
	}
	assert.Equal(t, 110.0, *points[2].Price)

	live := points[5]
	assert.True(t, live.IsCurrentTime)
	assert.Equal(t, now, live.Timestamp)
	require.NotNil(t, live.Price)
	assert.Equal(t, 123.46, *live.Price)
	require.NotNil(t, live.IsFixedPoint)
	assert.False(t, *live.IsFixedPoint)

	for _, p := range points[6:] {
		assert.Nil(t, p.Price)
		assert.True(t, p.Timestamp.After(now))
		require.NotNil(t, p.IsFixedPoint)
		assert.True(t, *p.IsFixedPoint)
	}
}

func TestResolve_IntradayOnBoundaryHasNoLivePoint(t *testing.T) {
	now := at(2026, 3, 10, 12, 0, 0)
	w := Plan(Intraday, "", "", now)
	points := Resolve(Intraday, w, sampleDay(), now)

	require.Len(t, points, IntradayPoints)
	for _, p := range points {
		assert.False(t, p.IsCurrentTime)
	}
}

func TestResolve_IntradayEmptyLogGivesNinePlaceholders(t *testing.T) {
	now := at(2026, 3, 10, 13, 20, 5)
	w := Plan(Intraday, "", "", now)
	points := Resolve(Intraday, w, nil, now)

	require.Len(t, points, IntradayPoints)
	for _, p := range points {
		assert.Nil(t, p.Price)
	}
}

func TestResolve_NonIntradayDropsFuture(t *testing.T) {
	now := at(2026, 3, 10, 9, 0, 0)
	data := []models.Observation{
		obs(at(2026, 3, 1, 0, 0, 0), 300),
		obs(at(2026, 3, 9, 18, 0, 0), 310),
	}
	w := Plan(Week, "", "", now)
	points := Resolve(Week, w, data, now)

	require.Len(t, points, ChartPoints-1)
	for _, p := range points {
		assert.False(t, p.Timestamp.After(now))
		assert.Nil(t, p.IsFixedPoint)
		require.NotNil(t, p.Price)
	}
}

func TestResolve_NonIntradayEmptyLogOmitsPoints(t *testing.T) {
	now := at(2026, 3, 10, 9, 0, 0)
	w := Plan(Year, "", "", now)
	assert.Empty(t, Resolve(Year, w, nil, now))
}

func TestResolve_NamedRangeAtMostEight(t *testing.T) {
	now := at(2026, 3, 10, 9, 0, 0)
	data := sampleDay()
	for _, tf := range []Timeframe{Month, HalfYear, Year, FiveYear, FifteenYear} {
		w := Plan(tf, "", "", now)
		points := Resolve(tf, w, data, now)
		assert.LessOrEqual(t, len(points), ChartPoints, "tf=%s", tf)
	}
}
