package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/vitanova-gold/internal/models"
)

func setupCache(t *testing.T) *HistoryCache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping")
	}
	c, err := NewHistoryCache(Config{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Invalidate(context.Background())
		c.Close()
	})
	return c
}

func TestKey(t *testing.T) {
	assert.Equal(t, "gold:history:20260310T12.g0:1M::", Key("20260310T12.g0", "1M", "", ""))
	assert.Equal(t, "gold:history:20260310T12.g4:CUSTOM:2026-01-01:2026-02-01",
		Key("20260310T12.g4", "CUSTOM", "2026-01-01", "2026-02-01"))
}

func TestNewHistoryCache_RequiresAddr(t *testing.T) {
	_, err := NewHistoryCache(Config{})
	assert.Error(t, err)
}

func TestHistoryCache_RoundTripAndInvalidate(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	price := 341.82
	h := &models.PriceHistory{
		Timeframe:      "1M",
		Count:          1,
		ExpectedPoints: 8,
		StartDate:      time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Data:           []models.ResolvedPoint{{Timestamp: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Price: &price}},
	}

	key := Key("20260310T00.g0", "1M", "", "")
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, key, h))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1M", got.Timeframe)
	require.Len(t, got.Data, 1)
	assert.Equal(t, 341.82, *got.Data[0].Price)

	require.NoError(t, c.Invalidate(ctx))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}
