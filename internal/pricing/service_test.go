package pricing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/vitanova-gold/internal/models"
	"github.com/kjannette/vitanova-gold/internal/repository"
)

var gst = time.FixedZone("GST", 4*60*60)

type stubFetcher struct {
	price float64
	err   error
	calls int
}

func (f *stubFetcher) FetchPrice(ctx context.Context) (float64, error) {
	f.calls++
	return f.price, f.err
}

type recordingHub struct {
	mu     sync.Mutex
	quotes []*models.Quote
}

func (h *recordingHub) Broadcast(q *models.Quote) {
	h.mu.Lock()
	h.quotes = append(h.quotes, q)
	h.mu.Unlock()
}

type chanNotifier struct {
	logged chan models.MonthlyRecord
	failed chan error
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{logged: make(chan models.MonthlyRecord, 4), failed: make(chan error, 4)}
}

func (n *chanNotifier) MonthlyLogged(rec models.MonthlyRecord)          { n.logged <- rec }
func (n *chanNotifier) RolloverFailed(month models.MonthKey, err error) { n.failed <- err }

type memCache struct {
	mu          sync.Mutex
	entries     map[string]*models.PriceHistory
	invalidated int
	onGet       func()
}

func newMemCache() *memCache { return &memCache{entries: map[string]*models.PriceHistory{}} }

func (c *memCache) Get(ctx context.Context, key string) (*models.PriceHistory, error) {
	if hook := c.onGet; hook != nil {
		c.onGet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key], nil
}

func (c *memCache) Set(ctx context.Context, key string, h *models.PriceHistory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = h
	return nil
}

func (c *memCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*models.PriceHistory{}
	c.invalidated++
	return nil
}

type fixture struct {
	dir     string
	log     *repository.PriceLog
	fetcher *stubFetcher
	hub     *recordingHub
	notify  *chanNotifier
	cache   *memCache
	now     time.Time
	svc     *Service
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir: dir,
		log: repository.NewPriceLog(repository.PriceLogConfig{
			DailyPath:     filepath.Join(dir, "DailyGold.csv"),
			MonthlyPath:   filepath.Join(dir, "HistoricalMVPGold.csv"),
			MarkerPath:    filepath.Join(dir, "last_historical_month.txt"),
			Location:      gst,
			PegRate:       3.6728,
			GramsPerOunce: 31.1035,
		}),
		fetcher: &stubFetcher{price: 341.818},
		hub:     &recordingHub{},
		notify:  newChanNotifier(),
		cache:   newMemCache(),
		now:     now,
	}
	f.svc = NewService(f.fetcher, f.log, Options{
		Source:      "gold.g.apised.com",
		Location:    gst,
		Broadcaster: f.hub,
		Notifier:    f.notify,
		Cache:       f.cache,
		Now:         func() time.Time { return f.now },
	})
	return f
}

func TestFetchCurrent_RecordsAndBroadcasts(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 10, 9, 30, 15, 500, gst))

	q, err := f.svc.FetchCurrent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 341.82, q.Price)
	assert.Equal(t, "AED", q.Currency)
	assert.Equal(t, "gram", q.Unit)
	assert.Equal(t, "24k", q.Karat)
	assert.Equal(t, "gold.g.apised.com", q.Source)
	assert.True(t, q.Timestamp.Equal(time.Date(2026, 3, 10, 9, 30, 15, 0, gst)))

	daily, err := f.log.LoadDaily()
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, 341.82, daily[0].Price)

	require.Len(t, f.hub.quotes, 1)
	assert.Equal(t, 1, f.cache.invalidated)
	select {
	case <-f.notify.logged:
		t.Fatal("no rollover expected mid-month")
	default:
	}
}

func TestFetchCurrent_FailureWritesNothing(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 1, 9, 0, 0, 0, gst))
	f.fetcher.err = errors.New("provider down")

	_, err := f.svc.FetchCurrent(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(f.dir, "DailyGold.csv"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(f.dir, "HistoricalMVPGold.csv"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, f.hub.quotes)
	assert.Zero(t, f.cache.invalidated)
}

func TestFetchCurrent_FirstOfMonthRollover(t *testing.T) {
	f := newFixture(t, time.Date(2026, 1, 1, 8, 0, 0, 0, gst))
	dec := repository.NewMonthlyRecord(models.MonthKey{Year: 2025, Month: time.December}, 190, 3.6728, 31.1035)
	require.NoError(t, f.log.Monthly().Append(dec))
	f.fetcher.price = 200

	_, err := f.svc.FetchCurrent(context.Background())
	require.NoError(t, err)

	select {
	case rec := <-f.notify.logged:
		assert.Equal(t, "01/2026", rec.Month.String())
		assert.Equal(t, "200.000000000", rec.AEDPerGram.StringFixed(9))
	case <-time.After(2 * time.Second):
		t.Fatal("expected monthly notice")
	}

	f.now = f.now.Add(2 * time.Hour)
	f.fetcher.price = 201
	_, err = f.svc.FetchCurrent(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.dir, "HistoricalMVPGold.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "12/2025,"))
	assert.True(t, strings.HasPrefix(lines[2], "01/2026,"))

	marker, err := os.ReadFile(filepath.Join(f.dir, "last_historical_month.txt"))
	require.NoError(t, err)
	assert.Equal(t, "01/2026", string(marker))

	daily, err := f.log.LoadDaily()
	require.NoError(t, err)
	assert.Len(t, daily, 2)
}

func TestHistory_IntradayShape(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 10, 13, 20, 5, 0, gst))
	for _, o := range []models.Observation{
		{Timestamp: time.Date(2026, 3, 10, 0, 5, 0, 0, gst), Price: 300},
		{Timestamp: time.Date(2026, 3, 10, 6, 0, 0, 0, gst), Price: 310},
		{Timestamp: time.Date(2026, 3, 10, 13, 0, 0, 0, gst), Price: 320},
	} {
		require.NoError(t, f.log.Daily().Append(o))
	}

	h, err := f.svc.History(context.Background(), "1D", "", "")
	require.NoError(t, err)
	assert.Equal(t, "1D", h.Timeframe)
	assert.Equal(t, 9, h.ExpectedPoints)
	assert.Equal(t, len(h.Data), h.Count)
	assert.Len(t, h.Data, 10)
	assert.True(t, h.StartDate.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, gst)))

	for _, p := range h.Data {
		if p.Timestamp.After(f.now) {
			assert.Nil(t, p.Price)
		}
	}
	require.NotNil(t, h.PeriodChange)
	assert.Equal(t, 20.0, *h.PeriodChange)
}

func TestHistory_EmptyLogs(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 10, 13, 20, 5, 0, gst))

	h, err := f.svc.History(context.Background(), "1Y", "", "")
	require.NoError(t, err)
	assert.Equal(t, "1Y", h.Timeframe)
	assert.Equal(t, 8, h.ExpectedPoints)
	assert.Equal(t, 0, h.Count)
	assert.NotNil(t, h.Data)
	assert.Nil(t, h.PeriodChange)
	assert.Nil(t, h.PeriodChangePercent)
}

func TestHistory_UsesCacheUntilInvalidated(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 10, 13, 20, 5, 0, gst))
	require.NoError(t, f.log.Daily().Append(models.Observation{Timestamp: time.Date(2026, 3, 9, 12, 0, 0, 0, gst), Price: 300}))

	first, err := f.svc.History(context.Background(), "1M", "", "")
	require.NoError(t, err)
	second, err := f.svc.History(context.Background(), "1m", "", "")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = f.svc.FetchCurrent(context.Background())
	require.NoError(t, err)
	third, err := f.svc.History(context.Background(), "1M", "", "")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestHistory_CacheDoesNotOutliveDay(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 10, 23, 59, 50, 0, gst))
	require.NoError(t, f.log.Daily().Append(models.Observation{Timestamp: time.Date(2026, 3, 10, 22, 0, 0, 0, gst), Price: 300}))

	before, err := f.svc.History(context.Background(), "1D", "", "")
	require.NoError(t, err)
	assert.True(t, before.StartDate.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, gst)))

	f.now = time.Date(2026, 3, 11, 0, 0, 20, 0, gst)
	after, err := f.svc.History(context.Background(), "1D", "", "")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.True(t, after.StartDate.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, gst)))
	require.NotEmpty(t, after.Data)
	assert.True(t, after.Data[0].Timestamp.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, gst)))
}

func TestHistory_CacheDoesNotOutliveIntradayBucket(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 10, 8, 59, 50, 0, gst))
	require.NoError(t, f.log.Daily().Append(models.Observation{Timestamp: time.Date(2026, 3, 10, 8, 0, 0, 0, gst), Price: 300}))

	_, err := f.svc.History(context.Background(), "1D", "", "")
	require.NoError(t, err)

	f.now = time.Date(2026, 3, 10, 9, 0, 20, 0, gst)
	h, err := f.svc.History(context.Background(), "1D", "", "")
	require.NoError(t, err)

	nine := time.Date(2026, 3, 10, 9, 0, 0, 0, gst)
	for _, p := range h.Data {
		if p.Timestamp.Equal(nine) {
			assert.NotNil(t, p.Price, "09:00 bucket is no longer in the future")
		}
	}
}

func TestHistory_StaleBuildNotServedAfterFetch(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 10, 13, 20, 5, 0, gst))
	require.NoError(t, f.log.Daily().Append(models.Observation{Timestamp: time.Date(2026, 3, 9, 12, 0, 0, 0, gst), Price: 300}))

	// A price lands after the cache lookup but before the series is stored.
	f.cache.onGet = func() {
		_, err := f.svc.FetchCurrent(context.Background())
		require.NoError(t, err)
	}
	stale, err := f.svc.History(context.Background(), "1M", "", "")
	require.NoError(t, err)

	fresh, err := f.svc.History(context.Background(), "1M", "", "")
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
}

func TestStats(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 10, 15, 0, 0, 0, gst))
	for _, o := range []models.Observation{
		{Timestamp: time.Date(2026, 3, 9, 22, 0, 0, 0, gst), Price: 300},
		{Timestamp: time.Date(2026, 3, 10, 8, 0, 0, 0, gst), Price: 310},
		{Timestamp: time.Date(2026, 3, 10, 14, 0, 0, 0, gst), Price: 306},
	} {
		require.NoError(t, f.log.Daily().Append(o))
	}

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 306.0, *stats.Current)
	assert.Equal(t, 310.0, *stats.TodayHigh)
	assert.Equal(t, 306.0, *stats.TodayLow)
	assert.Equal(t, 6.0, *stats.Change)
	assert.Equal(t, 2.0, *stats.ChangePercent)
}

func TestStats_EmptyLog(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 10, 15, 0, 0, 0, gst))
	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats.Current)
}
