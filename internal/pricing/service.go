// Package pricing ties the price provider, the price logs and the series
// resolver together behind the operations the HTTP API exposes.
package pricing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/vitanova-gold/internal/cache"
	"github.com/kjannette/vitanova-gold/internal/models"
	"github.com/kjannette/vitanova-gold/internal/repository"
	"github.com/kjannette/vitanova-gold/internal/series"
)

const (
	Currency = "AED"
	Unit     = "gram"
	Karat    = "24k"
)

type PriceFetcher interface {
	FetchPrice(ctx context.Context) (float64, error)
}

type Broadcaster interface {
	Broadcast(q *models.Quote)
}

type Notifier interface {
	MonthlyLogged(rec models.MonthlyRecord)
	RolloverFailed(month models.MonthKey, err error)
}

type HistoryCache interface {
	Get(ctx context.Context, key string) (*models.PriceHistory, error)
	Set(ctx context.Context, key string, h *models.PriceHistory) error
	Invalidate(ctx context.Context) error
}

type Options struct {
	Source      string
	Location    *time.Location
	Broadcaster Broadcaster  // optional
	Notifier    Notifier     // optional
	Cache       HistoryCache // optional
	Now         func() time.Time
}

type Service struct {
	fetcher  PriceFetcher
	log      *repository.PriceLog
	source   string
	loc      *time.Location
	hub      Broadcaster
	notifier Notifier
	cache    HistoryCache
	now      func() time.Time

	// generation counts recorded prices; history cache keys carry it so a
	// series built before a new price is never served after it.
	generation atomic.Uint64
}

func NewService(fetcher PriceFetcher, log *repository.PriceLog, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		fetcher:  fetcher,
		log:      log,
		source:   opts.Source,
		loc:      opts.Location,
		hub:      opts.Broadcaster,
		notifier: opts.Notifier,
		cache:    opts.Cache,
		now:      opts.Now,
	}
}

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

// FetchCurrent fetches the live price and records it. Nothing is written
// when the fetch fails.
func (s *Service) FetchCurrent(ctx context.Context) (*models.Quote, error) {
	price, err := s.fetcher.FetchPrice(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.log.Record(price, s.clock())
	if err != nil {
		return nil, fmt.Errorf("record price: %w", err)
	}
	s.generation.Add(1)

	q := &models.Quote{
		Price:     decimal.NewFromFloat(price).Round(2).InexactFloat64(),
		Timestamp: res.Observation.Timestamp,
		Currency:  Currency,
		Unit:      Unit,
		Karat:     Karat,
		Source:    s.source,
	}

	if s.hub != nil {
		s.hub.Broadcast(q)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			fmt.Printf("[CACHE] Invalidate failed: %v\n", err)
		}
	}
	s.notifyRollover(res)

	return q, nil
}

func (s *Service) notifyRollover(res *repository.RecordResult) {
	if s.notifier == nil {
		return
	}
	switch {
	case res.RolloverErr != nil:
		month := models.MonthOf(res.Observation.Timestamp)
		go s.notifier.RolloverFailed(month, res.RolloverErr)
	case res.Rollover != nil:
		go s.notifier.MonthlyLogged(*res.Rollover)
	}
}

// History builds the chart series for a timeframe. Unreadable logs degrade
// to an empty series rather than failing the request.
func (s *Service) History(ctx context.Context, timeframe, startParam, endParam string) (*models.PriceHistory, error) {
	tf := series.ParseTimeframe(timeframe)
	now := s.clock()
	key := cache.Key(cacheScope(now, s.generation.Load()), string(tf), startParam, endParam)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			fmt.Printf("[CACHE] Get %s failed: %v\n", key, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	w := series.Plan(tf, startParam, endParam, now)

	obs, err := s.log.LoadAll()
	if err != nil {
		fmt.Printf("[PRICE] Load logs failed, serving empty series: %v\n", err)
		obs = nil
	}

	points := series.Resolve(tf, w, obs, now)
	if points == nil {
		points = []models.ResolvedPoint{}
	}
	change, pct := series.PeriodChange(points)

	h := &models.PriceHistory{
		Timeframe:           string(tf),
		Count:               len(points),
		ExpectedPoints:      tf.ExpectedPoints(),
		StartDate:           w.Start,
		EndDate:             w.End,
		PeriodChange:        change,
		PeriodChangePercent: pct,
		Data:                points,
	}

	if s.cache != nil && err == nil {
		if err := s.cache.Set(ctx, key, h); err != nil {
			fmt.Printf("[CACHE] Set %s failed: %v\n", key, err)
		}
	}
	return h, nil
}

// cacheScope ties a cached history to the local day, the three-hour intraday
// bucket and the log generation it was built from. Every target boundary
// (intraday buckets, the weekly noon) falls on a bucket edge.
func cacheScope(now time.Time, generation uint64) string {
	return fmt.Sprintf("%sT%02d.g%d", now.Format("20060102"), now.Hour()/3*3, generation)
}

// Stats summarizes today's movement from the daily log.
func (s *Service) Stats(ctx context.Context) (*models.PriceStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	daily, err := s.log.LoadDaily()
	if err != nil {
		fmt.Printf("[PRICE] Load daily log failed: %v\n", err)
		daily = nil
	}
	stats := series.DailyStats(daily, s.clock())
	return &stats, nil
}
