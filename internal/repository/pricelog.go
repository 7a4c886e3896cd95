package repository

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kjannette/vitanova-gold/internal/models"
)

type PriceLogConfig struct {
	DailyPath     string
	MonthlyPath   string
	MarkerPath    string
	Location      *time.Location
	PegRate       float64 // AED per USD
	GramsPerOunce float64
}

// PriceLog ties the daily and monthly logs together with the rollover marker.
type PriceLog struct {
	daily   *DailyLog
	monthly *MonthlyLog
	marker  *MarkerStore
	cfg     PriceLogConfig

	// held across the daily append and the whole rollover sequence
	recordMu sync.Mutex
}

func NewPriceLog(cfg PriceLogConfig) *PriceLog {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &PriceLog{
		daily:   NewDailyLog(cfg.DailyPath, cfg.Location),
		monthly: NewMonthlyLog(cfg.MonthlyPath, cfg.Location),
		marker:  NewMarkerStore(cfg.MarkerPath),
		cfg:     cfg,
	}
}

func (p *PriceLog) Daily() *DailyLog     { return p.daily }
func (p *PriceLog) Monthly() *MonthlyLog { return p.monthly }
func (p *PriceLog) Marker() *MarkerStore { return p.marker }

// RecordResult describes what Record wrote. RolloverErr is set when the
// daily row was written but the monthly rollover failed.
type RecordResult struct {
	Observation models.Observation
	Rollover    *models.MonthlyRecord
	RolloverErr error
}

// Record appends price to the daily log and, on the first day of a month
// not yet rolled over, appends it to the monthly log as well.
func (p *PriceLog) Record(price float64, now time.Time) (*RecordResult, error) {
	now = now.In(p.cfg.Location).Truncate(time.Second)
	obs := models.Observation{Timestamp: now, Price: price}

	p.recordMu.Lock()
	defer p.recordMu.Unlock()

	if err := p.daily.Append(obs); err != nil {
		return nil, fmt.Errorf("append daily: %w", err)
	}
	fmt.Printf("[PRICE] %.2f AED/gram appended at %s\n", price, FormatDailyTimestamp(now))

	res := &RecordResult{Observation: obs}
	rec, err := p.rollover(price, now)
	res.Rollover = rec
	if err != nil {
		fmt.Printf("[ROLLOVER] Failed: %v\n", err)
		res.RolloverErr = err
	}
	return res, nil
}

// rollover must be called with recordMu held.
func (p *PriceLog) rollover(price float64, now time.Time) (*models.MonthlyRecord, error) {
	last, err := p.marker.Load()
	if err != nil {
		// unreadable marker: fall back to the monthly log itself below
		fmt.Printf("[ROLLOVER] Warning: %v\n", err)
		last = nil
	}

	month, ok := NeedsRollover(now, last)
	if !ok {
		return nil, nil
	}

	months, err := p.monthly.Months()
	if err != nil {
		return nil, fmt.Errorf("scan monthly log: %w", err)
	}
	if slices.Contains(months, month) {
		if err := p.marker.Save(month); err != nil {
			return nil, err
		}
		return nil, nil
	}

	fmt.Printf("[ROLLOVER] First day of %s detected (last logged: %s)\n", month, markerLabel(last))

	rec := NewMonthlyRecord(month, price, p.cfg.PegRate, p.cfg.GramsPerOunce)
	if err := p.monthly.Append(rec); err != nil {
		return nil, fmt.Errorf("append monthly: %w", err)
	}
	if err := p.marker.Save(month); err != nil {
		return &rec, err
	}

	fmt.Printf("[ROLLOVER] Logged %s: %s AED/g, %s USD/g, %s USD/oz\n",
		month, rec.AEDPerGram.StringFixed(2), rec.USDPerGram.StringFixed(6), rec.USDPerOunce.StringFixed(2))
	return &rec, nil
}

// LoadAll merges both logs, sorted ascending by timestamp.
func (p *PriceLog) LoadAll() ([]models.Observation, error) {
	monthly, err := p.monthly.Load()
	if err != nil {
		return nil, fmt.Errorf("load monthly: %w", err)
	}
	daily, err := p.daily.Load()
	if err != nil {
		return nil, fmt.Errorf("load daily: %w", err)
	}

	all := make([]models.Observation, 0, len(monthly)+len(daily))
	all = append(all, monthly...)
	all = append(all, daily...)
	slices.SortStableFunc(all, func(a, b models.Observation) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return all, nil
}

// LoadDaily returns the fine-grained rows in file order.
func (p *PriceLog) LoadDaily() ([]models.Observation, error) {
	return p.daily.Load()
}

func markerLabel(m *models.MonthKey) string {
	if m == nil {
		return "none"
	}
	return m.String()
}
