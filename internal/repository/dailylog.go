package repository

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/vitanova-gold/internal/models"
)

// DailyTimestampLayout encodes seconds, minutes, hours, day, month, year in
// that order (SS/MM/HH/DD/MM/YYYY).
const DailyTimestampLayout = "05/04/15/02/01/2006"

var dailyHeader = []string{"Timestamp", "Price"}

// DailyLog is the fine-grained price log: one row per fetch.
type DailyLog struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

func NewDailyLog(path string, loc *time.Location) *DailyLog {
	if loc == nil {
		loc = time.Local
	}
	return &DailyLog{path: path, loc: loc}
}

func (l *DailyLog) Path() string { return l.path }

func (l *DailyLog) Append(obs models.Observation) error {
	row := []string{
		FormatDailyTimestamp(obs.Timestamp.In(l.loc)),
		decimal.NewFromFloat(obs.Price).StringFixed(2),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return appendRow(l.path, dailyHeader, row)
}

// Load returns all parseable rows in file order.
func (l *DailyLog) Load() ([]models.Observation, error) {
	rows, err := readRows(l.path)
	if err != nil {
		return nil, err
	}

	out := make([]models.Observation, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		ts, err := ParseDailyTimestamp(row[0], l.loc)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			continue
		}
		out = append(out, models.Observation{Timestamp: ts, Price: price})
	}
	return out, nil
}

func FormatDailyTimestamp(ts time.Time) string {
	return ts.Format(DailyTimestampLayout)
}

func ParseDailyTimestamp(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DailyTimestampLayout, strings.TrimSpace(s), loc)
}
