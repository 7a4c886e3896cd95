package repository

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjannette/vitanova-gold/internal/models"
)

var monthlyHeader = []string{"Date", "USD_to_UAE", "Price_oz_USD", "Price_g_USD", "Price_g_UAE"}

// MonthlyLog is the coarse-grained historical log: one row per calendar month.
type MonthlyLog struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

func NewMonthlyLog(path string, loc *time.Location) *MonthlyLog {
	if loc == nil {
		loc = time.Local
	}
	return &MonthlyLog{path: path, loc: loc}
}

func (l *MonthlyLog) Path() string { return l.path }

func (l *MonthlyLog) Append(rec models.MonthlyRecord) error {
	row := []string{
		rec.Month.String(),
		rec.PegRate.String(),
		rec.USDPerOunce.StringFixed(2),
		rec.USDPerGram.StringFixed(9),
		rec.AEDPerGram.StringFixed(9),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return appendRow(l.path, monthlyHeader, row)
}

// Load returns one observation per parseable row, stamped at the first
// instant of the month, priced in AED per gram.
func (l *MonthlyLog) Load() ([]models.Observation, error) {
	rows, err := readRows(l.path)
	if err != nil {
		return nil, err
	}

	out := make([]models.Observation, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		month, err := models.ParseMonthKey(row[0])
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		if err != nil {
			continue
		}
		out = append(out, models.Observation{Timestamp: month.Start(l.loc), Price: price})
	}
	return out, nil
}

// Months returns the month keys present in the log, in file order.
func (l *MonthlyLog) Months() ([]models.MonthKey, error) {
	rows, err := readRows(l.path)
	if err != nil {
		return nil, err
	}
	var out []models.MonthKey
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if m, err := models.ParseMonthKey(row[0]); err == nil {
			out = append(out, m)
		}
	}
	return out, nil
}
