// Package series reconstructs fixed-cardinality chart series from
// irregularly sampled price observations.
package series

import (
	"strings"
	"time"
)

type Timeframe string

const (
	Intraday    Timeframe = "1D"
	Week        Timeframe = "1W"
	Month       Timeframe = "1M"
	HalfYear    Timeframe = "6M"
	Year        Timeframe = "1Y"
	FiveYear    Timeframe = "5Y"
	FifteenYear Timeframe = "15Y"
	Custom      Timeframe = "CUSTOM"
)

const (
	// ChartPoints is the target count for every timeframe except Intraday.
	ChartPoints = 8
	// IntradayPoints covers hours 0,3,...,21 plus the end of day.
	IntradayPoints = 9

	intradayStepHours = 3
)

var rangeDays = map[Timeframe]int{
	Month:       30,
	HalfYear:    180,
	Year:        365,
	FiveYear:    365 * 5,
	FifteenYear: 365 * 15,
}

// ParseTimeframe maps an empty identifier to Intraday and anything
// unrecognized to Month.
func ParseTimeframe(s string) Timeframe {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	switch tf {
	case "":
		return Intraday
	case Intraday, Week, Custom:
		return tf
	}
	if _, ok := rangeDays[tf]; ok {
		return tf
	}
	return Month
}

// ExpectedPoints is the number of fixed targets a full series would carry.
func (tf Timeframe) ExpectedPoints() int {
	if tf == Intraday {
		return IntradayPoints
	}
	return ChartPoints
}

// Target is an x-axis instant the series must resolve a value for.
type Target struct {
	Timestamp         time.Time
	IsFuture          bool
	IsCurrentInterval bool // Intraday only
}

type Window struct {
	Start   time.Time
	End     time.Time
	Targets []Target
}

// DefaultCustomStart is the start used when a custom range cannot be parsed.
func DefaultCustomStart(loc *time.Location) time.Time {
	return time.Date(2000, 1, 1, 0, 0, 0, 0, loc)
}

// Plan computes the date window and target timestamps for tf at now.
// startParam and endParam are only consulted for Custom.
func Plan(tf Timeframe, startParam, endParam string, now time.Time) Window {
	switch tf {
	case Intraday:
		return Window{Start: startOfDay(now), End: now, Targets: intradayTargets(now)}
	case Week:
		return Window{Start: startOfDay(now.AddDate(0, 0, -7)), End: now, Targets: weekTargets(now)}
	case Custom:
		if startParam != "" && endParam != "" {
			start, end := customRange(startParam, endParam, now)
			return Window{Start: start, End: end, Targets: evenTargets(start, end, now)}
		}
		tf = Month
	}

	days, ok := rangeDays[tf]
	if !ok {
		days = rangeDays[Month]
	}
	start := now.AddDate(0, 0, -days)
	return Window{Start: start, End: now, Targets: evenTargets(start, now, now)}
}

// intradayTargets returns the nine clock-aligned buckets of today. The last
// bucket closes at 23:59:59 so that a live point inside hour 21 stays ahead
// of the end-of-day point.
func intradayTargets(now time.Time) []Target {
	y, m, d := now.Date()
	loc := now.Location()
	at := func(hour int) time.Time {
		if hour >= 24 {
			return time.Date(y, m, d, 23, 59, 59, 0, loc)
		}
		return time.Date(y, m, d, hour, 0, 0, 0, loc)
	}

	targets := make([]Target, 0, IntradayPoints)
	for hour := 0; hour <= 24; hour += intradayStepHours {
		ts := at(hour)
		t := Target{Timestamp: ts, IsFuture: ts.After(now)}
		if hour < 24 {
			next := at(hour + intradayStepHours)
			t.IsCurrentInterval = !now.Before(ts) && now.Before(next)
		}
		targets = append(targets, t)
	}
	return targets
}

// weekTargets returns local noon for each of the last seven days and today,
// oldest first.
func weekTargets(now time.Time) []Target {
	targets := make([]Target, 0, ChartPoints)
	for i := ChartPoints - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		y, m, d := day.Date()
		ts := time.Date(y, m, d, 12, 0, 0, 0, now.Location())
		targets = append(targets, Target{Timestamp: ts, IsFuture: ts.After(now)})
	}
	return targets
}

// evenTargets spaces ChartPoints targets across [start, end], both ends
// included.
func evenTargets(start, end, now time.Time) []Target {
	// Spans past the time.Duration range (about 292 years) are split into
	// whole seconds and a nanosecond remainder.
	const gaps = ChartPoints - 1
	spanSec := end.Unix() - start.Unix()
	spanNsec := int64(end.Nanosecond() - start.Nanosecond())
	stepSec := spanSec / gaps
	stepNsec := (spanSec%gaps*int64(time.Second) + spanNsec) / gaps

	targets := make([]Target, 0, ChartPoints)
	for k := 0; k < ChartPoints; k++ {
		ts := start
		switch {
		case k == gaps:
			ts = end
		case k > 0:
			n := int64(k)
			ts = time.Unix(start.Unix()+stepSec*n, int64(start.Nanosecond())+stepNsec*n).In(start.Location())
		}
		targets = append(targets, Target{Timestamp: ts, IsFuture: ts.After(now)})
	}
	return targets
}

var customLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// customRange expands the dates to whole days and clamps the end to now.
// Unparsable or inverted input falls back to [DefaultCustomStart, now].
func customRange(startParam, endParam string, now time.Time) (time.Time, time.Time) {
	loc := now.Location()
	fallbackStart := DefaultCustomStart(loc)

	s, okS := parseDate(startParam, loc)
	e, okE := parseDate(endParam, loc)
	if !okS || !okE {
		return fallbackStart, now
	}

	start := startOfDay(s)
	ey, em, ed := e.Date()
	end := time.Date(ey, em, ed, 23, 59, 59, 999999999, loc)
	if end.After(now) {
		end = now
	}
	if start.After(end) {
		return fallbackStart, now
	}
	return start, end
}

// parseDate reads the calendar date of s in loc. Offsets are ignored so
// that a client's "2024-01-15T00:00:00Z" means Jan 15 locally.
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range customLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), true
	}
	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
