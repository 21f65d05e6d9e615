package database

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/TobiSchelling/ChannelReports/internal/reporterr"
)

// DateLayout is the caller-facing date format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// StoreLayout is the fixed-width UTC layout engagement dates are normalised
// to, so that text comparison in SQL orders like time.
const StoreLayout = "2006-01-02T15:04:05.000Z"

// Period is a named relative window ending at generation time.
type Period string

const (
	PeriodDaily Period = "daily"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Periods lists the accepted period names in display order.
var Periods = []Period{PeriodDaily, PeriodWeek, PeriodMonth, PeriodYear}

// ParsePeriod validates a period name. Matching ignores case and surrounding
// whitespace.
func ParsePeriod(name string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Periods {
		if p == known {
			return p, nil
		}
	}
	return "", reporterr.InvalidPeriod(name)
}

// Since returns the start of the window for p ending at now.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodDaily:
		return now.AddDate(0, 0, -1)
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, 0, -30)
	case PeriodYear:
		return now.AddDate(-1, 0, 0)
	}
	return now
}

// ParseDateRange parses two YYYY-MM-DD dates into an inclusive window
// [start 00:00:00, end 23:59:59.999] in UTC.
func ParseDateRange(start, end string) (from, to time.Time, err error) {
	s, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return time.Time{}, time.Time{}, reporterr.InvalidDateRange("start date must be YYYY-MM-DD", err)
	}
	e, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return time.Time{}, time.Time{}, reporterr.InvalidDateRange("end date must be YYYY-MM-DD", err)
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, reporterr.InvalidDateRange("start date is after end date", nil)
	}
	return s, e.Add(24*time.Hour - time.Millisecond), nil
}

// FormatStoreTime formats t in StoreLayout.
func FormatStoreTime(t time.Time) string {
	return t.UTC().Format(StoreLayout)
}

// NormalizeDate rewrites a parseable timestamp into StoreLayout. Anything
// unparseable is returned unchanged so that report validation can reject it.
func NormalizeDate(raw string) string {
	t, err := dateparse.ParseIn(strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return raw
	}
	return FormatStoreTime(t)
}

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format(DateLayout)
}
