package database

import (
	"errors"
	"testing"
	"time"

	"github.com/TobiSchelling/ChannelReports/internal/reporterr"
)

func TestParsePeriod(t *testing.T) {
	for _, name := range []string{"daily", "week", "month", "year", " WEEK "} {
		if _, err := ParsePeriod(name); err != nil {
			t.Errorf("ParsePeriod(%q) unexpected error: %v", name, err)
		}
	}
	_, err := ParsePeriod("invalid")
	if !errors.Is(err, reporterr.ErrInvalidPeriod) {
		t.Errorf("expected invalid period error, got %v", err)
	}
}

func TestPeriodSince(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cases := map[Period]time.Time{
		PeriodDaily: time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC),
		PeriodWeek:  time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC),
		PeriodMonth: time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC),
		PeriodYear:  time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	for p, want := range cases {
		if got := p.Since(now); !got.Equal(want) {
			t.Errorf("%s.Since = %v, want %v", p, got, want)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	from, to, err := ParseDateRange("2024-01-01", "2024-01-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FormatStoreTime(from) != "2024-01-01T00:00:00.000Z" {
		t.Errorf("unexpected start %s", FormatStoreTime(from))
	}
	if FormatStoreTime(to) != "2024-01-07T23:59:59.999Z" {
		t.Errorf("unexpected end %s", FormatStoreTime(to))
	}
}

func TestParseDateRangeInvalidCalendarDate(t *testing.T) {
	_, _, err := ParseDateRange("2024-02-30", "2024-03-01")
	if !errors.Is(err, reporterr.ErrInvalidDateRange) {
		t.Errorf("expected invalid date range, got %v", err)
	}
}

func TestParseDateRangeReversed(t *testing.T) {
	_, _, err := ParseDateRange("2024-03-02", "2024-03-01")
	if !errors.Is(err, reporterr.ErrInvalidDateRange) {
		t.Errorf("expected invalid date range, got %v", err)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-01-02T10:00:00+00:00":  "2024-01-02T10:00:00.000Z",
		"2024-01-02 10:00:00":        "2024-01-02T10:00:00.000Z",
		"2024-01-02T12:00:00+02:00":  "2024-01-02T10:00:00.000Z",
		"2024-01-02":                 "2024-01-02T00:00:00.000Z",
		"garbage":                    "garbage",
	}
	for in, want := range cases {
		if got := NormalizeDate(in); got != want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}
