// Package stats turns raw engagement rows into a validated, time-ordered
// dataset and derives the summary numbers the report is built from.
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/TobiSchelling/ChannelReports/internal/database"
	"github.com/TobiSchelling/ChannelReports/internal/reporterr"
)

// Metric identifies one engagement counter.
type Metric int

const (
	Likes Metric = iota
	Comments
	Shares
)

// NumMetrics is the number of engagement counters in a row.
const NumMetrics = 3

// Metrics lists the counters in report order.
var Metrics = [NumMetrics]Metric{Likes, Comments, Shares}

func (m Metric) String() string {
	switch m {
	case Likes:
		return "likes"
	case Comments:
		return "comments"
	case Shares:
		return "shares"
	}
	return "unknown"
}

// Row is one parsed engagement observation.
type Row struct {
	ID      int64
	PostID  string
	Values  [NumMetrics]float64
	Date    time.Time
	Channel string
}

// Dataset is an immutable, date-ordered set of rows for one report run.
type Dataset struct {
	rows []Row
}

// PrepareDataset validates records and returns them sorted by date. Rows
// with equal dates keep their input order. It fails on an empty input or on
// any date that does not parse.
func PrepareDataset(records []database.EngagementRecord) (*Dataset, error) {
	if len(records) == 0 {
		return nil, reporterr.EmptyDataset()
	}

	rows := make([]Row, 0, len(records))
	for _, r := range records {
		date, err := parseDate(r.Date)
		if err != nil {
			return nil, reporterr.InvalidDate(r.Date, err)
		}
		rows = append(rows, Row{
			ID:      r.ID,
			PostID:  r.PostID,
			Values:  [NumMetrics]float64{float64(r.Likes), float64(r.Comments), float64(r.Shares)},
			Date:    date,
			Channel: r.Channel,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return &Dataset{rows: rows}, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(database.StoreLayout, raw); err == nil {
		return t, nil
	}
	return dateparse.ParseIn(raw, time.UTC)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Rows returns a copy of the ordered rows.
func (d *Dataset) Rows() []Row {
	out := make([]Row, len(d.rows))
	copy(out, d.rows)
	return out
}

// Column returns the values of one metric in row order.
func (d *Dataset) Column(m Metric) []float64 {
	col := make([]float64, len(d.rows))
	for i, r := range d.rows {
		col[i] = r.Values[m]
	}
	return col
}

// DateRange returns the first and last row dates.
func (d *Dataset) DateRange() (first, last time.Time) {
	return d.rows[0].Date, d.rows[len(d.rows)-1].Date
}
