package stats

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Weekdays lists weekday names Monday first, matching WeekdayTotals indexes.
var Weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Means returns the arithmetic mean of each metric.
func (d *Dataset) Means() [NumMetrics]float64 {
	var out [NumMetrics]float64
	for _, m := range Metrics {
		out[m] = stat.Mean(d.Column(m), nil)
	}
	return out
}

// Correlation returns the Pearson correlation matrix of the metrics. A metric
// without variance correlates 1 with itself and 0 with everything else.
func (d *Dataset) Correlation() [NumMetrics][NumMetrics]float64 {
	var cols [NumMetrics][]float64
	var varies [NumMetrics]bool
	for _, m := range Metrics {
		cols[m] = d.Column(m)
		varies[m] = stat.Variance(cols[m], nil) > 0
	}

	var out [NumMetrics][NumMetrics]float64
	for i := 0; i < NumMetrics; i++ {
		out[i][i] = 1
		for j := i + 1; j < NumMetrics; j++ {
			var r float64
			if varies[i] && varies[j] {
				r = clamp(stat.Correlation(cols[i], cols[j], nil), -1, 1)
			}
			out[i][j], out[j][i] = r, r
		}
	}
	return out
}

// WeekdayTotals sums a metric per weekday across the whole dataset. Index 0
// is Monday. Days without rows are zero.
func (d *Dataset) WeekdayTotals(m Metric) [7]float64 {
	var out [7]float64
	for _, r := range d.rows {
		out[weekdayIndex(r.Date.Weekday())] += r.Values[m]
	}
	return out
}

func weekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Summary is a descriptive statistics table: one row per statistic, one
// column per metric.
type Summary struct {
	Stats  []string
	Values [][NumMetrics]float64
}

// SummaryStats names the Describe rows in order.
var SummaryStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Describe computes count, mean, sample standard deviation, min, quartiles
// and max for each metric, rounded to two decimals.
func (d *Dataset) Describe() Summary {
	s := Summary{
		Stats:  SummaryStats,
		Values: make([][NumMetrics]float64, len(SummaryStats)),
	}
	for _, m := range Metrics {
		col := d.Column(m)
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)

		row := []float64{
			float64(len(col)),
			stat.Mean(col, nil),
			stdDev(col),
			sorted[0],
			quantile(sorted, 0.25),
			quantile(sorted, 0.50),
			quantile(sorted, 0.75),
			sorted[len(sorted)-1],
		}
		for i, v := range row {
			s.Values[i][m] = round2(v)
		}
	}
	return s
}

func stdDev(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}

// quantile interpolates linearly between order statistics at h = (n-1)p.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
