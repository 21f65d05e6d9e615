// Package monitoring exposes Prometheus metrics for report runs and
// narrative calls.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "channelreports"

// Outcome label values.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeValidation  = "validation"
	OutcomeFailed      = "failed"
	OutcomePlaceholder = "placeholder"
	OutcomeNoResponse  = "no_response"
	OutcomeOK          = "ok"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	reportsTotal    *prometheus.CounterVec
	reportDuration  *prometheus.HistogramVec
	narrativeCalls  *prometheus.CounterVec
	datasetRows     prometheus.Histogram
	breakerOpenings prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		reportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_total",
				Help:      "Report generation attempts by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		reportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_duration_seconds",
				Help:      "Wall time of report generation",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		narrativeCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "narrative_calls_total",
				Help:      "Narrative requests by outcome",
			},
			[]string{"outcome"},
		),
		datasetRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dataset_rows",
				Help:      "Rows per report dataset",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		breakerOpenings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "narrative_breaker_open_total",
				Help:      "Times the narrative circuit breaker opened",
			},
		),
	}

	reg.MustRegister(m.reportsTotal, m.reportDuration, m.narrativeCalls, m.datasetRows, m.breakerOpenings)
	return m
}

// ObserveReport records one finished report run.
func (m *Metrics) ObserveReport(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(kind, outcome).Inc()
	m.reportDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveNarrative records one narrative request.
func (m *Metrics) ObserveNarrative(outcome string) {
	if m == nil {
		return
	}
	m.narrativeCalls.WithLabelValues(outcome).Inc()
}

// ObserveDataset records the size of a prepared dataset.
func (m *Metrics) ObserveDataset(rows int) {
	if m == nil {
		return
	}
	m.datasetRows.Observe(float64(rows))
}

// BreakerOpened counts a transition of the narrative breaker to open.
func (m *Metrics) BreakerOpened() {
	if m == nil {
		return
	}
	m.breakerOpenings.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
