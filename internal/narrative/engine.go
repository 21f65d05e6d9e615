// Package narrative produces the free-text sections of a report. Failures
// never propagate: a failed request degrades to a placeholder string.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/TobiSchelling/ChannelReports/internal/llm"
	"github.com/TobiSchelling/ChannelReports/internal/logging"
	"github.com/TobiSchelling/ChannelReports/internal/monitoring"
	"github.com/TobiSchelling/ChannelReports/internal/reporterr"
	"github.com/TobiSchelling/ChannelReports/internal/stats"
)

// Placeholders substituted for generated text.
const (
	PlaceholderError      = "analysis error"
	PlaceholderNoResponse = "no response"
)

// Options configures an Engine.
type Options struct {
	// Endpoint is only used in error messages.
	Endpoint string
	// Language every answer is requested in.
	Language string
	// BreakerFailures is the number of consecutive failures after which
	// requests are short-circuited for BreakerDelay. Zero disables the breaker.
	BreakerFailures int
	BreakerDelay    time.Duration
}

// Engine sends prompts to a provider and always returns text.
type Engine struct {
	provider llm.Provider
	language string
	opts     Options
	logger   logging.Logger
	metrics  *monitoring.Metrics

	mu      sync.RWMutex
	breaker circuitbreaker.CircuitBreaker[string]
}

// New probes the provider once and returns an engine bound to it. An
// unreachable provider fails construction with a service-unavailable error.
func New(ctx context.Context, provider llm.Provider, opts Options, logger logging.Logger, metrics *monitoring.Metrics) (*Engine, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := provider.Ping(ctx); err != nil {
		logger.WithError(err).WithField("endpoint", opts.Endpoint).Error("narrative endpoint unreachable")
		return nil, reporterr.ServiceUnavailable(opts.Endpoint, err)
	}

	language := opts.Language
	if language == "" {
		language = "English"
	}

	e := &Engine{
		provider: provider,
		language: language,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
	if opts.BreakerFailures > 0 {
		e.breaker = newBreaker(opts, logger, metrics)
	}
	return e, nil
}

// Reset starts a fresh breaker so that failures seen by an earlier report
// do not short-circuit the next one. Call it at the start of each report.
func (e *Engine) Reset() {
	if e.opts.BreakerFailures <= 0 {
		return
	}
	fresh := newBreaker(e.opts, e.logger, e.metrics)
	e.mu.Lock()
	e.breaker = fresh
	e.mu.Unlock()
}

func newBreaker(opts Options, logger logging.Logger, metrics *monitoring.Metrics) circuitbreaker.CircuitBreaker[string] {
	delay := opts.BreakerDelay
	if delay <= 0 {
		delay = time.Minute
	}
	return circuitbreaker.NewBuilder[string]().
		HandleIf(func(_ string, err error) bool {
			return err != nil && !errors.Is(err, llm.ErrNoResponse)
		}).
		WithFailureThreshold(uint(opts.BreakerFailures)).
		WithDelay(delay).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.WithFields(logging.Fields{
				"from_state": stateName(event.OldState),
				"to_state":   stateName(event.NewState),
			}).Warn("narrative circuit breaker state change")
			if event.NewState == circuitbreaker.OpenState {
				metrics.BreakerOpened()
			}
		}).
		Build()
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}

// Query sends prompt with the language instruction appended. It returns
// PlaceholderError on any failure and PlaceholderNoResponse when the
// endpoint answers without text.
func (e *Engine) Query(ctx context.Context, prompt string) string {
	full := fmt.Sprintf("%s\nThe answer must be in %s.", prompt, e.language)

	generate := func() (string, error) {
		return e.provider.Generate(ctx, full)
	}

	e.mu.RLock()
	breaker := e.breaker
	e.mu.RUnlock()

	var text string
	var err error
	if breaker != nil {
		text, err = failsafe.With(breaker).WithContext(ctx).Get(generate)
	} else {
		text, err = generate()
	}

	switch {
	case err == nil:
		e.metrics.ObserveNarrative(monitoring.OutcomeOK)
		return text
	case errors.Is(err, llm.ErrNoResponse):
		e.logger.Warn("narrative endpoint returned no response field")
		e.metrics.ObserveNarrative(monitoring.OutcomeNoResponse)
		return PlaceholderNoResponse
	case errors.Is(err, circuitbreaker.ErrOpen):
		e.logger.Warn("narrative circuit breaker open, skipping request")
		e.metrics.ObserveNarrative(monitoring.OutcomePlaceholder)
		return PlaceholderError
	default:
		e.logger.WithError(reporterr.TransientNetwork(err)).Error("narrative request failed")
		e.metrics.ObserveNarrative(monitoring.OutcomePlaceholder)
		return PlaceholderError
	}
}

// ChartCommentary asks for the key trends of one chart.
func (e *Engine) ChartCommentary(ctx context.Context, chartID int, ds *stats.Dataset) string {
	return e.Query(ctx, ChartCommentaryPrompt(chartID, ds))
}

// Synthesis asks for conclusions across all three charts.
func (e *Engine) Synthesis(ctx context.Context, ds *stats.Dataset) string {
	return e.Query(ctx, SynthesisPrompt(ds))
}

// DeepDive asks for seasonality, anomalies, content comparison and timing.
func (e *Engine) DeepDive(ctx context.Context, ds *stats.Dataset) string {
	return e.Query(ctx, DeepDivePrompt(ds))
}

// Recommendations asks for posting advice.
func (e *Engine) Recommendations(ctx context.Context, ds *stats.Dataset) string {
	return e.Query(ctx, RecommendationsPrompt(ds))
}
