// Package telemetry records search orchestration metrics through the
// OpenTelemetry global meter provider. Nothing is exported unless the
// process installs a provider; the default one discards measurements.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of every instrument.
const MeterName = "github.com/custodia-labs/polyrag"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	metricsOnce        sync.Once
	metricsMu          sync.Mutex
	metricsInitErr     error
	searchDuration     metric.Float64Histogram
	searchCounter      metric.Int64Counter
	selectionCounter   metric.Int64Counter
	subPolicyCounter   metric.Int64Counter
	generationDuration metric.Float64Histogram
	generationTokens   metric.Int64Counter
	historyFailures    metric.Int64Counter
)

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// RecordSearch records one orchestrated search.
func RecordSearch(ctx context.Context, policy string, d time.Duration, err error) {
	if err := ensureMetrics(); err != nil || searchDuration == nil || searchCounter == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("policy", policy),
		attribute.String("outcome", outcome(err)),
	)
	searchDuration.Record(ctx, d.Seconds(), attrs)
	searchCounter.Add(ctx, 1, attrs)
}

// RecordSelection records an automatic policy decision.
func RecordSelection(ctx context.Context, candidate, selected string) {
	if err := ensureMetrics(); err != nil || selectionCounter == nil {
		return
	}
	selectionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("candidate", candidate),
		attribute.String("selected", selected),
	))
}

// RecordSubPolicy records the outcome of one fused sub-policy.
func RecordSubPolicy(ctx context.Context, source, status string) {
	if err := ensureMetrics(); err != nil || subPolicyCounter == nil {
		return
	}
	subPolicyCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	))
}

// RecordGeneration records one provider call. tokens is ignored when zero.
func RecordGeneration(ctx context.Context, provider string, d time.Duration, tokens int, err error) {
	if err := ensureMetrics(); err != nil || generationDuration == nil {
		return
	}
	generationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome(err)),
	))
	if tokens > 0 && generationTokens != nil {
		generationTokens.Add(ctx, int64(tokens), metric.WithAttributes(attribute.String("provider", provider)))
	}
}

// RecordHistoryFailure records a history write that was dropped.
func RecordHistoryFailure(ctx context.Context) {
	if err := ensureMetrics(); err != nil || historyFailures == nil {
		return
	}
	historyFailures.Add(ctx, 1)
}

// ResetMetricsForTesting drops all instruments so the next call rebuilds
// them from the current global meter provider.
func ResetMetricsForTesting() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	searchDuration = nil
	searchCounter = nil
	selectionCounter = nil
	subPolicyCounter = nil
	generationDuration = nil
	generationTokens = nil
	historyFailures = nil
}

func ensureMetrics() error {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(MeterName)
		if err := initSearchMetrics(meter); err != nil {
			metricsInitErr = err
			return
		}
		if err := initGenerationMetrics(meter); err != nil {
			metricsInitErr = err
		}
	})
	return metricsInitErr
}

func initSearchMetrics(meter metric.Meter) error {
	var err error
	searchDuration, err = meter.Float64Histogram(
		"polyrag_search_duration_seconds",
		metric.WithDescription("End-to-end latency of orchestrated searches"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}
	searchCounter, err = meter.Int64Counter(
		"polyrag_search_total",
		metric.WithDescription("Number of orchestrated searches by policy and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	selectionCounter, err = meter.Int64Counter(
		"polyrag_selection_total",
		metric.WithDescription("Number of automatic policy selections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	subPolicyCounter, err = meter.Int64Counter(
		"polyrag_subpolicy_total",
		metric.WithDescription("Number of fused sub-policy runs by status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	historyFailures, err = meter.Int64Counter(
		"polyrag_history_write_failures_total",
		metric.WithDescription("Number of history records dropped after retries"),
		metric.WithUnit("1"),
	)
	return err
}

func initGenerationMetrics(meter metric.Meter) error {
	var err error
	generationDuration, err = meter.Float64Histogram(
		"polyrag_generation_duration_seconds",
		metric.WithDescription("Latency of provider generation calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return err
	}
	generationTokens, err = meter.Int64Counter(
		"polyrag_generation_tokens_total",
		metric.WithDescription("Tokens reported by providers"),
		metric.WithUnit("1"),
	)
	return err
}
