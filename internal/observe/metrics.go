// Package observe provides application-wide observability primitives for
// Echodrill: OpenTelemetry metrics, tracing helpers, and structured
// logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Echodrill metrics.
const meterName = "github.com/MrWong99/echodrill"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per drill stage ---

	// TTSDuration tracks reference-sentence playback latency, synthesis
	// included.
	TTSDuration metric.Float64Histogram

	// ListenDuration tracks the length of one listening window, from
	// recognition start to result or error.
	ListenDuration metric.Float64Histogram

	// ScoringDuration tracks how long scoring one attempt takes.
	ScoringDuration metric.Float64Histogram

	// --- Counters ---

	// Attempts counts scored attempts. Use with attribute:
	//   attribute.String("chapter", ...)
	Attempts metric.Int64Counter

	// Repetitions counts drill cycles by outcome. Use with attribute:
	//   attribute.String("outcome", "scored"|"retried"|"aborted")
	Repetitions metric.Int64Counter

	// DrillsCompleted counts sentences that reached the full repeat count.
	DrillsCompleted metric.Int64Counter

	// --- Score distributions ---

	// TotalScore tracks the distribution of per-attempt total scores.
	TotalScore metric.Float64Histogram

	// --- Error counters ---

	// RecognitionErrors counts recoverable recognition failures.
	RecognitionErrors metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveDrills tracks the number of currently running drill sessions.
	ActiveDrills metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("endpoint", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// playback and listening-window latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// scoreBuckets covers the [0, 10] score range at half-point resolution at
// the ends and full points in the middle.
var scoreBuckets = []float64{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 9.5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TTSDuration, err = m.Float64Histogram("echodrill.tts.duration",
		metric.WithDescription("Latency of reference sentence playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ListenDuration, err = m.Float64Histogram("echodrill.listen.duration",
		metric.WithDescription("Length of one listening window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ScoringDuration, err = m.Float64Histogram("echodrill.scoring.duration",
		metric.WithDescription("Latency of scoring one attempt."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TotalScore, err = m.Float64Histogram("echodrill.score.total",
		metric.WithDescription("Distribution of per-attempt total scores."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Attempts, err = m.Int64Counter("echodrill.attempts",
		metric.WithDescription("Total scored attempts by chapter."),
	); err != nil {
		return nil, err
	}
	if met.Repetitions, err = m.Int64Counter("echodrill.repetitions",
		metric.WithDescription("Total drill cycles by outcome."),
	); err != nil {
		return nil, err
	}
	if met.DrillsCompleted, err = m.Int64Counter("echodrill.drills.completed",
		metric.WithDescription("Total sentences drilled to the full repeat count."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.RecognitionErrors, err = m.Int64Counter("echodrill.recognition.errors",
		metric.WithDescription("Total recoverable recognition failures."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("echodrill.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveDrills, err = m.Int64UpDownCounter("echodrill.active_drills",
		metric.WithDescription("Number of currently running drill sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("echodrill.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAttempt records one scored attempt together with its total score.
func (m *Metrics) RecordAttempt(ctx context.Context, chapter string, totalScore float64) {
	set := metric.WithAttributes(attribute.String("chapter", chapter))
	m.Attempts.Add(ctx, 1, set)
	m.TotalScore.Record(ctx, totalScore, set)
}

// RecordRepetition records one drill cycle with its outcome.
func (m *Metrics) RecordRepetition(ctx context.Context, outcome string) {
	m.Repetitions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
