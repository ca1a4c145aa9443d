package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Recorder provides OpenTelemetry metrics export in Prometheus format
type Recorder struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *prometheus.Registry

	// OTel meter and instruments
	meter            metric.Meter
	requestsTotal    metric.Int64Counter
	rejectionsTotal  metric.Int64Counter
	duplicatesTotal  metric.Int64Counter
	handlerFailures  metric.Int64Counter
	rateLimitHits    metric.Int64Counter
	pipelineDuration metric.Float64Histogram
}

// NewRecorder creates a metrics recorder backed by the given Prometheus
// registry. Passing nil creates a private registry, which tests use to
// stay isolated from the process-global default.
func NewRecorder(registry *prometheus.Registry) (*Recorder, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	meter := meterProvider.Meter(
		"webhook-gateway",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	r := &Recorder{
		meterProvider: meterProvider,
		registry:      registry,
		meter:         meter,
	}

	if err := r.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return r, nil
}

// registerInstruments creates all metric instruments
func (r *Recorder) registerInstruments() error {
	var err error

	r.requestsTotal, err = r.meter.Int64Counter(
		"webhook.requests",
		metric.WithDescription("Webhook deliveries processed, by provider and disposition"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return fmt.Errorf("creating requests counter: %w", err)
	}

	r.rejectionsTotal, err = r.meter.Int64Counter(
		"webhook.rejections",
		metric.WithDescription("Webhook deliveries rejected, by provider and rejection code"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return fmt.Errorf("creating rejections counter: %w", err)
	}

	r.duplicatesTotal, err = r.meter.Int64Counter(
		"webhook.duplicates",
		metric.WithDescription("Webhook deliveries acknowledged as duplicates"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return fmt.Errorf("creating duplicates counter: %w", err)
	}

	r.handlerFailures, err = r.meter.Int64Counter(
		"webhook.handler.failures",
		metric.WithDescription("Handler invocations that returned an error after the event was claimed"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return fmt.Errorf("creating handler failures counter: %w", err)
	}

	r.rateLimitHits, err = r.meter.Int64Counter(
		"webhook.ratelimit.hits",
		metric.WithDescription("Deliveries denied by the per-source rate limit"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return fmt.Errorf("creating rate limit counter: %w", err)
	}

	r.pipelineDuration, err = r.meter.Float64Histogram(
		"webhook.pipeline.duration",
		metric.WithDescription("End-to-end pipeline processing duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating pipeline duration histogram: %w", err)
	}

	return nil
}

// RequestProcessed records one completed pipeline run.
func (r *Recorder) RequestProcessed(ctx context.Context, provider, disposition string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("webhook.provider", provider),
		attribute.String("webhook.disposition", disposition),
	)
	r.requestsTotal.Add(ctx, 1, attrs)
	r.pipelineDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("webhook.provider", provider),
	))
}

// RequestRejected records a terminal rejection by code.
func (r *Recorder) RequestRejected(ctx context.Context, provider, code string) {
	r.rejectionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("webhook.provider", provider),
		attribute.String("webhook.rejection_code", code),
	))
}

// DuplicateDetected records a delivery short-circuited by the dedup claim.
func (r *Recorder) DuplicateDetected(ctx context.Context, provider, eventType string) {
	r.duplicatesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("webhook.provider", provider),
		attribute.String("webhook.event_type", eventType),
	))
}

// HandlerFailed records a handler error on an already-claimed event.
func (r *Recorder) HandlerFailed(ctx context.Context, provider, eventType string) {
	r.handlerFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("webhook.provider", provider),
		attribute.String("webhook.event_type", eventType),
	))
}

// RateLimited records a delivery denied by the source throttle.
func (r *Recorder) RateLimited(ctx context.Context, provider string) {
	r.rateLimitHits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("webhook.provider", provider),
	))
}

// Handler serves the recorder's registry in Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r.meterProvider != nil {
		return r.meterProvider.Shutdown(ctx)
	}
	return nil
}
