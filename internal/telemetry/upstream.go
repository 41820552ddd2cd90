package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/domainwatch/domainwatch/internal/telemetry"

// UpstreamMetrics holds metrics for calls against external upstreams: the
// RDAP aggregator, TLD registry servers, and the IANA bootstrap endpoint.
// A nil *UpstreamMetrics is valid and records nothing, so callers can wire
// it optionally.
type UpstreamMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// NewUpstreamMetrics creates metrics for monitoring upstream calls.
func NewUpstreamMetrics() (*UpstreamMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"upstream.request.duration",
		metric.WithDescription("Duration of upstream requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"upstream.request.total",
		metric.WithDescription("Total number of upstream requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"upstream.cache.hit",
		metric.WithDescription("Number of bootstrap cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"upstream.cache.miss",
		metric.WithDescription("Number of bootstrap cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &UpstreamMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}, nil
}

// RecordRequest records one upstream request.
func (m *UpstreamMetrics) RecordRequest(upstream, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("upstream.name", upstream),
		attribute.String("upstream.operation", operation),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Use background context for metrics to avoid context cancellation issues
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit records a bootstrap cache hit.
func (m *UpstreamMetrics) RecordCacheHit(upstream string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("upstream.name", upstream)}
	m.cacheHits.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordCacheMiss records a bootstrap cache miss (a refresh was needed).
func (m *UpstreamMetrics) RecordCacheMiss(upstream string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("upstream.name", upstream)}
	m.cacheMisses.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
