package httpclient

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the OpenTelemetry instruments for client operations.
// Instrument creation failures degrade to no-op instruments rather than
// failing client construction.
type metrics struct {
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	retryAttempts   metric.Int64Counter
	redirectsTotal  metric.Int64Counter
}

func newMetrics(meter metric.Meter) *metrics {
	m := &metrics{}
	m.requestDuration, _ = meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
		),
	)
	m.requestErrors, _ = meter.Int64Counter(
		"http.client.request.errors",
		metric.WithDescription("HTTP client request errors by kind"),
	)
	m.activeRequests, _ = meter.Int64UpDownCounter(
		"http.client.active_requests",
		metric.WithDescription("In-flight HTTP client requests"),
	)
	m.retryAttempts, _ = meter.Int64Counter(
		"http.client.retry.attempts",
		metric.WithDescription("Retry attempts issued by the retry stage"),
	)
	m.redirectsTotal, _ = meter.Int64Counter(
		"http.client.redirects",
		metric.WithDescription("Redirect hops followed"),
	)
	return m
}

func requestAttributes(req *Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("http.request.method", req.Method),
		attribute.String("server.address", req.URL.Hostname()),
	}
}

func (m *metrics) recordRequestStart(ctx context.Context, req *Request) {
	if m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, 1, metric.WithAttributes(requestAttributes(req)...))
}

func (m *metrics) recordRequestEnd(ctx context.Context, req *Request) {
	if m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, -1, metric.WithAttributes(requestAttributes(req)...))
}

func (m *metrics) recordRequestDuration(ctx context.Context, req *Request, resp *Response, elapsed time.Duration) {
	if m.requestDuration == nil {
		return
	}
	attrs := append(requestAttributes(req),
		attribute.Int("http.response.status_code", resp.Status))
	m.requestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordRequestError(ctx context.Context, req *Request, err error) {
	if m.requestErrors == nil {
		return
	}
	kind := "unknown"
	var e *Error
	if errors.As(err, &e) {
		kind = e.Kind.String()
	}
	attrs := append(requestAttributes(req), attribute.String("error.kind", kind))
	m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordRetry(ctx context.Context, req *Request, attempt int) {
	if m.retryAttempts == nil {
		return
	}
	attrs := append(requestAttributes(req), attribute.Int("retry.attempt", attempt))
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordRedirect(ctx context.Context, req *Request) {
	if m.redirectsTotal == nil {
		return
	}
	m.redirectsTotal.Add(ctx, 1, metric.WithAttributes(requestAttributes(req)...))
}
