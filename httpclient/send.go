package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// sendStage is the terminal stage: it acquires a connection, writes the
// serialized request, and frames the response. It is the only stage that
// touches the network.
type sendStage struct {
	c *Client
}

func newSendStage(c *Client) *sendStage {
	return &sendStage{c: c}
}

// Process performs one raw request/response exchange.
func (s *sendStage) Process(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = s.c.cfg.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ctx, span := s.c.tracer.Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
			attribute.String("server.address", req.URL.Hostname()),
		),
	)
	defer span.End()

	if s.c.jar != nil {
		s.attachCookies(req)
	}

	start := time.Now()
	s.c.metrics.recordRequestStart(ctx, req)
	defer s.c.metrics.recordRequestEnd(ctx, req)

	transport, err := s.c.pool.acquire(ctx, req.URL)
	if err != nil {
		return nil, s.finish(ctx, span, req, start, nil, err)
	}

	raw := req.Serialize()
	s.c.logRequest(req, len(raw))

	msg, err := transport.RoundTrip(ctx, raw)
	if err != nil {
		transport.Close()
		return nil, s.finish(ctx, span, req, start, nil, err)
	}
	if !s.c.cfg.PersistentConnections {
		transport.Close()
	}

	resp := newResponse(msg, req)
	if s.c.jar != nil {
		s.c.jar.SetFromResponse(req.URL, resp.Headers.Values("set-cookie"))
	}

	return resp, s.finish(ctx, span, req, start, resp, nil)
}

// attachCookies makes the cookie header reflect the current target. The
// caller-supplied cookies always travel; jar cookies are re-derived for
// every hop, so a jar entry matched on a previous host does not linger in
// the header once the target moves where it no longer applies.
func (s *sendStage) attachCookies(req *Request) {
	value := req.userCookies()
	if fromJar := s.c.jar.HeaderValue(req.URL); fromJar != "" {
		if value != "" {
			value += "; " + fromJar
		} else {
			value = fromJar
		}
	}
	if value != "" {
		req.SetHeader("cookie", value)
	} else {
		req.DelHeader("cookie")
	}
}

// finish records metrics, span status and debug logging for the exchange,
// passing err through unchanged.
func (s *sendStage) finish(ctx context.Context, span trace.Span, req *Request, start time.Time, resp *Response, err error) error {
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.c.metrics.recordRequestError(ctx, req, err)
		s.c.logError(req, elapsed, err)
		return err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	if resp.Status >= 500 {
		span.SetStatus(codes.Error, resp.Reason)
	}
	s.c.metrics.recordRequestDuration(ctx, req, resp, elapsed)
	s.c.logResponse(req, resp, elapsed)
	return nil
}
