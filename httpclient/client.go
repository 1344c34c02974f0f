package httpclient

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Client is the public entry point: it builds requests, drives them through
// the middleware chain and returns responses.
//
//	client := httpclient.New(
//	    httpclient.WithRetryCount(2),
//	    httpclient.WithRedirectCount(5),
//	)
//	defer client.Close()
//
//	resp, err := client.Get(ctx, "https://api.example.com/users",
//	    httpclient.WithQuery("limit", "10"),
//	)
type Client struct {
	cfg     *internalConfig
	pool    *connectionPool
	jar     *Jar
	chain   Stage
	metrics *metrics
	tracer  trace.Tracer
}

// New creates a Client. With no options it uses persistent connections, a
// client-owned caching resolver, the default stage order (Retry, Redirect,
// Decode, Send) and no retries.
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	c := &Client{
		cfg:     cfg,
		jar:     cfg.jar,
		metrics: newMetrics(cfg.meterProvider.Meter(scope)),
		tracer:  cfg.tracerProvider.Tracer(scope),
	}
	c.pool = newConnectionPool(cfg.resolver, cfg.dialer, cfg.tlsOpts.config, cfg.PersistentConnections)
	c.chain = buildChain(c, cfg.stages)
	return c
}

// Do sends an already built request through the middleware chain.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.chain.Process(ctx, req)
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, "GET", url, opts)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, "POST", url, opts)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, "PUT", url, opts)
}

// Patch issues a PATCH request.
func (c *Client) Patch(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, "PATCH", url, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, "DELETE", url, opts)
}

// Options issues an OPTIONS request.
func (c *Client) Options(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, "OPTIONS", url, opts)
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, "HEAD", url, opts)
}

func (c *Client) send(ctx context.Context, method, url string, opts []RequestOption) (*Response, error) {
	req, err := NewRequest(method, url, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Close shuts the client down, closing every pooled connection.
func (c *Client) Close() {
	c.pool.closeAll()
}
