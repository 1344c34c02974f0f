// Package httpclient is a raw HTTP/1.1 client built on its own wire
// framing rather than net/http: requests are serialized byte-for-byte,
// sent over pooled TCP/TLS connections, and responses are decoded
// incrementally by the httpwire framing engine.
//
// # Architecture
//
// Every request flows through an ordered middleware chain wrapped around a
// single terminal send stage:
//
//	Retry → Redirect → Decode → Send
//
// Send is the only stage that performs I/O: it leases a connection from the
// per-destination pool, writes the serialized request and frames the
// response. Decode strips content encodings per hop, Redirect follows 3xx
// chains within a hop budget, and Retry re-runs the whole sequence on
// errors. Optional stages (AuthStage, RateLimitStage, BreakerStage) slot
// into the same chain.
//
// # Quick Start
//
//	client := httpclient.New(
//	    httpclient.WithRetryCount(2),
//	    httpclient.WithCookieJar(httpclient.NewJar()),
//	)
//	defer client.Close()
//
//	resp, err := client.Post(ctx, "https://api.example.com/users",
//	    httpclient.WithJSON(map[string]string{"name": "kroma"}),
//	)
//	if err != nil {
//	    return err
//	}
//	var created User
//	if err := resp.JSON(&created); err != nil {
//	    return err
//	}
//
// # Errors
//
// Failures carry a Kind (usage, connection, timeout, invalid_response,
// configuration) so callers can branch with IsTimeout, IsConnectionError
// and friends. Retries never change error identity: after the budget is
// exhausted the last underlying error is returned unchanged.
//
// # Observability
//
// The client records OpenTelemetry spans and metrics for every exchange,
// exposes pool state via PoolCollector for Prometheus scrapes, and logs
// per-request debug lines through zerolog when WithDebug is set.
package httpclient
