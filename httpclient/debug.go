package httpclient

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// logRequest emits one debug line per outgoing exchange. Each request gets
// a generated id so its request, response and retry lines correlate.
func (c *Client) logRequest(req *Request, rawSize int) {
	if !c.cfg.debug {
		return
	}
	c.cfg.logger.Debug().
		Str("request_id", requestID(req)).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("wire_bytes", rawSize).
		Msg("http request")
}

func (c *Client) logResponse(req *Request, resp *Response, elapsed time.Duration) {
	if !c.cfg.debug {
		return
	}
	c.cfg.logger.Debug().
		Str("request_id", requestID(req)).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.Status).
		Int("body_bytes", len(resp.Body)).
		Dur("elapsed", elapsed).
		Msg("http response")
}

func (c *Client) logError(req *Request, elapsed time.Duration, err error) {
	if !c.cfg.debug {
		return
	}
	c.cfg.logger.Debug().
		Str("request_id", requestID(req)).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Dur("elapsed", elapsed).
		Err(err).
		Msg("http request failed")
}

func (c *Client) logRetry(req *Request, attempt int, lastErr error) {
	if !c.cfg.debug {
		return
	}
	c.cfg.logger.Debug().
		Str("request_id", requestID(req)).
		Str("url", req.URL.String()).
		Int("attempt", attempt).
		Err(lastErr).
		Msg("http retry")
}

func (c *Client) logRedirect(req *Request, status int, target *url.URL) {
	if !c.cfg.debug {
		return
	}
	c.cfg.logger.Debug().
		Str("request_id", requestID(req)).
		Int("status", status).
		Str("location", target.String()).
		Msg("http redirect")
}

// requestID returns the stable debug id for a request, assigning one on
// first use.
func requestID(req *Request) string {
	if req.debugID == "" {
		req.debugID = uuid.NewString()
	}
	return req.debugID
}
