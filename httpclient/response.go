package httpclient

import (
	"net/url"

	json "github.com/goccy/go-json"

	"github.com/kroma-labs/courier-go/httpwire"
)

// Response is one fully received HTTP response.
type Response struct {
	// Proto is the protocol version from the status line, e.g. "HTTP/1.1".
	Proto string

	// Status is the numeric status code.
	Status int

	// Reason is the status line reason phrase, possibly empty.
	Reason string

	// Headers holds the response headers with multi-valued set-cookie and
	// www-authenticate preserved in arrival order.
	Headers *Headers

	// Body is the materialized, already-decoded body.
	Body []byte

	// Request points back at the request that produced this response, after
	// any redirect rewrites.
	Request *Request

	// Redirects lists the URIs visited before the final hop, in visitation
	// order. Nil when the response was not redirected.
	Redirects []*url.URL
}

// newResponse converts a framed wire message into a Response bound to its
// originating request.
func newResponse(msg *httpwire.Message, req *Request) *Response {
	headers := NewHeaders()
	for _, h := range msg.Headers {
		headers.Set(h.Key, h.Value)
	}
	return &Response{
		Proto:   msg.Proto,
		Status:  msg.Status,
		Reason:  msg.Reason,
		Headers: headers,
		Body:    msg.Body,
		Request: req,
	}
}

// Header returns the first value of the named header, or "".
func (r *Response) Header(key string) string {
	v, _ := r.Headers.Get(key)
	return v
}

// String returns the body as a string.
func (r *Response) String() string { return string(r.Body) }

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return NewInvalidResponseError("decode json body", err)
	}
	return nil
}

// IsSuccess reports whether the status is 2xx.
func (r *Response) IsSuccess() bool { return r.Status >= 200 && r.Status < 300 }

// IsRedirect reports whether the status is 3xx.
func (r *Response) IsRedirect() bool { return r.Status >= 300 && r.Status < 400 }

// Location resolves the Location header against the request URL. ok is
// false when the header is absent.
func (r *Response) Location() (*url.URL, bool, error) {
	loc, ok := r.Headers.Get("location")
	if !ok {
		return nil, false, nil
	}
	u, err := r.Request.URL.Parse(loc)
	if err != nil {
		return nil, true, NewInvalidResponseError("unparseable location header: "+loc, err)
	}
	return u, true, nil
}
