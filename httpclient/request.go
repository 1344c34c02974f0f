package httpclient

import (
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kroma-labs/courier-go/httpwire"
)

// Request is one HTTP request under construction or in flight.
//
// The serialized wire form is cached after the first Serialize call and
// invalidated by every mutation, so redirect rewrites and header changes
// are always reflected in what goes on the socket.
type Request struct {
	// Method is the HTTP method, upper case.
	Method string

	// URL is the parsed target.
	URL *url.URL

	// Headers holds the request headers. The Host header is derived from
	// URL at serialization time and must not be set here.
	Headers *Headers

	// Body is the raw request body, nil when absent.
	Body []byte

	// Timeout bounds the whole request. Zero means the client default.
	Timeout time.Duration

	bodySet bool
	raw     []byte
	debugID string

	// cookieBase is the caller-supplied cookie header, captured before the
	// jar first contributes to the request. Jar values are re-derived per
	// hop on top of it so a cookie stored for one host never rides along
	// to another.
	cookieBase    string
	cookieBaseSet bool
}

// RequestOption mutates a request at build time.
type RequestOption func(*Request) error

// NewRequest builds a request from a method, an absolute URL and options.
// Conflicting options (two body kinds) surface as a configuration error.
func NewRequest(method, rawURL string, opts ...RequestOption) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewConfigurationError("invalid url: " + rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, NewConfigurationError("unsupported scheme: " + u.Scheme)
	}
	req := &Request{
		Method:  method,
		URL:     u,
		Headers: NewHeaders(),
	}
	for _, opt := range opts {
		if err := opt(req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) error {
		r.Headers.Set(key, value)
		return nil
	}
}

// WithQuery adds a query parameter to the target URL.
func WithQuery(key, value string) RequestOption {
	return func(r *Request) error {
		q := r.URL.Query()
		q.Set(key, value)
		r.URL.RawQuery = q.Encode()
		return nil
	}
}

// WithTimeout bounds the request, overriding the client default.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *Request) error {
		r.Timeout = d
		return nil
	}
}

// WithBody attaches a raw body with the given content type. Mutually
// exclusive with WithJSON and WithForm.
func WithBody(contentType string, body []byte) RequestOption {
	return func(r *Request) error {
		return r.setBody(contentType, body)
	}
}

// WithJSON marshals v and attaches it as an application/json body.
// Mutually exclusive with WithBody and WithForm.
func WithJSON(v any) RequestOption {
	return func(r *Request) error {
		body, err := json.Marshal(v)
		if err != nil {
			return NewConfigurationError("json body: " + err.Error())
		}
		return r.setBody("application/json", body)
	}
}

// WithForm attaches url-encoded form values as the body. Mutually exclusive
// with WithBody and WithJSON.
func WithForm(form url.Values) RequestOption {
	return func(r *Request) error {
		return r.setBody("application/x-www-form-urlencoded", []byte(form.Encode()))
	}
}

// WithBasicAuth attaches an Authorization header with basic credentials.
func WithBasicAuth(username, password string) RequestOption {
	return func(r *Request) error {
		r.Headers.Set("authorization", BasicAuthHeader(username, password))
		return nil
	}
}

// WithCookie attaches one cookie pair to the request's cookie header.
func WithCookie(name, value string) RequestOption {
	return func(r *Request) error {
		pair := name + "=" + value
		if existing, ok := r.Headers.Get("cookie"); ok && existing != "" {
			pair = existing + "; " + pair
		}
		r.Headers.Set("cookie", pair)
		return nil
	}
}

func (r *Request) setBody(contentType string, body []byte) error {
	if r.bodySet {
		return NewConfigurationError("request body supplied more than once")
	}
	r.bodySet = true
	r.Body = body
	r.Headers.Set("content-type", contentType)
	r.Headers.Set("content-length", strconv.Itoa(len(body)))
	r.raw = nil
	return nil
}

// SetHeader mutates a header after construction and invalidates the cached
// serialization.
func (r *Request) SetHeader(key, value string) {
	r.Headers.Set(key, value)
	r.raw = nil
}

// DelHeader removes a header after construction and invalidates the cached
// serialization.
func (r *Request) DelHeader(key string) {
	r.Headers.Del(key)
	r.raw = nil
}

// SetURL rewrites the target, used when following redirects.
func (r *Request) SetURL(u *url.URL) {
	r.URL = u
	r.raw = nil
}

// userCookies returns the caller-supplied cookie header, capturing it on
// first use so later jar contributions are not mistaken for it.
func (r *Request) userCookies() string {
	if !r.cookieBaseSet {
		r.cookieBase, _ = r.Headers.Get("cookie")
		r.cookieBaseSet = true
	}
	return r.cookieBase
}

// dropUserCookies forgets the captured caller cookies so the next hop
// starts without them.
func (r *Request) dropUserCookies() {
	r.cookieBase = ""
	r.cookieBaseSet = true
}

// Destination returns the connection-pool and DNS cache key: the URL host,
// including an explicit port when present.
func (r *Request) Destination() string { return r.URL.Host }

// target returns the request-line target: path plus optional query.
func (r *Request) target() string {
	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	return path
}

// Serialize returns the wire form of the request, computing it on first use
// and reusing the cached bytes until the next mutation.
func (r *Request) Serialize() []byte {
	if r.raw == nil {
		r.raw = httpwire.WriteRequest(r.Method, r.target(), r.URL.Host, r.Headers.Items(), r.Body)
	}
	return r.raw
}
