package httpclient

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// Cookie is one parsed Set-Cookie entry.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	Secure   bool
	HttpOnly bool
}

// ParseSetCookie parses a Set-Cookie header value. host is the responding
// host, used as the default domain when the attribute is absent. ok is
// false for values with no name=value pair.
func ParseSetCookie(raw, host string) (*Cookie, bool) {
	parts := strings.Split(raw, ";")
	name, value, found := strings.Cut(strings.TrimSpace(parts[0]), "=")
	if !found || name == "" {
		return nil, false
	}
	c := &Cookie{
		Name:   name,
		Value:  value,
		Domain: host,
		Path:   "/",
	}
	for _, part := range parts[1:] {
		attr, av, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch strings.ToLower(attr) {
		case "domain":
			c.Domain = strings.TrimPrefix(strings.ToLower(av), ".")
		case "path":
			if av != "" {
				c.Path = av
			}
		case "expires":
			if t, err := time.Parse(time.RFC1123, av); err == nil {
				c.Expires = t
			}
		case "max-age":
			// Max-Age wins over Expires when both are present; a later
			// Expires attribute would overwrite, matching lenient parsers.
			if d, err := time.ParseDuration(av + "s"); err == nil {
				c.Expires = time.Now().Add(d)
			}
		case "secure":
			c.Secure = true
		case "httponly":
			c.HttpOnly = true
		}
	}
	return c, true
}

// matches reports whether the cookie should be sent to u, checking domain
// suffix, path prefix, the secure flag and expiry.
func (c *Cookie) matches(u *url.URL, now time.Time) bool {
	host := strings.ToLower(u.Hostname())
	if host != c.Domain && !strings.HasSuffix(host, "."+c.Domain) {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, c.Path) {
		return false
	}
	if c.Secure && u.Scheme != "https" {
		return false
	}
	if !c.Expires.IsZero() && now.After(c.Expires) {
		return false
	}
	return true
}

// Jar is a minimal cookie store with host/path/secure matching. It does not
// implement the full RFC 6265 security model.
type Jar struct {
	mu      sync.Mutex
	cookies []*Cookie
}

// NewJar returns an empty jar.
func NewJar() *Jar {
	return &Jar{}
}

// SetFromResponse records every parseable Set-Cookie value from a response
// served by u's host. A cookie with the same name, domain and path replaces
// the previous entry.
func (j *Jar) SetFromResponse(u *url.URL, setCookies []string) {
	host := strings.ToLower(u.Hostname())
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, raw := range setCookies {
		c, ok := ParseSetCookie(raw, host)
		if !ok {
			continue
		}
		replaced := false
		for i, existing := range j.cookies {
			if existing.Name == c.Name && existing.Domain == c.Domain && existing.Path == c.Path {
				j.cookies[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			j.cookies = append(j.cookies, c)
		}
	}
}

// CookiesFor returns the cookies that match u, in insertion order.
func (j *Jar) CookiesFor(u *url.URL) []*Cookie {
	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*Cookie
	for _, c := range j.cookies {
		if c.matches(u, now) {
			out = append(out, c)
		}
	}
	return out
}

// HeaderValue renders the matching cookies as a Cookie header value, or ""
// when none match.
func (j *Jar) HeaderValue(u *url.URL) string {
	cookies := j.CookiesFor(u)
	if len(cookies) == 0 {
		return ""
	}
	pairs := make([]string, len(cookies))
	for i, c := range cookies {
		pairs[i] = c.Name + "=" + c.Value
	}
	return strings.Join(pairs, "; ")
}
