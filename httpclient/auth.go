package httpclient

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
)

// Credentials holds a username/password pair for basic or digest
// authentication.
type Credentials struct {
	Username string
	Password string
}

// BasicAuthHeader renders an Authorization header value with basic
// credentials.
func BasicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// DigestChallenge is a parsed WWW-Authenticate digest challenge.
type DigestChallenge struct {
	Realm     string
	Nonce     string
	Opaque    string
	Algorithm string // "MD5" (default) or "MD5-sess"
	QOP       string // "" or "auth"
}

// ParseDigestChallenge parses a WWW-Authenticate header value. ok is false
// when the value is not a Digest challenge.
func ParseDigestChallenge(raw string) (*DigestChallenge, bool) {
	scheme, params, found := strings.Cut(strings.TrimSpace(raw), " ")
	if !found || !strings.EqualFold(scheme, "Digest") {
		return nil, false
	}
	ch := &DigestChallenge{Algorithm: "MD5"}
	for _, part := range splitChallengeParams(params) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "realm":
			ch.Realm = value
		case "nonce":
			ch.Nonce = value
		case "opaque":
			ch.Opaque = value
		case "algorithm":
			ch.Algorithm = value
		case "qop":
			// Advertised as a list; we support auth only.
			for _, qop := range strings.Split(value, ",") {
				if strings.TrimSpace(qop) == "auth" {
					ch.QOP = "auth"
				}
			}
		}
	}
	if ch.Nonce == "" {
		return nil, false
	}
	return ch, true
}

// splitChallengeParams splits on commas outside quoted strings.
func splitChallengeParams(s string) []string {
	var parts []string
	var b strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		parts = append(parts, strings.TrimSpace(b.String()))
	}
	return parts
}

// Authorization computes the Authorization header answering the challenge
// for one request. nc is the nonce use count, starting at 1.
func (ch *DigestChallenge) Authorization(method, uri string, creds Credentials, nc int, cnonce string) string {
	ha1 := md5hex(creds.Username + ":" + ch.Realm + ":" + creds.Password)
	if strings.EqualFold(ch.Algorithm, "MD5-sess") {
		ha1 = md5hex(ha1 + ":" + ch.Nonce + ":" + cnonce)
	}
	ha2 := md5hex(method + ":" + uri)

	var response string
	if ch.QOP == "auth" {
		response = md5hex(fmt.Sprintf("%s:%s:%08x:%s:%s:%s", ha1, ch.Nonce, nc, cnonce, ch.QOP, ha2))
	} else {
		response = md5hex(ha1 + ":" + ch.Nonce + ":" + ha2)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username=%q, realm=%q, nonce=%q, uri=%q, response=%q`,
		creds.Username, ch.Realm, ch.Nonce, uri, response)
	if ch.Opaque != "" {
		fmt.Fprintf(&b, `, opaque=%q`, ch.Opaque)
	}
	if ch.QOP == "auth" {
		fmt.Fprintf(&b, `, qop=auth, nc=%08x, cnonce=%q`, nc, cnonce)
	}
	if ch.Algorithm != "" {
		fmt.Fprintf(&b, `, algorithm=%s`, ch.Algorithm)
	}
	return b.String()
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newCnonce() string {
	var buf [8]byte
	rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}

// AuthStage returns a stage that answers 401 challenges with the given
// credentials. It delegates inward once; on a 401 carrying a digest
// challenge it computes the digest response, and on a basic challenge it
// attaches basic credentials, then re-delegates a single time. Anything
// else is returned untouched.
//
// The stage sits between Decode and the terminal send by default so each
// redirect hop can answer its own challenge.
func AuthStage(creds Credentials) StageConstructor {
	var nonceCount atomic.Int64
	return func(next Stage, c *Client) Stage {
		return StageFunc(func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next.Process(ctx, req)
			if err != nil || resp.Status != 401 {
				return resp, err
			}
			if _, ok := req.Headers.Get("authorization"); ok {
				// Already answered once; a second 401 means bad credentials.
				return resp, nil
			}

			for _, challenge := range resp.Headers.Values("www-authenticate") {
				if ch, ok := ParseDigestChallenge(challenge); ok {
					nc := int(nonceCount.Add(1))
					header := ch.Authorization(req.Method, req.target(), creds, nc, newCnonce())
					req.SetHeader("authorization", header)
					return next.Process(ctx, req)
				}
				if strings.HasPrefix(strings.ToLower(strings.TrimSpace(challenge)), "basic") {
					req.SetHeader("authorization", BasicAuthHeader(creds.Username, creds.Password))
					return next.Process(ctx, req)
				}
			}
			return resp, nil
		})
	}
}
