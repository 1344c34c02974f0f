package httpwire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedStatusLine is returned when the first line of a response
	// does not match "HTTP/<digit>.<digit> <3-digit status> <reason>".
	ErrMalformedStatusLine = errors.New("httpwire: malformed status line")

	// ErrMalformedHeader is returned when a header line has no colon.
	ErrMalformedHeader = errors.New("httpwire: malformed header line")
)

// Header is one raw response header line, split at the first colon with
// surrounding whitespace trimmed from the value. Keys keep their wire casing;
// callers that need case-insensitive lookup normalize on their side.
type Header struct {
	Key   string
	Value string
}

// Message is a fully framed HTTP/1.1 response.
type Message struct {
	Proto   string // e.g. "HTTP/1.1"
	Status  int
	Reason  string
	Headers []Header
	Body    []byte
}

// ParseResponse parses the validated bytes of a verified Buffer. raw must
// contain the status line and header block in its first headerEnd bytes;
// everything after is taken as the body.
func ParseResponse(raw []byte, headerEnd int) (*Message, error) {
	if headerEnd < len(headerSeparator) || headerEnd > len(raw) {
		return nil, ErrMalformedStatusLine
	}
	block := raw[:headerEnd-len(headerSeparator)]

	statusLine, rest, _ := bytes.Cut(block, crlf)
	proto, status, reason, err := ParseStatusLine(string(statusLine))
	if err != nil {
		return nil, err
	}

	headers, err := ParseHeaderBlock(rest)
	if err != nil {
		return nil, err
	}

	return &Message{
		Proto:   proto,
		Status:  status,
		Reason:  reason,
		Headers: headers,
		Body:    raw[headerEnd:],
	}, nil
}

// ParseStatusLine parses "HTTP/x.y NNN reason". The reason phrase may be
// empty; the protocol version must be literal single digits.
func ParseStatusLine(line string) (proto string, status int, reason string, err error) {
	proto, rest, found := strings.Cut(line, " ")
	if !found || !validProto(proto) {
		return "", 0, "", fmt.Errorf("%w: %q", ErrMalformedStatusLine, line)
	}
	code, reason, _ := strings.Cut(rest, " ")
	if len(code) != 3 {
		return "", 0, "", fmt.Errorf("%w: %q", ErrMalformedStatusLine, line)
	}
	status, convErr := strconv.Atoi(code)
	if convErr != nil || status < 100 {
		return "", 0, "", fmt.Errorf("%w: %q", ErrMalformedStatusLine, line)
	}
	return proto, status, reason, nil
}

func validProto(proto string) bool {
	return len(proto) == 8 &&
		proto[:5] == "HTTP/" &&
		proto[5] >= '0' && proto[5] <= '9' &&
		proto[6] == '.' &&
		proto[7] >= '0' && proto[7] <= '9'
}

// ParseHeaderBlock parses CRLF-separated "key: value" lines. Values have
// surrounding whitespace trimmed; empty trailing lines are ignored.
func ParseHeaderBlock(block []byte) ([]Header, error) {
	var headers []Header
	for _, line := range bytes.Split(block, crlf) {
		if len(line) == 0 {
			continue
		}
		key, value, found := bytes.Cut(line, []byte(":"))
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		headers = append(headers, Header{
			Key:   string(key),
			Value: string(bytes.TrimSpace(value)),
		})
	}
	return headers, nil
}
