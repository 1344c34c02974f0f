package httpwire

import "bytes"

// WriteRequest serializes one HTTP/1.1 request.
//
// The layout is:
//
//	METHOD SP target SP HTTP/1.1 CRLF
//	host:  <host> CRLF
//	<key>:  <value> CRLF ...
//	CRLF
//	body
//
// Header lines carry two spaces after the colon. That is wider than the
// single optional space RFC 7230 suggests, but servers tolerate it and the
// format is kept for compatibility with existing peers of this client.
// The host line is always emitted first and callers must not pass their own
// Host header. The body is appended raw, with no trailing CRLF of its own.
func WriteRequest(method, target, host string, headers []Header, body []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(64 + len(body))

	buf.WriteString(method)
	buf.WriteByte(' ')
	buf.WriteString(target)
	buf.WriteString(" HTTP/1.1\r\n")

	buf.WriteString("host:  ")
	buf.WriteString(host)
	buf.WriteString("\r\n")

	for _, h := range headers {
		buf.WriteString(h.Key)
		buf.WriteString(":  ")
		buf.WriteString(h.Value)
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}
