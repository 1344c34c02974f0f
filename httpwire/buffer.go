package httpwire

import (
	"bytes"
	"strconv"
)

var (
	crlf            = []byte("\r\n")
	headerSeparator = []byte("\r\n\r\n")
	chunkTerminator = []byte("0\r\n\r\n")
)

// strategy selects how the message body is terminated. It is chosen exactly
// once per message, when the header block completes.
type strategy int

const (
	// strategyUnknown means the header block has not completed yet.
	strategyUnknown strategy = iota

	// strategyContentLength frames the body by a declared byte count.
	strategyContentLength

	// strategyChunked frames the body by chunked transfer-encoding.
	//
	// This is also the fallback whenever Content-Length is absent, even if
	// the response never declared Transfer-Encoding: chunked. A
	// connection-close-terminated HTTP/1.0 style body would therefore never
	// verify; callers own the timeout that fails such requests.
	strategyChunked
)

// Buffer is an incremental HTTP/1.1 response decoder.
//
// Bytes are appended with Feed in arbitrary fragment sizes. The Buffer
// accumulates input until the header separator is seen, picks a framing
// strategy from the headers, and then advances that strategy until the whole
// message is verified. Feeding more data after verification is a no-op.
//
// A Buffer frames exactly one message; a fresh Buffer is needed per response.
// The zero value is ready to use.
type Buffer struct {
	// pending holds received bytes not yet validated against the framing
	// strategy.
	pending []byte

	// validated holds bytes confirmed to be part of the message: the status
	// line and header block first, then body bytes as framing admits them.
	validated []byte

	// headerEnd is the offset in validated one past the header separator,
	// or 0 while still accumulating headers.
	headerEnd int

	// scanned is the length of pending already searched for the header
	// separator. Each Feed resumes the search just before it instead of
	// rescanning the whole accumulated prefix.
	scanned int

	strategy strategy

	// remaining is the declared Content-Length not yet moved to validated.
	remaining int

	// copyN and discardN drive the chunked strategy: bytes of chunk data
	// still to move to validated, and framing bytes (the CRLF after each
	// chunk) still to drop.
	copyN    int
	discardN int

	verified bool
}

// NewBuffer returns an empty Buffer in the accumulating-headers state.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Feed appends chunk to the buffer and advances the decoder as far as the
// buffered bytes allow. It returns true once the full message is verified.
func (b *Buffer) Feed(chunk []byte) bool {
	if b.verified {
		return true
	}
	b.pending = append(b.pending, chunk...)

	if b.headerEnd == 0 {
		// Back up far enough to catch a separator split across fragments.
		start := b.scanned - (len(headerSeparator) - 1)
		if start < 0 {
			start = 0
		}
		sep := bytes.Index(b.pending[start:], headerSeparator)
		if sep < 0 {
			b.scanned = len(b.pending)
			return false
		}
		boundary := start + sep + len(headerSeparator)
		b.validated = append(b.validated, b.pending[:boundary]...)
		b.pending = b.pending[boundary:]
		b.headerEnd = boundary
		b.strategy = chooseStrategy(b.validated[:b.headerEnd], &b.remaining)
	}

	switch b.strategy {
	case strategyContentLength:
		b.advanceContentLength()
	case strategyChunked:
		b.advanceChunked()
	}
	return b.verified
}

// Done reports whether the full message has been verified.
func (b *Buffer) Done() bool { return b.verified }

// Bytes returns the validated message bytes: status line, header block and,
// once Done, the de-chunked body. The slice aliases internal storage.
func (b *Buffer) Bytes() []byte { return b.validated }

// HeaderEnd returns the offset in Bytes one past the blank line terminating
// the header block, or 0 if headers are still incomplete.
func (b *Buffer) HeaderEnd() int { return b.headerEnd }

// chooseStrategy inspects a completed header block and picks the framing
// strategy. A parseable non-negative Content-Length selects fixed-length
// framing and stores the target in *remaining; anything else falls back to
// chunked.
func chooseStrategy(headerBlock []byte, remaining *int) strategy {
	if n, ok := contentLength(headerBlock); ok {
		*remaining = n
		return strategyContentLength
	}
	return strategyChunked
}

// contentLength scans the header block for a Content-Length header and
// returns its value. Header names are matched case-insensitively; a value
// that does not parse as a non-negative integer counts as absent.
func contentLength(headerBlock []byte) (int, bool) {
	for _, line := range bytes.Split(headerBlock, crlf)[1:] {
		if len(line) == 0 {
			break
		}
		key, value, found := bytes.Cut(line, []byte(":"))
		if !found || !bytes.EqualFold(bytes.TrimSpace(key), []byte("content-length")) {
			continue
		}
		n, err := strconv.Atoi(string(bytes.TrimSpace(value)))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// advanceContentLength verifies the message once the declared byte count is
// buffered. Surplus bytes beyond the declared length belong to no valid
// single-response framing and are discarded.
func (b *Buffer) advanceContentLength() {
	if len(b.pending) < b.remaining {
		return
	}
	b.validated = append(b.validated, b.pending[:b.remaining]...)
	b.pending = nil
	b.remaining = 0
	b.verified = true
}

// advanceChunked runs the chunked decoder as far as buffered bytes allow.
// The loop alternates between three obligations: copying declared chunk data
// into the validated region, discarding the CRLF that trails each chunk, and
// parsing the next chunk-size line.
func (b *Buffer) advanceChunked() {
	for {
		if b.copyN > 0 {
			if len(b.pending) < b.copyN {
				return
			}
			b.validated = append(b.validated, b.pending[:b.copyN]...)
			b.pending = b.pending[b.copyN:]
			b.copyN = 0
			b.discardN = len(crlf)
			continue
		}
		if b.discardN > 0 {
			if len(b.pending) < b.discardN {
				return
			}
			b.pending = b.pending[b.discardN:]
			b.discardN = 0
			continue
		}
		if bytes.HasPrefix(b.pending, chunkTerminator) {
			b.pending = nil
			b.verified = true
			return
		}
		size, lineLen, ok := parseChunkSize(b.pending)
		if !ok || size == 0 {
			// Either the size line is still partial, or this is the final
			// chunk and its trailing blank line has not arrived yet.
			return
		}
		b.pending = b.pending[lineLen:]
		b.copyN = size
	}
}

// parseChunkSize reads a chunk-size line from the front of data. It returns
// the declared size and the full length of the line including its CRLF.
// Chunk extensions after ';' are ignored. ok is false when no complete,
// parseable size line is buffered yet.
func parseChunkSize(data []byte) (size, lineLen int, ok bool) {
	end := bytes.Index(data, crlf)
	if end < 0 {
		return 0, 0, false
	}
	field := data[:end]
	if ext := bytes.IndexByte(field, ';'); ext >= 0 {
		field = field[:ext]
	}
	n, err := strconv.ParseInt(string(bytes.TrimSpace(field)), 16, 64)
	if err != nil || n < 0 {
		return 0, 0, false
	}
	return int(n), end + len(crlf), true
}
