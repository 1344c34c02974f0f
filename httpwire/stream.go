package httpwire

import "errors"

// ErrNotChunked is returned when a streaming decode is requested for a
// response that is framed by Content-Length. Streaming is supported for
// chunked bodies only; fixed-length responses must use the buffered path.
var ErrNotChunked = errors.New("httpwire: streaming requires a chunked response")

// StreamBuffer wraps the Buffer state machine for consumers that want body
// bytes as they are validated instead of after full verification.
//
// Usage mirrors Buffer: call Feed with socket fragments. Once HeadersDone
// reports true the header block is available via HeaderBytes, and each
// subsequent TakeBody call drains whatever body bytes have been validated
// since the previous call. The header bytes are never included in TakeBody
// output.
type StreamBuffer struct {
	buf Buffer

	// taken is the offset in buf.validated already handed to the consumer,
	// starting at the header boundary once headers complete.
	taken int
}

// NewStreamBuffer returns an empty StreamBuffer.
func NewStreamBuffer() *StreamBuffer {
	return &StreamBuffer{}
}

// Feed appends chunk and advances the decoder. It returns ErrNotChunked as
// soon as the header block completes with a Content-Length framing; any
// other outcome is nil.
func (s *StreamBuffer) Feed(chunk []byte) error {
	s.buf.Feed(chunk)
	if s.buf.headerEnd != 0 && s.buf.strategy == strategyContentLength {
		return ErrNotChunked
	}
	return nil
}

// HeadersDone reports whether the status line and header block are complete.
func (s *StreamBuffer) HeadersDone() bool { return s.buf.headerEnd != 0 }

// HeaderBytes returns the status line and header block, including the
// terminating blank line. Valid only once HeadersDone reports true.
func (s *StreamBuffer) HeaderBytes() []byte {
	return s.buf.validated[:s.buf.headerEnd]
}

// TakeBody returns body bytes validated since the last call, or nil when
// nothing new is available. The first call after header completion starts
// at the body boundary, so header bytes never leak into the stream.
func (s *StreamBuffer) TakeBody() []byte {
	if s.buf.headerEnd == 0 {
		return nil
	}
	if s.taken < s.buf.headerEnd {
		s.taken = s.buf.headerEnd
	}
	if s.taken >= len(s.buf.validated) {
		return nil
	}
	out := s.buf.validated[s.taken:]
	s.taken = len(s.buf.validated)
	return out
}

// Done reports whether the terminal chunk has been decoded.
func (s *StreamBuffer) Done() bool { return s.buf.verified }
