package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/kroma-labs/courier-go/httpwire"
)

// Dialer opens the raw TCP connection for a Transport. The default is a
// net.Dialer; tests inject their own to avoid real sockets.
type Dialer func(ctx context.Context, network, addr string) (net.Conn, error)

func defaultDialer(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, addr)
}

const readBufferSize = 4 * 1024

// Transport owns exactly one TCP or TLS connection and drives single
// request/response exchanges over it.
//
// A Transport never pipelines: the in-flight guard rejects a second request
// with a usage error while the first is outstanding. The guard is flipped
// before the first byte is written and released when the exchange finishes,
// so the connection pool can tell busy connections from reusable ones.
//
// Retry is not a Transport concern; failures propagate to the middleware
// chain untouched.
type Transport struct {
	dialer Dialer

	conn      net.Conn
	connected bool

	// inFlight serializes use of the connection: set while RoundTrip or
	// RoundTripStream owns the socket.
	inFlight atomic.Bool

	// poolLease marks the Transport as handed out by the pool but not yet
	// exchanging, so the pool never selects it for a second caller between
	// acquire and the first write.
	poolLease atomic.Bool

	// closing latches once the peer is observed shutting the connection
	// down. A closing Transport is never reused.
	closing atomic.Bool
}

// NewTransport creates an unconnected Transport. dialer may be nil for the
// default net.Dialer.
func NewTransport(dialer Dialer) *Transport {
	if dialer == nil {
		dialer = defaultDialer
	}
	return &Transport{dialer: dialer}
}

// Connect opens the socket to addr ("ip:port") and, when tlsCfg is non-nil,
// performs the TLS handshake. One Transport serves one connection: calling
// Connect twice is a usage error.
func (t *Transport) Connect(ctx context.Context, addr string, tlsCfg *tls.Config) error {
	if t.connected {
		return NewUsageError("transport already connected")
	}
	conn, err := t.dialer(ctx, "tcp", addr)
	if err != nil {
		return classifyNetError("dial "+addr, err)
	}
	if tlsCfg != nil {
		tlsConn := tls.Client(conn, tlsCfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return classifyNetError("tls handshake with "+addr, err)
		}
		conn = tlsConn
	}
	t.conn = conn
	t.connected = true
	return nil
}

// RoundTrip writes raw request bytes and reads until the bound message
// buffer verifies a complete response. The response arrives fully framed;
// body decoding is a middleware concern.
func (t *Transport) RoundTrip(ctx context.Context, raw []byte) (*httpwire.Message, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()

	if err := t.applyDeadline(ctx); err != nil {
		return nil, err
	}
	if err := t.writeAll(raw); err != nil {
		return nil, err
	}

	buf := httpwire.NewBuffer()
	chunk := make([]byte, readBufferSize)
	for !buf.Done() {
		n, err := t.conn.Read(chunk)
		if n > 0 {
			buf.Feed(chunk[:n])
		}
		if err != nil {
			if buf.Done() {
				break
			}
			t.observeReadError(err)
			return nil, classifyNetError("read response", err)
		}
	}

	msg, err := httpwire.ParseResponse(buf.Bytes(), buf.HeaderEnd())
	if err != nil {
		return nil, NewInvalidResponseError("frame response", err)
	}
	return msg, nil
}

// RoundTripStream writes raw request bytes, returns the parsed status line
// and headers as soon as they are available, and hands back a BodyStream
// for the chunked body. Fixed-length responses are rejected: streaming is
// deliberately chunked-only, use RoundTrip for Content-Length framing.
//
// The in-flight guard stays held until the stream is exhausted or closed.
func (t *Transport) RoundTripStream(ctx context.Context, raw []byte) (*httpwire.Message, *BodyStream, error) {
	if err := t.acquire(); err != nil {
		return nil, nil, err
	}
	ok := false
	defer func() {
		if !ok {
			t.release()
		}
	}()

	if err := t.applyDeadline(ctx); err != nil {
		return nil, nil, err
	}
	if err := t.writeAll(raw); err != nil {
		return nil, nil, err
	}

	sb := httpwire.NewStreamBuffer()
	chunk := make([]byte, readBufferSize)
	for !sb.HeadersDone() {
		n, err := t.conn.Read(chunk)
		if n > 0 {
			if ferr := sb.Feed(chunk[:n]); ferr != nil {
				return nil, nil, NewUsageError("streaming requires a chunked response")
			}
		}
		if err != nil {
			t.observeReadError(err)
			return nil, nil, classifyNetError("read response headers", err)
		}
	}

	head := sb.HeaderBytes()
	msg, err := httpwire.ParseResponse(head, len(head))
	if err != nil {
		return nil, nil, NewInvalidResponseError("frame response headers", err)
	}

	ok = true
	return msg, &BodyStream{transport: t, buf: sb}, nil
}

// IsClosing reports whether the peer has begun closing the connection. It
// errors if the Transport was never connected. The check probes the socket
// with an immediate read deadline: a timeout means the connection is idle
// and alive, anything else means it is no longer reusable.
func (t *Transport) IsClosing() (bool, error) {
	if !t.connected {
		return false, NewUsageError("transport was never connected")
	}
	if t.closing.Load() {
		return true, nil
	}
	if t.leased() {
		// An in-flight exchange owns the socket; probing would steal bytes.
		return false, nil
	}

	if err := t.conn.SetReadDeadline(time.Now()); err != nil {
		t.closing.Store(true)
		return true, nil
	}
	var probe [1]byte
	n, err := t.conn.Read(probe[:])
	t.conn.SetReadDeadline(time.Time{})

	if n > 0 || err == nil || !isDeadlineError(err) {
		// Stray bytes or EOF on an idle connection both disqualify reuse.
		t.closing.Store(true)
		return true, nil
	}
	return false, nil
}

// Close tears the connection down.
func (t *Transport) Close() error {
	t.closing.Store(true)
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// lease marks the Transport busy on behalf of the pool before the caller
// issues its exchange. It fails when the Transport is already leased out.
func (t *Transport) lease() bool {
	return t.poolLease.CompareAndSwap(false, true)
}

// leased reports whether an exchange or a pool lease currently owns the
// Transport.
func (t *Transport) leased() bool {
	return t.inFlight.Load() || t.poolLease.Load()
}

// acquire takes the in-flight guard for an exchange. A second exchange
// while one is outstanding is a usage error: this Transport does not
// pipeline.
func (t *Transport) acquire() error {
	if !t.connected {
		return NewUsageError("transport is not connected")
	}
	if !t.inFlight.CompareAndSwap(false, true) {
		return NewUsageError("transport already has a request in flight")
	}
	return nil
}

func (t *Transport) release() {
	t.inFlight.Store(false)
	t.poolLease.Store(false)
}

func (t *Transport) applyDeadline(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := t.conn.SetDeadline(deadline); err != nil {
		return NewConnectionError("set deadline", err)
	}
	return nil
}

func (t *Transport) writeAll(raw []byte) error {
	for len(raw) > 0 {
		n, err := t.conn.Write(raw)
		if err != nil {
			t.closing.Store(true)
			return classifyNetError("write request", err)
		}
		raw = raw[n:]
	}
	return nil
}

func (t *Transport) observeReadError(err error) {
	if errors.Is(err, io.EOF) {
		t.closing.Store(true)
	}
}

// BodyStream is the lazy, finite, non-restartable body of a streaming
// exchange. Chunks are yielded as the decoder validates them; Next returns
// io.EOF after the terminal chunk.
type BodyStream struct {
	transport *Transport
	buf       *httpwire.StreamBuffer
	done      bool
}

// Next returns the next validated body segment. It blocks on the socket
// when nothing is buffered and returns io.EOF once the body is complete.
func (s *BodyStream) Next() ([]byte, error) {
	if out := s.buf.TakeBody(); out != nil {
		return out, nil
	}
	if s.buf.Done() {
		s.finish()
		return nil, io.EOF
	}
	if s.done {
		return nil, io.EOF
	}

	chunk := make([]byte, readBufferSize)
	for {
		n, err := s.transport.conn.Read(chunk)
		if n > 0 {
			s.buf.Feed(chunk[:n])
			if out := s.buf.TakeBody(); out != nil {
				return out, nil
			}
			if s.buf.Done() {
				s.finish()
				return nil, io.EOF
			}
		}
		if err != nil {
			s.transport.observeReadError(err)
			s.finish()
			return nil, classifyNetError("read body chunk", err)
		}
	}
}

// Close abandons the stream. The connection cannot be reused afterwards
// unless the body had already been fully consumed.
func (s *BodyStream) Close() error {
	if !s.done {
		if !s.buf.Done() {
			s.transport.closing.Store(true)
		}
		s.finish()
	}
	return nil
}

func (s *BodyStream) finish() {
	if !s.done {
		s.done = true
		s.transport.release()
	}
}
