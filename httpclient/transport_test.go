package httpclient

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPipeTransport returns a connected Transport whose peer is handler
// running on the server end of a net.Pipe.
func newPipeTransport(t *testing.T, handler func(conn net.Conn)) *Transport {
	t.Helper()
	client, server := net.Pipe()
	go handler(server)

	tr := NewTransport(func(ctx context.Context, network, addr string) (net.Conn, error) {
		return client, nil
	})
	require.NoError(t, tr.Connect(context.Background(), "127.0.0.1:80", nil))
	t.Cleanup(func() {
		tr.Close()
		server.Close()
	})
	return tr
}

// readRequestBytes consumes one request head (through the blank line) from
// the server side of the pipe.
func readRequestBytes(conn net.Conn) []byte {
	buf := make([]byte, 0, 1024)
	tmp := make([]byte, 256)
	for !bytes.Contains(buf, []byte("\r\n\r\n")) {
		n, err := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			break
		}
	}
	return buf
}

func TestTransport_RoundTrip(t *testing.T) {
	t.Run("given a fixed-length response, then status headers and body parse", func(t *testing.T) {
		var gotRequest []byte
		received := make(chan struct{})
		tr := newPipeTransport(t, func(conn net.Conn) {
			gotRequest = readRequestBytes(conn)
			close(received)
			conn.Write([]byte("HTTP/1.1 200 OK\r\ncontent-length: 2\r\n\r\nok"))
		})

		raw := []byte("GET / HTTP/1.1\r\nhost:  example.com\r\n\r\n")
		msg, err := tr.RoundTrip(context.Background(), raw)
		require.NoError(t, err)

		<-received
		assert.Contains(t, string(gotRequest), "GET / HTTP/1.1")
		assert.Equal(t, 200, msg.Status)
		assert.Equal(t, []byte("ok"), msg.Body)
	})

	t.Run("given a fragmented response, then framing is boundary-invariant", func(t *testing.T) {
		response := []byte("HTTP/1.1 200 OK\r\ntransfer-encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n")
		tr := newPipeTransport(t, func(conn net.Conn) {
			readRequestBytes(conn)
			for i := 0; i < len(response); i += 3 {
				end := i + 3
				if end > len(response) {
					end = len(response)
				}
				conn.Write(response[i:end])
			}
		})

		msg, err := tr.RoundTrip(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), msg.Body)
	})

	t.Run("given a second request while one is in flight, then usage error", func(t *testing.T) {
		received := make(chan struct{})
		respond := make(chan struct{})
		tr := newPipeTransport(t, func(conn net.Conn) {
			readRequestBytes(conn)
			close(received)
			<-respond
			conn.Write([]byte("HTTP/1.1 200 OK\r\ncontent-length: 0\r\n\r\n"))
		})

		firstDone := make(chan error, 1)
		go func() {
			_, err := tr.RoundTrip(context.Background(), []byte("GET /a HTTP/1.1\r\n\r\n"))
			firstDone <- err
		}()
		<-received

		_, err := tr.RoundTrip(context.Background(), []byte("GET /b HTTP/1.1\r\n\r\n"))
		assert.True(t, IsUsageError(err))

		close(respond)
		require.NoError(t, <-firstDone)
	})

	t.Run("given an unconnected transport, then usage error", func(t *testing.T) {
		tr := NewTransport(nil)
		_, err := tr.RoundTrip(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		assert.True(t, IsUsageError(err))
	})

	t.Run("given a deadline the server outlives, then timeout error", func(t *testing.T) {
		tr := newPipeTransport(t, func(conn net.Conn) {
			readRequestBytes(conn)
			// Never respond.
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := tr.RoundTrip(ctx, []byte("GET / HTTP/1.1\r\n\r\n"))
		assert.True(t, IsTimeout(err))
	})

	t.Run("given peer closes mid-response, then connection error and closing transport", func(t *testing.T) {
		tr := newPipeTransport(t, func(conn net.Conn) {
			readRequestBytes(conn)
			conn.Write([]byte("HTTP/1.1 200 OK\r\ncontent-length: 10\r\n\r\nshort"))
			conn.Close()
		})

		_, err := tr.RoundTrip(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		assert.True(t, IsConnectionError(err))
	})
}

func TestTransport_Connect(t *testing.T) {
	t.Run("given a second connect, then usage error", func(t *testing.T) {
		tr := newPipeTransport(t, func(conn net.Conn) {})
		err := tr.Connect(context.Background(), "127.0.0.1:80", nil)
		assert.True(t, IsUsageError(err))
	})

	t.Run("given dial failure, then connection error", func(t *testing.T) {
		tr := NewTransport(func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, &net.OpError{Op: "dial", Err: io.ErrUnexpectedEOF}
		})
		err := tr.Connect(context.Background(), "10.0.0.1:80", nil)
		assert.True(t, IsConnectionError(err))
	})
}

func TestTransport_IsClosing(t *testing.T) {
	t.Run("given no connection yet, then erroring query", func(t *testing.T) {
		tr := NewTransport(nil)
		_, err := tr.IsClosing()
		assert.True(t, IsUsageError(err))
	})

	t.Run("given idle live connection, then not closing", func(t *testing.T) {
		tr := newPipeTransport(t, func(conn net.Conn) {
			readRequestBytes(conn)
			conn.Write([]byte("HTTP/1.1 200 OK\r\ncontent-length: 0\r\n\r\n"))
		})
		_, err := tr.RoundTrip(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)

		closing, err := tr.IsClosing()
		require.NoError(t, err)
		assert.False(t, closing)
	})

	t.Run("given peer closed connection, then closing", func(t *testing.T) {
		closed := make(chan struct{})
		tr := newPipeTransport(t, func(conn net.Conn) {
			readRequestBytes(conn)
			conn.Write([]byte("HTTP/1.1 200 OK\r\ncontent-length: 0\r\n\r\n"))
			conn.Close()
			close(closed)
		})
		_, err := tr.RoundTrip(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		<-closed

		closing, err := tr.IsClosing()
		require.NoError(t, err)
		assert.True(t, closing)
	})
}

func TestTransport_RoundTripStream(t *testing.T) {
	chunked := "HTTP/1.1 200 OK\r\ntransfer-encoding: chunked\r\n\r\n"

	t.Run("given a chunked response, then body arrives as a lazy sequence", func(t *testing.T) {
		proceed := make(chan struct{})
		tr := newPipeTransport(t, func(conn net.Conn) {
			readRequestBytes(conn)
			conn.Write([]byte(chunked + "5\r\nhello\r\n"))
			<-proceed
			conn.Write([]byte("6\r\n world\r\n0\r\n\r\n"))
		})

		msg, stream, err := tr.RoundTripStream(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		assert.Equal(t, 200, msg.Status)

		first, err := stream.Next()
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), first)

		close(proceed)
		second, err := stream.Next()
		require.NoError(t, err)
		assert.Equal(t, []byte(" world"), second)

		_, err = stream.Next()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("given a content-length response, then streaming is rejected", func(t *testing.T) {
		tr := newPipeTransport(t, func(conn net.Conn) {
			readRequestBytes(conn)
			conn.Write([]byte("HTTP/1.1 200 OK\r\ncontent-length: 2\r\n\r\nok"))
		})

		_, _, err := tr.RoundTripStream(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		assert.True(t, IsUsageError(err))
	})

	t.Run("given an exhausted stream, then the transport is reusable", func(t *testing.T) {
		tr := newPipeTransport(t, func(conn net.Conn) {
			readRequestBytes(conn)
			conn.Write([]byte(chunked + "2\r\nhi\r\n0\r\n\r\n"))
			readRequestBytes(conn)
			conn.Write([]byte("HTTP/1.1 204 No Content\r\ncontent-length: 0\r\n\r\n"))
		})

		_, stream, err := tr.RoundTripStream(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		for {
			if _, err := stream.Next(); err == io.EOF {
				break
			} else if err != nil {
				t.Fatal(err)
			}
		}

		msg, err := tr.RoundTrip(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		assert.Equal(t, 204, msg.Status)
	})
}
