package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeDialer hands out net.Pipe client ends, serving each peer with handler.
func pipeDialer(handler func(net.Conn)) Dialer {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		go handler(server)
		return client, nil
	}
}

// serveLoop answers every request on conn with an empty 200 until the peer
// goes away.
func serveLoop(conn net.Conn) {
	for {
		if req := readRequestBytes(conn); len(req) == 0 {
			return
		}
		if _, err := conn.Write([]byte("HTTP/1.1 200 OK\r\ncontent-length: 0\r\n\r\n")); err != nil {
			return
		}
	}
}

func newTestPool(t *testing.T, dialer Dialer, persistent bool) *connectionPool {
	t.Helper()
	p := newConnectionPool(
		NewCachingResolver(nil),
		dialer,
		func(string) (*tls.Config, error) { return nil, nil },
		persistent,
	)
	t.Cleanup(p.closeAll)
	return p
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestConnectionPool_Reuse(t *testing.T) {
	t.Run("given a completed exchange, then the connection is reused", func(t *testing.T) {
		p := newTestPool(t, pipeDialer(serveLoop), true)
		u := mustURL(t, "http://127.0.0.1:9000/")

		first, err := p.acquire(context.Background(), u)
		require.NoError(t, err)
		_, err = first.RoundTrip(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)

		second, err := p.acquire(context.Background(), u)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, p.size("127.0.0.1:9000"))
		assert.Equal(t, int64(1), p.dialCount.Load())
		assert.Equal(t, int64(1), p.reuseCount.Load())
	})

	t.Run("given a leased connection, then a second acquire dials fresh", func(t *testing.T) {
		p := newTestPool(t, pipeDialer(serveLoop), true)
		u := mustURL(t, "http://127.0.0.1:9000/")

		first, err := p.acquire(context.Background(), u)
		require.NoError(t, err)
		second, err := p.acquire(context.Background(), u)
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.Equal(t, 2, p.size("127.0.0.1:9000"))
		assert.Equal(t, int64(2), p.dialCount.Load())
	})

	t.Run("given the pooled connection is closing, then it is evicted", func(t *testing.T) {
		closed := make(chan struct{}, 2)
		p := newTestPool(t, pipeDialer(func(conn net.Conn) {
			readRequestBytes(conn)
			conn.Write([]byte("HTTP/1.1 200 OK\r\nconnection: close\r\ncontent-length: 0\r\n\r\n"))
			conn.Close()
			closed <- struct{}{}
		}), true)
		u := mustURL(t, "http://127.0.0.1:9000/")

		first, err := p.acquire(context.Background(), u)
		require.NoError(t, err)
		_, err = first.RoundTrip(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		<-closed

		second, err := p.acquire(context.Background(), u)
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.Equal(t, 1, p.size("127.0.0.1:9000"))
		assert.Equal(t, int64(2), p.dialCount.Load())
		assert.Equal(t, int64(0), p.reuseCount.Load())
	})

	t.Run("given distinct destinations, then pools are independent", func(t *testing.T) {
		p := newTestPool(t, pipeDialer(serveLoop), true)

		_, err := p.acquire(context.Background(), mustURL(t, "http://127.0.0.1:9000/"))
		require.NoError(t, err)
		_, err = p.acquire(context.Background(), mustURL(t, "http://127.0.0.1:9001/"))
		require.NoError(t, err)

		stats := p.stats()
		assert.Equal(t, 1, stats["127.0.0.1:9000"])
		assert.Equal(t, 1, stats["127.0.0.1:9001"])
	})
}

func TestConnectionPool_NonPersistent(t *testing.T) {
	p := newTestPool(t, pipeDialer(serveLoop), false)
	u := mustURL(t, "http://127.0.0.1:9000/")

	first, err := p.acquire(context.Background(), u)
	require.NoError(t, err)
	_, err = first.RoundTrip(context.Background(), []byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	first.Close()

	second, err := p.acquire(context.Background(), u)
	require.NoError(t, err)
	second.Close()

	assert.NotSame(t, first, second)
	assert.Equal(t, 0, p.size("127.0.0.1:9000"), "non-persistent connections are never pooled")
	assert.Equal(t, int64(2), p.dialCount.Load())
}

func TestConnectionPool_Dial(t *testing.T) {
	t.Run("given a hostname, then the resolved address and scheme port are dialed", func(t *testing.T) {
		var dialed string
		dialer := func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialed = addr
			client, server := net.Pipe()
			go serveLoop(server)
			return client, nil
		}
		resolver := NewCachingResolver(func(ctx context.Context, host string) (string, error) {
			return "192.0.2.7", nil
		})
		p := newConnectionPool(resolver, dialer, func(string) (*tls.Config, error) { return nil, nil }, true)
		t.Cleanup(p.closeAll)

		_, err := p.acquire(context.Background(), mustURL(t, "http://api.internal/"))
		require.NoError(t, err)
		assert.Equal(t, "192.0.2.7:80", dialed)
	})

	t.Run("given resolution failure, then acquire surfaces a connection error", func(t *testing.T) {
		resolver := NewCachingResolver(func(ctx context.Context, host string) (string, error) {
			return "", &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
		})
		p := newConnectionPool(resolver, pipeDialer(serveLoop), nil, true)

		_, err := p.acquire(context.Background(), mustURL(t, "http://gone.internal/"))
		assert.True(t, IsConnectionError(err))
	})
}
