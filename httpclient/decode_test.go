package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zlibBytes(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func brotliBytes(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeStage(t *testing.T) {
	newReq := func(t *testing.T, opts ...RequestOption) *Request {
		r, err := NewRequest("GET", "http://example.com/data", opts...)
		require.NoError(t, err)
		return r
	}

	t.Run("given no accept-encoding, then the supported set is advertised", func(t *testing.T) {
		c := newStageClient(t)
		inner := &scriptedStage{fn: func(call int, r *Request) (*Response, error) {
			v, _ := r.Headers.Get("accept-encoding")
			assert.Equal(t, "gzip, deflate, br", v)
			return stubResponse(r, 200, nil, nil), nil
		}}

		_, err := DecodeStage(inner, c).Process(context.Background(), newReq(t))
		require.NoError(t, err)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("given a pinned accept-encoding, then it is left alone", func(t *testing.T) {
		c := newStageClient(t)
		inner := &scriptedStage{fn: func(call int, r *Request) (*Response, error) {
			v, _ := r.Headers.Get("accept-encoding")
			assert.Equal(t, "identity", v)
			return stubResponse(r, 200, nil, nil), nil
		}}

		req := newReq(t, WithHeader("accept-encoding", "identity"))
		_, err := DecodeStage(inner, c).Process(context.Background(), req)
		require.NoError(t, err)
	})

	t.Run("given encoded bodies, then the identity body comes back", func(t *testing.T) {
		plain := []byte(`{"status":"ok"}`)
		tests := []struct {
			name     string
			header   string
			declared string
			body     func(*testing.T) []byte
		}{
			{"gzip", "content-encoding", "gzip", func(t *testing.T) []byte { return gzipBytes(t, plain) }},
			{"x-gzip", "content-encoding", "x-gzip", func(t *testing.T) []byte { return gzipBytes(t, plain) }},
			{"deflate zlib-wrapped", "content-encoding", "deflate", func(t *testing.T) []byte { return zlibBytes(t, plain) }},
			{"brotli", "content-encoding", "br", func(t *testing.T) []byte { return brotliBytes(t, plain) }},
			{"gzip via transfer-encoding", "transfer-encoding", "chunked, gzip", func(t *testing.T) []byte { return gzipBytes(t, plain) }},
			{"identity", "content-encoding", "identity", func(t *testing.T) []byte { return plain }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c := newStageClient(t)
				inner := &scriptedStage{fn: func(call int, r *Request) (*Response, error) {
					return stubResponse(r, 200, map[string]string{tt.header: tt.declared}, tt.body(t)), nil
				}}

				resp, err := DecodeStage(inner, c).Process(context.Background(), newReq(t))
				require.NoError(t, err)
				assert.Equal(t, plain, resp.Body)
			})
		}
	})

	t.Run("given layered encodings, then layers unwind last-applied first", func(t *testing.T) {
		plain := []byte("layered payload")
		// Declared "deflate, gzip" means deflate was applied first, gzip last.
		wire := gzipBytes(t, zlibBytes(t, plain))

		c := newStageClient(t)
		inner := &scriptedStage{fn: func(call int, r *Request) (*Response, error) {
			return stubResponse(r, 200, map[string]string{"content-encoding": "deflate, gzip"}, wire), nil
		}}

		resp, err := DecodeStage(inner, c).Process(context.Background(), newReq(t))
		require.NoError(t, err)
		assert.Equal(t, plain, resp.Body)
	})

	t.Run("given corrupt compressed data, then invalid response error", func(t *testing.T) {
		c := newStageClient(t)
		inner := &scriptedStage{fn: func(call int, r *Request) (*Response, error) {
			return stubResponse(r, 200, map[string]string{"content-encoding": "gzip"},
				[]byte("definitely not gzip")), nil
		}}

		_, err := DecodeStage(inner, c).Process(context.Background(), newReq(t))
		assert.True(t, IsInvalidResponse(err))
	})

	t.Run("given an unknown encoding token, then invalid response error", func(t *testing.T) {
		c := newStageClient(t)
		inner := &scriptedStage{fn: func(call int, r *Request) (*Response, error) {
			return stubResponse(r, 200, map[string]string{"content-encoding": "zstd"}, []byte("x")), nil
		}}

		_, err := DecodeStage(inner, c).Process(context.Background(), newReq(t))
		assert.True(t, IsInvalidResponse(err))
	})

	t.Run("given an inner error, then it propagates unchanged", func(t *testing.T) {
		c := newStageClient(t)
		want := NewTimeoutError("read", nil)
		inner := &scriptedStage{fn: func(call int, r *Request) (*Response, error) {
			return nil, want
		}}

		_, err := DecodeStage(inner, c).Process(context.Background(), newReq(t))
		assert.Same(t, want, err)
	})
}

func TestInflate(t *testing.T) {
	t.Run("given a bare deflate stream, then it still inflates", func(t *testing.T) {
		plain := []byte("bare deflate, no zlib wrapper")
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
		_, err = w.Write(plain)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		out, err := inflate(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, plain, out)
	})
}
