package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// acceptedEncodings is the Accept-Encoding value this build advertises.
const acceptedEncodings = "gzip, deflate, br"

// DecodeStage returns the content-decoding stage.
//
// Before delegating inward it advertises the supported encodings unless the
// request already pins its own Accept-Encoding. On the way out it undoes
// the layered encodings declared by Transfer-Encoding and Content-Encoding,
// in reverse declaration order per RFC 7230, so the caller always sees the
// identity body. Decompression failure is an invalid-response error.
func DecodeStage(next Stage, c *Client) Stage {
	return StageFunc(func(ctx context.Context, req *Request) (*Response, error) {
		if !req.Headers.Has("accept-encoding") {
			req.SetHeader("accept-encoding", acceptedEncodings)
		}

		resp, err := next.Process(ctx, req)
		if err != nil {
			return nil, err
		}

		for _, header := range []string{"transfer-encoding", "content-encoding"} {
			declared, ok := resp.Headers.Get(header)
			if !ok {
				continue
			}
			body, err := decodeLayers(resp.Body, declared)
			if err != nil {
				return nil, err
			}
			resp.Body = body
		}
		return resp, nil
	})
}

// decodeLayers undoes a comma-separated encoding list, last-applied first.
func decodeLayers(body []byte, declared string) ([]byte, error) {
	tokens := strings.Split(declared, ",")
	for i := len(tokens) - 1; i >= 0; i-- {
		token := strings.ToLower(strings.TrimSpace(tokens[i]))
		decoded, err := decodeToken(body, token)
		if err != nil {
			return nil, NewInvalidResponseError("decode "+token+" body", err)
		}
		body = decoded
	}
	return body, nil
}

func decodeToken(body []byte, token string) ([]byte, error) {
	switch token {
	case "", "identity", "chunked":
		// Chunked framing was already removed by the message buffer.
		return body, nil
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "deflate":
		return inflate(body)
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
	default:
		return nil, NewInvalidResponseError("unsupported content encoding: "+token, nil)
	}
}

// inflate handles both spellings of deflate in the wild: the RFC's
// zlib-wrapped stream and the bare DEFLATE stream some servers send.
func inflate(body []byte) ([]byte, error) {
	if r, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		defer r.Close()
		if out, err := io.ReadAll(r); err == nil {
			return out, nil
		}
	}
	r := flate.NewReader(bytes.NewReader(body))
	defer r.Close()
	return io.ReadAll(r)
}
