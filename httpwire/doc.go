// Package httpwire implements incremental HTTP/1.1 message framing.
//
// The central type is Buffer, a resumable response decoder: raw bytes read
// from a socket are fed in whatever fragment sizes the network delivers, and
// the Buffer reports completion once a full message has been framed, either
// by Content-Length or by chunked transfer-encoding.
//
// # Quick Start
//
//	buf := httpwire.NewBuffer()
//	for !buf.Done() {
//	    n, err := conn.Read(chunk)
//	    if err != nil {
//	        return err
//	    }
//	    buf.Feed(chunk[:n])
//	}
//	resp, err := httpwire.ParseResponse(buf.Bytes(), buf.HeaderEnd())
//
// StreamBuffer wraps the same state machine for chunked responses whose body
// should be consumed as it arrives rather than after full verification.
//
// The package also owns the request side of the wire format via WriteRequest,
// so that serialization and framing quirks live in one place.
package httpwire
