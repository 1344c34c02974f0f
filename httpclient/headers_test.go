package httpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/courier-go/httpwire"
)

func TestHeaders(t *testing.T) {
	t.Run("given mixed-case keys, then lookups are case-insensitive", func(t *testing.T) {
		h := NewHeaders()
		h.Set("Content-Type", "text/plain")

		v, ok := h.Get("content-type")
		require.True(t, ok)
		assert.Equal(t, "text/plain", v)
		assert.True(t, h.Has("CONTENT-TYPE"))
	})

	t.Run("given repeated set of single-valued key, then value is overwritten", func(t *testing.T) {
		h := NewHeaders()
		h.Set("accept", "text/html")
		h.Set("Accept", "application/json")

		v, _ := h.Get("accept")
		assert.Equal(t, "application/json", v)
		assert.Equal(t, 1, h.Len())
	})

	t.Run("given repeated set of set-cookie, then values accumulate in order", func(t *testing.T) {
		h := NewHeaders()
		h.Set("Set-Cookie", "a=1")
		h.Set("set-cookie", "b=2")

		assert.Equal(t, []string{"a=1", "b=2"}, h.Values("set-cookie"))
	})

	t.Run("given www-authenticate challenges, then both are kept", func(t *testing.T) {
		h := NewHeaders()
		h.Set("WWW-Authenticate", `Basic realm="a"`)
		h.Set("WWW-Authenticate", `Digest realm="a", nonce="n"`)

		assert.Len(t, h.Values("www-authenticate"), 2)
	})

	t.Run("given deletion, then key and order entry are gone", func(t *testing.T) {
		h := NewHeaders()
		h.Set("a", "1")
		h.Set("b", "2")
		h.Del("A")

		assert.False(t, h.Has("a"))
		assert.Equal(t, []httpwire.Header{{Key: "b", Value: "2"}}, h.Items())
	})

	t.Run("given items, then insertion order is preserved with multi-values expanded", func(t *testing.T) {
		h := NewHeaders()
		h.Set("b", "2")
		h.Set("set-cookie", "a=1")
		h.Set("set-cookie", "b=2")
		h.Set("a", "1")

		assert.Equal(t, []httpwire.Header{
			{Key: "b", Value: "2"},
			{Key: "set-cookie", Value: "a=1"},
			{Key: "set-cookie", Value: "b=2"},
			{Key: "a", Value: "1"},
		}, h.Items())
	})
}

func TestHeaders_Wire(t *testing.T) {
	t.Run("given unchanged collection, then serialized form is cached", func(t *testing.T) {
		h := NewHeaders()
		h.Set("a", "1")

		first := h.Wire()
		second := h.Wire()
		assert.Equal(t, "a:  1\r\n", string(first))
		// Same backing array: the cache was reused, not recomputed.
		assert.Same(t, &first[0], &second[0])
	})

	t.Run("given mutation, then cache is invalidated", func(t *testing.T) {
		h := NewHeaders()
		h.Set("a", "1")
		_ = h.Wire()
		h.Set("b", "2")

		assert.Equal(t, "a:  1\r\nb:  2\r\n", string(h.Wire()))
	})
}

func TestMergeHeaders(t *testing.T) {
	t.Run("given overlapping keys, then overrides win", func(t *testing.T) {
		base := NewHeaders()
		base.Set("accept", "text/html")
		base.Set("user-agent", "courier")

		overrides := NewHeaders()
		overrides.Set("Accept", "application/json")

		merged := MergeHeaders(base, overrides)

		v, _ := merged.Get("accept")
		assert.Equal(t, "application/json", v)
		ua, _ := merged.Get("user-agent")
		assert.Equal(t, "courier", ua)
	})

	t.Run("given merge, then inputs are not modified", func(t *testing.T) {
		base := NewHeaders()
		base.Set("a", "1")
		overrides := NewHeaders()
		overrides.Set("a", "2")

		_ = MergeHeaders(base, overrides)

		v, _ := base.Get("a")
		assert.Equal(t, "1", v)
	})

	t.Run("given nil inputs, then merge still works", func(t *testing.T) {
		overrides := NewHeaders()
		overrides.Set("a", "2")

		merged := MergeHeaders(nil, overrides)
		v, _ := merged.Get("a")
		assert.Equal(t, "2", v)

		assert.Equal(t, 0, MergeHeaders(nil, nil).Len())
	})
}
