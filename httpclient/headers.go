package httpclient

import (
	"strings"

	"github.com/kroma-labs/courier-go/httpwire"
)

// multiValued lists the header names whose repeated insertion appends to an
// ordered list instead of overwriting. Everything else is single-valued.
var multiValued = map[string]bool{
	"set-cookie":       true,
	"www-authenticate": true,
}

// Headers is a case-insensitive header collection.
//
// Keys are normalized to lower case for every lookup, containment check and
// comparison. The handful of names in multiValued accumulate values in
// insertion order; all other names overwrite on repeated Set. Insertion
// order of distinct keys is preserved for serialization, and the serialized
// form is cached until the collection changes.
type Headers struct {
	values map[string][]string
	order  []string

	wireCache []byte
}

// NewHeaders returns an empty collection.
func NewHeaders() *Headers {
	return &Headers{values: make(map[string][]string)}
}

// Set inserts key=value. For multi-valued names the value is appended to the
// existing list; otherwise it replaces any previous value.
func (h *Headers) Set(key, value string) {
	k := strings.ToLower(key)
	if _, exists := h.values[k]; !exists {
		h.order = append(h.order, k)
	}
	if multiValued[k] {
		h.values[k] = append(h.values[k], value)
	} else {
		h.values[k] = []string{value}
	}
	h.wireCache = nil
}

// Get returns the first value for key.
func (h *Headers) Get(key string) (string, bool) {
	vs := h.values[strings.ToLower(key)]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns all values for key in insertion order.
func (h *Headers) Values(key string) []string {
	return h.values[strings.ToLower(key)]
}

// Has reports whether key is present.
func (h *Headers) Has(key string) bool {
	_, ok := h.values[strings.ToLower(key)]
	return ok
}

// Del removes key.
func (h *Headers) Del(key string) {
	k := strings.ToLower(key)
	if _, ok := h.values[k]; !ok {
		return
	}
	delete(h.values, k)
	for i, o := range h.order {
		if o == k {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	h.wireCache = nil
}

// Len returns the number of distinct keys.
func (h *Headers) Len() int { return len(h.values) }

// Items returns the collection as ordered wire headers, expanding
// multi-valued names into one entry per value.
func (h *Headers) Items() []httpwire.Header {
	items := make([]httpwire.Header, 0, len(h.order))
	for _, k := range h.order {
		for _, v := range h.values[k] {
			items = append(items, httpwire.Header{Key: k, Value: v})
		}
	}
	return items
}

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	c := NewHeaders()
	for _, k := range h.order {
		c.order = append(c.order, k)
		c.values[k] = append([]string(nil), h.values[k]...)
	}
	return c
}

// Wire returns the serialized "key:  value\r\n" block. The result is cached
// and recomputed only after the collection changes.
func (h *Headers) Wire() []byte {
	if h.wireCache != nil {
		return h.wireCache
	}
	var b strings.Builder
	for _, item := range h.Items() {
		b.WriteString(item.Key)
		b.WriteString(":  ")
		b.WriteString(item.Value)
		b.WriteString("\r\n")
	}
	h.wireCache = []byte(b.String())
	return h.wireCache
}

// MergeHeaders returns a new collection holding base's entries with
// overrides applied on top. Neither input is modified. For multi-valued
// names an override replaces the base list wholesale.
func MergeHeaders(base, overrides *Headers) *Headers {
	merged := NewHeaders()
	copyFrom := func(src *Headers, skip func(string) bool) {
		if src == nil {
			return
		}
		for _, k := range src.order {
			if skip != nil && skip(k) {
				continue
			}
			if _, exists := merged.values[k]; !exists {
				merged.order = append(merged.order, k)
			}
			merged.values[k] = append([]string(nil), src.values[k]...)
		}
	}
	copyFrom(base, func(k string) bool {
		return overrides != nil && overrides.Has(k)
	})
	copyFrom(overrides, nil)
	return merged
}
