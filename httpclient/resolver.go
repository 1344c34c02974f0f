package httpclient

import (
	"context"
	"net"
	"net/netip"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Resolver turns a hostname into a dialable IP address. Implementations are
// owned by (or injected into) a Client; there is no process-wide cache.
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// LookupFunc is the underlying lookup used by CachingResolver. The default
// asks net.DefaultResolver and takes the first returned address.
type LookupFunc func(ctx context.Context, host string) (string, error)

// CachingResolver memoizes lookups per hostname and collapses concurrent
// lookups for the same name into a single in-flight query: the first caller
// performs the lookup while the rest wait for its result.
type CachingResolver struct {
	lookup LookupFunc

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]string
}

// NewCachingResolver builds a resolver around lookup; nil means the system
// resolver.
func NewCachingResolver(lookup LookupFunc) *CachingResolver {
	if lookup == nil {
		lookup = systemLookup
	}
	return &CachingResolver{
		lookup: lookup,
		cache:  make(map[string]string),
	}
}

// Resolve returns the memoized address for host, issuing at most one
// underlying lookup per hostname regardless of concurrency. IP literals
// short-circuit without a lookup.
func (r *CachingResolver) Resolve(ctx context.Context, host string) (string, error) {
	if _, err := netip.ParseAddr(host); err == nil {
		return host, nil
	}

	r.mu.RLock()
	addr, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return addr, nil
	}

	v, err, _ := r.group.Do(host, func() (any, error) {
		resolved, err := r.lookup(ctx, host)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.cache[host] = resolved
		r.mu.Unlock()
		return resolved, nil
	})
	if err != nil {
		return "", NewConnectionError("resolve "+host, err)
	}
	return v.(string), nil
}

// Forget drops the cached address for host, forcing the next Resolve to
// look it up again.
func (r *CachingResolver) Forget(host string) {
	r.mu.Lock()
	delete(r.cache, host)
	r.mu.Unlock()
}

func systemLookup(ctx context.Context, host string) (string, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}
	return addrs[0].IP.String(), nil
}
