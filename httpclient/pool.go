package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
)

// schemePort maps URL schemes to their default ports.
func schemePort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}

// connectionPool maps destination keys (URL host, explicit port included)
// to reusable Transports.
//
// With persistent connections enabled, a Transport stays in the pool until
// a reuse scan observes it closing; eviction is opportunistic, not eager.
// An in-use Transport is never selected. With persistence disabled every
// acquire dials a fresh connection.
type connectionPool struct {
	resolver   Resolver
	dialer     Dialer
	tlsConfig  func(serverName string) (*tls.Config, error)
	persistent bool

	mu    sync.Mutex
	conns map[string][]*Transport

	// dialCount and reuseCount feed the Prometheus collector.
	dialCount  atomic.Int64
	reuseCount atomic.Int64
}

func newConnectionPool(resolver Resolver, dialer Dialer, tlsConfig func(string) (*tls.Config, error), persistent bool) *connectionPool {
	return &connectionPool{
		resolver:   resolver,
		dialer:     dialer,
		tlsConfig:  tlsConfig,
		persistent: persistent,
		conns:      make(map[string][]*Transport),
	}
}

// acquire returns a Transport connected to u's destination, reusing an idle
// pooled connection when possible. The returned Transport is leased: it
// becomes reusable again once its exchange completes.
func (p *connectionPool) acquire(ctx context.Context, u *url.URL) (*Transport, error) {
	key := u.Host

	if p.persistent {
		if t := p.reuse(key); t != nil {
			p.reuseCount.Add(1)
			return t, nil
		}
	}

	t, err := p.dial(ctx, u)
	if err != nil {
		return nil, err
	}
	p.dialCount.Add(1)
	t.lease()

	if p.persistent {
		p.mu.Lock()
		p.conns[key] = append(p.conns[key], t)
		p.mu.Unlock()
	}
	return t, nil
}

// reuse scans the destination's sequence for the first Transport that is
// neither leased nor closing, evicting closing ones as it encounters them.
func (p *connectionPool) reuse(key string) *Transport {
	p.mu.Lock()
	defer p.mu.Unlock()

	seq := p.conns[key]
	kept := seq[:0]
	var selected *Transport
	for i, t := range seq {
		if selected != nil {
			kept = append(kept, seq[i:]...)
			break
		}
		if t.leased() {
			kept = append(kept, t)
			continue
		}
		if closing, err := t.IsClosing(); err != nil || closing {
			t.Close()
			continue
		}
		if t.lease() {
			selected = t
		}
		kept = append(kept, t)
	}
	p.conns[key] = kept
	return selected
}

// dial resolves the destination and connects a fresh Transport, with TLS
// when the scheme asks for it.
func (p *connectionPool) dial(ctx context.Context, u *url.URL) (*Transport, error) {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = schemePort(u.Scheme)
	}

	ip, err := p.resolver.Resolve(ctx, host)
	if err != nil {
		return nil, err
	}

	var tlsCfg *tls.Config
	if u.Scheme == "https" {
		tlsCfg, err = p.tlsConfig(host)
		if err != nil {
			return nil, err
		}
	}

	t := NewTransport(p.dialer)
	if err := t.Connect(ctx, net.JoinHostPort(ip, port), tlsCfg); err != nil {
		return nil, err
	}
	return t, nil
}

// size returns the number of pooled Transports for a destination key.
func (p *connectionPool) size(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns[key])
}

// stats snapshots pooled connection counts per destination.
func (p *connectionPool) stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.conns))
	for key, seq := range p.conns {
		out[key] = len(seq)
	}
	return out
}

// closeAll tears down every pooled connection. Used on client shutdown.
func (p *connectionPool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, seq := range p.conns {
		for _, t := range seq {
			t.Close()
		}
		delete(p.conns, key)
	}
}
