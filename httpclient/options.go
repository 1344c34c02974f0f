package httpclient

import (
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/courier-go/httpclient"

	// DefaultTimeout bounds a request when neither the client nor the
	// request sets its own.
	DefaultTimeout = 30 * time.Second

	// DefaultRedirectCount is the default redirect hop budget.
	DefaultRedirectCount = 5
)

// Config holds the tunable client settings. Zero values fall back to the
// defaults documented per field; use DefaultConfig for an initialized copy.
type Config struct {
	// PersistentConnections keeps completed connections pooled per
	// destination for reuse. Default: true.
	PersistentConnections bool

	// RetryCount is the number of additional attempts after a failed one.
	// Zero disables retries; the initial attempt always happens.
	RetryCount int

	// RedirectCount is the redirect hop budget. Zero follows no redirect
	// but still issues the original request.
	RedirectCount int

	// RetryBackOff paces the gaps between retry attempts. Nil retries
	// immediately.
	RetryBackOff backoff.BackOff

	// Timeout bounds each request unless the request carries its own.
	Timeout time.Duration
}

// DefaultConfig returns the production defaults: persistent connections,
// no retries, a five-hop redirect budget and a 30s timeout.
func DefaultConfig() Config {
	return Config{
		PersistentConnections: true,
		RedirectCount:         DefaultRedirectCount,
		Timeout:               DefaultTimeout,
	}
}

// internalConfig is the resolved configuration a Client runs with.
type internalConfig struct {
	Config

	logger   zerolog.Logger
	debug    bool
	resolver Resolver
	dialer   Dialer
	tlsOpts  *TLSOptions
	jar      *Jar
	stages   []StageConstructor

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		Config:         DefaultConfig(),
		logger:         zerolog.Nop(),
		tlsOpts:        &TLSOptions{},
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.resolver == nil {
		cfg.resolver = NewCachingResolver(nil)
	}
	if cfg.stages == nil {
		cfg.stages = DefaultStages()
	}
	return cfg
}

// Option configures a Client at construction time.
type Option func(*internalConfig)

// WithConfig replaces the whole Config in one call.
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) { cfg.Config = c }
}

// WithPersistentConnections toggles connection reuse.
func WithPersistentConnections(enabled bool) Option {
	return func(cfg *internalConfig) { cfg.PersistentConnections = enabled }
}

// WithRetryCount sets the number of additional attempts after a failure.
func WithRetryCount(n int) Option {
	return func(cfg *internalConfig) { cfg.RetryCount = n }
}

// WithRedirectCount sets the redirect hop budget.
func WithRedirectCount(n int) Option {
	return func(cfg *internalConfig) { cfg.RedirectCount = n }
}

// WithRetryBackOff paces retry attempts, e.g. with NewExponentialBackOff
// or NewLinearBackOff.
func WithRetryBackOff(b backoff.BackOff) Option {
	return func(cfg *internalConfig) { cfg.RetryBackOff = b }
}

// WithDefaultTimeout sets the client-wide request timeout. A request-level
// WithTimeout overrides it per request.
func WithDefaultTimeout(d time.Duration) Option {
	return func(cfg *internalConfig) { cfg.Timeout = d }
}

// WithLogger attaches a zerolog logger for request/response logging.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *internalConfig) { cfg.logger = l }
}

// WithDebug enables per-request debug logging on the configured logger.
func WithDebug(enabled bool) Option {
	return func(cfg *internalConfig) { cfg.debug = enabled }
}

// WithResolver injects a DNS resolver, replacing the client-owned caching
// resolver.
func WithResolver(r Resolver) Option {
	return func(cfg *internalConfig) { cfg.resolver = r }
}

// WithDialer injects the socket dialer. Tests use this to run against
// in-memory connections.
func WithDialer(d Dialer) Option {
	return func(cfg *internalConfig) { cfg.dialer = d }
}

// WithTLSOptions sets certificate verification and key-log settings for
// https destinations.
func WithTLSOptions(o *TLSOptions) Option {
	return func(cfg *internalConfig) { cfg.tlsOpts = o }
}

// WithCookieJar attaches a cookie jar. Cookies recorded from responses are
// sent on subsequent matching requests.
func WithCookieJar(jar *Jar) Option {
	return func(cfg *internalConfig) { cfg.jar = jar }
}

// WithAuth wires basic/digest challenge handling with the given
// credentials into the default stage order.
func WithAuth(creds Credentials) Option {
	return func(cfg *internalConfig) {
		stages := cfg.stages
		if stages == nil {
			stages = DefaultStages()
		}
		cfg.stages = append(append([]StageConstructor(nil), stages...), AuthStage(creds))
	}
}

// WithStages replaces the middleware chain, outermost constructor first.
// The terminal send stage is always appended implicitly.
func WithStages(ctors ...StageConstructor) Option {
	return func(cfg *internalConfig) { cfg.stages = ctors }
}

// WithRateLimit appends a token-bucket rate-limit stage inside the current
// chain.
func WithRateLimit(limiter *rate.Limiter) Option {
	return func(cfg *internalConfig) {
		stages := cfg.stages
		if stages == nil {
			stages = DefaultStages()
		}
		cfg.stages = append(append([]StageConstructor(nil), stages...), RateLimitStage(limiter))
	}
}

// WithBreaker appends a circuit-breaker stage inside the current chain.
func WithBreaker(bc BreakerConfig) Option {
	return func(cfg *internalConfig) {
		stages := cfg.stages
		if stages == nil {
			stages = DefaultStages()
		}
		cfg.stages = append(append([]StageConstructor(nil), stages...), BreakerStage(bc))
	}
}

// WithMeterProvider overrides the OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) { cfg.meterProvider = mp }
}

// WithTracerProvider overrides the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) { cfg.tracerProvider = tp }
}
