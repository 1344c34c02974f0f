package config

const (
	// Probe targets
	DefaultTargetsEnv = "MONITOR_TARGETS"

	// Client configuration
	DefaultRetryCount    = 2
	DefaultRedirectCount = 5
	DefaultTimeoutSec    = 10
	RequestsPerSecond    = 5
	Burst                = 2

	// Server configuration
	MetricsPort = ":2112"

	// OpenTelemetry configuration
	OTLPEndpoint   = "localhost:4317"
	ServiceName    = "courier-monitor-example"
	ServiceVersion = "0.1.0"

	// Operation intervals
	ProbeInterval = 5 // seconds
)

// DefaultTargets are probed when MONITOR_TARGETS is unset.
var DefaultTargets = []string{
	"https://httpbin.org/get",
	"https://httpbin.org/gzip",
	"https://httpbin.org/redirect/2",
}
