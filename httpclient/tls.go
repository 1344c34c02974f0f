package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"io"
	"os"
	"sync"
)

// TLSOptions controls how https connections are established.
type TLSOptions struct {
	// InsecureSkipVerify disables certificate and hostname verification.
	// Test environments only.
	InsecureSkipVerify bool

	// RootCAs overrides the system certificate pool when non-nil.
	RootCAs *x509.CertPool

	// KeyLogPath, when set, appends TLS session secrets to the named file
	// in NSS key log format so tools like Wireshark can decrypt captures.
	KeyLogPath string

	keyLogOnce sync.Once
	keyLog     io.Writer
	keyLogErr  error
}

// config builds the per-connection tls.Config with serverName for SNI and
// certificate verification.
func (o *TLSOptions) config(serverName string) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: o.InsecureSkipVerify,
		RootCAs:            o.RootCAs,
	}
	if o.KeyLogPath != "" {
		o.keyLogOnce.Do(func() {
			o.keyLog, o.keyLogErr = os.OpenFile(o.KeyLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		})
		if o.keyLogErr != nil {
			return nil, NewConfigurationError("open key log file: " + o.keyLogErr.Error())
		}
		cfg.KeyLogWriter = o.keyLog
	}
	return cfg, nil
}
