package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Kind classifies client errors into the categories callers branch on.
type Kind int

const (
	// KindUsage indicates a programming error, such as issuing a second
	// request on a Transport that is already in flight. Never retried.
	KindUsage Kind = iota

	// KindConnection indicates DNS resolution or socket/TLS establishment
	// failure. Eligible for retry.
	KindConnection

	// KindTimeout indicates the request-level deadline was exceeded.
	// Kept distinct from KindConnection so callers can apply different
	// backoff. Eligible for retry.
	KindTimeout

	// KindInvalidResponse indicates response bytes that could not be framed
	// or a body that could not be decompressed. Surfaced to the caller.
	KindInvalidResponse

	// KindConfiguration indicates conflicting request-build options, such as
	// two mutually exclusive body kinds. Raised synchronously, never retried.
	KindConfiguration
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindInvalidResponse:
		return "invalid_response"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is a structured client error carrying its classification.
//
// Retry preserves error identity: exhausting retries returns the very error
// the last attempt produced, so errors.Is/As behave the same with and
// without retries.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Message describes the error.
	Message string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("httpclient: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// NewUsageError creates a usage error.
func NewUsageError(message string) *Error {
	return &Error{Kind: KindUsage, Message: message}
}

// NewConnectionError creates a connection-establishment error.
func NewConnectionError(message string, err error) *Error {
	return &Error{Kind: KindConnection, Message: message, Err: err}
}

// NewTimeoutError creates a deadline-exceeded error.
func NewTimeoutError(message string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: message, Err: err}
}

// NewInvalidResponseError creates an unframeable/undecodable response error.
func NewInvalidResponseError(message string, err error) *Error {
	return &Error{Kind: KindInvalidResponse, Message: message, Err: err}
}

// NewConfigurationError creates a request-build configuration error.
func NewConfigurationError(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// IsUsageError reports whether err is a KindUsage *Error.
func IsUsageError(err error) bool { return hasKind(err, KindUsage) }

// IsConnectionError reports whether err is a KindConnection *Error.
func IsConnectionError(err error) bool { return hasKind(err, KindConnection) }

// IsTimeout reports whether err is a KindTimeout *Error.
func IsTimeout(err error) bool { return hasKind(err, KindTimeout) }

// IsInvalidResponse reports whether err is a KindInvalidResponse *Error.
func IsInvalidResponse(err error) bool { return hasKind(err, KindInvalidResponse) }

// IsConfigurationError reports whether err is a KindConfiguration *Error.
func IsConfigurationError(err error) bool { return hasKind(err, KindConfiguration) }

func hasKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// classifyNetError maps an I/O error to KindTimeout when it stems from a
// deadline and KindConnection otherwise.
func classifyNetError(message string, err error) *Error {
	if isDeadlineError(err) {
		return NewTimeoutError(message, err)
	}
	return NewConnectionError(message, err)
}

func isDeadlineError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
