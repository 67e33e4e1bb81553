package transport

import (
	"errors"
	"fmt"
)

// FallbackMessage is shown when neither the panel nor the transport
// produced a usable message.
const FallbackMessage = "network error"

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no response was received (dial, TLS, timeout).
	KindNetwork Kind = iota + 1
	// KindHTTP is a non-2xx status other than 401.
	KindHTTP
	// KindUnauthorized is HTTP 401: the session token is invalid or expired.
	KindUnauthorized
	// KindDomain is HTTP 2xx with a non-zero envelope code.
	KindDomain
	// KindProtocol is a 2xx response whose body is not a valid envelope.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindUnauthorized:
		return "unauthorized"
	case KindDomain:
		return "domain"
	case KindProtocol:
		return "protocol"
	}
	return "unknown"
}

// Error is the single rejected-outcome shape returned for every failed call.
type Error struct {
	Kind      Kind
	Method    string
	Path      string
	Status    int    // HTTP status, 0 for network errors
	Code      int    // envelope code, 0 when absent
	Message   string // user-facing message
	RequestID string
	TokenID   string // TokenID of the bearer token the request carried
	Err       error  // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Code != 0 && e.Kind == KindDomain {
		return fmt.Sprintf("%s %s: %s (code %d)", e.Method, e.Path, e.Message, e.Code)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: %s (status %d)", e.Method, e.Path, e.Message, e.Status)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is a 401 from the panel.
func IsUnauthorized(err error) bool {
	te, ok := AsError(err)
	return ok && te.Kind == KindUnauthorized
}

// IsDomain reports whether err is a logical failure (non-zero envelope code).
func IsDomain(err error) bool {
	te, ok := AsError(err)
	return ok && te.Kind == KindDomain
}

// IsNetwork reports whether err means the panel was unreachable.
func IsNetwork(err error) bool {
	te, ok := AsError(err)
	return ok && te.Kind == KindNetwork
}

// Message returns the user-facing message carried by err, or err.Error()
// for errors that did not come from the transport.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if te, ok := AsError(err); ok {
		return te.Message
	}
	return err.Error()
}
