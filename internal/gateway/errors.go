package gateway

import (
	"errors"
	"fmt"
)

// ProtocolErrorKind tells why a gateway response could not be used.
type ProtocolErrorKind string

// Protocol error kinds, in the order responses are checked.
const (
	KindStatus ProtocolErrorKind = "status"
	KindEmpty  ProtocolErrorKind = "empty"
	KindDecode ProtocolErrorKind = "decode"
)

// ProtocolError carries the raw response of a failed gateway call.
type ProtocolError struct {
	Kind       ProtocolErrorKind
	StatusCode int
	Body       []byte
	Err        error
}

func (e *ProtocolError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, truncate(e.Body, 256))
	case KindEmpty:
		return fmt.Sprintf("empty response body (status %d)", e.StatusCode)
	default:
		return fmt.Sprintf("decode response (status %d): %v", e.StatusCode, e.Err)
	}
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// AsProtocolError extracts the ProtocolError from err, if any.
func AsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
