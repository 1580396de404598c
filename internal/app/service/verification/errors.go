package verification

import (
	"errors"
	"fmt"
)

// TransportError marks a verification attempt that produced no authoritative
// verdict: network failure, timeout, non-2xx response, or an unparseable
// body. These are the only failures the controller may retry; a gateway
// verdict of FAILED/CANCELLED comes back as a Result, never as this error.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("verification %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
