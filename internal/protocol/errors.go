package protocol

import (
	"errors"
	"fmt"
)

// Kind classifies a protocol failure.
type Kind int

const (
	// KindAuth means credentials were rejected or the token expired.
	KindAuth Kind = iota + 1
	// KindNotLoggedIn means the service no longer recognises the session.
	KindNotLoggedIn
	// KindThrottled means the service asked us to slow down.
	KindThrottled
	// KindMalformed means a response could not be decoded.
	KindMalformed
	// KindUnavailable means the service could not be reached.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotLoggedIn:
		return "not logged in"
	case KindThrottled:
		return "throttled"
	case KindMalformed:
		return "malformed response"
	case KindUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a failed protocol call.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a protocol error that a fresh login is
// expected to clear. Every Kind qualifies; anything else does not.
func IsTransient(err error) bool {
	var perr *Error
	if !errors.As(err, &perr) {
		return false
	}
	switch perr.Kind {
	case KindAuth, KindNotLoggedIn, KindThrottled, KindMalformed, KindUnavailable:
		return true
	default:
		return false
	}
}
