package core

import (
	"errors"
)

// ErrProtocolViolation marks an interaction payload that lacks data the command's own
// schema guarantees (no resolved target message, no invoking user).
var ErrProtocolViolation = errors.New("interaction payload violates command contract")

// ErrFatalTransport marks a gateway error after which the connection cannot be used again.
var ErrFatalTransport = errors.New("fatal gateway error")

// IsProtocolViolation checks if an error is (or wraps) ErrProtocolViolation
func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrProtocolViolation)
}

// IsFatalTransport checks if an error is (or wraps) ErrFatalTransport
func IsFatalTransport(err error) bool {
	return errors.Is(err, ErrFatalTransport)
}
