package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is reported by every operation on a closed client.
	ErrNotConnected = errors.New("not connected")
	// ErrProtocol is reported for a malformed URI or response head.
	ErrProtocol = errors.New("protocol error")
	// ErrUnsupported is reported for https targets and chunked bodies.
	ErrUnsupported = errors.New("unsupported")
)

// OpError wraps a transport or filesystem error with the step of the
// request that produced it.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
