// Package transport provides the connections the client engine speaks
// HTTP over. A [Dialer] opens a [Conn]; the engine only ever writes a
// whole request, reads, and closes.
package transport

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"
)

// ErrIOURingUnsupported is returned by NewIOURingDialer on platforms
// without io_uring and in builds without the iouring tag. The tagged
// build links with -ldflags=-checklinkname=0.
var ErrIOURingUnsupported = errors.New("io_uring transport requires linux and the iouring build tag")

// Conn is a connected byte stream. Close must unblock a pending Read
// or Write on another goroutine.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Dialer opens connections to host:port.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, host string, port int) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, host string, port int) (Conn, error) {
	return f(ctx, host, port)
}

// NetDialer dials TCP through the net package with Nagle's algorithm
// disabled.
type NetDialer struct {
	Timeout time.Duration
}

func (d NetDialer) Dial(ctx context.Context, host string, port int) (Conn, error) {
	nd := net.Dialer{Timeout: d.Timeout}

	conn, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return conn, nil
}
