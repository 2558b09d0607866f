//go:build linux && iouring

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/iceber/iouring-go"
)

// IOURingDialer connects and moves bytes through a shared io_uring
// instance instead of the Go netpoller.
type IOURingDialer struct {
	ring *iouring.IOURing

	mu     sync.Mutex
	closed bool
}

// NewIOURingDialer creates the ring with the given submission queue
// depth.
func NewIOURingDialer(entries uint) (*IOURingDialer, error) {
	ring, err := iouring.New(entries)
	if err != nil {
		return nil, fmt.Errorf("initializing io_uring: %w", err)
	}

	return &IOURingDialer{ring: ring}, nil
}

// Close releases the ring. Connections dialed from it must be closed
// first.
func (d *IOURingDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	return d.ring.Close()
}

func (d *IOURingDialer) Dial(ctx context.Context, host string, port int) (Conn, error) {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}

	var lastErr error
	for _, ip := range ips {
		conn, err := d.dial(ctx, ip.IP, port)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

func (d *IOURingDialer) dial(ctx context.Context, ip net.IP, port int) (*uringConn, error) {
	var (
		family int
		sa     syscall.Sockaddr
	)
	if ip4 := ip.To4(); ip4 != nil {
		sa4 := &syscall.SockaddrInet4{Port: port}
		copy(sa4.Addr[:], ip4)
		family, sa = syscall.AF_INET, sa4
	} else {
		sa6 := &syscall.SockaddrInet6{Port: port}
		copy(sa6.Addr[:], ip.To16())
		family, sa = syscall.AF_INET6, sa6
	}

	fd, err := syscall.Socket(family, syscall.SOCK_STREAM|syscall.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("creating socket: %w", err)
	}

	c := &uringConn{ring: d.ring, fd: fd}

	// Closing the socket aborts a connect still in flight.
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	prep, err := iouring.Connect(fd, sa)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("preparing connect: %w", err)
	}

	if err := c.await(prep); err != nil {
		c.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &net.OpError{Op: "dial", Net: "tcp", Addr: &net.TCPAddr{IP: ip, Port: port}, Err: err}
	}

	if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1); err != nil {
		c.Close()
		return nil, fmt.Errorf("setting TCP_NODELAY: %w", err)
	}

	return c, nil
}

type uringConn struct {
	ring *iouring.IOURing
	fd   int

	mu     sync.Mutex
	closed bool
}

func (c *uringConn) complete(prep iouring.PrepRequest) (iouring.Result, error) {
	ch := make(chan iouring.Result, 1)
	if _, err := c.ring.SubmitRequest(prep, ch); err != nil {
		return nil, err
	}

	return <-ch, nil
}

// submit runs a request whose completion carries a byte count.
func (c *uringConn) submit(prep iouring.PrepRequest) (int, error) {
	res, err := c.complete(prep)
	if err != nil {
		return 0, err
	}

	return res.ReturnInt()
}

// await runs a request whose completion carries only an error.
func (c *uringConn) await(prep iouring.PrepRequest) error {
	res, err := c.complete(prep)
	if err != nil {
		return err
	}

	return res.Err()
}

func (c *uringConn) Read(p []byte) (int, error) {
	if c.isClosed() {
		return 0, net.ErrClosed
	}

	n, err := c.submit(iouring.Recv(c.fd, p, 0))
	if err != nil {
		if c.isClosed() {
			return 0, net.ErrClosed
		}
		return 0, err
	}
	if n == 0 && len(p) > 0 {
		return 0, errors.Join(net.ErrClosed, syscall.ECONNRESET)
	}

	return n, nil
}

func (c *uringConn) Write(p []byte) (int, error) {
	var written int
	for written < len(p) {
		if c.isClosed() {
			return written, net.ErrClosed
		}

		n, err := c.submit(iouring.Send(c.fd, p[written:], 0))
		if err != nil {
			return written, err
		}
		if n <= 0 {
			return written, syscall.EPIPE
		}
		written += n
	}

	return written, nil
}

// Close shuts the socket down first so a pending recv returns.
func (c *uringConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	_ = syscall.Shutdown(c.fd, syscall.SHUT_RDWR)

	return syscall.Close(c.fd)
}

func (c *uringConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}
