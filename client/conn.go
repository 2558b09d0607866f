package client

import (
	"bytes"
	"fmt"
	"io"

	"github.com/adamwoolhether/press/client/transport"
)

const (
	// maxHeaderBytes bounds the response head.
	maxHeaderBytes = 64 << 10

	readChunk = 4 << 10

	// maxIdleBuffer is the largest receive buffer kept between requests.
	maxIdleBuffer = 1 << 20
)

var crlfcrlf = []byte("\r\n\r\n")

type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateConnected
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateClosed:
		return "closed"
	}

	return fmt.Sprintf("connState(%d)", int(s))
}

// connection is the client's one transport connection and its
// receive buffer.
type connection struct {
	nc    transport.Conn
	addr  string
	state connState
	buf   recvBuffer
}

func (c *connection) attach(nc transport.Conn, addr string) {
	c.nc = nc
	c.addr = addr
	c.state = stateConnected
}

func (c *connection) connected() bool {
	return c.state == stateConnected
}

// close closes the socket, unblocking any read or write in flight.
func (c *connection) close() error {
	c.state = stateClosed
	c.addr = ""

	if c.nc == nil {
		return nil
	}

	err := c.nc.Close()
	c.nc = nil

	return err
}

// recvBuffer accumulates bytes read from the connection. Bytes before
// off have been consumed.
type recvBuffer struct {
	buf []byte
	off int
}

// Bytes returns the unconsumed bytes.
func (b *recvBuffer) Bytes() []byte { return b.buf[b.off:] }

// Len returns the number of unconsumed bytes.
func (b *recvBuffer) Len() int { return len(b.buf) - b.off }

func (b *recvBuffer) consume(n int) {
	b.off += min(n, b.Len())
}

// reset discards everything, dropping the backing array when it grew
// past maxIdleBuffer.
func (b *recvBuffer) reset() {
	if cap(b.buf) > maxIdleBuffer {
		b.buf = nil
	}
	b.buf = b.buf[:0]
	b.off = 0
}

// fill reads once from r, at most size bytes.
func (b *recvBuffer) fill(r io.Reader, size int) (int, error) {
	if cap(b.buf)-len(b.buf) < size {
		b.buf = append(b.buf, make([]byte, size)...)[:len(b.buf)]
	}

	n, err := r.Read(b.buf[len(b.buf) : len(b.buf)+size])
	b.buf = b.buf[:len(b.buf)+n]

	return n, err
}

// readUntil reads from r until the unconsumed bytes contain delim and
// returns the length of the prefix ending with delim.
func (b *recvBuffer) readUntil(r io.Reader, delim []byte, limit int) (int, error) {
	var (
		scanned int
		err     error
	)
	for {
		if i := bytes.Index(b.Bytes()[scanned:], delim); i >= 0 {
			return scanned + i + len(delim), nil
		}

		if err != nil {
			if err == io.EOF && b.Len() > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}

		if b.Len() >= limit {
			return 0, fmt.Errorf("%w: response head exceeds %d bytes", ErrProtocol, limit)
		}
		scanned = max(0, b.Len()-len(delim)+1)

		var n int
		n, err = b.fill(r, readChunk)
		if n == 0 && err == nil {
			return 0, io.ErrNoProgress
		}
	}
}

// readFull reads exactly n more bytes from r, handing each chunk to
// onChunk when it is set.
func (b *recvBuffer) readFull(r io.Reader, n int, onChunk func([]byte) error) error {
	for n > 0 {
		got, err := b.fill(r, min(n, 64<<10))
		if got > 0 {
			n -= got
			if onChunk != nil {
				if cerr := onChunk(b.buf[len(b.buf)-got:]); cerr != nil {
					return cerr
				}
			}
		}

		if err != nil && n > 0 {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		if got == 0 && err == nil {
			return io.ErrNoProgress
		}
	}

	return nil
}
