package transport

import (
	"errors"
	"io"
	"net"
	"syscall"
	"testing"
	"time"
)

// echoServer accepts one connection and echoes until EOF.
func echoServer(t *testing.T) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

// closedPort returns a local port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	return port
}

func roundTrip(t *testing.T, conn Conn) {
	t.Helper()

	msg := []byte("ping\r\n")
	if _, err := conn.Write(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := make([]byte, len(msg))
	if _, err := io.ReadFull(conn, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(msg) {
		t.Errorf("exp echo %q, got %q", msg, got)
	}
}

func TestNetDialer_Dial(t *testing.T) {
	host, port := echoServer(t)

	conn, err := NetDialer{Timeout: time.Second}.Dial(t.Context(), host, port)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	roundTrip(t, conn)
}

func TestNetDialer_Refused(t *testing.T) {
	_, err := NetDialer{Timeout: time.Second}.Dial(t.Context(), "127.0.0.1", closedPort(t))
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Errorf("exp ECONNREFUSED, got %v", err)
	}
}

func TestNetDialer_CloseUnblocksRead(t *testing.T) {
	host, port := echoServer(t)

	conn, err := NetDialer{}.Dial(t.Context(), host, port)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := conn.Read(make([]byte, 8))
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	conn.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, net.ErrClosed) {
			t.Errorf("exp net.ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("read was not unblocked by close")
	}
}

func newIOURingDialer(t *testing.T) *IOURingDialer {
	t.Helper()

	d, err := NewIOURingDialer(32)
	if errors.Is(err, ErrIOURingUnsupported) {
		t.Skipf("io_uring unavailable: %v", err)
	}
	if err != nil {
		t.Skipf("io_uring ring setup failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	return d
}

func TestIOURingDialer(t *testing.T) {
	d := newIOURingDialer(t)
	host, port := echoServer(t)

	conn, err := d.Dial(t.Context(), host, port)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	roundTrip(t, conn)
}

func TestIOURingDialer_Refused(t *testing.T) {
	d := newIOURingDialer(t)

	_, err := d.Dial(t.Context(), "127.0.0.1", closedPort(t))
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Errorf("exp ECONNREFUSED, got %v", err)
	}
}
