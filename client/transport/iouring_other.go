//go:build !linux || !iouring

package transport

import "context"

// IOURingDialer is unavailable off linux and in builds without the
// iouring tag.
type IOURingDialer struct{}

func NewIOURingDialer(entries uint) (*IOURingDialer, error) {
	return nil, ErrIOURingUnsupported
}

func (d *IOURingDialer) Close() error { return nil }

func (d *IOURingDialer) Dial(ctx context.Context, host string, port int) (Conn, error) {
	return nil, ErrIOURingUnsupported
}
