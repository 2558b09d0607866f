package client

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/adamwoolhether/press/client/throttle"
	"github.com/adamwoolhether/press/client/transport"
)

// Option is a functional option for configuring a [Client] via [New].
type Option func(*options) error
type options struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	dialer      transport.Dialer
	dialTimeout *time.Duration
	iouring     uint
	throttle    *throttle.Config
	limiter     *throttle.Limiter
	userAgent   string
	headers     []Header
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithTracer records one span per request on tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithDialer replaces the default [transport.NetDialer].
func WithDialer(d transport.Dialer) Option {
	return func(c *options) error {
		if d == nil {
			return errors.New("dialer must not be nil")
		}
		c.dialer = d
		return nil
	}
}

// WithDialTimeout bounds connection establishment on the default dialer.
func WithDialTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("dial timeout must not be negative")
		}
		c.dialTimeout = &d
		return nil
	}
}

// WithIOUring runs the connection over an io_uring ring with the
// given number of entries. The client owns the ring and closes it
// with the client. Only available on linux in builds with the
// iouring tag; elsewhere New fails with transport.ErrIOURingUnsupported.
func WithIOUring(entries uint) Option {
	return func(c *options) error {
		if entries == 0 {
			return fmt.Errorf("io_uring entries %w", throttle.ErrMustNotBeZero)
		}
		c.iouring = entries
		return nil
	}
}

// WithThrottle paces requests with a limiter of its own, allowing
// rps requests per second with the given burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		c.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithLimiter paces requests with l, which may be shared between
// clients.
func WithLimiter(l *throttle.Limiter) Option {
	return func(c *options) error {
		if l == nil {
			return errors.New("limiter must not be nil")
		}
		c.limiter = l
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *options) error {
		if ua == "" {
			return errors.New("user agent must not be empty")
		}
		c.userAgent = ua
		return nil
	}
}

// WithHeader adds a persistent header, as AddHeader does.
func WithHeader(name, value string) Option {
	return func(c *options) error {
		if !validHeaderName(name) {
			return fmt.Errorf("header name %q is not allowed", name)
		}
		c.headers = append(c.headers, Header{Name: name, Value: value})
		return nil
	}
}

func (o *options) buildLimiter() (*throttle.Limiter, error) {
	if o.limiter != nil {
		return o.limiter, nil
	}

	if o.throttle == nil {
		return nil, nil
	}

	return throttle.New(rate.Limit(o.throttle.RPS), o.throttle.Burst)
}

func (o *options) buildDialer() (transport.Dialer, error) {
	switch {
	case o.dialer != nil:
		return o.dialer, nil
	case o.iouring > 0:
		d, err := transport.NewIOURingDialer(o.iouring)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	var d transport.NetDialer
	if o.dialTimeout != nil {
		d.Timeout = *o.dialTimeout
	}

	return d, nil
}
