package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/adamwoolhether/press/client/download"
	"github.com/adamwoolhether/press/client/throttle"
	"github.com/adamwoolhether/press/client/transport"
)

// Client is one logical connection endpoint. Requests submitted from
// any goroutine are queued and run one at a time on the client's
// connection, which is kept open while the origin allows keep-alive.
type Client struct {
	id      uuid.UUID
	logger  *slog.Logger
	tracer  trace.Tracer
	dialer  transport.Dialer
	owned   io.Closer
	limiter *throttle.Limiter
	errLog  rate.Sometimes

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	loop   *loop

	hmu     sync.RWMutex
	headers []Header

	// Owned by the loop.
	conn    connection
	pending []*exchange
	active  *exchange
}

// New builds a Client and starts its loop. The loop runs until Close.
func New(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	limiter, err := opts.buildLimiter()
	if err != nil {
		return nil, fmt.Errorf("configuring throttle: %w", err)
	}

	dialer, err := opts.buildDialer()
	if err != nil {
		return nil, fmt.Errorf("configuring transport: %w", err)
	}

	c := Client{
		id:      uuid.New(),
		logger:  slog.Default(),
		tracer:  noop.NewTracerProvider().Tracer("no-op tracer"),
		dialer:  dialer,
		limiter: limiter,
		errLog:  rate.Sometimes{Interval: time.Second},
		loop:    newLoop(),
	}

	if opts.logger != nil {
		c.logger = opts.logger
	}

	if opts.tracer != nil {
		c.tracer = opts.tracer
	}

	if closer, ok := dialer.(io.Closer); ok && opts.dialer == nil {
		c.owned = closer
	}

	if opts.userAgent != "" {
		c.headers = append(c.headers, Header{Name: "User-Agent", Value: opts.userAgent})
	}
	c.headers = append(c.headers, opts.headers...)

	c.ctx, c.cancel = context.WithCancel(context.Background())

	go c.loop.run()

	return &c, nil
}

// ID identifies the client in logs and spans.
func (c *Client) ID() uuid.UUID { return c.id }

// AddHeader appends a header sent with every later request. Empty
// names and Host, which is always derived from the URI, are ignored.
func (c *Client) AddHeader(name, value string) {
	if !validHeaderName(name) {
		return
	}

	c.hmu.Lock()
	defer c.hmu.Unlock()

	c.headers = append(c.headers, Header{Name: name, Value: value})
}

// DelHeader removes every persistent header named name.
func (c *Client) DelHeader(name string) {
	c.hmu.Lock()
	defer c.hmu.Unlock()

	c.headers = slices.DeleteFunc(c.headers, func(h Header) bool {
		return strings.EqualFold(h.Name, name)
	})
}

// ResetHeaders removes all persistent headers.
func (c *Client) ResetHeaders() {
	c.hmu.Lock()
	defer c.hmu.Unlock()

	c.headers = nil
}

// Headers returns a copy of the persistent headers in send order.
func (c *Client) Headers() []Header {
	c.hmu.RLock()
	defer c.hmu.RUnlock()

	return slices.Clone(c.headers)
}

// PingAsync connects to the origin of uri without sending a request.
// The result reports whether the client is connected afterwards. A
// failed probe leaves the connection state as it was.
func (c *Client) PingAsync(ctx context.Context, uri string) *Call[bool] {
	call := newCall[bool]()

	x := exchange{
		ctx:   ctx,
		probe: true,
		raw:   uri,
		resolve: func(r *Response) {
			call.resolve(r.Err == nil)
		},
	}
	c.submit(&x)

	return call
}

// Ping is the blocking form of PingAsync.
func (c *Client) Ping(ctx context.Context, uri string) bool {
	return c.PingAsync(ctx, uri).Wait()
}

// RequestAsync sends one request. The result is delivered through the
// returned Call; transport and protocol failures are reported in
// Response.Err, never by panicking or blocking the caller.
func (c *Client) RequestAsync(ctx context.Context, uri, method string, body []byte, ct ContentType) *Call[*Response] {
	return c.request(ctx, uri, method, body, ct, nil, nil)
}

// Request is the blocking form of RequestAsync. It must not be called
// from inside the client's loop.
func (c *Client) Request(ctx context.Context, uri, method string, body []byte, ct ContentType) *Response {
	return c.RequestAsync(ctx, uri, method, body, ct).Wait()
}

// GetAsync sends a GET without a body.
func (c *Client) GetAsync(ctx context.Context, uri string) *Call[*Response] {
	return c.RequestAsync(ctx, uri, http.MethodGet, nil, ContentNone)
}

// Get is the blocking form of GetAsync.
func (c *Client) Get(ctx context.Context, uri string) *Response {
	return c.GetAsync(ctx, uri).Wait()
}

// PostAsync sends a POST. Content-Length is always written, even for
// an empty body.
func (c *Client) PostAsync(ctx context.Context, uri string, body []byte, ct ContentType) *Call[*Response] {
	return c.RequestAsync(ctx, uri, http.MethodPost, body, ct)
}

// Post is the blocking form of PostAsync.
func (c *Client) Post(ctx context.Context, uri string, body []byte, ct ContentType) *Response {
	return c.PostAsync(ctx, uri, body, ct).Wait()
}

// DownloadAsync appends the body of src to dest. The origin is asked
// to resume from size when it is positive, otherwise from the current
// size of dest, through the cinatra_start_pos request header. Parent
// directories of dest are created as needed. Only a 2xx body is
// written to dest.
func (c *Client) DownloadAsync(ctx context.Context, src, dest string, size int64, opts ...DownloadOption) *Call[*Response] {
	if c.closed.Load() {
		return c.request(ctx, src, http.MethodGet, nil, ContentNone, nil, nil)
	}

	f, err := download.Open(dest, size, c.logger, opts...)
	if err != nil {
		call := newCall[*Response]()
		call.resolve(&Response{
			Err:    &OpError{Op: "open file", Err: err},
			Status: http.StatusNotFound,
		})
		return call
	}

	extra := []Header{{Name: resumeHeader, Value: strconv.FormatInt(f.Offset(), 10)}}

	return c.request(ctx, src, http.MethodGet, nil, ContentNone, extra, f)
}

// Download is the blocking form of DownloadAsync.
func (c *Client) Download(ctx context.Context, src, dest string, size int64, opts ...DownloadOption) *Response {
	return c.DownloadAsync(ctx, src, dest, size, opts...).Wait()
}

// Close shuts the connection down on the client's loop, fails queued
// requests with ErrNotConnected and waits for the loop to exit. A
// request in flight fails with the transport error the shutdown
// causes. Close is idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		<-c.loop.done
		return nil
	}

	c.loop.post(c.shutdown)
	<-c.loop.done

	c.logger.Debug("client closed", "client", c.id)

	if c.owned != nil {
		if err := c.owned.Close(); err != nil {
			return fmt.Errorf("closing transport: %w", err)
		}
	}

	return nil
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

func (c *Client) request(ctx context.Context, uri, method string, body []byte, ct ContentType, extra []Header, f *download.File) *Call[*Response] {
	call := newCall[*Response]()

	x := exchange{
		ctx:     ctx,
		raw:     uri,
		method:  method,
		body:    body,
		ctype:   ct,
		extra:   extra,
		file:    f,
		resolve: call.resolve,
	}
	c.submit(&x)

	return call
}

func (c *Client) submit(x *exchange) {
	if c.closed.Load() {
		c.abandon(x)
		return
	}

	if c.limiter != nil && !x.probe {
		c.pace(x)
		return
	}

	c.enqueue(x)
}

// pace holds x back until the limiter has a token for it.
func (c *Client) pace(x *exchange) {
	ready := c.limiter.WaitAsync()

	select {
	case <-ready:
		c.enqueue(x)
		return
	default:
	}

	c.logger.Debug("throttle tokens exhausted", "client", c.id)

	go func() {
		select {
		case <-ready:
		case <-c.ctx.Done():
		}
		c.enqueue(x)
	}()
}

func (c *Client) enqueue(x *exchange) {
	if !c.loop.post(func() { c.admit(x) }) {
		c.abandon(x)
	}
}

func (c *Client) admit(x *exchange) {
	if c.closed.Load() {
		c.abandon(x)
		return
	}

	c.pending = append(c.pending, x)
	c.dispatch()
}

// dispatch starts the next queued exchange when none is active.
func (c *Client) dispatch() {
	if c.active != nil || len(c.pending) == 0 {
		return
	}

	x := c.pending[0]
	c.pending[0] = nil
	c.pending = c.pending[1:]

	c.begin(x)
}

// abandon resolves an exchange that never started.
func (c *Client) abandon(x *exchange) {
	if x.file != nil {
		x.file.Close()
	}

	x.resolve(&Response{Err: ErrNotConnected, Status: http.StatusNotFound})
}

func (c *Client) closeConn() error {
	return c.conn.close()
}

// shutdown runs on the loop once Close has marked the client closed.
func (c *Client) shutdown() {
	if err := c.closeConn(); err != nil {
		c.logger.Debug("closing connection", "client", c.id, "error", err)
	}
	c.cancel()

	pending := c.pending
	c.pending = nil
	for _, x := range pending {
		c.abandon(x)
	}

	c.stopIfIdle()
}

func (c *Client) stopIfIdle() {
	if !c.closed.Load() || c.active != nil || len(c.pending) > 0 {
		return
	}

	c.cancel()
	c.loop.stop()
}
