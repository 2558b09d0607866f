package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/press/client/download"
	"github.com/adamwoolhether/press/client/internal/http1"
	"github.com/adamwoolhether/press/client/transport"
)

type step int

const (
	stepResolve step = iota
	stepConnect
	stepWrite
	stepReadHeader
	stepParse
	stepReadBody
	stepFinish
)

func (s step) String() string {
	switch s {
	case stepResolve:
		return "resolve"
	case stepConnect:
		return "connect"
	case stepWrite:
		return "write"
	case stepReadHeader:
		return "read header"
	case stepParse:
		return "parse"
	case stepReadBody:
		return "read body"
	case stepFinish:
		return "finish"
	}

	return fmt.Sprintf("step(%d)", int(s))
}

// exchange is one request, or one probe, moving through the steps of
// a round trip on the client's loop.
type exchange struct {
	ctx     context.Context
	span    trace.Span
	probe   bool
	raw     string
	method  string
	body    []byte
	ctype   ContentType
	extra   []Header
	file    *download.File
	resolve func(*Response)

	step      step
	start     time.Time
	uri       http1.URI
	head      *http1.Head
	headLen   int
	streaming bool
}

func (x *exchange) label() string {
	if x.probe {
		return "ping"
	}

	return "request"
}

// await runs op off the loop and resumes with then on the loop. The
// loop is never stopped while an exchange is active, so the post
// cannot be refused.
func (c *Client) await(op func() error, then func(error)) {
	go func() {
		err := op()
		c.loop.post(func() { then(err) })
	}()
}

// begin makes x the active exchange.
func (c *Client) begin(x *exchange) {
	c.active = x
	x.start = time.Now()

	name := "press.request"
	if x.probe {
		name = "press.ping"
	}

	x.ctx, x.span = c.tracer.Start(x.ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	x.span.SetAttributes(
		attribute.String("client.id", c.id.String()),
		attribute.String("url.full", x.raw),
	)
	if !x.probe {
		x.span.SetAttributes(attribute.String("http.method", x.method))
	}

	if !x.probe {
		otel.GetTextMapPropagator().Inject(x.ctx, headerCarrier{headers: &x.extra})
	}

	c.moveTo(x, stepResolve)
}

func (c *Client) moveTo(x *exchange, s step) {
	x.step = s

	switch s {
	case stepResolve:
		c.resolveURI(x)
	case stepConnect:
		c.connect(x)
	case stepWrite:
		c.write(x)
	case stepReadHeader:
		c.readHeader(x)
	case stepParse:
		c.parse(x)
	case stepReadBody:
		c.readBody(x)
	case stepFinish:
		c.finish(x, nil)
	}
}

func (c *Client) resolveURI(x *exchange) {
	u, err := http1.ParseURI(x.raw)
	if err != nil {
		c.finish(x, fmt.Errorf("%w: %w", ErrProtocol, err))
		return
	}

	if u.Scheme == "https" {
		c.finish(x, fmt.Errorf("%w: https requires TLS, which is not available", ErrUnsupported))
		return
	}

	x.uri = u
	c.moveTo(x, stepConnect)
}

func (c *Client) connect(x *exchange) {
	addr := x.uri.Addr()

	after := stepWrite
	if x.probe {
		after = stepFinish
	}

	if c.conn.connected() {
		if c.conn.addr == addr {
			c.moveTo(x, after)
			return
		}

		// A different origin needs its own connection. A probe keeps
		// the current one until its own dial succeeds.
		if !x.probe {
			c.closeConn()
		}
	}

	// Restored when the dial fails.
	prev := c.conn.state
	if !c.conn.connected() {
		c.conn.state = stateConnecting
	}

	var (
		nc         transport.Conn
		host, port = x.uri.Host, x.uri.Port
	)
	c.await(func() (err error) {
		nc, err = c.dialer.Dial(c.ctx, host, port)
		return err
	}, func(err error) {
		if c.closed.Load() {
			if nc != nil {
				nc.Close()
			}
			c.conn.state = stateClosed
			c.finish(x, ErrNotConnected)
			return
		}

		if err != nil {
			if c.conn.state == stateConnecting {
				c.conn.state = prev
			}
			c.finish(x, &OpError{Op: "dial", Err: err})
			return
		}

		if c.conn.connected() {
			if cerr := c.closeConn(); cerr != nil {
				c.logger.Debug("closing connection", "client", c.id, "error", cerr)
			}
		}

		c.conn.attach(nc, addr)
		c.moveTo(x, after)
	})
}

func (c *Client) write(x *exchange) {
	if !c.conn.connected() {
		c.finish(x, ErrNotConnected)
		return
	}

	c.hmu.RLock()
	req := buildRequest(x.uri, x.method, x.body, x.ctype, c.headers, x.extra)
	c.hmu.RUnlock()

	nc := c.conn.nc
	c.await(func() error {
		_, err := nc.Write(req)
		return err
	}, func(err error) {
		if err != nil {
			c.finish(x, &OpError{Op: "write", Err: err})
			return
		}

		c.moveTo(x, stepReadHeader)
	})
}

func (c *Client) readHeader(x *exchange) {
	if !c.conn.connected() {
		c.finish(x, ErrNotConnected)
		return
	}

	var (
		n   int
		nc  = c.conn.nc
		buf = &c.conn.buf
	)
	c.await(func() (err error) {
		n, err = buf.readUntil(nc, crlfcrlf, maxHeaderBytes)
		return err
	}, func(err error) {
		if err != nil {
			c.finish(x, &OpError{Op: "read header", Err: err})
			return
		}

		x.headLen = n
		c.moveTo(x, stepParse)
	})
}

func (c *Client) parse(x *exchange) {
	buf := &c.conn.buf

	head, err := http1.ParseResponse(buf.Bytes()[:x.headLen])
	if err != nil {
		c.finish(x, fmt.Errorf("%w: %w", ErrProtocol, err))
		return
	}

	if head.Chunked {
		x.head = head
		c.finish(x, fmt.Errorf("%w: chunked transfer encoding", ErrUnsupported))
		return
	}

	if x.method == http.MethodHead {
		head.BodyLen = 0
	}

	buf.consume(x.headLen)
	x.head = head

	// Only a successful response is appended to the destination.
	if x.file != nil && head.StatusCode/100 == 2 {
		x.streaming = true
		x.file.Start(int64(head.BodyLen))

		if n := min(head.BodyLen, buf.Len()); n > 0 {
			if _, err := x.file.Write(buf.Bytes()[:n]); err != nil {
				c.finish(x, &OpError{Op: "write file", Err: err})
				return
			}
		}
	}

	if buf.Len() >= head.BodyLen {
		c.moveTo(x, stepFinish)
		return
	}

	c.moveTo(x, stepReadBody)
}

func (c *Client) readBody(x *exchange) {
	if !c.conn.connected() {
		c.finish(x, ErrNotConnected)
		return
	}

	var (
		nc   = c.conn.nc
		buf  = &c.conn.buf
		need = x.head.BodyLen - buf.Len()
	)

	var onChunk func([]byte) error
	if x.streaming {
		onChunk = func(p []byte) error {
			if _, err := x.file.Write(p); err != nil {
				return &OpError{Op: "write file", Err: err}
			}
			return nil
		}
	}

	c.await(func() error {
		return buf.readFull(nc, need, onChunk)
	}, func(err error) {
		if err != nil {
			if _, ok := err.(*OpError); !ok {
				err = &OpError{Op: "read body", Err: err}
			}
			c.finish(x, err)
			return
		}

		c.moveTo(x, stepFinish)
	})
}

// finish classifies the outcome, settles the connection and resolves
// x. Anything buffered past the declared body is discarded.
func (c *Client) finish(x *exchange, err error) {
	resp := Response{Status: http.StatusNotFound}
	if x.head != nil {
		resp.StatusCode = x.head.StatusCode
		resp.Headers = x.head.Fields
		resp.KeepAlive = x.head.KeepAlive
	}

	buf := &c.conn.buf
	if err == nil {
		resp.Status = http.StatusOK
		if x.head != nil && x.head.BodyLen > 0 {
			resp.Body = buf.Bytes()[:x.head.BodyLen:x.head.BodyLen]
			if len(c.pending) > 0 {
				resp.Body = bytes.Clone(resp.Body)
			}
		}
	}
	buf.reset()

	if !x.probe && (err != nil || !resp.KeepAlive) {
		if cerr := c.closeConn(); cerr != nil {
			c.logger.Debug("closing connection", "client", c.id, "error", cerr)
		}
	}

	if x.file != nil {
		if err == nil && x.streaming {
			err = x.file.Finish()
		}
		if cerr := x.file.Close(); cerr != nil && err == nil {
			err = &OpError{Op: "close file", Err: cerr}
		}
	}
	resp.Err = err

	c.record(x, &resp)

	c.active = nil
	x.resolve(&resp)

	c.dispatch()
	c.stopIfIdle()
}

// record logs the outcome and ends the span.
func (c *Client) record(x *exchange, resp *Response) {
	x.span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.Int("http.response.body.size", len(resp.Body)),
		attribute.Bool("http.keep_alive", resp.KeepAlive),
	)

	args := []any{"client", c.id, "url", x.raw}
	if !x.probe {
		args = append(args, "method", x.method)
	}

	if resp.Err != nil {
		x.span.RecordError(resp.Err)
		x.span.SetStatus(codes.Error, resp.Err.Error())

		c.errLog.Do(func() {
			c.logger.Error(x.label()+" failed", append(args, "step", x.step, "error", resp.Err)...)
		})
	} else {
		c.logger.Debug(x.label()+" complete", append(args,
			"status", resp.StatusCode,
			"bytes", len(resp.Body),
			"elapsed", time.Since(x.start).Round(time.Microsecond),
		)...)
	}

	x.span.End()
}
