package client

import (
	"bytes"
	"slices"
	"strings"

	"github.com/adamwoolhether/press/client/internal/http1"
)

// Header is a name/value pair. Response headers keep wire order and
// are not deduplicated.
type Header = http1.Field

// ContentType selects the Content-Type written with a request.
type ContentType int

const (
	ContentNone ContentType = iota
	ContentJSON
	ContentText
	ContentHTML
	ContentForm
	ContentMultipart
	ContentOctetStream
)

// String returns the media type, or "" for ContentNone.
func (ct ContentType) String() string {
	switch ct {
	case ContentJSON:
		return "application/json"
	case ContentText:
		return "text/plain"
	case ContentHTML:
		return "text/html; charset=UTF-8"
	case ContentForm:
		return "application/x-www-form-urlencoded"
	case ContentMultipart:
		return "multipart/form-data"
	case ContentOctetStream:
		return "application/octet-stream"
	}

	return ""
}

// Response is the outcome of one request. Err is checked first: it
// is set for transport, protocol and file errors, never for an HTTP
// error status.
//
// Body is borrowed from the client's receive buffer and is valid
// until the next operation on the same client; use Clone to keep it.
type Response struct {
	Err error

	// Status is http.StatusOK when a complete response was read and
	// http.StatusNotFound when none was.
	Status int

	// StatusCode is the code from the status line, 0 without one.
	StatusCode int
	Headers    []Header
	Body       []byte
	KeepAlive  bool
}

// Get returns the first header named name, compared case-insensitively.
func (r *Response) Get(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}

	return "", false
}

// Clone returns a copy that owns its body and headers.
func (r *Response) Clone() *Response {
	cpy := *r
	cpy.Headers = slices.Clone(r.Headers)
	cpy.Body = bytes.Clone(r.Body)

	return &cpy
}

// Call is a pending operation. Done is closed once the result is
// available.
type Call[T any] struct {
	done chan struct{}
	val  T
}

func newCall[T any]() *Call[T] {
	return &Call[T]{done: make(chan struct{})}
}

// Done returns a channel closed when the operation completes.
func (c *Call[T]) Done() <-chan struct{} { return c.done }

// Wait blocks until the operation completes and returns its result.
// It must not be called from inside the client's own loop.
func (c *Call[T]) Wait() T {
	<-c.done
	return c.val
}

func (c *Call[T]) resolve(v T) {
	c.val = v
	close(c.done)
}
