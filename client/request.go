package client

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/adamwoolhether/press/client/internal/http1"
)

// resumeHeader advertises the byte offset a download resumes from.
const resumeHeader = "cinatra_start_pos"

func validHeaderName(name string) bool {
	return name != "" && !strings.EqualFold(name, "Host")
}

// buildRequest serializes a request: the request line, Host,
// Content-Type, the persistent headers in insertion order, the
// per-request headers, Connection unless one was given, and
// Content-Length when there is a body or the method is POST.
// A per-request header replaces persistent headers of the same name.
func buildRequest(u http1.URI, method string, body []byte, ct ContentType, headers, extra []Header) []byte {
	var b bytes.Buffer
	b.Grow(256 + len(body))

	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(u.RequestTarget())
	b.WriteString(" HTTP/1.1\r\n")

	writeField(&b, "Host", hostHeader(u.Host))

	if mt := ct.String(); mt != "" {
		writeField(&b, "Content-Type", mt)
	}

	var hasConnection bool
	for _, h := range headers {
		if replaced(h.Name, extra) {
			continue
		}
		if strings.EqualFold(h.Name, "Connection") {
			hasConnection = true
		}
		writeField(&b, h.Name, h.Value)
	}

	for _, h := range extra {
		if strings.EqualFold(h.Name, "Connection") {
			hasConnection = true
		}
		writeField(&b, h.Name, h.Value)
	}

	if !hasConnection {
		writeField(&b, "Connection", "keep-alive")
	}

	if len(body) > 0 || method == http.MethodPost {
		writeField(&b, "Content-Length", strconv.Itoa(len(body)))
	}

	b.WriteString("\r\n")
	b.Write(body)

	return b.Bytes()
}

func writeField(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

func replaced(name string, extra []Header) bool {
	for _, h := range extra {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}

	return false
}

// hostHeader brackets IPv6 literals.
func hostHeader(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}

	return host
}

// headerCarrier lets a propagator inject trace context into the
// per-request headers.
type headerCarrier struct {
	headers *[]Header
}

func (hc headerCarrier) Get(key string) string {
	for _, h := range *hc.headers {
		if strings.EqualFold(h.Name, key) {
			return h.Value
		}
	}

	return ""
}

func (hc headerCarrier) Set(key, value string) {
	for i, h := range *hc.headers {
		if strings.EqualFold(h.Name, key) {
			(*hc.headers)[i].Value = value
			return
		}
	}

	*hc.headers = append(*hc.headers, Header{Name: key, Value: value})
}

func (hc headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*hc.headers))
	for _, h := range *hc.headers {
		keys = append(keys, h.Name)
	}

	return keys
}
