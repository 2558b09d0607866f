package http1

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedStatus = errors.New("malformed status line")
	ErrMalformedHeader = errors.New("malformed header")
	ErrContentLength   = errors.New("invalid content-length")
)

// Field is one header line, in the order it appeared on the wire.
type Field struct {
	Name  string
	Value string
}

// Head is a parsed response head.
type Head struct {
	StatusLine string
	Proto      string
	Major      int
	Minor      int
	StatusCode int
	Reason     string
	Fields     []Field

	// BodyLen is the declared body length: Content-Length, or zero when
	// absent or when the status never carries a body.
	BodyLen   int
	KeepAlive bool
	Chunked   bool
}

// ParseResponse parses block, which holds the status line and header
// lines and may end with the blank line that terminates the head.
func ParseResponse(block []byte) (*Head, error) {
	block = bytes.TrimSuffix(block, []byte("\r\n\r\n"))

	lines := strings.Split(string(block), "\r\n")

	h, err := parseStatusLine(lines[0])
	if err != nil {
		return nil, err
	}

	contentLength := -1
	var connTokens []string
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			return nil, fmt.Errorf("%w: obsolete line folding", ErrMalformedHeader)
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		value = strings.TrimSpace(value)
		h.Fields = append(h.Fields, Field{Name: name, Value: value})

		switch {
		case strings.EqualFold(name, "Content-Length"):
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %q", ErrContentLength, value)
			}
			if contentLength >= 0 && contentLength != n {
				return nil, fmt.Errorf("%w: conflicting values %d and %d", ErrContentLength, contentLength, n)
			}
			contentLength = n

		case strings.EqualFold(name, "Transfer-Encoding"):
			if hasToken(value, "chunked") {
				h.Chunked = true
			}

		case strings.EqualFold(name, "Connection"):
			connTokens = append(connTokens, value)
		}
	}

	conn := strings.Join(connTokens, ",")
	switch {
	case hasToken(conn, "close"):
		h.KeepAlive = false
	case h.Major == 1 && h.Minor >= 1:
		h.KeepAlive = true
	default:
		h.KeepAlive = hasToken(conn, "keep-alive")
	}

	if contentLength > 0 && !bodyless(h.StatusCode) {
		h.BodyLen = contentLength
	}

	return h, nil
}

func parseStatusLine(line string) (*Head, error) {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedStatus, line)
	}

	version, ok := strings.CutPrefix(proto, "HTTP/")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedStatus, line)
	}
	majorStr, minorStr, ok := strings.Cut(version, ".")
	if !ok {
		return nil, fmt.Errorf("%w: bad version %q", ErrMalformedStatus, proto)
	}
	major, err1 := strconv.Atoi(majorStr)
	minor, err2 := strconv.Atoi(minorStr)
	if err1 != nil || err2 != nil || major != 1 {
		return nil, fmt.Errorf("%w: bad version %q", ErrMalformedStatus, proto)
	}

	codeStr, reason, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil || len(codeStr) != 3 || code < 100 {
		return nil, fmt.Errorf("%w: bad status code %q", ErrMalformedStatus, codeStr)
	}

	return &Head{
		StatusLine: line,
		Proto:      proto,
		Major:      major,
		Minor:      minor,
		StatusCode: code,
		Reason:     reason,
	}, nil
}

// bodyless reports statuses that never carry a body regardless of
// Content-Length.
func bodyless(code int) bool {
	return (code >= 100 && code < 200) || code == 204 || code == 304
}

// hasToken reports whether the comma separated list v contains token,
// compared case-insensitively.
func hasToken(v, token string) bool {
	for part := range strings.SplitSeq(v, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}

	return false
}
