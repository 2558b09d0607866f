package http1

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrInvalidURI reports a URI that could not be decomposed.
	ErrInvalidURI = errors.New("invalid uri")
	// errUnescaped marks a URI rejected only because of bytes that need
	// percent-encoding, which makes it eligible for a retry.
	errUnescaped = errors.New("unescaped character")
)

// URI is a request target split into the parts the engine needs.
type URI struct {
	Scheme string
	Host   string
	Port   int
	Path   string
	Query  string
}

// RequestTarget returns path[?query] as written on the request line.
func (u URI) RequestTarget() string {
	if u.Query == "" {
		return u.Path
	}

	return u.Path + "?" + u.Query
}

// Addr returns host:port.
func (u URI) Addr() string {
	return net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
}

// ParseURI decomposes raw. When raw only fails because it carries
// characters that must be escaped, it is percent-encoded and parsed
// once more.
func ParseURI(raw string) (URI, error) {
	u, err := parseURI(raw)
	if err == nil {
		return u, nil
	}

	if !errors.Is(err, errUnescaped) {
		return URI{}, err
	}

	return parseURI(Escape(raw))
}

func parseURI(raw string) (URI, error) {
	for i := 0; i < len(raw); i++ {
		if !allowed(raw[i]) {
			return URI{}, fmt.Errorf("%w: %w %q at offset %d", ErrInvalidURI, errUnescaped, raw[i], i)
		}
	}

	pu, err := url.Parse(raw)
	if err != nil {
		return URI{}, fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}

	scheme := strings.ToLower(pu.Scheme)
	if scheme != "http" && scheme != "https" {
		return URI{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURI, pu.Scheme)
	}

	host := pu.Hostname()
	if host == "" {
		return URI{}, fmt.Errorf("%w: missing host", ErrInvalidURI)
	}

	port := 80
	if scheme == "https" {
		port = 443
	}
	if p := pu.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return URI{}, fmt.Errorf("%w: bad port %q", ErrInvalidURI, p)
		}
	}

	path := pu.EscapedPath()
	if path == "" {
		path = "/"
	}

	return URI{
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   path,
		Query:  pu.RawQuery,
	}, nil
}

// Escape percent-encodes every byte of s that may not appear literally
// in a URI, leaving reserved delimiters and existing escapes intact.
func Escape(s string) string {
	const hex = "0123456789ABCDEF"

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if allowed(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}

	return sb.String()
}

// allowed reports whether c may appear unescaped in a URI (RFC 3986
// unreserved, reserved and '%').
func allowed(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}

	return strings.IndexByte("-._~:/?#[]@!$&'()*+,;=%", c) >= 0
}
