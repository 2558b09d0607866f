// Package http1 holds the wire-level helpers the client engine builds
// on: decomposing a request URI and parsing an HTTP/1.x response head.
package http1
