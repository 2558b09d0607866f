package client

import (
	"hash"

	"github.com/adamwoolhether/press/client/download"
)

// ————————————————————————————————————————————————————————————————————
// Type aliases – re-export user-facing types from [download].
// ————————————————————————————————————————————————————————————————————

type (
	// DownloadOption configures a download.
	DownloadOption = download.Option

	// DownloadError reports a verification failure with the destination
	// path and the offset the response appended from.
	DownloadError = download.Error
)

// ————————————————————————————————————————————————————————————————————
// Sentinel errors
// ————————————————————————————————————————————————————————————————————

var (
	// ErrContentLengthMismatch indicates the bytes appended did not match Content-Length.
	ErrContentLengthMismatch = download.ErrContentLengthMismatch

	// ErrChecksumMismatch indicates the appended bytes did not hash to the expected value.
	ErrChecksumMismatch = download.ErrChecksumMismatch
)

// ————————————————————————————————————————————————————————————————————
// Download option forwarding functions
// ————————————————————————————————————————————————————————————————————

// WithChecksum enables checksum validation of the bytes appended by a
// download. h is a [hash.Hash] instance (e.g. sha256.New()), and
// expected is the hex-encoded expected checksum string.
func WithChecksum(h hash.Hash, expected string) DownloadOption {
	return download.WithChecksum(h, expected)
}

// WithProgress enables periodic download progress logging.
func WithProgress() DownloadOption { return download.WithProgress() }
