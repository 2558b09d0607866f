package download

import (
	"errors"
	"hash"
)

// Option defines optional settings for a download.
// WithChecksum enables checksum validation of the bytes written in
// this session. h is a hash.Hash instance (e.g. sha256.New()), and
// expected is the hex-encoded expected checksum string. When a
// download resumes, only the appended part is hashed.
//
// WithProgress enables periodic download progress logging via the
// logger supplied to Open.
type Option func(*options) error

type options struct {
	checksum *checksumVerifier
	progress bool
}

// WithChecksum verifies the hex encoded digest of the bytes appended
// by the response, not including a resumed prefix.
func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = &checksumVerifier{hash: h, expected: expected}
		return nil
	}
}

func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}
