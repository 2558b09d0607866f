package download

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPath             = errors.New("destination path must not be empty")
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
)

// Error reports a download that reached the destination but failed
// verification. Offset is where the response started appending.
type Error struct {
	Path   string
	Offset int64
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s from offset %d: %v: %s", e.Path, e.Offset, e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}
