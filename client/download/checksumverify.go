package download

import (
	"encoding/hex"
	"fmt"
	"hash"
)

// checksumVerifier hashes the bytes a response appends. A resumed
// prefix already on disk is not part of the digest.
type checksumVerifier struct {
	hash     hash.Hash
	expected string
	hashed   int64
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	n, err := v.hash.Write(p)
	v.hashed += int64(n)
	return n, err
}

// reset starts a fresh digest for the next response on the file.
func (v *checksumVerifier) reset() {
	if v == nil {
		return
	}

	v.hash.Reset()
	v.hashed = 0
}

func (v *checksumVerifier) verify(f *File) error {
	if v == nil {
		return nil
	}

	actual := hex.EncodeToString(v.hash.Sum(nil))
	if actual == v.expected {
		return nil
	}

	return &Error{
		Path:   f.path,
		Offset: f.offset,
		Err:    ErrChecksumMismatch,
		Detail: fmt.Sprintf("expected %s over %d bytes, got %s", v.expected, v.hashed, actual),
	}
}
