package download_test

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/adamwoolhether/press/client/download"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestOpen_CreatesParents(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a", "b", "file.bin")

	f, err := download.Open(dest, 0, discard)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if f.Offset() != 0 {
		t.Errorf("exp offset 0, got %d", f.Offset())
	}
	if f.Path() != dest {
		t.Errorf("exp path %q, got %q", dest, f.Path())
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("exp destination to exist: %v", err)
	}
}

func TestOpen_Offset(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		size     int64
		exp      int64
	}{
		{name: "missing file", exp: 0},
		{name: "partial file", existing: "12345", exp: 5},
		{name: "explicit size wins", existing: "12345", size: 42, exp: 42},
		{name: "negative size falls back", existing: "123", size: -1, exp: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "file.bin")
			if tt.existing != "" {
				if err := os.WriteFile(dest, []byte(tt.existing), 0o644); err != nil {
					t.Fatalf("seeding file: %v", err)
				}
			}

			f, err := download.Open(dest, tt.size, discard)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer f.Close()

			if f.Offset() != tt.exp {
				t.Errorf("exp offset %d, got %d", tt.exp, f.Offset())
			}
		})
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := download.Open("", 0, discard); !errors.Is(err, download.ErrEmptyPath) {
		t.Errorf("exp ErrEmptyPath, got %v", err)
	}
}

func TestOpen_BadOption(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.bin")

	if _, err := download.Open(dest, 0, discard, download.WithChecksum(nil, "abc")); err == nil {
		t.Error("exp error for nil hash")
	}
	if _, err := download.Open(dest, 0, discard, download.WithChecksum(sha256.New(), "")); err == nil {
		t.Error("exp error for empty checksum")
	}
}

func TestFile_Appends(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.bin")
	if err := os.WriteFile(dest, []byte("hello "), 0o644); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	f, err := download.Open(dest, 0, discard, download.WithProgress())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	f.Start(5)
	for _, chunk := range []string{"wo", "rld"} {
		if _, err := f.Write([]byte(chunk)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if err := f.Finish(); err != nil {
		t.Errorf("finish: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff("hello world", string(got)); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}
	if f.Written() != 5 {
		t.Errorf("exp 5 bytes written, got %d", f.Written())
	}
}

func TestFile_LengthMismatch(t *testing.T) {
	f, err := download.Open(filepath.Join(t.TempDir(), "file.bin"), 0, discard)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	f.Start(10)
	f.Write([]byte("short"))

	err = f.Finish()
	if !errors.Is(err, download.ErrContentLengthMismatch) {
		t.Fatalf("exp ErrContentLengthMismatch, got %v", err)
	}

	var dlErr *download.Error
	if !errors.As(err, &dlErr) {
		t.Fatalf("exp *download.Error, got %T", err)
	}
	if dlErr.Detail != "expected 10 bytes, got 5" {
		t.Errorf("unexpected detail %q", dlErr.Detail)
	}
}

func TestFile_ChecksumMismatchNamesResume(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.bin")
	if err := os.WriteFile(dest, []byte("prefix-"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f, err := download.Open(dest, 0, discard, download.WithChecksum(sha256.New(), "deadbeef"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	f.Start(4)
	f.Write([]byte("tail"))

	var dlErr *download.Error
	if err := f.Finish(); !errors.As(err, &dlErr) {
		t.Fatalf("exp *download.Error, got %v", err)
	}

	sum := sha256.Sum256([]byte("tail"))
	exp := download.Error{
		Path:   dest,
		Offset: 7,
		Err:    download.ErrChecksumMismatch,
		Detail: "expected deadbeef over 4 bytes, got " + hex.EncodeToString(sum[:]),
	}
	if diff := cmp.Diff(exp, *dlErr, cmpopts.EquateErrors()); diff != "" {
		t.Errorf("error mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(dlErr.Error(), "from offset 7") {
		t.Errorf("exp offset in message, got %q", dlErr.Error())
	}
}

func TestFile_Checksum(t *testing.T) {
	body := []byte("checksummed payload")
	sum := sha256.Sum256(body)
	good := hex.EncodeToString(sum[:])

	tests := []struct {
		name     string
		expected string
		expErr   error
	}{
		{name: "match", expected: good},
		{name: "mismatch", expected: "deadbeef", expErr: download.ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := download.Open(filepath.Join(t.TempDir(), "file.bin"), 0, discard,
				download.WithChecksum(sha256.New(), tt.expected),
			)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer f.Close()

			f.Start(int64(len(body)))
			f.Write(body)

			if err := f.Finish(); !errors.Is(err, tt.expErr) {
				t.Errorf("exp %v, got %v", tt.expErr, err)
			}
		})
	}
}

func TestFile_UnknownLength(t *testing.T) {
	f, err := download.Open(filepath.Join(t.TempDir(), "file.bin"), 0, discard, download.WithProgress())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	f.Write([]byte("no start"))

	if err := f.Finish(); err != nil {
		t.Errorf("exp no error for unknown length, got %v", err)
	}
}
