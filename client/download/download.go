package download

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// File is a download destination opened for append. It is written
// by one request at a time.
type File struct {
	f      *os.File
	path   string
	offset int64
	logger *slog.Logger
	opts   options

	w        io.Writer
	expected int64
	written  int64
}

// Open creates the parent directories of dest and opens dest for
// append, creating it when missing. The resume offset is size when
// size is positive, otherwise the current size of dest.
func Open(dest string, size int64, logger *slog.Logger, optFns ...Option) (*File, error) {
	if dest == "" {
		return nil, ErrEmptyPath
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening destination: %w", err)
	}

	offset := size
	if offset <= 0 {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("stat destination: %w", err)
		}
		offset = info.Size()
	}

	file := File{
		f:        f,
		path:     dest,
		offset:   offset,
		logger:   logger,
		opts:     opts,
		expected: -1,
	}

	return &file, nil
}

// Path returns the destination path.
func (f *File) Path() string { return f.path }

// Offset returns the byte offset the origin is asked to resume from.
func (f *File) Offset() int64 { return f.offset }

// Written returns the number of bytes appended so far.
func (f *File) Written() int64 { return f.written }

// Start prepares the writer chain for a body of total bytes, or an
// unknown length when total is negative.
func (f *File) Start(total int64) {
	f.expected = total
	f.written = 0
	f.opts.checksum.reset()

	var writer io.Writer = f.f
	if f.opts.checksum != nil {
		writer = io.MultiWriter(writer, f.opts.checksum)
	}

	if f.opts.progress {
		writer = &progressWriter{
			w:         writer,
			logger:    f.logger.With("path", f.path),
			total:     total,
			startTime: time.Now(),
		}
	}

	f.w = writer
}

// Write appends p to the destination.
func (f *File) Write(p []byte) (int, error) {
	if f.w == nil {
		f.Start(-1)
	}

	n, err := f.w.Write(p)
	f.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("appending to %s: %w", f.path, err)
	}

	return n, nil
}

// Finish checks the written length against the length given to
// Start and verifies the checksum, if one was configured.
func (f *File) Finish() error {
	if f.expected >= 0 && f.written != f.expected {
		return &Error{
			Path:   f.path,
			Offset: f.offset,
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", f.expected, f.written),
		}
	}

	if err := f.opts.checksum.verify(f); err != nil {
		return err
	}

	return nil
}

// Close flushes and closes the destination. It is safe to call more
// than once.
func (f *File) Close() error {
	if err := f.f.Sync(); err != nil && !errors.Is(err, os.ErrClosed) {
		f.logger.Error("syncing destination", "path", f.path, "error", err)
	}

	if err := f.f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("closing destination: %w", err)
	}

	return nil
}
