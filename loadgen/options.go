package loadgen

import (
	"errors"
	"log/slog"

	"github.com/adamwoolhether/press/client"
)

// Option is a functional option for [Run].
type Option func(*options) error
type options struct {
	logger     *slog.Logger
	clientOpts []client.Option
}

// WithLogger injects a custom [slog.Logger] into the run and its clients.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithClientOptions applies opts to every client of the run.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) error {
		o.clientOpts = append(o.clientOpts, opts...)
		return nil
	}
}
