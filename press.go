// Package press exposes the client and load test builders.
package press

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/adamwoolhether/press/client"
	"github.com/adamwoolhether/press/client/throttle"
	"github.com/adamwoolhether/press/loadgen"
)

// NewClient instantiates a new *client.Client with the provided options.
// If not specified, connections are dialed over plain TCP.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.New(opts...)
}

// NewLimiter returns a limiter that can be shared between clients
// with client.WithLimiter.
func NewLimiter(r rate.Limit, burst int) (*throttle.Limiter, error) {
	return throttle.New(r, burst)
}

// Run executes a load test, see loadgen.Run.
func Run(ctx context.Context, cfg loadgen.Config, opts ...loadgen.Option) (loadgen.Stats, error) {
	return loadgen.Run(ctx, cfg, opts...)
}
