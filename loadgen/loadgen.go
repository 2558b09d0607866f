package loadgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/adamwoolhether/press/client"
	"github.com/adamwoolhether/press/client/throttle"
)

// counters are shared by every worker of a run.
type counters struct {
	requests atomic.Int64
	errors   atomic.Int64
	bytes    atomic.Int64
}

// worker drives one client and keeps its own samples.
type worker struct {
	c        *client.Client
	cfg      Config
	ct       client.ContentType
	limiter  *throttle.Limiter
	counters *counters
	logger   *slog.Logger
	errLog   *rate.Sometimes

	latencies []time.Duration
	statuses  map[int]int64
}

// Run executes the load test described by cfg. It returns once
// cfg.Duration has elapsed, ctx ends, or a worker hits an error that
// every further request would repeat.
func Run(ctx context.Context, cfg Config, optFns ...Option) (Stats, error) {
	if err := Validate(cfg); err != nil {
		return Stats{}, fmt.Errorf("validating config: %w", err)
	}

	opts := options{logger: slog.Default()}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return Stats{}, fmt.Errorf("applying option: %w", err)
		}
	}

	runID := uuid.New()
	logger := opts.logger.With("run", runID)

	var limiter *throttle.Limiter
	if cfg.Rate > 0 {
		l, err := throttle.New(rate.Limit(cfg.Rate), cfg.Burst)
		if err != nil {
			return Stats{}, fmt.Errorf("configuring limiter: %w", err)
		}
		limiter = l
	}

	clientOpts := []client.Option{client.WithLogger(logger)}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, client.WithDialTimeout(cfg.Timeout))
	}
	clientOpts = append(clientOpts, opts.clientOpts...)

	clients := make([]*client.Client, 0, cfg.Connections)
	closeAll := func() {
		for _, c := range clients {
			if err := c.Close(); err != nil {
				logger.Error("closing client", "client", c.ID(), "error", err)
			}
		}
	}

	for range cfg.Connections {
		c, err := client.New(clientOpts...)
		if err != nil {
			closeAll()
			return Stats{}, fmt.Errorf("creating client: %w", err)
		}
		clients = append(clients, c)
	}

	logger.Info("load test starting",
		"url", cfg.URL,
		"connections", cfg.Connections,
		"duration", cfg.Duration,
		"rate", cfg.Rate,
		"burst", cfg.Burst,
	)

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var (
		shared  counters
		errLog  = rate.Sometimes{Interval: time.Second}
		workers = make([]*worker, len(clients))
	)

	g, gctx := errgroup.WithContext(ctx)

	// Closing the clients fails their in-flight requests, which is the
	// only way to end a request early.
	stop := context.AfterFunc(gctx, closeAll)

	start := time.Now()

	for i, c := range clients {
		w := worker{
			c:        c,
			cfg:      cfg,
			ct:       client.ContentOctetStream,
			limiter:  limiter,
			counters: &shared,
			logger:   logger,
			errLog:   &errLog,
			statuses: make(map[int]int64),
		}
		if len(cfg.Body) == 0 {
			w.ct = client.ContentNone
		}
		workers[i] = &w

		g.Go(func() error {
			return w.run(gctx)
		})
	}

	err := g.Wait()
	elapsed := time.Since(start)

	stop()
	closeAll()

	stats := summarize(runID, cfg, elapsed, &shared, workers)

	logger.Info("load test finished",
		"requests", stats.Requests,
		"errors", stats.Errors,
		"bytes", stats.Bytes,
		"elapsed", elapsed.Round(time.Millisecond),
	)

	if err != nil {
		return stats, fmt.Errorf("load test aborted: %w", err)
	}

	return stats, nil
}

func (w *worker) run(ctx context.Context) error {
	method := w.cfg.method()

	for ctx.Err() == nil {
		if w.limiter != nil {
			if err := w.limiter.WaitContext(ctx, 1); err != nil {
				return nil
			}
		}

		began := time.Now()
		resp := w.c.Request(ctx, w.cfg.URL, method, w.cfg.Body, w.ct)

		// A request cut short by the end of the run is not counted.
		if resp.Err != nil && ctx.Err() != nil {
			return nil
		}

		if err := w.record(resp, time.Since(began)); err != nil {
			return err
		}
	}

	return nil
}

func (w *worker) record(resp *client.Response, took time.Duration) error {
	w.counters.requests.Add(1)

	if resp.Err != nil {
		w.counters.errors.Add(1)

		w.errLog.Do(func() {
			w.logger.Error("request failed", "client", w.c.ID(), "error", resp.Err)
		})

		if errors.Is(resp.Err, client.ErrUnsupported) {
			return resp.Err
		}

		return nil
	}

	w.counters.bytes.Add(int64(len(resp.Body)))
	w.statuses[resp.StatusCode]++
	w.latencies = append(w.latencies, took)

	return nil
}
