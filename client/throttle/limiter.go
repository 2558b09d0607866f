package throttle

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket holding up to burst tokens, refilled
// continuously at a fixed rate.
//
// Instead of a token count plus a timestamp, the bucket is stored as
// one virtual instant: the time at which the bucket was last drained
// to its current level. The number of available tokens at any moment
// is (now - last) / nsPerToken, clamped to [0, burst].
type Limiter struct {
	limit      rate.Limit
	burst      int
	nsPerToken float64
	last       atomic.Int64 // only ever moves forward
}

// New returns a Limiter refilling at r tokens per second with a
// capacity of burst tokens. The bucket starts full.
func New(r rate.Limit, burst int) (*Limiter, error) {
	if math.IsNaN(float64(r)) || math.IsInf(float64(r), 0) || r >= rate.Inf {
		return nil, fmt.Errorf("rate[%v]: %w", float64(r), ErrInvalidRate)
	}

	if r <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rate[%v] and burst[%d] %w", float64(r), burst, ErrMustNotBeZero)
	}

	// The clock ticks in nanoseconds, so a token must cost at least one
	// and a full bucket must fit in an int64.
	if r > 1e9 {
		return nil, fmt.Errorf("rate[%v] above one token per nanosecond: %w", float64(r), ErrInvalidRate)
	}
	if float64(burst)*1e9/float64(r) >= math.MaxInt64 {
		return nil, fmt.Errorf("rate[%v] and burst[%d] span more than an int64 of nanoseconds: %w", float64(r), burst, ErrInvalidRate)
	}

	l := &Limiter{
		limit:      r,
		burst:      burst,
		nsPerToken: 1e9 / float64(r),
	}
	l.last.Store(nowfn() - l.burstNanos())

	return l, nil
}

// Limit returns the refill rate in tokens per second.
func (l *Limiter) Limit() rate.Limit { return l.limit }

// Burst returns the bucket capacity.
func (l *Limiter) Burst() int { return l.burst }

// Tokens reports how many tokens are available right now. It does not
// consume anything.
func (l *Limiter) Tokens() float64 {
	now := nowfn()
	start := max(l.last.Load(), now-l.burstNanos())

	return max(0, float64(now-start)/l.nsPerToken)
}

// Allow is shorthand for AllowN(1).
func (l *Limiter) Allow() bool {
	return l.AllowN(1)
}

// AllowN reports whether n tokens are available now and, if so, takes
// them. It makes a single compare-and-swap attempt and never retries:
// under contention it can return false while tokens are nominally
// available. The state is left untouched whenever it returns false.
func (l *Limiter) AllowN(n int) bool {
	if n <= 0 {
		return true
	}

	now := nowfn()
	old := l.last.Load()

	next := l.advance(old, now, n)
	if next > now {
		return false
	}

	return l.last.CompareAndSwap(old, next)
}

// Reserve is shorthand for ReserveN(1).
func (l *Limiter) Reserve() time.Duration {
	return l.ReserveN(1)
}

// ReserveN takes n tokens, possibly from the future, and returns how
// long the caller must wait before acting on them. It never denies a
// request; a zero duration means the tokens were already available.
func (l *Limiter) ReserveN(n int) time.Duration {
	if n <= 0 {
		return 0
	}

	now := nowfn()
	for {
		old := l.last.Load()
		next := l.advance(old, now, n)

		if l.last.CompareAndSwap(old, next) {
			return time.Duration(max(0, next-now))
		}
	}
}

// Wait is shorthand for WaitN(1).
func (l *Limiter) Wait() {
	l.WaitN(1)
}

// WaitN blocks the calling goroutine until n tokens are available.
func (l *Limiter) WaitN(n int) {
	if d := l.ReserveN(n); d > 0 {
		time.Sleep(d)
	}
}

// WaitAsync is shorthand for WaitAsyncN(1).
func (l *Limiter) WaitAsync() <-chan struct{} {
	return l.WaitAsyncN(1)
}

// WaitAsyncN reserves n tokens and returns a channel that is closed
// once they are due. When the tokens are already available the
// returned channel is closed before WaitAsyncN returns, so a receive
// does not park the goroutine.
func (l *Limiter) WaitAsyncN(n int) <-chan struct{} {
	ch := make(chan struct{})

	d := l.ReserveN(n)
	if d <= 0 {
		close(ch)
		return ch
	}

	time.AfterFunc(d, func() { close(ch) })

	return ch
}

// WaitContext reserves n tokens and waits for them, returning early
// with the context's error if ctx ends first. The reservation is kept
// either way.
func (l *Limiter) WaitContext(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d := l.ReserveN(n)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// advance computes the drain instant after taking n tokens from a
// bucket last drained at last, as observed at now. Float products are
// truncated toward zero.
func (l *Limiter) advance(last, now int64, n int) int64 {
	start := max(last, now-l.burstNanos())
	return start + int64(float64(n)*l.nsPerToken)
}

func (l *Limiter) burstNanos() int64 {
	return int64(float64(l.burst) * l.nsPerToken)
}
