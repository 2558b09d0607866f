// Package throttle provides a lock-free token-bucket [Limiter] used to
// pace outbound requests.
//
// # Usage
//
// Create a limiter with a refill rate, expressed as a
// [golang.org/x/time/rate.Limit], and a burst capacity:
//
//	l, err := throttle.New(10, 5) // 10 tokens per second, bucket of 5
//
// Then pick the waiting style that fits the caller:
//
//	if l.Allow() { ... }       // non-blocking, best effort
//	l.Wait()                   // sleep the calling goroutine
//	<-l.WaitAsync()            // receive when the token is due
//	err = l.WaitContext(ctx, 1)
//
// The whole bucket state is a single atomic word, so a Limiter may be
// shared by any number of goroutines without additional locking.
package throttle
