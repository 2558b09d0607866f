package throttle

import "time"

// epoch anchors nowfn so readings carry the monotonic clock.
var epoch = time.Now()

// nowfn returns monotonic nanoseconds. It is a variable so tests can
// drive the limiter with a fake clock.
var nowfn = func() int64 {
	return int64(time.Since(epoch))
}
