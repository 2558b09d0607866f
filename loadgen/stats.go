package loadgen

import (
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stats summarizes a run. Requests counts every completed request,
// Errors those that ended with a transport or protocol error, and
// Bytes the response body bytes of the others.
type Stats struct {
	RunID       uuid.UUID     `json:"run_id"`
	URL         string        `json:"url"`
	Connections int           `json:"connections"`
	Elapsed     time.Duration `json:"elapsed_ns"`

	Requests int64 `json:"number_requests"`
	Errors   int64 `json:"number_errors"`
	Bytes    int64 `json:"total_resp_size"`

	// Statuses counts successful exchanges by response status code.
	Statuses map[int]int64 `json:"statuses"`

	RequestsPerSec float64 `json:"requests_per_sec"`
	Latency        Latency `json:"latency"`
}

// Latency is the distribution of successful request durations.
type Latency struct {
	Min time.Duration `json:"min_ns"`
	Avg time.Duration `json:"avg_ns"`
	P50 time.Duration `json:"p50_ns"`
	P90 time.Duration `json:"p90_ns"`
	P99 time.Duration `json:"p99_ns"`
	Max time.Duration `json:"max_ns"`
}

// WriteJSON writes s as a single JSON document.
func (s Stats) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}

	return nil
}

// WriteText writes a short human-readable report.
func (s Stats) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"%d requests in %v over %d connections, %d errors, %d bytes read\n"+
			"requests/sec: %.2f\n"+
			"latency: min %v avg %v p50 %v p90 %v p99 %v max %v\n",
		s.Requests, s.Elapsed.Round(time.Millisecond), s.Connections, s.Errors, s.Bytes,
		s.RequestsPerSec,
		s.Latency.Min, s.Latency.Avg, s.Latency.P50, s.Latency.P90, s.Latency.P99, s.Latency.Max,
	)
	return err
}

func summarize(runID uuid.UUID, cfg Config, elapsed time.Duration, c *counters, workers []*worker) Stats {
	s := Stats{
		RunID:       runID,
		URL:         cfg.URL,
		Connections: cfg.Connections,
		Elapsed:     elapsed,
		Requests:    c.requests.Load(),
		Errors:      c.errors.Load(),
		Bytes:       c.bytes.Load(),
		Statuses:    make(map[int]int64),
	}

	if elapsed > 0 {
		s.RequestsPerSec = float64(s.Requests) / elapsed.Seconds()
	}

	var durs []time.Duration
	for _, w := range workers {
		durs = append(durs, w.latencies...)
		for code, n := range w.statuses {
			s.Statuses[code] += n
		}
	}

	s.Latency = latency(durs)

	return s
}

func latency(durs []time.Duration) Latency {
	if len(durs) == 0 {
		return Latency{}
	}

	slices.Sort(durs)

	var sum int64
	for _, d := range durs {
		sum += int64(d)
	}

	return Latency{
		Min: durs[0],
		Avg: time.Duration(sum / int64(len(durs))),
		P50: percentile(durs, 0.50),
		P90: percentile(durs, 0.90),
		P99: percentile(durs, 0.99),
		Max: durs[len(durs)-1],
	}
}

// percentile interpolates linearly between the closest ranks of the
// sorted samples.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}

	frac := pos - float64(lo)
	loN := float64(sorted[lo])
	hiN := float64(sorted[hi])

	return time.Duration(loN + (hiN-loN)*frac)
}
