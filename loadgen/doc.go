// Package loadgen drives an HTTP/1.1 load test: it opens a number of
// [client.Client] connections, paces them with one shared
// [throttle.Limiter] and counts completed requests, errors and
// response bytes until the configured duration elapses.
//
//	stats, err := loadgen.Run(ctx, loadgen.Config{
//		URL:         "http://127.0.0.1:8080/",
//		Connections: 10,
//		Duration:    10 * time.Second,
//		Rate:        500,
//		Burst:       50,
//	})
//	stats.WriteJSON(os.Stdout)
package loadgen
