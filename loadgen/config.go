package loadgen

import (
	"net/http"
	"time"
)

// Config describes one load test.
type Config struct {
	// URL is requested by every connection.
	URL string `json:"url" validate:"required,http_url"`

	// Method defaults to GET.
	Method string `json:"method" validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE"`

	// Body is sent with every request.
	Body []byte `json:"body,omitempty"`

	// Connections is the number of clients, each owning one connection.
	Connections int `json:"connections" validate:"gte=1,lte=65535"`

	// Duration bounds the whole run.
	Duration time.Duration `json:"duration" validate:"gt=0"`

	// Rate is the request rate shared by all connections, in requests
	// per second. Zero leaves the run unthrottled.
	Rate float64 `json:"rate" validate:"gte=0"`

	// Burst is the limiter capacity and is required with Rate.
	Burst int `json:"burst" validate:"required_with=Rate,gte=0"`

	// Timeout bounds connection establishment. Zero means no bound.
	Timeout time.Duration `json:"timeout" validate:"gte=0"`
}

// DefaultConfig returns a config for url with 10 connections for 10
// seconds and no rate limit.
func DefaultConfig(url string) Config {
	return Config{
		URL:         url,
		Method:      http.MethodGet,
		Connections: 10,
		Duration:    10 * time.Second,
	}
}

func (c Config) method() string {
	if c.Method == "" {
		return http.MethodGet
	}

	return c.Method
}
