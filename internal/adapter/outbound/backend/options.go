package backend

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
// If not set, defaults to 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom http.Client for making requests.
// A cookie jar is attached if the client has none, since every call is
// credentialed by the session cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTracerProvider sets the provider used for request spans.
// If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets the provider used for request metrics.
// If not set, the global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) {
		c.meterProvider = mp
	}
}
