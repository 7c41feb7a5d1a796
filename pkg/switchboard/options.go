package switchboard

import (
	"log/slog"
	"net/http"
	"time"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL sets the switchboard API base URL.
// If not set, defaults to the SWITCHBOARD_API_URL environment variable or
// "http://localhost:8000".
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithReviewerKey sets the bearer key sent to reviewer endpoints.
// If not set, defaults to the SWITCHBOARD_REVIEWER_KEY environment variable.
func WithReviewerKey(key string) Option {
	return func(c *Client) {
		c.reviewerKey = key
	}
}

// WithTimeout sets the HTTP request timeout.
// If not set, defaults to the SWITCHBOARD_CLIENT_TIMEOUT environment
// variable or 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom http.Client for making requests.
// This is useful for testing, proxying, or custom transport configurations.
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
