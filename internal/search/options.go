package search

import (
	"net/http"
	"time"
)

const (
	// DefaultMaxResults caps a search when the caller does not.
	DefaultMaxResults = 10

	// DefaultPollInterval is how long a background worker sleeps while an
	// unread record is queued.
	DefaultPollInterval = 10 * time.Millisecond
)

// Option adjusts a single search call.
type Option func(*callOptions)

type callOptions struct {
	maxResults   int
	nonBlocking  bool
	headers      http.Header
	pollInterval time.Duration
}

// WithMaxResults caps the number of records the call yields. A value <= 0
// yields nothing.
func WithMaxResults(n int) Option {
	return func(o *callOptions) { o.maxResults = n }
}

// NonBlocking makes Search return a *Handle driven by a background worker.
func NonBlocking() Option {
	return func(o *callOptions) { o.nonBlocking = true }
}

// WithHeaders replaces the request headers for this call.
func WithHeaders(h http.Header) Option {
	return func(o *callOptions) { o.headers = h.Clone() }
}

// WithPollInterval sets the worker's backpressure sleep.
func WithPollInterval(d time.Duration) Option {
	return func(o *callOptions) { o.pollInterval = d }
}
