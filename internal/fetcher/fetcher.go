// Package fetcher retrieves raw result pages over HTTP.
package fetcher

import (
	"context"
	"net/http"
)

// DefaultUserAgent mimics a common desktop browser; several engines serve
// degraded or blocked pages to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// PageFetcher performs a single retrieval of a result page.
type PageFetcher interface {
	// Fetch issues a GET for url with the given headers and returns the page
	// decoded to UTF-8. Failures are reported as *NetworkError.
	Fetch(ctx context.Context, url string, headers http.Header) (string, error)
}

// DefaultHeaders returns a fresh header set carrying only the default
// User-Agent. Callers may modify the returned value freely.
func DefaultHeaders() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", DefaultUserAgent)
	return h
}
