package fetcher

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/sells-group/websearch/internal/resilience"
)

const defaultMaxBodyBytes = 4 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	Timeout time.Duration

	// Retry controls repeated attempts on transient failures. The zero value
	// means a single attempt: the search engine itself never retries.
	Retry resilience.RetryConfig

	// RatePerSec limits requests per host when positive. Zero disables
	// limiting; any politeness policy is the caller's choice.
	RatePerSec float64
	RateBurst  int

	MaxBodyBytes int64
}

// HTTPFetcher implements PageFetcher using net/http.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the per-host limiter, or nil when limiting is off.
func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	if f.opts.RatePerSec <= 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[u.Host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.opts.RatePerSec), f.opts.RateBurst)
		f.limiters[u.Host] = lim
	}
	return lim
}

// Fetch retrieves rawURL and returns its body decoded to UTF-8.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) (string, error) {
	if headers == nil {
		headers = DefaultHeaders()
	}
	return resilience.DoVal(ctx, f.opts.Retry, func(ctx context.Context) (string, error) {
		return f.fetchOnce(ctx, rawURL, headers)
	})
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string, headers http.Header) (string, error) {
	if lim := f.limiterFor(rawURL); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return "", &NetworkError{URL: rawURL, Err: eris.Wrap(err, "rate limiter wait")}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &NetworkError{URL: rawURL, Err: eris.Wrap(err, "create request")}
	}
	req.Header = headers.Clone()

	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("fetch failed",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return "", &NetworkError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error = eris.Errorf("unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			cause = resilience.NewTransientError(cause, resp.StatusCode)
		}
		return "", &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: cause}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return "", &NetworkError{URL: rawURL, Err: eris.Wrap(err, "read body")}
	}

	return decodeBody(body, resp.Header.Get("Content-Type")), nil
}

// decodeBody transcodes body to UTF-8 using the charset named in the
// Content-Type header. Unknown or missing charsets leave the bytes as-is.
func decodeBody(body []byte, contentType string) string {
	if contentType == "" {
		return string(body)
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body)
	}
	charset := params["charset"]
	if charset == "" {
		return string(body)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		zap.L().Debug("unknown page charset", zap.String("charset", charset))
		return string(body)
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
