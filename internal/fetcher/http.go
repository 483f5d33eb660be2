package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the portal fetcher.
type HTTPOptions struct {
	UserAgent      string
	Timeout        time.Duration // default 30s
	MaxAttempts    int           // total attempts including the first; default 3
	InitialBackoff time.Duration // default 500ms
	MaxBackoff     time.Duration // default 15s
	JitterFraction float64       // +/- fraction of the delay; default 0.25
	RateLimiters   map[string]*rate.Limiter
}

// DefaultRateLimiters returns the per-host limiters for the open-data
// portals the pipeline reads from.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"www.arcgis.com":            rate.NewLimiter(5, 5),
		"opendata.arcgis.com":       rate.NewLimiter(5, 5),
		"services.arcgis.com":       rate.NewLimiter(5, 5),
		"data.ottawa.ca":            rate.NewLimiter(5, 5),
		"www.neighbourhoodstudy.ca": rate.NewLimiter(2, 2),
	}
}

// HTTPFetcher downloads portal resources with retry and rate limiting.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 15 * time.Second
	}
	if opts.JitterFraction == 0 {
		opts.JitterFraction = 0.25
	}
	if opts.RateLimiters == nil {
		opts.RateLimiters = DefaultRateLimiters()
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Fetch downloads a URL and returns the body. Transient failures (network
// errors, 429, 5xx) are retried with exponential backoff and jitter; other
// statuses fail immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}

	var body []byte
	var lastErr error
	for attempt := 0; attempt < f.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := f.backoff(attempt - 1)
			zap.L().Debug("fetch: retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, eris.Wrap(ctx.Err(), "fetch: context cancelled")
			case <-timer.C:
			}
		}

		if limiter, ok := f.opts.RateLimiters[u.Host]; ok {
			if err := limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "fetch: rate limiter wait")
			}
		}

		body, lastErr = f.fetchOnce(ctx, rawURL)
		if lastErr == nil {
			return body, nil
		}
		if ctx.Err() != nil || !isTransient(lastErr) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// FetchToFile downloads a URL to a local path.
func (f *HTTPFetcher) FetchToFile(ctx context.Context, rawURL, dest string) error {
	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return eris.Wrapf(err, "fetch: write %s", dest)
	}
	return nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: build request")
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, transientError{eris.Wrap(err, "fetch: do request")}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, transientError{eris.Errorf("fetch: %s returned status %d", rawURL, resp.StatusCode)}
	default:
		return nil, eris.Errorf("fetch: %s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transientError{eris.Wrap(err, "fetch: read body")}
	}
	return body, nil
}

func (f *HTTPFetcher) backoff(attempt int) time.Duration {
	delay := float64(f.opts.InitialBackoff) * math.Pow(2, float64(attempt))
	if delay > float64(f.opts.MaxBackoff) {
		delay = float64(f.opts.MaxBackoff)
	}
	jitter := delay * f.opts.JitterFraction * (2*rand.Float64() - 1)
	return time.Duration(delay + jitter)
}

// transientError marks failures worth retrying.
type transientError struct{ error }

func (t transientError) Unwrap() error { return t.error }

func isTransient(err error) bool {
	_, ok := err.(transientError)
	return ok
}
