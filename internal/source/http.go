package source

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/regionmap/internal/resilience"
)

// maxBodyBytes caps a single response body.
const maxBodyBytes = 256 << 20

// ClientOptions configures a Client.
type ClientOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RateLimit is the maximum requests per second; <= 0 means unlimited.
	RateLimit float64
	// Retry overrides resilience.DefaultPolicy when Attempts is set.
	Retry resilience.Policy
}

// Client is a rate-limited, retrying HTTP getter shared by the remote
// sources.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	policy  resilience.Policy
	opts    ClientOptions
}

// NewClient creates a Client with the given options.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "regionmap/1.0"
	}

	limit := rate.Inf
	burst := 1
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
		burst = max(1, int(opts.RateLimit))
	}

	policy := resilience.DefaultPolicy("http")
	if opts.Retry.Attempts > 0 {
		policy = opts.Retry
		if policy.Name == "" {
			policy.Name = "http"
		}
	}

	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(limit, burst),
		policy:  policy,
		opts:    opts,
	}
}

// Get fetches url and returns the response body. Transient failures
// (network errors, 429 and 5xx) are retried; other non-2xx responses fail
// immediately with a *resilience.StatusError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	body, err := resilience.Do(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, url)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "source: get %s", url)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &resilience.StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	zap.L().Debug("source: fetched",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}
