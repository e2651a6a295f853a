// Package extractor calls a remote feature-extraction service that turns an
// image into an embedding.
//
// The service accepts the raw image bytes in a POST body and answers with
// {"embedding":[...]} JSON. Requests are paced by a token bucket and a 429
// or 503 answer pauses the client for the Retry-After period before the
// request is tried again.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/utils/logging"
	"github.com/secmon-lab/bottlematch/pkg/utils/safe"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	defaultBackoff    = time.Second
	maxErrorBody      = 512
)

// Client implements interfaces.FeatureExtractor over HTTP
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int

	mu      sync.Mutex
	retryAt time.Time
}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit paces requests to rps with the given burst. A non-positive
// rps removes the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxRetries sets how many times a throttled request is retried
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = max(n, 0)
	}
}

// New creates a Client for endpoint
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, goerr.New("extractor endpoint is required")
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed sends image to the extraction service and returns its embedding as
// received. Dimension and norm are checked by the catalog on upsert.
func (c *Client) Embed(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, goerr.New("image is empty")
	}

	for attempt := 0; ; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, goerr.Wrap(err, "interrupted while waiting for extractor")
		}

		emb, retryAfter, err := c.post(ctx, image)
		if err == nil {
			return emb, nil
		}
		if retryAfter == 0 || attempt >= c.maxRetries {
			return nil, err
		}

		logging.From(ctx).Warn("extractor throttled, backing off",
			"retry_after", retryAfter,
			"attempt", attempt+1,
		)
		c.backoff(retryAfter)
	}
}

// post performs one request. A positive duration means the request may be
// retried after it.
func (c *Client) post(ctx context.Context, image []byte) ([]float32, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to build extractor request", goerr.V("endpoint", c.endpoint))
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "extractor request failed", goerr.V("endpoint", c.endpoint))
	}
	defer safe.Close(ctx, resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, retryAfter(resp.Header.Get("Retry-After")),
			goerr.New("extractor is throttling requests", goerr.V("status", resp.StatusCode))

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, 0, goerr.New("extractor returned an error status",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, goerr.Wrap(err, "failed to decode extractor response")
	}
	if len(out.Embedding) == 0 {
		return nil, 0, goerr.New("extractor returned no embedding")
	}
	return out.Embedding, 0, nil
}

func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	until := c.retryAt
	c.mu.Unlock()

	if d := time.Until(until); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) backoff(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if at := time.Now().Add(d); at.After(c.retryAt) {
		c.retryAt = at
	}
}

func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return defaultBackoff
}
