// Package stemmarest is a client for the Stemmarest collation REST API.
package stemmarest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultRetries = 4
	userAgent      = "stemmaflat/1.0"
	maxErrorBody   = 512
)

// Client fetches tradition data. It is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
	retries  int
	limiter  *rate.Limiter
	cache    *cache.Cache
	logger   *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBasicAuth sends credentials with every request to the tradition base URL.
func WithBasicAuth(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. A client passed to
// WithHTTPClient is copied first, never modified.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		var hc http.Client
		if c.http != nil {
			hc = *c.http
		}
		hc.Timeout = d
		c.http = &hc
	}
}

// WithRateLimit limits requests to rps per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetries sets how many attempts are made for transport errors and 5xx
// responses, counting the first. Attempts after the first wait 100ms, 200ms,
// 400ms and so on.
func WithRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithCache keeps successful GET bodies in memory for ttl, so generators that
// share a client do not refetch the same resource.
func WithCache(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl > 0 {
			c.cache = cache.New(ttl, 2*ttl)
		}
	}
}

// WithLogger sets a logger for request debug output.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the tradition at baseURL
// ({repository}/tradition/{tradition_id}).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		retries: defaultRetries,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// BaseURL returns the tradition base URL.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// getJSON fetches the tradition-relative path and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v interface{}) error {
	u := c.endpoint(path, query)
	body, err := c.get(ctx, u, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &FetchError{URL: u, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// GetJSON fetches an absolute URL without credentials and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v interface{}) error {
	body, err := c.get(ctx, rawURL, false)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &FetchError{URL: rawURL, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// GetBody fetches an absolute URL without credentials and returns the raw body.
func (c *Client) GetBody(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL, false)
}

// get performs a GET with rate limiting, caching and retry with exponential
// backoff (100ms, 200ms, 400ms, ...). Only transport errors and 5xx responses
// are retried.
func (c *Client) get(ctx context.Context, rawURL string, auth bool) ([]byte, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(rawURL); ok {
			c.logger.Debug("cache hit", zap.String("url", rawURL))
			return cached.([]byte), nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &FetchError{URL: rawURL, Err: ctx.Err()}
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &FetchError{URL: rawURL, Err: err}
			}
		}

		body, retry, err := c.do(ctx, rawURL, auth)
		if err == nil {
			if c.cache != nil {
				c.cache.SetDefault(rawURL, body)
			}
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.logger.Debug("request failed, retrying",
			zap.String("url", rawURL), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, rawURL string, auth bool) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	if auth && c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	c.logger.Debug("GET", zap.String("url", rawURL))
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, &FetchError{URL: rawURL, Err: ctx.Err()}
		}
		return nil, true, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, resp.StatusCode >= 500, &FetchError{URL: rawURL, Status: resp.StatusCode, Err: errors.New(msg)}
	}
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &FetchError{URL: rawURL, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, false, nil
}
