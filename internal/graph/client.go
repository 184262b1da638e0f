// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package graph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/metrics"
)

// maxErrorBodySize limits how much of a failed response body is read for
// error reporting.
const maxErrorBodySize = 64 * 1024

// defaultMaxResponseSize caps a successful response body.
const defaultMaxResponseSize = 8 << 20

// ErrResponseTooLarge is returned when a response body exceeds the client's
// size limit.
var ErrResponseTooLarge = errors.New("response body too large")

// MetricClient is the read surface the reconcile engine depends on.
// Implemented by *Client and *CircuitBreakerClient.
type MetricClient interface {
	Get(ctx context.Context, path string, params url.Values) (*Response, error)
}

// Client handles communication with the Graph API.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	baseURL        string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
	maxBodySize    int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithRetryBaseDelay sets the first 429 backoff delay. Tests shorten it.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = d
	}
}

// WithMaxResponseSize sets the largest successful body the client decodes.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// NewClient creates a Graph API client rooted at {base_url}/{api_version}.
func NewClient(cfg *config.GraphConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.APIVersion, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: time.Second,
		maxBodySize:    defaultMaxResponseSize,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues GET {base}/{path}?{params} and decodes the JSON body.
//
// Non-2xx responses return *APIError when the body carries a Graph error
// object, otherwise a plain error with the (truncated) body.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	endpoint := metricsEndpoint(path)
	reqURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		metrics.GraphRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	metrics.GraphRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	metrics.GraphRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readBodyForError(resp.Body)
		if apiErr := parseAPIError(resp.StatusCode, body); apiErr != nil {
			return nil, fmt.Errorf("GET %s: %w", path, apiErr)
		}
		return nil, fmt.Errorf("GET %s failed with status %d: %s", path, resp.StatusCode, string(body))
	}

	out, err := decodeResponse(resp.Body, c.maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return out, nil
}

// doRequestWithRateLimit performs a GET with pacing and 429 backoff.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", redactURLError(err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", redactURLError(err))
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		_ = resp.Body.Close()

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
		}

		// 1s, 2s, 4s, 8s, 16s unless the server says otherwise
		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}
		metrics.GraphRetries.Inc()
		logging.Debug().Int("attempt", attempt+1).Dur("delay", delay).Msg("Graph API rate limited, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// redactURLError masks credentials in the URL quoted by *url.Error.
func redactURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = logging.SanitizeURL(ue.URL)
	}
	return err
}

// readBodyForError reads at most maxErrorBodySize bytes of body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// decodeResponse parses a JSON body of at most limit bytes.
func decodeResponse(r io.Reader, limit int64) (*Response, error) {
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return &Response{Record: Record{}}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var top map[string]any
	if err := dec.Decode(&top); err != nil {
		return nil, err
	}
	return newResponse(top), nil
}

// metricsEndpoint reduces a path to a low-cardinality label by replacing
// numeric id segments with {id}.
func metricsEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p != "" && strings.Trim(p, "0123456789_") == "" {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}
