// Package upstream is the REST client for the bug-tracking platform
// behind the gateway. Proxied resources (issues, users, domains and the
// rest) are fetched through it; a circuit breaker sheds load when the
// platform is failing.
package upstream

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

	"github.com/sony/gobreaker"

	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/util"
)

const (
	defaultTimeout     = 10 * time.Second
	maxResponseBytes   = 4 << 20
	breakerMaxRequests = 3
	breakerInterval    = time.Minute
	breakerTimeout     = 30 * time.Second
	breakerMinRequests = 5
	breakerFailureRate = 0.6
)

// Config holds the upstream connection settings.
type Config struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
	APIKey  string        `yaml:"apiKey"`
}

// ListResult is a decoded list response from the platform API, which
// wraps collections in a count/next/previous/results envelope.
type ListResult struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  json.RawMessage `json:"results"`
}

// Client fetches resources from the platform REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     observability.Logger
	metrics    *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics sets the metrics sink for upstream calls.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a platform API client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, util.NewConfigError("upstream.baseURL", "must not be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailureRate
		},
		OnStateChange: c.onStateChange,
		// 4xx means the caller asked for something that is not there,
		// not that the platform is unhealthy.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, util.ErrNotFound) {
				return true
			}
			var be *util.BackendError
			if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
				return true
			}
			return false
		},
	})

	return c, nil
}

func (c *Client) onStateChange(name string, from, to gobreaker.State) {
	c.logger.Warn("upstream circuit state changed",
		observability.String("breaker", name),
		observability.String("from", from.String()),
		observability.String("to", to.String()),
	)
	if c.metrics != nil {
		c.metrics.SetCircuitState(name, circuitStateValue(to))
	}
}

// circuitStateValue maps breaker states onto the gauge scale: 0 closed,
// 1 half-open, 2 open.
func circuitStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// Get fetches a single resource and returns its raw JSON body.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// List fetches a collection and decodes the platform list envelope.
func (c *Client) List(ctx context.Context, path string, query map[string]string) (*ListResult, error) {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	var result ListResult
	envErr := json.Unmarshal(body, &result)
	if envErr != nil || result.Results == nil {
		// Some endpoints return a bare array rather than an envelope.
		var bare []json.RawMessage
		if err := json.Unmarshal(body, &bare); err == nil {
			result.Count = len(bare)
			result.Results = body
		} else if envErr != nil {
			return nil, util.NewBackendErrorWithCause("upstream", "malformed list response", envErr)
		}
	}
	return &result, nil
}

// Post sends a JSON body and returns the raw response body.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(string(encoded))
	}
	return c.do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body io.Reader) (json.RawMessage, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, path, query, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, util.WrapError(util.ErrCircuitOpen, "upstream")
		}
		return nil, err
	}
	return result.(json.RawMessage), nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query map[string]string, body io.Reader) (json.RawMessage, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordUpstreamRequest(method, 0, time.Since(start))
		}
		return nil, util.NewBackendErrorWithCause("upstream", "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(method, resp.StatusCode, time.Since(start))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, util.NewBackendErrorWithCause("upstream", "reading response", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, util.WrapError(util.ErrNotFound, "upstream resource")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &util.BackendError{
			Backend: "upstream",
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}
	return json.RawMessage(raw), nil
}

func (c *Client) buildURL(path string, query map[string]string) string {
	u := c.baseURL + path
	if len(query) == 0 {
		return u
	}
	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	return u + "?" + values.Encode()
}
