package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	pkgerrs "github.com/jamesprial/go-reddit-stream/pkg/errors"
)

// Client manages communication with the Reddit API.
type Client struct {
	client    *http.Client
	BaseURL   *url.URL
	UserAgent string
	tokens    TokenProvider
	logger    *slog.Logger

	breaker *gobreaker.CircuitBreaker

	limiter        *rate.Limiter
	mu             sync.Mutex
	forceWaitUntil time.Time
}

// RateLimitConfig controls how requests are throttled before reaching Reddit.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 60 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 10 if zero.
	Burst int
}

// BreakerConfig controls the circuit breaker that stops sending requests
// while Reddit keeps failing.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker. Defaults to 5 if zero.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a trial
	// request through. Defaults to 30s if zero.
	OpenTimeout time.Duration
	// Disabled turns the breaker off.
	Disabled bool
}

// ClientConfig configures a Client.
type ClientConfig struct {
	HTTPClient *http.Client
	Tokens     TokenProvider
	BaseURL    string
	UserAgent  string
	RateLimit  *RateLimitConfig
	Breaker    *BreakerConfig
	Logger     *slog.Logger
}

const (
	DefaultRequestsPerMinute  = 60
	DefaultRateLimitBurst     = 10
	DefaultBreakerFailures    = 5
	DefaultBreakerOpenTimeout = 30 * time.Second
	SecondsPerMinute          = 60.0
	ParseFloatBitSize         = 64

	maxErrorBodyPreview = 512
	breakerName         = "reddit-api"
)

// NewClient returns a new Reddit API client.
// If a nil HTTPClient is provided, http.DefaultClient will be used.
func NewClient(cfg ClientConfig) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, &pkgerrs.ClientError{Operation: "parse base URL", Err: err}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	rateCfg := RateLimitConfig{}
	if cfg.RateLimit != nil {
		rateCfg = *cfg.RateLimit
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{
		client:    httpClient,
		BaseURL:   parsedURL,
		UserAgent: cfg.UserAgent,
		tokens:    cfg.Tokens,
		logger:    logger,
		limiter:   buildLimiter(rateCfg),
	}

	breakerCfg := BreakerConfig{}
	if cfg.Breaker != nil {
		breakerCfg = *cfg.Breaker
	}
	if !breakerCfg.Disabled {
		c.breaker = c.buildBreaker(breakerCfg)
	}

	return c, nil
}

// NewRequest creates an API request. A relative URL can be provided in path,
// in which case it is resolved relative to the BaseURL of the Client.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := c.BaseURL.Parse(path)
	if err != nil {
		return nil, &pkgerrs.ClientError{Operation: "build request URL", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &pkgerrs.ClientError{Operation: "build request", Err: err}
	}

	if c.tokens != nil {
		token, err := c.tokens.GetToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	return req, nil
}

// Do sends an API request and JSON-decodes a successful response into v.
// Non-2xx responses are returned as *errors.APIError. While the circuit
// breaker is open Do fails immediately with an error wrapping
// gobreaker.ErrOpenState.
func (c *Client) Do(req *http.Request, v any) (*http.Response, error) {
	if err := c.waitForRateLimit(req.Context()); err != nil {
		return nil, &pkgerrs.RequestError{Operation: "wait for rate limit", URL: req.URL.Path, Err: err}
	}

	send := func() (any, error) { return c.send(req, v) }
	var (
		result any
		err    error
	)
	if c.breaker != nil {
		result, err = c.breaker.Execute(send)
	} else {
		result, err = send()
	}

	resp, _ := result.(*http.Response)
	if err != nil {
		var apiErr *pkgerrs.APIError
		var parseErr *pkgerrs.ParseError
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusUnauthorized {
				c.invalidateToken()
			}
			return resp, err
		}
		if errors.As(err, &parseErr) {
			return resp, err
		}
		return resp, &pkgerrs.RequestError{Operation: req.Method, URL: req.URL.Path, Err: err}
	}
	return resp, nil
}

// invalidateToken drops a cached token that the API has stopped accepting.
func (c *Client) invalidateToken() {
	if inv, ok := c.tokens.(interface{ Invalidate() }); ok {
		c.logger.Debug("access token rejected, dropping cached token")
		inv.Invalidate()
	}
}

func (c *Client) send(req *http.Request, v any) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.applyRateHeaders(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, newAPIError(resp)
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return resp, &pkgerrs.ParseError{Operation: req.URL.Path, Message: "failed to decode response", Err: err}
		}
	}

	return resp, nil
}

func newAPIError(resp *http.Response) *pkgerrs.APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyPreview))

	apiErr := &pkgerrs.APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var payload struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			apiErr.Message = payload.Message
		}
		apiErr.ErrorCode = payload.Reason
	} else if text := strings.TrimSpace(string(body)); text != "" {
		apiErr.Message = text
	}
	return apiErr
}

func (c *Client) buildBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = DefaultBreakerFailures
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = DefaultBreakerOpenTimeout
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: breakerSuccess,
	})
}

// breakerSuccess counts only server-side failures against the breaker.
// Client errors and cancellations say nothing about Reddit's health.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *pkgerrs.APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary()
	}
	var parseErr *pkgerrs.ParseError
	return errors.As(err, &parseErr)
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / SecondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

func (c *Client) waitForRateLimit(ctx context.Context) error {
	if err := c.waitForForcedDelay(ctx); err != nil {
		return err
	}

	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

func (c *Client) waitForForcedDelay(ctx context.Context) error {
	for {
		c.mu.Lock()
		waitUntil := c.forceWaitUntil
		c.mu.Unlock()

		if waitUntil.IsZero() {
			return nil
		}

		now := time.Now()
		if !now.Before(waitUntil) {
			c.clearForcedDelay(waitUntil)
			return nil
		}

		c.logger.Debug("waiting for rate limit window", "until", waitUntil)
		timer := time.NewTimer(waitUntil.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			c.clearForcedDelay(waitUntil)
		}
	}
}

func (c *Client) clearForcedDelay(previous time.Time) {
	c.mu.Lock()
	if previous.Equal(c.forceWaitUntil) {
		c.forceWaitUntil = time.Time{}
	}
	c.mu.Unlock()
}

func (c *Client) applyRateHeaders(resp *http.Response) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.ParseFloat(retryAfter, ParseFloatBitSize); err == nil && seconds > 0 {
			c.deferRequests(time.Duration(seconds * float64(time.Second)))
		}
	}

	remainingHeader := resp.Header.Get("X-Ratelimit-Remaining")
	resetHeader := resp.Header.Get("X-Ratelimit-Reset")
	if remainingHeader == "" || resetHeader == "" {
		return
	}

	remaining, errRemaining := strconv.ParseFloat(remainingHeader, ParseFloatBitSize)
	resetSeconds, errReset := strconv.ParseFloat(resetHeader, ParseFloatBitSize)
	if errRemaining != nil || errReset != nil || resetSeconds <= 0 {
		return
	}

	if remaining <= 1 {
		c.deferRequests(time.Duration(resetSeconds * float64(time.Second)))
	}
}

func (c *Client) deferRequests(d time.Duration) {
	if d <= 0 {
		return
	}

	until := time.Now().Add(d)

	c.mu.Lock()
	if until.After(c.forceWaitUntil) {
		c.forceWaitUntil = until
	}
	c.mu.Unlock()
}

// BreakerState reports the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}
