package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	pkgerrs "github.com/jamesprial/go-reddit-stream/pkg/errors"
	"github.com/jamesprial/go-reddit-stream/pkg/types"
)

type mockTokenProvider struct {
	token       string
	err         error
	invalidated atomic.Int32
}

func (m *mockTokenProvider) GetToken(ctx context.Context) (string, error) {
	return m.token, m.err
}

func (m *mockTokenProvider) Invalidate() {
	m.invalidated.Add(1)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func fastRate() *RateLimitConfig {
	return &RateLimitConfig{RequestsPerMinute: 60000, Burst: 1000}
}

func newTestClient(t *testing.T, cfg ClientConfig) *Client {
	t.Helper()
	if cfg.RateLimit == nil {
		cfg.RateLimit = fastRate()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "agent"
	}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func doGet(t *testing.T, c *Client, path string, v any) (*http.Response, error) {
	t.Helper()
	req, err := c.NewRequest(context.Background(), http.MethodGet, path, nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}
	return c.Do(req, v)
}

func TestNewClient_DefaultRateLimiter(t *testing.T) {
	client, err := NewClient(ClientConfig{BaseURL: "https://example.com/api/", UserAgent: "agent"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if got := client.limiter.Limit(); got != rate.Limit(1) {
		t.Errorf("expected default limit 1 req/sec, got %v", got)
	}
	if got := client.limiter.Burst(); got != DefaultRateLimitBurst {
		t.Errorf("expected default burst of %d, got %d", DefaultRateLimitBurst, got)
	}
	if got := client.BreakerState(); got != gobreaker.StateClosed.String() {
		t.Errorf("expected closed breaker, got %q", got)
	}
}

func TestNewClient_CustomConfig(t *testing.T) {
	client, err := NewClient(ClientConfig{
		BaseURL:   "https://example.com/api",
		RateLimit: &RateLimitConfig{RequestsPerMinute: 120, Burst: 5},
		Breaker:   &BreakerConfig{Disabled: true},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if got := client.BaseURL.String(); got != "https://example.com/api/" {
		t.Fatalf("expected base URL to gain trailing slash, got %q", got)
	}
	if got := client.limiter.Limit(); got != rate.Limit(2) {
		t.Errorf("expected limit of 2 req/sec, got %v", got)
	}
	if got := client.limiter.Burst(); got != 5 {
		t.Errorf("expected burst of 5, got %d", got)
	}
	if got := client.BreakerState(); got != "disabled" {
		t.Errorf("expected disabled breaker, got %q", got)
	}
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "://bad"})

	var clientErr *pkgerrs.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %T (%v)", err, err)
	}
}

func TestClient_NewRequestSetsHeaders(t *testing.T) {
	c := newTestClient(t, ClientConfig{
		Tokens:    &mockTokenProvider{token: "token-value"},
		BaseURL:   "https://example.com",
		UserAgent: "my-agent",
	})

	req, err := c.NewRequest(context.Background(), http.MethodGet, "r/golang/new", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}

	if got := req.Header.Get("Authorization"); got != "Bearer token-value" {
		t.Errorf("expected Authorization header 'Bearer token-value', got %q", got)
	}
	if got := req.Header.Get("User-Agent"); got != "my-agent" {
		t.Errorf("expected User-Agent 'my-agent', got %q", got)
	}
	if got := req.URL.String(); got != "https://example.com/r/golang/new" {
		t.Errorf("unexpected request URL: %s", got)
	}
}

func TestClient_NewRequestTokenError(t *testing.T) {
	tokenErr := &pkgerrs.AuthError{StatusCode: http.StatusUnauthorized}
	c := newTestClient(t, ClientConfig{
		Tokens:  &mockTokenProvider{err: tokenErr},
		BaseURL: "https://example.com",
	})

	_, err := c.NewRequest(context.Background(), http.MethodGet, "resource", nil)
	if !errors.Is(err, tokenErr) {
		t.Fatalf("expected token error, got %v", err)
	}
}

func TestClient_NewRequestInvalidPath(t *testing.T) {
	c := newTestClient(t, ClientConfig{BaseURL: "https://example.com"})

	_, err := c.NewRequest(context.Background(), http.MethodGet, "%zz", nil)

	var clientErr *pkgerrs.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %T (%v)", err, err)
	}
}

func TestClient_DoDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"kind":"Listing","data":{"after":"t3_b","children":[]}}`)
	}))
	defer server.Close()

	c := newTestClient(t, ClientConfig{HTTPClient: server.Client(), BaseURL: server.URL})

	var thing types.Thing
	resp, err := doGet(t, c, "r/golang/new", &thing)
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if thing.Kind != types.KindListing {
		t.Errorf("expected Listing kind, got %q", thing.Kind)
	}
}

func TestClient_DoSkipsDecodeWhenTargetNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer server.Close()

	c := newTestClient(t, ClientConfig{HTTPClient: server.Client(), BaseURL: server.URL})

	if _, err := doGet(t, c, "x", nil); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
}

func TestClient_DoErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{
			name:        "reddit json error",
			status:      http.StatusForbidden,
			body:        `{"message": "Forbidden", "reason": "private", "error": 403}`,
			wantMessage: "Forbidden",
			wantCode:    "private",
		},
		{
			name:        "plain text error",
			status:      http.StatusBadGateway,
			body:        "upstream unavailable",
			wantMessage: "upstream unavailable",
		},
		{
			name:        "empty body",
			status:      http.StatusNotFound,
			wantMessage: "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c := newTestClient(t, ClientConfig{HTTPClient: server.Client(), BaseURL: server.URL})

			_, err := doGet(t, c, "x", nil)
			var apiErr *pkgerrs.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T (%v)", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			if apiErr.ErrorCode != tt.wantCode {
				t.Errorf("ErrorCode = %q, want %q", apiErr.ErrorCode, tt.wantCode)
			}
		})
	}
}

func TestClient_DoJSONDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"kind":`)
	}))
	defer server.Close()

	c := newTestClient(t, ClientConfig{HTTPClient: server.Client(), BaseURL: server.URL})

	var thing types.Thing
	_, err := doGet(t, c, "x", &thing)
	var parseErr *pkgerrs.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T (%v)", err, err)
	}
}

func TestClient_DoTransportErrorWrapped(t *testing.T) {
	transportErr := errors.New("connection reset")
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, transportErr
	})}

	c := newTestClient(t, ClientConfig{HTTPClient: httpClient, BaseURL: "https://example.com/"})

	_, err := doGet(t, c, "x", nil)
	var reqErr *pkgerrs.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T (%v)", err, err)
	}
	if !errors.Is(err, transportErr) {
		t.Errorf("expected error chain to contain transport error, got %v", err)
	}
}

func TestClient_UnauthorizedInvalidatesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tokens := &mockTokenProvider{token: "stale"}
	c := newTestClient(t, ClientConfig{HTTPClient: server.Client(), Tokens: tokens, BaseURL: server.URL})

	if _, err := doGet(t, c, "x", nil); err == nil {
		t.Fatal("expected error for 401 response")
	}
	if got := tokens.invalidated.Load(); got != 1 {
		t.Errorf("expected token to be invalidated once, got %d", got)
	}
}

func TestClient_BreakerOpensAfterServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, ClientConfig{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Breaker:    &BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute},
	})

	for i := 0; i < 2; i++ {
		_, err := doGet(t, c, "x", nil)
		var apiErr *pkgerrs.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("request %d: expected APIError, got %v", i, err)
		}
	}

	_, err := doGet(t, c, "x", nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker error, got %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected server to be hit 2 times, got %d", got)
	}
	if got := c.BreakerState(); got != gobreaker.StateOpen.String() {
		t.Errorf("expected open breaker, got %q", got)
	}
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, ClientConfig{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Breaker:    &BreakerConfig{ConsecutiveFailures: 1},
	})

	for i := 0; i < 3; i++ {
		_, err := doGet(t, c, "x", nil)
		if errors.Is(err, gobreaker.ErrOpenState) {
			t.Fatalf("request %d: breaker opened on client errors", i)
		}
	}
}

func TestBreakerSuccess(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: true},
		{name: "canceled", err: context.Canceled, want: true},
		{name: "not found", err: &pkgerrs.APIError{StatusCode: 404}, want: true},
		{name: "too many requests", err: &pkgerrs.APIError{StatusCode: 429}, want: false},
		{name: "server error", err: &pkgerrs.APIError{StatusCode: 500}, want: false},
		{name: "parse error", err: &pkgerrs.ParseError{Message: "bad json"}, want: true},
		{name: "transport", err: errors.New("dial tcp: refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := breakerSuccess(tt.err); got != tt.want {
				t.Errorf("breakerSuccess(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClient_DoEnforcesRetryAfter(t *testing.T) {
	var (
		mu        sync.Mutex
		callCount int
		firstHit  time.Time
		secondHit time.Time
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		callCount++
		if callCount == 1 {
			firstHit = time.Now()
			w.Header().Set("Retry-After", "0.1")
		} else {
			secondHit = time.Now()
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, ClientConfig{HTTPClient: server.Client(), BaseURL: server.URL})

	if _, err := doGet(t, c, "first", nil); err != nil {
		t.Fatalf("Do on first request returned error: %v", err)
	}
	start := time.Now()
	if _, err := doGet(t, c, "second", nil); err != nil {
		t.Fatalf("Do on second request returned error: %v", err)
	}
	elapsed := time.Since(start)

	mu.Lock()
	defer mu.Unlock()
	if callCount != 2 {
		t.Fatalf("expected 2 calls to server, got %d", callCount)
	}
	if diff := secondHit.Sub(firstHit); diff < 90*time.Millisecond {
		t.Fatalf("expected at least 90ms between requests, got %v", diff)
	}
	if elapsed < 90*time.Millisecond {
		t.Fatalf("expected Do call to take at least 90ms due to rate limit, took %v", elapsed)
	}
}

func TestClient_DoHonorsCanceledContextBeforeSend(t *testing.T) {
	var transportCalled atomic.Bool
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		transportCalled.Store(true)
		return nil, errors.New("unexpected transport call")
	})}

	c := newTestClient(t, ClientConfig{HTTPClient: httpClient, BaseURL: "https://example.com/"})
	c.deferRequests(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := c.NewRequest(ctx, http.MethodGet, "resource", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}

	_, err = c.Do(req, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if transportCalled.Load() {
		t.Fatal("transport should not be invoked when context already canceled")
	}
}

func TestClient_WaitForForcedDelayBlocksAndClears(t *testing.T) {
	c := newTestClient(t, ClientConfig{BaseURL: "https://example.com/"})
	c.deferRequests(30 * time.Millisecond)

	start := time.Now()
	if err := c.waitForForcedDelay(context.Background()); err != nil {
		t.Fatalf("waitForForcedDelay returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("expected waitForForcedDelay to block, elapsed %v", elapsed)
	}

	c.mu.Lock()
	cleared := c.forceWaitUntil.IsZero()
	c.mu.Unlock()
	if !cleared {
		t.Fatal("expected forced delay to be cleared after waiting")
	}
}

func TestClient_DeferRequestsNeverShortens(t *testing.T) {
	c := newTestClient(t, ClientConfig{BaseURL: "https://example.com/"})

	c.deferRequests(time.Minute)
	c.mu.Lock()
	long := c.forceWaitUntil
	c.mu.Unlock()

	c.deferRequests(time.Second)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.forceWaitUntil.Equal(long) {
		t.Errorf("shorter deferral replaced longer one: %v vs %v", c.forceWaitUntil, long)
	}
}

func TestClient_ApplyRateHeaders(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		wantDefer bool
		minWait   time.Duration
	}{
		{name: "no headers", headers: nil},
		{name: "quota remaining", headers: map[string]string{"X-Ratelimit-Remaining": "50", "X-Ratelimit-Reset": "30"}},
		{name: "quota exhausted", headers: map[string]string{"X-Ratelimit-Remaining": "0", "X-Ratelimit-Reset": "30"}, wantDefer: true, minWait: 29 * time.Second},
		{name: "retry after", headers: map[string]string{"Retry-After": "10"}, wantDefer: true, minWait: 9 * time.Second},
		{name: "invalid values", headers: map[string]string{"X-Ratelimit-Remaining": "zero", "X-Ratelimit-Reset": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, ClientConfig{BaseURL: "https://example.com/"})
			resp := &http.Response{Header: http.Header{}}
			for k, v := range tt.headers {
				resp.Header.Set(k, v)
			}

			c.applyRateHeaders(resp)

			c.mu.Lock()
			until := c.forceWaitUntil
			c.mu.Unlock()

			if !tt.wantDefer {
				if !until.IsZero() {
					t.Errorf("expected no deferral, got wait until %v", until)
				}
				return
			}
			if wait := time.Until(until); wait < tt.minWait {
				t.Errorf("expected deferral of at least %v, got %v", tt.minWait, wait)
			}
		})
	}
}
